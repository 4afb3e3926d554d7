package loan

import (
	"time"
)

// Snapshot is the last-known-good list of loans for one account
type Snapshot struct {
	Items     []Item          `json:"items"`
	Reminded  map[string]Date `json:"reminded"`   // Item.Key → due date a reminder was sent for
	UpdatedAt time.Time       `json:"updated_at"` // time of the fetch that produced Items
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Items:    make([]Item, 0),
		Reminded: make(map[string]Date),
	}
}

// DiffResult contains the results of comparing two item lists
type DiffResult struct {
	Borrowed []Item // present now, absent before
	Returned []Item // present before, absent now
}

// Empty reports whether nothing changed
func (d *DiffResult) Empty() bool {
	return len(d.Borrowed) == 0 && len(d.Returned) == 0
}

// Diff compares the current items against the previous list.
// A renewed item shows up as returned and borrowed again because its due date changed.
func Diff(previous, current []Item) *DiffResult {
	result := &DiffResult{
		Borrowed: make([]Item, 0),
		Returned: make([]Item, 0),
	}

	before := make(map[string]bool, len(previous))
	for _, item := range previous {
		before[item.Key()] = true
	}
	now := make(map[string]bool, len(current))
	for _, item := range current {
		now[item.Key()] = true
		if !before[item.Key()] {
			result.Borrowed = append(result.Borrowed, item)
		}
	}
	for _, item := range previous {
		if !now[item.Key()] {
			result.Returned = append(result.Returned, item)
		}
	}

	result.Borrowed = SortByReturnDate(result.Borrowed)
	result.Returned = SortByReturnDate(result.Returned)
	return result
}

// PendingReminders returns items due on or before deadline that have no reminder yet
// for their current due date
func (s *Snapshot) PendingReminders(deadline Date) []Item {
	pending := make([]Item, 0)
	for _, item := range DueWithin(s.Items, deadline) {
		if sent, ok := s.Reminded[item.Key()]; ok && sent.Equal(item.ReturnDate.Time) {
			continue
		}
		pending = append(pending, item)
	}
	return pending
}

// MarkReminded records that a reminder was sent for the given items and forgets
// reminders for items no longer borrowed
func (s *Snapshot) MarkReminded(items []Item) {
	if s.Reminded == nil {
		s.Reminded = make(map[string]Date)
	}
	for _, item := range items {
		s.Reminded[item.Key()] = item.ReturnDate
	}

	current := make(map[string]bool, len(s.Items))
	for _, item := range s.Items {
		current[item.Key()] = true
	}
	for key := range s.Reminded {
		if !current[key] {
			delete(s.Reminded, key)
		}
	}
}
