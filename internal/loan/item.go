package loan

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
)

// Separators used by the portal in the combined title column
const (
	authorSeparator = " / "
	lineSeparator   = "\n"
)

// Item represents one row of the loans table
type Item struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	Library    string `json:"library"`
	Metadata   string `json:"metadata"`
	ReturnDate Date   `json:"expiry"`
	Extension  string `json:"extension"`
}

// Key creates a deterministic identifier from all fields of the item
func (i Item) Key() string {
	h := sha1.New()
	h.Write([]byte(strings.Join([]string{
		i.Title,
		i.Author,
		i.Library,
		i.Metadata,
		i.ReturnDate.String(),
		i.Extension,
	}, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Less reports whether i is due before other
func (i Item) Less(other Item) bool {
	return i.ReturnDate.Before(other.ReturnDate)
}

// ParseTitleColumn splits the combined title column into title, author and metadata.
//
// With a " / " separator the left part is the title and the right part holds the
// author, optionally followed by a line break and metadata. Without it the author stays
// empty and only a line break splits title from metadata.
func ParseTitleColumn(text string) (title, author, metadata string) {
	if left, rest, ok := strings.Cut(text, authorSeparator); ok {
		title = left
		if a, m, ok := strings.Cut(rest, lineSeparator); ok {
			return title, a, m
		}
		return title, rest, ""
	}

	if t, m, ok := strings.Cut(text, lineSeparator); ok {
		return t, "", m
	}
	return text, "", ""
}

// NewItem creates an Item from the raw cell texts of one table row
func NewItem(returnDate Date, library, titleColumn, extension string) Item {
	title, author, metadata := ParseTitleColumn(titleColumn)
	return Item{
		Title:      title,
		Author:     author,
		Library:    library,
		Metadata:   metadata,
		ReturnDate: returnDate,
		Extension:  extension,
	}
}

// SortByReturnDate returns a copy of items ordered by due date, earliest first.
// Items sharing a due date keep their page order.
func SortByReturnDate(items []Item) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Less(sorted[b])
	})
	return sorted
}

// Next returns the item with the earliest due date.
// Returns false if items is empty.
func Next(items []Item) (Item, bool) {
	if len(items) == 0 {
		return Item{}, false
	}
	return SortByReturnDate(items)[0], true
}

// DueWithin returns the items due on or before the given date, in due-date order
func DueWithin(items []Item, deadline Date) []Item {
	due := make([]Item, 0)
	for _, item := range SortByReturnDate(items) {
		if item.ReturnDate.After(deadline) {
			break
		}
		due = append(due, item)
	}
	return due
}
