package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate    SortOrder = "date"
	SortByTitle   SortOrder = "title"
	SortByLibrary SortOrder = "library"
)

// parseSortOrder validates a --sort value
func parseSortOrder(s string) (SortOrder, bool) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortByDate, SortByTitle, SortByLibrary:
		return order, true
	default:
		return "", false
	}
}

// sortItems sorts a slice of items based on the specified sort order
func sortItems(items []loan.Item, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(items, func(i, j int) bool {
			return compareByDate(items[i], items[j])
		})
	case SortByTitle:
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := strings.ToLower(items[i].Title), strings.ToLower(items[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return compareByDate(items[i], items[j])
		})
	case SortByLibrary:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Library != items[j].Library {
				return items[i].Library < items[j].Library
			}
			// If libraries are equal, sort by date
			return compareByDate(items[i], items[j])
		})
	}
}

// compareByDate compares two items by their due date
// Returns true if item i should come before item j
func compareByDate(i, j loan.Item) bool {
	if !i.ReturnDate.Equal(j.ReturnDate.Time) {
		return i.ReturnDate.Before(j.ReturnDate)
	}
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
