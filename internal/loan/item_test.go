package loan

import (
	"testing"
	"time"
)

func TestParseTitleColumn(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantTitle    string
		wantAuthor   string
		wantMetadata string
	}{
		{
			name:         "title, author and metadata",
			text:         "Some Title / Jane Doe\nPaperback",
			wantTitle:    "Some Title",
			wantAuthor:   "Jane Doe",
			wantMetadata: "Paperback",
		},
		{
			name:         "title and metadata without author",
			text:         "Some Title\nPaperback",
			wantTitle:    "Some Title",
			wantMetadata: "Paperback",
		},
		{
			name:      "title only",
			text:      "Some Title",
			wantTitle: "Some Title",
		},
		{
			name:       "title and author without metadata",
			text:       "Some Title / Jane Doe",
			wantTitle:  "Some Title",
			wantAuthor: "Jane Doe",
		},
		{
			name:         "only first separator splits",
			text:         "A / B / C\nDVD\nverlängert",
			wantTitle:    "A",
			wantAuthor:   "B / C",
			wantMetadata: "DVD\nverlängert",
		},
		{
			name:         "slash without spaces is part of the title",
			text:         "Either/Or\nBuch",
			wantTitle:    "Either/Or",
			wantMetadata: "Buch",
		},
		{
			name: "empty text",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, author, metadata := ParseTitleColumn(tt.text)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if author != tt.wantAuthor {
				t.Errorf("author = %q, want %q", author, tt.wantAuthor)
			}
			if metadata != tt.wantMetadata {
				t.Errorf("metadata = %q, want %q", metadata, tt.wantMetadata)
			}
		})
	}
}

func TestNext(t *testing.T) {
	items := []Item{
		{Title: "May", ReturnDate: NewDate(2024, time.May, 1)},
		{Title: "April", ReturnDate: NewDate(2024, time.April, 10)},
		{Title: "June", ReturnDate: NewDate(2024, time.June, 20)},
	}

	next, ok := Next(items)
	if !ok {
		t.Fatal("Next() returned false for non-empty list")
	}
	if next.Title != "April" {
		t.Errorf("Next() = %q, want April", next.Title)
	}

	// Page order must not be changed
	if items[0].Title != "May" {
		t.Errorf("Next() reordered input, items[0] = %q", items[0].Title)
	}

	if _, ok := Next(nil); ok {
		t.Error("Next(nil) returned true")
	}
}

func TestSortByReturnDate_Stable(t *testing.T) {
	day := NewDate(2024, time.March, 3)
	items := []Item{
		{Title: "first", ReturnDate: day},
		{Title: "earlier", ReturnDate: day.AddDays(-1)},
		{Title: "second", ReturnDate: day},
	}

	sorted := SortByReturnDate(items)
	want := []string{"earlier", "first", "second"}
	for i, title := range want {
		if sorted[i].Title != title {
			t.Errorf("sorted[%d] = %q, want %q", i, sorted[i].Title, title)
		}
	}
}

func TestItemKey(t *testing.T) {
	a := Item{Title: "T", Author: "A", Library: "L", Metadata: "M", ReturnDate: NewDate(2024, 1, 2), Extension: "E"}
	b := a

	if a.Key() != b.Key() {
		t.Error("equal items have different keys")
	}
	if a != b {
		t.Error("equal items compare unequal")
	}

	b.Extension = "1 Verlängerung"
	if a.Key() == b.Key() {
		t.Error("items differing in extension share a key")
	}

	c := a
	c.ReturnDate = a.ReturnDate.AddDays(14)
	if a.Key() == c.Key() {
		t.Error("items differing in due date share a key")
	}
}

func TestDueWithin(t *testing.T) {
	today := NewDate(2024, time.April, 8)
	items := []Item{
		{Title: "later", ReturnDate: today.AddDays(10)},
		{Title: "soon", ReturnDate: today.AddDays(2)},
		{Title: "overdue", ReturnDate: today.AddDays(-1)},
		{Title: "deadline", ReturnDate: today.AddDays(3)},
	}

	due := DueWithin(items, today.AddDays(3))
	want := []string{"overdue", "soon", "deadline"}
	if len(due) != len(want) {
		t.Fatalf("DueWithin() returned %d items, want %d", len(due), len(want))
	}
	for i, title := range want {
		if due[i].Title != title {
			t.Errorf("due[%d] = %q, want %q", i, due[i].Title, title)
		}
	}
}
