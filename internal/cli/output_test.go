package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

func sampleResult() *OutputResult {
	dune := loan.Item{
		Title:      "Dune",
		Author:     "Frank Herbert",
		Library:    "Zentralbibliothek",
		Metadata:   "Roman",
		ReturnDate: loan.NewDate(2024, time.April, 10),
		Extension:  "Verlängerbar",
	}
	hobbit := loan.Item{Title: "The Hobbit", ReturnDate: loan.NewDate(2024, time.May, 1)}

	return &OutputResult{
		CheckedAt:    time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC),
		ReminderDays: 3,
		Accounts: []AccountResult{
			{
				Account:  "111",
				State:    "Next item to return: Dune at 2024-04-10",
				Items:    []loan.Item{dune, hobbit},
				DueSoon:  []loan.Item{dune},
				Borrowed: []loan.Item{hobbit},
			},
			{Account: "222", State: "N/A"},
		},
		ItemCount:    2,
		DueSoonCount: 1,
	}
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, false); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"111: Next item to return: Dune at 2024-04-10",
		" ! 2024-04-10  Dune / Frank Herbert\n",
		"   2024-05-01  The Hobbit\n",
		"NEW: The Hobbit (due 2024-05-01)",
		"222: N/A\n  No loans.",
		"Total: 2 items, 1 due within 3 days",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Library:") {
		t.Error("non-verbose output contains details")
	}
}

func TestWriteOutput_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, true); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	for _, want := range []string{"Library: Zentralbibliothek", "Details: Roman", "Renewal: Verlängerbar"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("verbose output missing %q", want)
		}
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatJSON, false); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	accounts := decoded["accounts"].([]any)
	first := accounts[0].(map[string]any)
	item := first["items"].([]any)[0].(map[string]any)
	if item["expiry"] != "2024-04-10" {
		t.Errorf("expiry = %v, want 2024-04-10", item["expiry"])
	}
	if decoded["due_soon_count"].(float64) != 1 {
		t.Errorf("due_soon_count = %v", decoded["due_soon_count"])
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	if err := WriteOutput(&bytes.Buffer{}, sampleResult(), OutputFormat("xml"), false); err == nil {
		t.Error("WriteOutput() expected error for unknown format")
	}
}
