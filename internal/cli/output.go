package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// AccountResult holds the loans of one account
type AccountResult struct {
	Account  string      `json:"account"`
	State    string      `json:"state"`
	Items    []loan.Item `json:"items"`
	DueSoon  []loan.Item `json:"due_soon"`
	Borrowed []loan.Item `json:"borrowed,omitempty"`
	Returned []loan.Item `json:"returned,omitempty"`
}

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt    time.Time       `json:"checked_at"`
	ReminderDays int             `json:"reminder_days"`
	Accounts     []AccountResult `json:"accounts"`
	ItemCount    int             `json:"item_count"`
	DueSoonCount int             `json:"due_soon_count"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	for _, acc := range result.Accounts {
		fmt.Fprintf(w, "\n%s: %s\n", acc.Account, acc.State)
		if len(acc.Items) == 0 {
			fmt.Fprintln(w, "  No loans.")
			continue
		}

		due := make(map[string]bool, len(acc.DueSoon))
		for _, item := range acc.DueSoon {
			due[item.Key()] = true
		}

		for _, item := range acc.Items {
			marker := "   "
			if due[item.Key()] {
				marker = " ! "
			}
			fmt.Fprintf(w, "%s%s  %s", marker, item.ReturnDate, item.Title)
			if item.Author != "" {
				fmt.Fprintf(w, " / %s", item.Author)
			}
			fmt.Fprintln(w)
			if verbose {
				if item.Library != "" {
					fmt.Fprintf(w, "       Library: %s\n", item.Library)
				}
				if item.Metadata != "" {
					fmt.Fprintf(w, "       Details: %s\n", item.Metadata)
				}
				if item.Extension != "" {
					fmt.Fprintf(w, "       Renewal: %s\n", item.Extension)
				}
			}
		}

		for _, item := range acc.Borrowed {
			fmt.Fprintf(w, "  NEW: %s (due %s)\n", item.Title, item.ReturnDate)
		}
		for _, item := range acc.Returned {
			fmt.Fprintf(w, "  RETURNED: %s\n", item.Title)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d %s, %d due within %d days\n",
		result.ItemCount, pluralize(result.ItemCount, "item", "items"), result.DueSoonCount, result.ReminderDays)
	return nil
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
