package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/voebb-loans/internal/telegram"
)

// DryRunNotifier prints what would be sent without actually sending
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to w
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Notify prints the messages that would be sent
func (n *DryRunNotifier) Notify(ctx context.Context, note *Notification) error {
	messages := Messages(note)
	for i, msg := range messages {
		fmt.Fprintf(n.w, "--- Message %d/%d (%s) ---\n", i+1, len(messages), note.Account)
		fmt.Fprintln(n.w, msg)
		fmt.Fprintln(n.w)
	}
	return nil
}

// Messages renders a notification as chat messages, reminders first
func Messages(note *Notification) []string {
	messages := make([]string, 0, 2)
	if len(note.DueSoon) > 0 {
		messages = append(messages, telegram.FormatReminder(note.Account, note.DueSoon, note.Today))
	}
	if note.Changes != nil && !note.Changes.Empty() {
		messages = append(messages, telegram.FormatChanges(note.Account, note.Changes))
	}
	return messages
}
