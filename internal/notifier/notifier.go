package notifier

import (
	"context"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

// Notification describes what happened to one account's loans
type Notification struct {
	Account string
	Today   loan.Date
	DueSoon []loan.Item
	Changes *loan.DiffResult
}

// Empty reports whether there is nothing to send
func (n *Notification) Empty() bool {
	return len(n.DueSoon) == 0 && (n.Changes == nil || n.Changes.Empty())
}

// Notifier defines the interface for delivering loan notifications
type Notifier interface {
	// Notify delivers the notification
	Notify(ctx context.Context, n *Notification) error
}
