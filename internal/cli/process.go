package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
	"github.com/pfrederiksen/voebb-loans/internal/logger"
	"github.com/pfrederiksen/voebb-loans/internal/notifier"
	"github.com/pfrederiksen/voebb-loans/internal/storage"
)

// Processor records the result of a successful fetch. It diffs against the stored
// snapshot, sends reminders and change notifications, and saves the new snapshot.
type Processor struct {
	Store        *storage.Storage
	Notifier     notifier.Notifier // nil disables notifications
	ReminderDays int
	Now          func() time.Time
	Logger       *logger.Logger

	mu sync.Mutex
}

// Outcome is what Process found for one account
type Outcome struct {
	Changes  *loan.DiffResult
	DueSoon  []loan.Item // all items inside the reminder window
	Reminded []loan.Item // items a reminder was sent for in this run
	Snapshot *loan.Snapshot
}

// Process handles the items fetched for account at fetchedAt
func (p *Processor) Process(ctx context.Context, account string, items []loan.Item, fetchedAt time.Time) (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := p.logger().With(logger.Fields{"account": account})

	previous, err := p.Store.LoadSnapshot(account)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	changes := loan.Diff(previous.Items, items)
	if previous.UpdatedAt.IsZero() {
		// First run, nothing to compare against
		changes = &loan.DiffResult{}
	}

	snapshot := &loan.Snapshot{
		Items:     items,
		Reminded:  previous.Reminded,
		UpdatedAt: fetchedAt,
	}

	today := loan.DateOf(p.now())
	deadline := today.AddDays(p.ReminderDays)
	outcome := &Outcome{
		Changes:  changes,
		DueSoon:  loan.DueWithin(items, deadline),
		Snapshot: snapshot,
	}

	var sent []loan.Item
	if p.Notifier != nil {
		note := &notifier.Notification{
			Account: account,
			Today:   today,
			DueSoon: snapshot.PendingReminders(deadline),
			Changes: changes,
		}
		if !note.Empty() {
			if err := p.Notifier.Notify(ctx, note); err != nil {
				logger.IncrCounter("notify.failed")
				log.Error("Sending notification failed", nil, err)
			} else {
				logger.IncrCounter("notify.sent")
				sent = note.DueSoon
				log.Info("Notification sent", logger.Fields{
					"reminders": len(note.DueSoon),
					"borrowed":  len(changes.Borrowed),
					"returned":  len(changes.Returned),
				})
			}
		}
	}
	snapshot.MarkReminded(sent)
	outcome.Reminded = sent

	if err := p.Store.SaveSnapshot(account, snapshot); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	log.Debug("Saved snapshot", logger.Fields{"count": len(items)})

	return outcome, nil
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) logger() *logger.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logger.Default()
}
