package notifier

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/voebb-loans/internal/telegram"
)

// messageSender is the part of the Telegram client used for notifications
type messageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier sends notifications to a Telegram chat
type TelegramNotifier struct {
	client messageSender
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(botToken, chatID string) (*TelegramNotifier, error) {
	client, err := telegram.NewClient(botToken, chatID)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	return &TelegramNotifier{client: client}, nil
}

// Notify sends one message per notification part
func (n *TelegramNotifier) Notify(ctx context.Context, note *Notification) error {
	for _, msg := range Messages(note) {
		if err := n.client.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("failed to send message for %s: %w", note.Account, err)
		}
	}
	return nil
}
