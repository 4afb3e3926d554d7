// Package telegram provides Telegram Bot API integration for VOEBB loan notifications.
//
// The package sends HTML-formatted messages through the Bot API sendMessage method
// and formats due-date reminders and loan changes for a chat.
//
// Authentication requires a bot token (from @BotFather) and chat ID.
package telegram
