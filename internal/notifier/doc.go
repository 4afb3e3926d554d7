// Package notifier provides notification interfaces and implementations for VOEBB loans.
//
// The notifier package delivers due-date reminders and loan changes of an account to a
// notification channel. Implementations include a dry-run notifier that prints messages
// and a Telegram notifier.
package notifier
