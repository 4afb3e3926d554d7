package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

// FormatReminder formats items due soon as one message
func FormatReminder(account string, items []loan.Item, today loan.Date) string {
	var msg strings.Builder

	fmt.Fprintf(&msg, "📚 <b>VOEBB %s</b>: %d %s due soon\n", html.EscapeString(account), len(items), pluralize(len(items)))
	for _, item := range items {
		msg.WriteString("\n")
		writeItem(&msg, item)
		fmt.Fprintf(&msg, "   📅 %s (%s)\n", item.ReturnDate, daysLabel(today, item.ReturnDate))
	}

	return truncate(msg.String())
}

// FormatChanges formats borrowed and returned items as one message
func FormatChanges(account string, diff *loan.DiffResult) string {
	var msg strings.Builder

	fmt.Fprintf(&msg, "📚 <b>VOEBB %s</b>: loans changed\n", html.EscapeString(account))
	if len(diff.Borrowed) > 0 {
		fmt.Fprintf(&msg, "\n<b>Borrowed (%d)</b>\n", len(diff.Borrowed))
		for _, item := range diff.Borrowed {
			writeItem(&msg, item)
			fmt.Fprintf(&msg, "   📅 due %s\n", item.ReturnDate)
		}
	}
	if len(diff.Returned) > 0 {
		fmt.Fprintf(&msg, "\n<b>Returned (%d)</b>\n", len(diff.Returned))
		for _, item := range diff.Returned {
			writeItem(&msg, item)
		}
	}

	return truncate(msg.String())
}

func writeItem(msg *strings.Builder, item loan.Item) {
	fmt.Fprintf(msg, "• <b>%s</b>", html.EscapeString(item.Title))
	if item.Author != "" {
		fmt.Fprintf(msg, " / %s", html.EscapeString(item.Author))
	}
	msg.WriteString("\n")
	if item.Library != "" {
		fmt.Fprintf(msg, "   🏛 %s\n", html.EscapeString(item.Library))
	}
}

func daysLabel(today, due loan.Date) string {
	days := int(due.Sub(today.Time).Hours() / 24)
	switch {
	case days < 0:
		return fmt.Sprintf("overdue by %d %s", -days, dayWord(-days))
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

func dayWord(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

func pluralize(count int) string {
	if count == 1 {
		return "item"
	}
	return "items"
}

// truncate cuts a message to the Bot API limit at a line boundary, or at a rune
// boundary when the kept part has no line break
func truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return text
	}
	const suffix = "\n…"
	keep := MaxMessageLength - utf8.RuneCountInString(suffix)

	var end, n int
	for i := range text {
		if n == keep {
			end = i
			break
		}
		n++
	}
	head := text[:end]
	if cut := strings.LastIndex(head, "\n"); cut >= 0 {
		head = head[:cut]
	}
	return head + suffix
}
