// Package calendar exports loan due dates as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

// GenerateICS generates an iCalendar (.ics) document with one all-day event per item
// on its due date
func GenerateICS(account string, items []loan.Item, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//VOEBB Loans//voebb-loans//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	writeLine(&ics, "X-WR-CALNAME:"+escapeICS("VOEBB "+account))

	stamp := formatICSTime(now)
	for _, item := range loan.SortByReturnDate(items) {
		writeEvent(&ics, account, item, stamp)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, account string, item loan.Item, stamp string) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	// UID stays stable across exports until the item or its due date changes
	ics.WriteString(fmt.Sprintf("UID:%s-%s@voebb.de\r\n", item.Key()[:16], account))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", stamp))

	ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", formatICSDate(item.ReturnDate)))
	ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", formatICSDate(item.ReturnDate.AddDays(1))))

	writeLine(ics, "SUMMARY:"+escapeICS("Return: "+item.Title))

	description := item.Title
	if item.Author != "" {
		description += " / " + item.Author
	}
	if item.Metadata != "" {
		description += "\n" + item.Metadata
	}
	if item.Extension != "" {
		description += "\n" + item.Extension
	}
	writeLine(ics, "DESCRIPTION:"+escapeICS(description))

	if item.Library != "" {
		writeLine(ics, "LOCATION:"+escapeICS(item.Library))
	}

	ics.WriteString("TRANSP:TRANSPARENT\r\n")

	// Alarm on the morning of the day before
	ics.WriteString("BEGIN:VALARM\r\n")
	ics.WriteString("ACTION:DISPLAY\r\n")
	writeLine(ics, "DESCRIPTION:"+escapeICS("Return tomorrow: "+item.Title))
	ics.WriteString("TRIGGER:-PT15H\r\n")
	ics.WriteString("END:VALARM\r\n")

	ics.WriteString("END:VEVENT\r\n")
}

// writeLine writes a content line folded at 75 octets as RFC 5545 requires
func writeLine(ics *strings.Builder, line string) {
	const limit = 75
	for len(line) > limit {
		cut := limit
		// Do not split a UTF-8 sequence
		for cut > 0 && line[cut]&0xC0 == 0x80 {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatICSDate formats a day as an iCalendar date value
func formatICSDate(d loan.Date) string {
	return d.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
