package loan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the format used when a due date is rendered or serialized
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, stored as midnight UTC
type Date struct {
	time.Time
}

// NewDate creates a Date for the given day
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Before reports whether d is an earlier day than other
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is a later day than other
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// AddDays returns the day n days after d
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	*d = Date{t}
	return nil
}

var (
	germanDatePattern = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}`)
	isoDatePattern    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// ParseDate extracts the first date found in the text of a due-date cell.
// Supports formats: "24.05.2024", "4.5.2024", "04.05.24", "2024-05-24"
func ParseDate(text string) (Date, error) {
	text = strings.TrimSpace(text)

	if match := germanDatePattern.FindString(text); match != "" {
		for _, layout := range []string{"02.01.2006", "2.1.2006", "02.01.06", "2.1.06"} {
			if t, err := time.Parse(layout, match); err == nil {
				return Date{t}, nil
			}
		}
	}

	if match := isoDatePattern.FindString(text); match != "" {
		if t, err := time.Parse(DateLayout, match); err == nil {
			return Date{t}, nil
		}
	}

	return Date{}, fmt.Errorf("no due date in %q", text)
}
