package loan

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		text    string
		want    Date
		wantErr bool
	}{
		{"24.05.2024", NewDate(2024, time.May, 24), false},
		{"4.5.2024", NewDate(2024, time.May, 4), false},
		{"04.05.24", NewDate(2024, time.May, 4), false},
		{"  10.04.2024\n", NewDate(2024, time.April, 10), false},
		{"Frist: 01.06.2024 (verlängert)", NewDate(2024, time.June, 1), false},
		{"2024-06-20", NewDate(2024, time.June, 20), false},
		{"31.02.2024", Date{}, true},
		{"", Date{}, true},
		{"morgen", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseDate(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.April, 10)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-04-10"` {
		t.Errorf("Marshal() = %s, want \"2024-04-10\"", data)
	}

	var decoded Date
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded != d {
		t.Errorf("Unmarshal() = %s, want %s", decoded, d)
	}

	if err := json.Unmarshal([]byte(`"10.04.2024"`), &decoded); err == nil {
		t.Error("Unmarshal() accepted a non-ISO date")
	}
}

func TestDateOf(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*60*60)
	got := DateOf(time.Date(2024, time.April, 10, 23, 30, 0, 0, berlin))
	if got != NewDate(2024, time.April, 10) {
		t.Errorf("DateOf() = %s, want 2024-04-10", got)
	}
}
