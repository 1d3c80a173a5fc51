package calendar

import (
	"fmt"
	"time"
)

// Layouts used for parsing input and printing lists.
const (
	LayoutDateTimeLocal = "2006-01-02T15:04"
	LayoutDate          = "2006-01-02"
	LayoutDisplay       = "2006-01-02 15:04"
)

// FormatTimeRange renders "HH:MM - HH:MM" using the locations of start and end.
func FormatTimeRange(start, end time.Time) string {
	return start.Format("15:04") + " - " + end.Format("15:04")
}

// FormatDateTime renders t in loc for lists.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(LayoutDisplay)
}

// ParseDateTime accepts an HTML datetime-local value ("2026-10-12T09:00"),
// interpreted in loc, or an RFC 3339 timestamp.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(LayoutDateTimeLocal, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected YYYY-MM-DDTHH:MM or RFC 3339", s)
}

// ParseDate parses YYYY-MM-DD as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(LayoutDate, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
