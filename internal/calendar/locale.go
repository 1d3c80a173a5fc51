package calendar

import (
	"fmt"
	"time"
)

// Locale selects day labels and the month-year title format.
type Locale string

const (
	LocaleJA Locale = "ja"
	LocaleEN Locale = "en"
)

var dayLabels = map[Locale][DaysPerWeek]string{
	LocaleJA: {"月", "火", "水", "木", "金", "土", "日"},
	LocaleEN: {"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
}

// ParseLocale validates s.
func ParseLocale(s string) (Locale, error) {
	l := Locale(s)
	if _, ok := dayLabels[l]; !ok {
		return "", fmt.Errorf("unsupported locale %q", s)
	}
	return l, nil
}

// DayLabel returns the abbreviation of the i-th column, Monday=0.
// Unknown locales fall back to Japanese.
func (l Locale) DayLabel(i int) string {
	labels, ok := dayLabels[l]
	if !ok {
		labels = dayLabels[LocaleJA]
	}
	return labels[i%DaysPerWeek]
}

// MonthTitle formats the month and year of t, e.g. "2026年 10月" or "October 2026".
func (l Locale) MonthTitle(t time.Time) string {
	if l == LocaleEN {
		return t.Format("January 2006")
	}
	return fmt.Sprintf("%d年 %d月", t.Year(), int(t.Month()))
}
