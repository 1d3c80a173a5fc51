package calendar

import "time"

// DaysPerWeek is the number of day columns in a Grid.
const DaysPerWeek = 7

// StartOfWeek returns local midnight of the Monday on or before t, in t's location.
// A Sunday belongs to the week that started six days earlier.
func StartOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-mondayOffset(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// mondayOffset is the number of days since the preceding Monday.
func mondayOffset(wd time.Weekday) int {
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// DayIndex maps a weekday to its column, Monday=0 through Sunday=6.
func DayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % DaysPerWeek
}

// Window is the Monday-to-Sunday span shown by a Grid.
type Window struct {
	// Start is local midnight of the Monday.
	Start time.Time
	// End is local midnight of the Sunday, Start plus six days.
	End time.Time
}

// WeekOf returns the window containing ref, evaluated in loc. A nil loc keeps ref's location.
func WeekOf(ref time.Time, loc *time.Location) Window {
	if loc != nil {
		ref = ref.In(loc)
	}
	start := StartOfWeek(ref)
	return Window{
		Start: start,
		End:   start.AddDate(0, 0, DaysPerWeek-1),
	}
}

// Contains reports whether t falls on one of the window's seven calendar days.
// Both the Monday and the Sunday are included in full.
func (w Window) Contains(t time.Time) bool {
	t = t.In(w.Start.Location())
	return !t.Before(w.Start) && t.Before(w.Start.AddDate(0, 0, DaysPerWeek))
}

// Day returns local midnight of the i-th day of the window.
func (w Window) Day(i int) time.Time {
	return w.Start.AddDate(0, 0, i)
}

// ShiftWeeks moves a reference date by n weeks, keeping its time of day.
func ShiftWeeks(ref time.Time, n int) time.Time {
	return ref.AddDate(0, 0, DaysPerWeek*n)
}

// SameDay reports whether a and b share year, month and day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc != nil {
		a, b = a.In(loc), b.In(loc)
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
