package calendar

import (
	"fmt"
	"time"
)

// MinutesPerDay is the height of a full day column.
const MinutesPerDay = 24 * 60

// Entry is the part of a schedule entry the layout needs.
type Entry struct {
	ID    int64
	Title string
	Start time.Time
	End   time.Time
}

// Block is one entry positioned inside a day column.
type Block struct {
	EntryID int64
	Title   string
	// TimeRange is "HH:MM - HH:MM" in the grid's location.
	TimeRange string
	// Top is minutes since local midnight of the start day.
	Top int
	// Height is the duration in minutes, never negative.
	Height int
}

// Day is one column of the grid.
type Day struct {
	Date time.Time
	// Label is the localized weekday abbreviation.
	Label string
	// Current is set on the column matching today's date.
	Current bool
	Blocks  []Block
}

// Number is the day of month shown under the label.
func (d Day) Number() int {
	return d.Date.Day()
}

// Grid is the declarative placement model of one week.
type Grid struct {
	Window Window
	// Title is the month and year of the week's Monday.
	Title string
	// Hours holds the 24 axis labels "00:00" to "23:00".
	Hours []string
	Days  [DaysPerWeek]Day
}

// Empty reports whether no block was placed.
func (g Grid) Empty() bool {
	for _, d := range g.Days {
		if len(d.Blocks) > 0 {
			return false
		}
	}
	return true
}

// Options controls how a Grid is produced.
type Options struct {
	// Location is the zone the grid is drawn in. Nil means time.Local.
	Location *time.Location
	Locale   Locale
}

// HourLabels returns "00:00" through "23:00".
func HourLabels() []string {
	hours := make([]string, 24)
	for h := range hours {
		hours[h] = fmt.Sprintf("%02d:00", h)
	}
	return hours
}

// Layout builds the grid for the week containing ref. now marks the current
// day. Entries whose start falls outside the week are dropped; the rest keep
// their input order within each day.
func Layout(ref, now time.Time, entries []Entry, opts Options) Grid {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	window := WeekOf(ref, loc)
	grid := Grid{
		Window: window,
		Title:  opts.Locale.MonthTitle(window.Start),
		Hours:  HourLabels(),
	}

	for i := range grid.Days {
		date := window.Day(i)
		grid.Days[i] = Day{
			Date:    date,
			Label:   opts.Locale.DayLabel(i),
			Current: SameDay(date, now, loc),
		}
	}

	for _, e := range entries {
		if !window.Contains(e.Start) {
			continue
		}
		start := e.Start.In(loc)
		idx := DayIndex(start.Weekday())
		grid.Days[idx].Blocks = append(grid.Days[idx].Blocks, place(e, loc))
	}

	return grid
}

func place(e Entry, loc *time.Location) Block {
	start, end := e.Start.In(loc), e.End.In(loc)
	startMin := minuteOfDay(start)
	endMin := minuteOfDay(end)

	return Block{
		EntryID:   e.ID,
		Title:     e.Title,
		TimeRange: FormatTimeRange(start, end),
		Top:       startMin,
		Height:    max(0, endMin-startMin),
	}
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
