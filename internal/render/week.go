package render

import (
	"fmt"
	"io"

	"github.com/teemow/schedcli/internal/calendar"
)

// cellWidth is the visible width of one day column in the hour grid.
const cellWidth = 12

// WriteWeek prints the month title, the day headers and an hour grid. Only
// hours covered by at least one block are printed. A block is drawn with its
// title in the hour it starts and a bar in the following hours it covers.
func WriteWeek(w io.Writer, grid calendar.Grid) error {
	t := newTable(1)
	t.row(grid.Title)
	t.row("")

	header := []string{""}
	for _, d := range grid.Days {
		label := fmt.Sprintf("%s %d", d.Label, d.Number())
		if d.Current {
			label += " *"
		}
		header = append(header, label)
	}
	t.row(header...)

	if grid.Empty() {
		t.row("")
		t.row("no schedules this week")
		return t.writeTo(w)
	}

	cells := hourCells(grid)
	for h, label := range grid.Hours {
		row := cells[h]
		if !anyNonEmpty(row) {
			continue
		}
		t.row(append([]string{label}, row[:]...)...)
	}

	if err := t.writeTo(w); err != nil {
		return err
	}
	return writeLegend(w, grid)
}

func hourCells(grid calendar.Grid) [24][calendar.DaysPerWeek]string {
	var cells [24][calendar.DaysPerWeek]string
	for di, d := range grid.Days {
		for _, b := range d.Blocks {
			first := b.Top / 60
			last := first
			if b.Height > 0 {
				last = (b.Top + b.Height - 1) / 60
			}
			for h := first; h <= last && h < 24; h++ {
				mark := "|"
				if h == first {
					mark = truncate(b.Title, cellWidth)
				}
				if cells[h][di] == "" {
					cells[h][di] = mark
				} else if h == first {
					cells[h][di] += "+"
				}
			}
		}
	}
	return cells
}

// writeLegend lists every block with its id so it can be deleted.
func writeLegend(w io.Writer, grid calendar.Grid) error {
	t := newTable(2)
	t.row("")
	for _, d := range grid.Days {
		for _, b := range d.Blocks {
			t.row(fmt.Sprintf("#%d", b.EntryID), fmt.Sprintf("%s %d", d.Label, d.Number()), b.TimeRange, b.Title)
		}
	}
	return t.writeTo(w)
}

func anyNonEmpty(row [calendar.DaysPerWeek]string) bool {
	for _, c := range row {
		if c != "" {
			return true
		}
	}
	return false
}
