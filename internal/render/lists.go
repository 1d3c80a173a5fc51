package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/controller"
)

// NotAvailable is printed for empty optional fields.
const NotAvailable = "N/A"

// WriteEntries prints entries in the given order with a relative start hint.
func WriteEntries(w io.Writer, entries []api.ScheduleEntry, loc *time.Location, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no schedules")
		return err
	}

	t := newTable(2)
	t.row("ID", "TITLE", "START", "END", "LOCATION", "WHEN")
	for _, e := range entries {
		t.row(
			strconv.FormatInt(e.ID, 10),
			e.Title,
			calendar.FormatDateTime(e.StartTime, loc),
			calendar.FormatDateTime(e.EndTime, loc),
			orNA(e.Location),
			humanize.RelTime(e.StartTime, now, "ago", "from now"),
		)
	}
	return t.writeTo(w)
}

// WriteUsers prints the admin user list.
func WriteUsers(w io.Writer, users []api.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "no users found")
		return err
	}

	t := newTable(2)
	t.row("ID", "USERNAME", "EMAIL")
	for _, u := range users {
		t.row(strconv.FormatInt(u.ID, 10), u.Username, u.Email)
	}
	return t.writeTo(w)
}

// WriteSelection prints the entries of the user selected in the admin panel,
// one block per entry with every field.
func WriteSelection(w io.Writer, sel *controller.AdminSelection, loc *time.Location) error {
	if sel == nil {
		_, err := fmt.Fprintln(w, "no user selected")
		return err
	}

	name := sel.Username
	if name == "" {
		name = fmt.Sprintf("user %d", sel.UserID)
	}
	fmt.Fprintf(w, "Schedules of %s (ID: %d)\n\n", name, sel.UserID)

	if sel.LoadFailed {
		_, err := fmt.Fprintln(w, "failed to load schedules")
		return err
	}
	if len(sel.Entries) == 0 {
		_, err := fmt.Fprintln(w, "no schedules")
		return err
	}

	t := newTable(2)
	for i, e := range sel.Entries {
		if i > 0 {
			t.row("")
		}
		t.row(fmt.Sprintf("#%d", e.ID), e.Title)
		t.row("  start:", calendar.FormatDateTime(e.StartTime, loc))
		t.row("  end:", calendar.FormatDateTime(e.EndTime, loc))
		t.row("  description:", orNA(e.Description))
		t.row("  location:", orNA(e.Location))
	}
	return t.writeTo(w)
}

// WriteWhoami prints the session summary.
func WriteWhoami(w io.Writer, st controller.State, now time.Time) error {
	if st.Mode == controller.ModeLoggedOut || st.Identity == nil {
		_, err := fmt.Fprintln(w, "not logged in")
		return err
	}

	fmt.Fprintf(w, "user id: %d\n", st.Identity.UserID)
	if st.Admin {
		fmt.Fprintln(w, "admin:   yes")
	}
	if st.Identity.ExpiresAt != nil {
		exp := st.Identity.ExpiresAt.Time
		fmt.Fprintf(w, "expires: %s (%s)\n", exp.Format(time.RFC3339), humanize.RelTime(exp, now, "ago", "from now"))
	}
	_, err := fmt.Fprintln(w, "note:    identity is decoded locally and unverified; the server authorizes every request")
	return err
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
