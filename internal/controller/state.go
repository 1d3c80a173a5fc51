package controller

import (
	"slices"
	"time"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/session"
)

// Mode is the UI mode.
type Mode int

const (
	ModeLoggedOut Mode = iota
	ModeSchedule
)

func (m Mode) String() string {
	switch m {
	case ModeLoggedOut:
		return "logged-out"
	case ModeSchedule:
		return "schedule"
	default:
		return "unknown"
	}
}

// AdminSelection is the user picked in the admin panel.
type AdminSelection struct {
	UserID   int64
	Username string
	Entries  []api.ScheduleEntry
	// LoadFailed is set when the selected user's entries could not be fetched.
	LoadFailed bool
}

// State is a snapshot of the application state.
type State struct {
	Mode     Mode
	Identity *session.Identity
	// Admin is the capability flag that shows the admin panel.
	Admin bool

	// Reference is any instant inside the displayed week.
	Reference time.Time
	Entries   []api.ScheduleEntry

	Users    []api.User
	Selected *AdminSelection
}

// UserID returns the logged-in user id or 0.
func (s State) UserID() int64 {
	if s.Identity == nil {
		return 0
	}
	return s.Identity.UserID
}

// clone deep-copies the slices so a snapshot cannot alias the live state.
func (s State) clone() State {
	out := s
	out.Entries = slices.Clone(s.Entries)
	out.Users = slices.Clone(s.Users)
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Selected != nil {
		sel := *s.Selected
		sel.Entries = slices.Clone(s.Selected.Entries)
		out.Selected = &sel
	}
	return out
}

// EntryInput is a new schedule entry as typed by the user.
type EntryInput struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
}

// Validate checks the fields the form marks as required. End before start
// is left for the server to judge.
func (in EntryInput) Validate() error {
	v := &ValidationError{}
	required(v, "title", in.Title)
	if in.Start.IsZero() {
		v.add("start_time", "is required")
	}
	if in.End.IsZero() {
		v.add("end_time", "is required")
	}
	return v.errOrNil()
}

func (in EntryInput) toAPI(ownerID int64) api.NewSchedule {
	return api.NewSchedule{
		Title:       in.Title,
		StartTime:   in.Start,
		EndTime:     in.End,
		Description: in.Description,
		Location:    in.Location,
		OwnerID:     ownerID,
	}
}

// CalendarEntries converts API entries for the layout engine, keeping order.
func CalendarEntries(entries []api.ScheduleEntry) []calendar.Entry {
	out := make([]calendar.Entry, len(entries))
	for i, e := range entries {
		out[i] = calendar.Entry{
			ID:    e.ID,
			Title: e.Title,
			Start: e.StartTime,
			End:   e.EndTime,
		}
	}
	return out
}
