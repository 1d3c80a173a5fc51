package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/instrumentation"
	"github.com/teemow/schedcli/internal/logging"
	"github.com/teemow/schedcli/internal/session"
)

// DefaultAdminUserID is the reserved user id that gets the admin panel.
const DefaultAdminUserID = 1

// Audit action names.
const (
	ActionStart            = "start"
	ActionLogin            = "login"
	ActionRegister         = "register"
	ActionLogout           = "logout"
	ActionRefresh          = "refresh"
	ActionCreateEntry      = "create_entry"
	ActionDeleteEntry      = "delete_entry"
	ActionAdminListUsers   = "admin_list_users"
	ActionAdminSelectUser  = "admin_select_user"
	ActionAdminCreateEntry = "admin_create_entry"
	ActionAdminDeleteEntry = "admin_delete_entry"
)

// API is the subset of the API client the controller drives.
type API interface {
	Register(ctx context.Context, reg api.Registration) error
	Login(ctx context.Context, creds api.Credentials) (string, error)
	ListSchedules(ctx context.Context, userID int64) ([]api.ScheduleEntry, error)
	CreateSchedule(ctx context.Context, in api.NewSchedule) (*api.ScheduleEntry, error)
	DeleteSchedule(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]api.User, error)
}

// Options configures an App.
type Options struct {
	// AdminUserID defaults to DefaultAdminUserID.
	AdminUserID int64
	// Location is the display zone; nil means time.Local.
	Location *time.Location
	Locale   calendar.Locale
	// Now defaults to time.Now.
	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// App is the view controller.
type App struct {
	mu    sync.Mutex
	api   API
	store session.Store
	opts  Options
	log   *slog.Logger
	state State
}

// New creates an App in the logged-out mode. Call Start to pick up a
// persisted session.
func New(client API, store session.Store, opts Options) *App {
	if opts.AdminUserID <= 0 {
		opts.AdminUserID = DefaultAdminUserID
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Locale == "" {
		opts.Locale = calendar.LocaleJA
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &App{
		api:   client,
		store: store,
		opts:  opts,
		log:   logging.WithComponent(opts.Logger, "controller"),
	}
	a.state.Reference = opts.Now()
	return a
}

// State returns a copy of the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone()
}

// Location returns the display zone.
func (a *App) Location() *time.Location {
	return a.opts.Location
}

// Locale returns the display locale.
func (a *App) Locale() calendar.Locale {
	return a.opts.Locale
}

// Now returns the controller's current time.
func (a *App) Now() time.Time {
	return a.opts.Now()
}

// Start restores a persisted session. Without a token, or with a token whose
// payload cannot be decoded, the App stays logged out and the stale token is
// removed. With a valid token the App enters the schedule mode and fetches
// the user's entries (and the user list for the admin).
func (a *App) Start(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := instrumentation.NewActionRecord(ActionStart)
	defer func() { a.audit(ctx, rec, err) }()

	token, err := a.store.Token()
	if errors.Is(err, session.ErrNoToken) {
		a.state = State{Reference: a.state.Reference}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	id, ok := session.DecodeIdentity(token)
	if !ok {
		a.log.Warn("discarding session token without a valid identity", slog.String("token", logging.SanitizeToken(token)))
		a.state = State{Reference: a.state.Reference}
		if clearErr := a.store.Clear(); clearErr != nil {
			return fmt.Errorf("failed to clear invalid session: %w", clearErr)
		}
		return nil
	}
	if id.Expired(a.opts.Now()) {
		a.log.Info("session token looks expired, the server may reject it", logging.UserID(id.UserID))
	}

	rec.WithUser(id.UserID)
	a.opts.Metrics.IncrementActiveSessions(ctx)
	return a.enterSchedule(ctx, id)
}

// Login authenticates, persists the token and enters the schedule mode.
func (a *App) Login(ctx context.Context, email, password string) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := instrumentation.NewActionRecord(ActionLogin)
	defer func() { a.audit(ctx, rec, err) }()

	return a.login(ctx, rec, email, password)
}

func (a *App) login(ctx context.Context, rec *instrumentation.ActionRecord, email, password string) error {
	v := &ValidationError{}
	required(v, "email", email)
	required(v, "password", password)
	if err := v.errOrNil(); err != nil {
		return err
	}

	token, err := a.api.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		a.opts.Metrics.RecordLogin(ctx, instrumentation.LoginResultFailure)
		return fmt.Errorf("login failed: %w", err)
	}

	id, ok := session.DecodeIdentity(token)
	if !ok {
		a.opts.Metrics.RecordLogin(ctx, instrumentation.LoginResultFailure)
		return ErrInvalidToken
	}
	if err := a.store.SetToken(token); err != nil {
		a.opts.Metrics.RecordLogin(ctx, instrumentation.LoginResultFailure)
		return fmt.Errorf("failed to persist session: %w", err)
	}
	a.opts.Metrics.RecordLogin(ctx, instrumentation.LoginResultSuccess)

	rec.WithUser(id.UserID)
	if a.state.Mode == ModeLoggedOut {
		a.opts.Metrics.IncrementActiveSessions(ctx)
	}
	a.log.Info("logged in", logging.UserID(id.UserID), slog.String("token", logging.SanitizeToken(token)))
	return a.enterSchedule(ctx, id)
}

// Register creates an account. With thenLogin the App logs in with the same
// credentials right away; otherwise it stays logged out.
func (a *App) Register(ctx context.Context, username, email, password string, thenLogin bool) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := instrumentation.NewActionRecord(ActionRegister)
	defer func() { a.audit(ctx, rec, err) }()

	v := &ValidationError{}
	required(v, "username", username)
	required(v, "email", email)
	required(v, "password", password)
	if err := v.errOrNil(); err != nil {
		return err
	}

	if err := a.api.Register(ctx, api.Registration{Username: username, Email: email, Password: password}); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if !thenLogin {
		return nil
	}
	return a.login(ctx, rec, email, password)
}

// Logout clears the persisted token and resets every cached collection.
func (a *App) Logout(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := instrumentation.NewActionRecord(ActionLogout).WithUser(a.state.UserID())
	defer func() { a.audit(ctx, rec, err) }()

	if a.state.Mode != ModeLoggedOut {
		a.opts.Metrics.DecrementActiveSessions(ctx)
	}
	a.state = State{Reference: a.opts.Now()}

	if err := a.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Refresh re-fetches the logged-in user's entries.
func (a *App) Refresh(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSession(); err != nil {
		return err
	}
	rec := instrumentation.NewActionRecord(ActionRefresh).WithUser(a.state.UserID())
	defer func() { a.audit(ctx, rec, err) }()

	return a.fetchEntries(ctx)
}

// CreateEntry creates an entry owned by the logged-in user and re-fetches.
func (a *App) CreateEntry(ctx context.Context, in EntryInput) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSession(); err != nil {
		return err
	}
	rec := instrumentation.NewActionRecord(ActionCreateEntry).WithUser(a.state.UserID())
	defer func() { a.audit(ctx, rec, err) }()

	if err := in.Validate(); err != nil {
		return err
	}
	created, err := a.api.CreateSchedule(ctx, in.toAPI(a.state.UserID()))
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	if created != nil {
		rec.WithEntry(created.ID)
	}
	return a.fetchEntries(ctx)
}

// DeleteEntry deletes an entry and re-fetches.
func (a *App) DeleteEntry(ctx context.Context, id int64) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSession(); err != nil {
		return err
	}
	rec := instrumentation.NewActionRecord(ActionDeleteEntry).WithUser(a.state.UserID()).WithEntry(id)
	defer func() { a.audit(ctx, rec, err) }()

	if err := a.api.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	return a.fetchEntries(ctx)
}

// ShiftWeek moves the reference date by n weeks.
func (a *App) ShiftWeek(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Reference = calendar.ShiftWeeks(a.state.Reference, n)
}

// PrevWeek moves the reference date back seven days.
func (a *App) PrevWeek() { a.ShiftWeek(-1) }

// NextWeek moves the reference date forward seven days.
func (a *App) NextWeek() { a.ShiftWeek(1) }

// Today resets the reference date to now.
func (a *App) Today() {
	a.SetReference(a.opts.Now())
}

// SetReference sets the reference date.
func (a *App) SetReference(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Reference = t
}

// Week lays out the cached entries for the displayed week.
func (a *App) Week() calendar.Grid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return calendar.Layout(a.state.Reference, a.opts.Now(), CalendarEntries(a.state.Entries), calendar.Options{
		Location: a.opts.Location,
		Locale:   a.opts.Locale,
	})
}

// enterSchedule switches to the schedule mode for id. The fetch errors are
// returned, but the mode change stands.
func (a *App) enterSchedule(ctx context.Context, id *session.Identity) error {
	a.state = State{
		Mode:      ModeSchedule,
		Identity:  id,
		Admin:     id.UserID == a.opts.AdminUserID,
		Reference: a.state.Reference,
	}

	errs := []error{a.fetchEntries(ctx)}
	if a.state.Admin {
		errs = append(errs, a.fetchUsers(ctx))
	}
	return errors.Join(errs...)
}

// fetchEntries replaces the entry cache. A failed fetch leaves it empty.
func (a *App) fetchEntries(ctx context.Context) error {
	entries, err := a.api.ListSchedules(ctx, a.state.UserID())
	if err != nil {
		a.state.Entries = nil
		return fmt.Errorf("failed to fetch schedules: %w", err)
	}
	a.state.Entries = entries
	return nil
}

func (a *App) requireSession() error {
	if a.state.Mode == ModeLoggedOut || a.state.Identity == nil {
		return ErrNotLoggedIn
	}
	return nil
}

func (a *App) audit(ctx context.Context, rec *instrumentation.ActionRecord, err error) {
	instrumentation.SetSpanUser(ctx, rec.UserID)
	a.opts.Audit.Log(rec.WithSpanContext(ctx).Complete(err))
	if err != nil {
		a.log.Debug("action failed", logging.Operation(rec.Action), logging.Err(err))
	}
}
