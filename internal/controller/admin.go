package controller

import (
	"context"
	"fmt"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/instrumentation"
)

// LoadUsers re-fetches the user list for the admin panel.
func (a *App) LoadUsers(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireAdmin(); err != nil {
		return err
	}
	rec := instrumentation.NewActionRecord(ActionAdminListUsers).WithUser(a.state.UserID())
	defer func() { a.audit(ctx, rec, err) }()

	return a.fetchUsers(ctx)
}

// SelectUser picks the user whose schedule the admin panel manages and
// fetches that user's entries.
func (a *App) SelectUser(ctx context.Context, userID int64) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireAdmin(); err != nil {
		return err
	}
	rec := instrumentation.NewActionRecord(ActionAdminSelectUser).WithUser(a.state.UserID()).WithTarget(userID)
	defer func() { a.audit(ctx, rec, err) }()

	a.state.Selected = &AdminSelection{
		UserID:   userID,
		Username: a.usernameOf(userID),
	}
	return a.fetchSelected(ctx)
}

// AdminCreateEntry creates an entry owned by the selected user and re-fetches
// the selection.
func (a *App) AdminCreateEntry(ctx context.Context, in EntryInput) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSelection(); err != nil {
		return err
	}
	target := a.state.Selected.UserID
	rec := instrumentation.NewActionRecord(ActionAdminCreateEntry).WithUser(a.state.UserID()).WithTarget(target)
	defer func() { a.audit(ctx, rec, err) }()

	if err := in.Validate(); err != nil {
		return err
	}
	created, err := a.api.CreateSchedule(ctx, in.toAPI(target))
	if err != nil {
		return fmt.Errorf("failed to create entry for user %d: %w", target, err)
	}
	if created != nil {
		rec.WithEntry(created.ID)
	}
	return a.fetchSelected(ctx)
}

// AdminDeleteEntry deletes one of the selected user's entries and re-fetches
// the selection.
func (a *App) AdminDeleteEntry(ctx context.Context, id int64) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.requireSelection(); err != nil {
		return err
	}
	rec := instrumentation.NewActionRecord(ActionAdminDeleteEntry).
		WithUser(a.state.UserID()).
		WithTarget(a.state.Selected.UserID).
		WithEntry(id)
	defer func() { a.audit(ctx, rec, err) }()

	if err := a.api.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	return a.fetchSelected(ctx)
}

// fetchUsers replaces the user list. A failed fetch leaves it empty.
func (a *App) fetchUsers(ctx context.Context) error {
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		a.state.Users = nil
		return fmt.Errorf("failed to fetch users: %w", err)
	}
	a.state.Users = users
	return nil
}

func (a *App) fetchSelected(ctx context.Context) error {
	sel := a.state.Selected
	entries, err := a.api.ListSchedules(ctx, sel.UserID)
	if err != nil {
		sel.Entries = nil
		sel.LoadFailed = true
		return fmt.Errorf("failed to fetch schedules of user %d: %w", sel.UserID, err)
	}
	sel.Entries = entries
	sel.LoadFailed = false
	return nil
}

func (a *App) usernameOf(userID int64) string {
	u, _ := a.state.FindUser(userID)
	return u.Username
}

func (a *App) requireAdmin() error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if !a.state.Admin {
		return ErrNotAdmin
	}
	return nil
}

func (a *App) requireSelection() error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if a.state.Selected == nil {
		return ErrNoUserSelected
	}
	return nil
}

// FindUser returns the listed user with the given id.
func (s State) FindUser(id int64) (api.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return api.User{}, false
}
