package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/teemow/schedcli/internal/api"
)

// fakeAPI is an in-memory API that records every call in wire form.
type fakeAPI struct {
	mu sync.Mutex

	calls []string

	token     string
	loginErr  error
	regErr    error
	createErr error
	deleteErr error
	usersErr  error
	listErr   map[int64]error

	schedules map[int64][]api.ScheduleEntry
	users     []api.User
	created   []api.NewSchedule
	nextID    int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		listErr:   map[int64]error{},
		schedules: map[int64][]api.ScheduleEntry{},
		nextID:    100,
	}
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAPI) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeAPI) Register(_ context.Context, reg api.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST /users/register")
	return f.regErr
}

func (f *fakeAPI) Login(_ context.Context, creds api.Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST /users/login")
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeAPI) ListSchedules(_ context.Context, userID int64) ([]api.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("GET /users/%d/schedules", userID))
	if err := f.listErr[userID]; err != nil {
		return nil, err
	}
	return slices.Clone(f.schedules[userID]), nil
}

func (f *fakeAPI) CreateSchedule(_ context.Context, in api.NewSchedule) (*api.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("POST /schedules")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	f.nextID++
	entry := api.ScheduleEntry{
		ID:        f.nextID,
		Title:     in.Title,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		OwnerID:   in.OwnerID,
	}
	f.schedules[in.OwnerID] = append(f.schedules[in.OwnerID], entry)
	return &entry, nil
}

func (f *fakeAPI) DeleteSchedule(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("DELETE /schedules/%d", id))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for owner, entries := range f.schedules {
		f.schedules[owner] = slices.DeleteFunc(entries, func(e api.ScheduleEntry) bool { return e.ID == id })
	}
	return nil
}

func (f *fakeAPI) ListUsers(_ context.Context) ([]api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GET /admin/users")
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return slices.Clone(f.users), nil
}

func tokenFor(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func itoa(n int64) string {
	return fmt.Sprintf("%d", n)
}
