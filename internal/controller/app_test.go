package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	jst = time.FixedZone("JST", 9*3600)
	// Saturday 2026-10-17 10:00 JST.
	fixedNow = time.Date(2026, 10, 17, 10, 0, 0, 0, jst)
)

func newApp(t *testing.T, fake *fakeAPI, store session.Store) *App {
	t.Helper()
	return New(fake, store, Options{
		Location: jst,
		Locale:   calendar.LocaleJA,
		Now:      func() time.Time { return fixedNow },
	})
}

func entry(id int64, title string, start, end time.Time, owner int64) api.ScheduleEntry {
	return api.ScheduleEntry{ID: id, Title: title, StartTime: start, EndTime: end, OwnerID: owner}
}

func TestStart_NoToken(t *testing.T) {
	fake := newFakeAPI()
	app := newApp(t, fake, session.NewMemoryStore(""))

	require.NoError(t, app.Start(context.Background()))

	st := app.State()
	assert.Equal(t, ModeLoggedOut, st.Mode)
	assert.Nil(t, st.Identity)
	assert.Empty(t, fake.Calls())
}

func TestStart_InvalidTokenIsTreatedAsAbsent(t *testing.T) {
	for _, token := range []string{"garbage", "a.!!!.c", "a.e30.c"} {
		t.Run(token, func(t *testing.T) {
			fake := newFakeAPI()
			store := session.NewMemoryStore(token)
			app := newApp(t, fake, store)

			require.NoError(t, app.Start(context.Background()))

			assert.Equal(t, ModeLoggedOut, app.State().Mode)
			assert.Empty(t, fake.Calls())
			_, err := store.Token()
			assert.ErrorIs(t, err, session.ErrNoToken)
		})
	}
}

func TestStart_RegularUser(t *testing.T) {
	fake := newFakeAPI()
	fake.schedules[2] = []api.ScheduleEntry{entry(5, "Gym", fixedNow, fixedNow.Add(time.Hour), 2)}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))

	require.NoError(t, app.Start(context.Background()))

	st := app.State()
	assert.Equal(t, ModeSchedule, st.Mode)
	assert.Equal(t, int64(2), st.UserID())
	assert.False(t, st.Admin)
	assert.Len(t, st.Entries, 1)
	assert.Equal(t, []string{"GET /users/2/schedules"}, fake.Calls())
}

func TestStart_AdminUser(t *testing.T) {
	fake := newFakeAPI()
	fake.users = []api.User{{ID: 1, Username: "admin"}, {ID: 2, Username: "jane"}}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 1)))

	require.NoError(t, app.Start(context.Background()))

	st := app.State()
	assert.True(t, st.Admin)
	assert.Len(t, st.Users, 2)
	assert.Equal(t, []string{"GET /users/1/schedules", "GET /admin/users"}, fake.Calls())
}

func TestStart_FetchFailureStillEntersSchedule(t *testing.T) {
	fake := newFakeAPI()
	fake.listErr[2] = &api.APIError{Status: http.StatusInternalServerError, Body: "boom"}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))

	err := app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusInternalServerError))

	st := app.State()
	assert.Equal(t, ModeSchedule, st.Mode)
	assert.Empty(t, st.Entries)
	assert.True(t, app.Week().Empty())
}

func TestLogin_IssuesExactlyOneFetch(t *testing.T) {
	fake := newFakeAPI()
	fake.token = tokenFor(t, 2)
	store := session.NewMemoryStore("")
	app := newApp(t, fake, store)
	require.NoError(t, app.Start(context.Background()))

	require.NoError(t, app.Login(context.Background(), "jane@example.com", "secret"))

	stored, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, fake.token, stored)
	assert.Equal(t, ModeSchedule, app.State().Mode)
	assert.False(t, app.State().Admin)
	assert.Equal(t, []string{"POST /users/login", "GET /users/2/schedules"}, fake.Calls())
}

func TestLogin_Failure(t *testing.T) {
	fake := newFakeAPI()
	fake.loginErr = &api.APIError{Method: http.MethodPost, Endpoint: "/users/login", Status: http.StatusUnauthorized, Body: "invalid credentials"}
	store := session.NewMemoryStore("")
	app := newApp(t, fake, store)

	err := app.Login(context.Background(), "jane@example.com", "wrong")

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Body)
	assert.Equal(t, ModeLoggedOut, app.State().Mode)
	_, tokErr := store.Token()
	assert.ErrorIs(t, tokErr, session.ErrNoToken)
}

func TestLogin_TokenWithoutIdentity(t *testing.T) {
	fake := newFakeAPI()
	fake.token = "not-a-jwt"
	store := session.NewMemoryStore("")
	app := newApp(t, fake, store)

	err := app.Login(context.Background(), "jane@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, ModeLoggedOut, app.State().Mode)
	_, tokErr := store.Token()
	assert.ErrorIs(t, tokErr, session.ErrNoToken)
}

func TestLogin_Validation(t *testing.T) {
	fake := newFakeAPI()
	app := newApp(t, fake, session.NewMemoryStore(""))

	err := app.Login(context.Background(), "", " ")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.FieldErrors, "email")
	assert.Contains(t, verr.FieldErrors, "password")
	assert.Empty(t, fake.Calls())
}

func TestRegister(t *testing.T) {
	t.Run("stays logged out", func(t *testing.T) {
		fake := newFakeAPI()
		app := newApp(t, fake, session.NewMemoryStore(""))

		require.NoError(t, app.Register(context.Background(), "jane", "jane@example.com", "pw", false))
		assert.Equal(t, ModeLoggedOut, app.State().Mode)
		assert.Equal(t, []string{"POST /users/register"}, fake.Calls())
	})

	t.Run("then login", func(t *testing.T) {
		fake := newFakeAPI()
		fake.token = tokenFor(t, 3)
		app := newApp(t, fake, session.NewMemoryStore(""))

		require.NoError(t, app.Register(context.Background(), "jane", "jane@example.com", "pw", true))
		assert.Equal(t, ModeSchedule, app.State().Mode)
		assert.Equal(t, []string{"POST /users/register", "POST /users/login", "GET /users/3/schedules"}, fake.Calls())
	})

	t.Run("failure skips login", func(t *testing.T) {
		fake := newFakeAPI()
		fake.regErr = &api.APIError{Status: http.StatusConflict, Body: "exists"}
		app := newApp(t, fake, session.NewMemoryStore(""))

		err := app.Register(context.Background(), "jane", "jane@example.com", "pw", true)
		assert.True(t, api.IsStatus(err, http.StatusConflict))
		assert.Equal(t, []string{"POST /users/register"}, fake.Calls())
	})

	t.Run("validation", func(t *testing.T) {
		fake := newFakeAPI()
		app := newApp(t, fake, session.NewMemoryStore(""))

		var verr *ValidationError
		require.ErrorAs(t, app.Register(context.Background(), "", "jane@example.com", "pw", false), &verr)
		assert.Contains(t, verr.FieldErrors, "username")
		assert.Empty(t, fake.Calls())
	})
}

func TestDeleteEntry_RefetchesAndDropsEntry(t *testing.T) {
	fake := newFakeAPI()
	monday9 := time.Date(2026, 10, 12, 9, 0, 0, 0, jst)
	fake.schedules[2] = []api.ScheduleEntry{
		entry(7, "Dentist", monday9, monday9.Add(time.Hour), 2),
		entry(8, "Lunch", monday9.Add(3*time.Hour), monday9.Add(4*time.Hour), 2),
	}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))
	fake.Reset()

	require.NoError(t, app.DeleteEntry(context.Background(), 7))

	assert.Equal(t, []string{"DELETE /schedules/7", "GET /users/2/schedules"}, fake.Calls())
	for _, d := range app.Week().Days {
		for _, b := range d.Blocks {
			assert.NotEqual(t, int64(7), b.EntryID)
		}
	}
	require.Len(t, app.State().Entries, 1)
	assert.Equal(t, int64(8), app.State().Entries[0].ID)
}

func TestDeleteEntry_FailureKeepsCache(t *testing.T) {
	fake := newFakeAPI()
	fake.schedules[2] = []api.ScheduleEntry{entry(7, "Dentist", fixedNow, fixedNow.Add(time.Hour), 2)}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))
	fake.Reset()
	fake.deleteErr = &api.NetworkError{Op: http.MethodDelete, Endpoint: "/schedules/7", Err: errors.New("connection refused")}

	err := app.DeleteEntry(context.Background(), 7)

	var netErr *api.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, []string{"DELETE /schedules/7"}, fake.Calls())
	assert.Len(t, app.State().Entries, 1)
}

func TestCreateEntry(t *testing.T) {
	fake := newFakeAPI()
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))
	fake.Reset()

	start := time.Date(2026, 10, 12, 9, 0, 0, 0, jst)
	require.NoError(t, app.CreateEntry(context.Background(), EntryInput{
		Title:    "Standup",
		Start:    start,
		End:      start.Add(90 * time.Minute),
		Location: "Room 1",
	}))

	assert.Equal(t, []string{"POST /schedules", "GET /users/2/schedules"}, fake.Calls())
	require.Len(t, fake.created, 1)
	assert.Equal(t, int64(2), fake.created[0].OwnerID)
	assert.Equal(t, "Room 1", fake.created[0].Location)

	grid := app.Week()
	require.Len(t, grid.Days[0].Blocks, 1)
	assert.Equal(t, 540, grid.Days[0].Blocks[0].Top)
	assert.Equal(t, 90, grid.Days[0].Blocks[0].Height)
}

func TestCreateEntry_ValidationAndFailure(t *testing.T) {
	fake := newFakeAPI()
	fake.schedules[2] = []api.ScheduleEntry{entry(1, "Existing", fixedNow, fixedNow.Add(time.Hour), 2)}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))
	fake.Reset()

	var verr *ValidationError
	require.ErrorAs(t, app.CreateEntry(context.Background(), EntryInput{}), &verr)
	assert.Len(t, verr.FieldErrors, 3)
	assert.Empty(t, fake.Calls())

	fake.createErr = &api.APIError{Status: http.StatusBadRequest, Body: "end before start"}
	err := app.CreateEntry(context.Background(), EntryInput{Title: "x", Start: fixedNow, End: fixedNow.Add(-time.Hour)})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
	assert.Len(t, app.State().Entries, 1)
}

func TestRefresh_FailureEmptiesCache(t *testing.T) {
	fake := newFakeAPI()
	fake.schedules[2] = []api.ScheduleEntry{entry(1, "Existing", fixedNow, fixedNow.Add(time.Hour), 2)}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))
	require.Len(t, app.State().Entries, 1)

	fake.listErr[2] = errors.New("unreachable")
	require.Error(t, app.Refresh(context.Background()))
	assert.Empty(t, app.State().Entries)
}

func TestLogout_ResetsEverything(t *testing.T) {
	fake := newFakeAPI()
	fake.users = []api.User{{ID: 2, Username: "jane"}}
	fake.schedules[1] = []api.ScheduleEntry{entry(1, "Mine", fixedNow, fixedNow.Add(time.Hour), 1)}
	store := session.NewMemoryStore(tokenFor(t, 1))
	app := newApp(t, fake, store)
	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.SelectUser(context.Background(), 2))
	app.NextWeek()

	require.NoError(t, app.Logout(context.Background()))

	st := app.State()
	assert.Equal(t, ModeLoggedOut, st.Mode)
	assert.Nil(t, st.Identity)
	assert.False(t, st.Admin)
	assert.Empty(t, st.Entries)
	assert.Empty(t, st.Users)
	assert.Nil(t, st.Selected)
	assert.True(t, st.Reference.Equal(fixedNow))
	_, err := store.Token()
	assert.ErrorIs(t, err, session.ErrNoToken)
}

func TestActionsRequireSession(t *testing.T) {
	fake := newFakeAPI()
	app := newApp(t, fake, session.NewMemoryStore(""))
	ctx := context.Background()

	assert.ErrorIs(t, app.Refresh(ctx), ErrNotLoggedIn)
	assert.ErrorIs(t, app.CreateEntry(ctx, EntryInput{Title: "x"}), ErrNotLoggedIn)
	assert.ErrorIs(t, app.DeleteEntry(ctx, 1), ErrNotLoggedIn)
	assert.ErrorIs(t, app.LoadUsers(ctx), ErrNotLoggedIn)
	assert.Empty(t, fake.Calls())
}

func TestWeekNavigation(t *testing.T) {
	fake := newFakeAPI()
	app := newApp(t, fake, session.NewMemoryStore(""))

	origin := app.Week().Window
	app.NextWeek()
	assert.True(t, app.Week().Window.Start.Equal(origin.Start.AddDate(0, 0, 7)))
	app.PrevWeek()
	assert.Equal(t, origin, app.Week().Window)

	app.ShiftWeek(-3)
	assert.True(t, app.Week().Window.Start.Equal(origin.Start.AddDate(0, 0, -21)))
	app.Today()
	assert.Equal(t, origin, app.Week().Window)
	assert.True(t, app.State().Reference.Equal(fixedNow))
	assert.Empty(t, fake.Calls(), "navigation never fetches")
}

func TestStateSnapshotIsIsolated(t *testing.T) {
	fake := newFakeAPI()
	fake.schedules[2] = []api.ScheduleEntry{entry(1, "Existing", fixedNow, fixedNow.Add(time.Hour), 2)}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))

	st := app.State()
	st.Entries[0].Title = "mutated"
	st.Identity.UserID = 99

	assert.Equal(t, "Existing", app.State().Entries[0].Title)
	assert.Equal(t, int64(2), app.State().UserID())
}

func TestConcurrentActionsAreSerialized(t *testing.T) {
	fake := newFakeAPI()
	fake.schedules[2] = []api.ScheduleEntry{entry(1, "Existing", fixedNow, fixedNow.Add(time.Hour), 2)}
	app := newApp(t, fake, session.NewMemoryStore(tokenFor(t, 2)))
	require.NoError(t, app.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = app.Refresh(context.Background())
		}()
		go func() {
			defer wg.Done()
			app.NextWeek()
		}()
		go func() {
			defer wg.Done()
			_ = app.Week()
		}()
	}
	wg.Wait()

	assert.True(t, app.State().Reference.Equal(fixedNow.AddDate(0, 0, 140)))
	assert.Len(t, app.State().Entries, 1)
}
