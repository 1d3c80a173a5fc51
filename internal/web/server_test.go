package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teemow/schedcli/internal/api"
	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/server"
	"github.com/teemow/schedcli/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	jst      = time.FixedZone("JST", 9*60*60)
	fixedNow = time.Date(2026, time.October, 17, 10, 0, 0, 0, jst)
	csrfKey  = []byte("0123456789abcdef0123456789abcdef")
	tokenRe  = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)
)

// backend is a fake schedule API keyed by owner id.
type backend struct {
	mu        sync.Mutex
	calls     []string
	schedules map[int64][]api.ScheduleEntry
	users     []api.User
	created   []api.NewSchedule
	nextID    int64
	tokens    map[string]string
}

func newBackend(t *testing.T) *backend {
	return &backend{
		schedules: map[int64][]api.ScheduleEntry{
			2: {{
				ID:          7,
				Title:       "Standup",
				StartTime:   time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC),
				EndTime:     time.Date(2026, time.October, 12, 1, 30, 0, 0, time.UTC),
				Description: "**daily** <script>alert(1)</script>",
				OwnerID:     2,
			}},
		},
		users: []api.User{
			{ID: 1, Username: "admin", Email: "admin@example.com"},
			{ID: 2, Username: "jane", Email: "jane@example.com"},
		},
		nextID: 100,
		tokens: map[string]string{
			"admin@example.com": signToken(t, 1),
			"jane@example.com":  signToken(t, 2),
		},
	}
}

func signToken(t *testing.T, userID int64) string {
	t.Helper()
	claims := session.Identity{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)

	var ownerID, entryID int64
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/users/login":
		var creds api.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		token, ok := b.tokens[creds.Email]
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	case r.Method == http.MethodPost && r.URL.Path == "/api/users/register":
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 3})
	case r.Method == http.MethodGet && r.URL.Path == "/api/admin/users":
		_ = json.NewEncoder(w).Encode(b.users)
	case r.Method == http.MethodPost && r.URL.Path == "/api/schedules":
		var in api.NewSchedule
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.created = append(b.created, in)
		b.nextID++
		entry := api.ScheduleEntry{ID: b.nextID, Title: in.Title, StartTime: in.StartTime, EndTime: in.EndTime, OwnerID: in.OwnerID}
		b.schedules[in.OwnerID] = append(b.schedules[in.OwnerID], entry)
		_ = json.NewEncoder(w).Encode(entry)
	case r.Method == http.MethodDelete && scan(r.URL.Path, "/api/schedules/%d", &entryID):
		for owner, entries := range b.schedules {
			for i, e := range entries {
				if e.ID == entryID {
					b.schedules[owner] = append(entries[:i:i], entries[i+1:]...)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && scan(r.URL.Path, "/api/users/%d/schedules", &ownerID):
		entries := b.schedules[ownerID]
		if entries == nil {
			entries = []api.ScheduleEntry{}
		}
		_ = json.NewEncoder(w).Encode(entries)
	default:
		http.NotFound(w, r)
	}
}

func scan(path, format string, id *int64) bool {
	n, err := fmt.Sscanf(path, format, id)
	return err == nil && n == 1 && fmt.Sprintf(format, *id) == path
}

func (b *backend) Created() []api.NewSchedule {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.NewSchedule(nil), b.created...)
}

// browser is a cookie-keeping client for the UI that remembers the last
// CSRF token it saw.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	token  string
}

func newUI(t *testing.T, health *server.HealthChecker) (*backend, *browser) {
	t.Helper()
	be := newBackend(t)
	apiSrv := httptest.NewServer(be)
	t.Cleanup(apiSrv.Close)

	store := session.NewMemoryStore("")
	client := api.New(apiSrv.URL+"/api", store, api.WithHTTPClient(apiSrv.Client()))
	app := controller.New(client, store, controller.Options{
		Location: jst,
		Locale:   calendar.LocaleJA,
		Now:      func() time.Time { return fixedNow },
	})

	s, err := New(app, Options{CSRFKey: csrfKey, Health: health})
	require.NoError(t, err)

	ui := httptest.NewServer(s.Handler())
	t.Cleanup(ui.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := ui.Client()
	c.Jar = jar

	return be, &browser{t: t, base: ui.URL, client: c}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if b.token != "" {
		form.Set("gorilla.csrf.Token", b.token)
	}
	resp, err := b.client.PostForm(b.base+path, form)
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *browser) read(resp *http.Response) (int, string) {
	b.t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	if m := tokenRe.FindStringSubmatch(string(body)); m != nil {
		b.token = m[1]
	}
	return resp.StatusCode, string(body)
}

func (b *browser) login(email string) string {
	b.t.Helper()
	b.get("/")
	code, body := b.post("/login", url.Values{"email": {email}, "password": {"secret"}})
	require.Equal(b.t, http.StatusOK, code)
	return body
}

func TestNew_Validation(t *testing.T) {
	app := controller.New(nil, session.NewMemoryStore(""), controller.Options{})

	_, err := New(nil, Options{CSRFKey: csrfKey})
	assert.Error(t, err)

	_, err = New(app, Options{CSRFKey: []byte("short")})
	assert.ErrorContains(t, err, "csrf key must be 32 bytes")
}

func TestLoggedOutPage(t *testing.T) {
	_, b := newUI(t, nil)

	code, body := b.get("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `action="/login"`)
	assert.Contains(t, body, `action="/register"`)
	assert.NotEmpty(t, b.token)
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	_, b := newUI(t, nil)

	code, _ := b.post("/login", url.Values{"email": {"jane@example.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestLoginShowsWeekGrid(t *testing.T) {
	_, b := newUI(t, nil)

	body := b.login("jane@example.com")
	assert.Contains(t, body, "2026年 10月")
	assert.Contains(t, body, "Standup")
	assert.Contains(t, body, "09:00 - 10:30")
	assert.Contains(t, body, "top: 540px; height: 90px")
	assert.Contains(t, body, `action="/schedules/7/delete"`)
	assert.NotContains(t, body, "Manage schedules")
}

func TestLoginFailureFlash(t *testing.T) {
	_, b := newUI(t, nil)
	b.get("/")

	code, body := b.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"x"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "flash-error")
	assert.Contains(t, body, "login failed")
	assert.Contains(t, body, `action="/login"`)

	_, body = b.get("/")
	assert.NotContains(t, body, "login failed", "flash is shown once")
}

func TestWeekNavigation(t *testing.T) {
	_, b := newUI(t, nil)
	b.login("jane@example.com")

	_, body := b.post("/week/next", nil)
	assert.NotContains(t, body, "Standup")
	assert.Contains(t, body, "No schedules this week.")

	_, body = b.post("/week/today", nil)
	assert.Contains(t, body, "Standup")

	_, body = b.post("/week/prev", nil)
	assert.NotContains(t, body, "Standup")
	assert.Contains(t, body, "2026年 10月")
}

func TestCreateAndDeleteEntry(t *testing.T) {
	be, b := newUI(t, nil)
	b.login("jane@example.com")

	_, body := b.post("/schedules", url.Values{
		"title":      {"Review"},
		"start_time": {"2026-10-14T13:00"},
		"end_time":   {"2026-10-14T14:00"},
		"location":   {"Room 1"},
	})
	assert.NotContains(t, body, "flash-error")
	assert.Contains(t, body, "Review")

	created := be.Created()
	require.Len(t, created, 1)
	assert.Equal(t, int64(2), created[0].OwnerID)
	assert.Equal(t, time.Date(2026, time.October, 14, 4, 0, 0, 0, time.UTC), created[0].StartTime.UTC())

	_, body = b.post("/schedules/101/delete", nil)
	assert.NotContains(t, body, "Review")
	assert.Contains(t, body, "Standup")
}

func TestCreateEntryValidation(t *testing.T) {
	be, b := newUI(t, nil)
	b.login("jane@example.com")

	_, body := b.post("/schedules", url.Values{"title": {""}, "start_time": {"2026-10-14T13:00"}})
	assert.Contains(t, body, "create entry failed")
	assert.Empty(t, be.Created())

	_, body = b.post("/schedules", url.Values{"title": {"x"}, "start_time": {"yesterday"}, "end_time": {"2026-10-14T14:00"}})
	assert.Contains(t, body, "invalid time")
	assert.Empty(t, be.Created())
}

func TestAdminPanel(t *testing.T) {
	be, b := newUI(t, nil)
	body := b.login("admin@example.com")
	assert.Contains(t, body, "Manage schedules")
	assert.Contains(t, body, `href="/admin/users/2"`)

	code, body := b.get("/admin/users/2")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Schedules of jane (ID: 2)")
	assert.Contains(t, body, "<strong>daily</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "N/A")

	_, body = b.post("/admin/users/2/schedules", url.Values{
		"title":      {"Planning"},
		"start_time": {"2026-10-15T10:00"},
		"end_time":   {"2026-10-15T11:00"},
	})
	assert.NotContains(t, body, "flash-error")
	assert.Contains(t, body, "Planning")
	created := be.Created()
	require.Len(t, created, 1)
	assert.Equal(t, int64(2), created[0].OwnerID)

	_, body = b.post("/admin/users/2/schedules/7/delete", nil)
	assert.NotContains(t, body, "Standup")
	assert.Contains(t, body, "Planning")
}

func TestAdminRoutesNeedAdmin(t *testing.T) {
	_, b := newUI(t, nil)
	b.login("jane@example.com")

	_, body := b.get("/admin/users/2")
	assert.Contains(t, body, "admin select user failed")
	assert.NotContains(t, body, "Schedules of")
}

func TestRegisterAndLogout(t *testing.T) {
	_, b := newUI(t, nil)
	b.get("/")

	_, body := b.post("/register", url.Values{
		"username": {"jane"},
		"email":    {"jane@example.com"},
		"password": {"secret"},
	})
	assert.Contains(t, body, "Registered. Please log in.")
	assert.Contains(t, body, `action="/login"`)

	_, body = b.post("/register", url.Values{
		"username": {"jane"},
		"email":    {"jane@example.com"},
		"password": {"secret"},
		"login":    {"on"},
	})
	assert.Contains(t, body, "Standup")

	_, body = b.post("/logout", nil)
	assert.Contains(t, body, `action="/login"`)
	assert.NotContains(t, body, "Standup")
}

func TestHealthEndpoints(t *testing.T) {
	health := server.NewHealthChecker()
	_, b := newUI(t, health)

	code, body := b.get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, `"status":"ok"`))

	health.SetShuttingDown()
	code, _ = b.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
