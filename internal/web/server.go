package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/instrumentation"
	"github.com/teemow/schedcli/internal/logging"
	"github.com/teemow/schedcli/internal/server"
)

// CSRFKeyLength is the required length of Options.CSRFKey.
const CSRFKeyLength = 32

// Options configures a Server.
type Options struct {
	// CSRFKey authenticates the CSRF cookie. It must be CSRFKeyLength bytes.
	CSRFKey []byte
	// SecureCookies marks the CSRF cookie Secure. Leave it off for plain HTTP.
	SecureCookies bool
	Logger        *slog.Logger
	Metrics       *instrumentation.Metrics
	// Health, when set, is served on /healthz, /readyz and /healthz/detailed.
	Health *server.HealthChecker
}

// Server renders the controller state as HTML.
type Server struct {
	app     *controller.App
	opts    Options
	log     *slog.Logger
	tpl     *template.Template
	handler http.Handler
}

// New builds the UI for app.
func New(app *controller.App, opts Options) (*Server, error) {
	if app == nil {
		return nil, errors.New("controller is required")
	}
	if len(opts.CSRFKey) != CSRFKeyLength {
		return nil, fmt.Errorf("csrf key must be %d bytes, got %d", CSRFKeyLength, len(opts.CSRFKey))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		app:  app,
		opts: opts,
		log:  logging.WithComponent(opts.Logger, "web"),
	}

	tpl, err := parseTemplates(app.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.tpl = tpl
	s.handler = otelhttp.NewHandler(s.routes(), "schedcli-web")
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.requestMetrics, securityHeaders)

	if s.opts.Health != nil {
		s.opts.Health.RegisterHealthEndpoints(r)
	}

	ui := r.NewRoute().Subrouter()
	ui.Use(plaintextHTTP, csrf.Protect(
		s.opts.CSRFKey,
		csrf.Secure(s.opts.SecureCookies),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
	))

	ui.HandleFunc("/", s.index).Methods(http.MethodGet)
	ui.HandleFunc("/login", s.login).Methods(http.MethodPost)
	ui.HandleFunc("/register", s.register).Methods(http.MethodPost)
	ui.HandleFunc("/logout", s.logout).Methods(http.MethodPost)

	ui.HandleFunc("/week/prev", s.prevWeek).Methods(http.MethodPost)
	ui.HandleFunc("/week/next", s.nextWeek).Methods(http.MethodPost)
	ui.HandleFunc("/week/today", s.today).Methods(http.MethodPost)

	ui.HandleFunc("/schedules", s.createEntry).Methods(http.MethodPost)
	ui.HandleFunc("/schedules/{id:[0-9]+}/delete", s.deleteEntry).Methods(http.MethodPost)

	ui.HandleFunc("/admin/users/{id:[0-9]+}", s.selectUser).Methods(http.MethodGet)
	ui.HandleFunc("/admin/users/{id:[0-9]+}/schedules", s.adminCreateEntry).Methods(http.MethodPost)
	ui.HandleFunc("/admin/users/{id:[0-9]+}/schedules/{sid:[0-9]+}/delete", s.adminDeleteEntry).Methods(http.MethodPost)

	return r
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	s.log.Warn("csrf check failed",
		logging.Method(r.Method),
		logging.Endpoint(r.URL.Path),
		logging.Err(csrf.FailureReason(r)))
	http.Error(w, "Forbidden - invalid CSRF token", http.StatusForbidden)
}
