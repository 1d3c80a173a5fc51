package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"github.com/teemow/schedcli/internal/calendar"
	"github.com/teemow/schedcli/internal/controller"
	"github.com/teemow/schedcli/internal/instrumentation"
	"github.com/teemow/schedcli/internal/logging"
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	st := s.app.State()
	data := pageData{
		LoggedIn:  st.Mode == controller.ModeSchedule,
		State:     st,
		Flash:     takeFlash(w, r),
		CSRFField: csrf.TemplateField(r),
	}
	if data.LoggedIn {
		data.Grid = s.app.Week()
	}

	var buf bytes.Buffer
	if err := s.tpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.log.Error("failed to render page", logging.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// done redirects back to the page, carrying err or notice as a flash.
func (s *Server) done(w http.ResponseWriter, r *http.Request, action string, err error, notice string) {
	switch {
	case err != nil:
		logging.WithOperation(s.log, action).Warn("action failed",
			logging.Err(err),
			logging.TraceID(instrumentation.GetTraceID(r.Context())))
		label := strings.ReplaceAll(action, "_", " ") + " failed"
		msg := err.Error()
		if !strings.HasPrefix(msg, label) {
			msg = label + ": " + msg
		}
		setFlash(w, flashError, msg)
	case notice != "":
		setFlash(w, flashNotice, notice)
	}
	target := "/"
	if strings.HasPrefix(action, "admin") {
		target = "/#admin"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	err := s.app.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	s.done(w, r, controller.ActionLogin, err, "")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	thenLogin := r.PostFormValue("login") != ""
	err := s.app.Register(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
		thenLogin)

	notice := ""
	if !thenLogin {
		notice = "Registered. Please log in."
	}
	s.done(w, r, controller.ActionRegister, err, notice)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	err := s.app.Logout(r.Context())
	s.done(w, r, controller.ActionLogout, err, "")
}

func (s *Server) prevWeek(w http.ResponseWriter, r *http.Request) {
	s.app.PrevWeek()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) nextWeek(w http.ResponseWriter, r *http.Request) {
	s.app.NextWeek()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) today(w http.ResponseWriter, r *http.Request) {
	s.app.Today()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	in, err := s.entryInput(r)
	if err == nil {
		err = s.app.CreateEntry(r.Context(), in)
	}
	s.done(w, r, controller.ActionCreateEntry, err, "")
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = s.app.DeleteEntry(r.Context(), id)
	}
	s.done(w, r, controller.ActionDeleteEntry, err, "")
}

// selectUser shows the admin panel for one user. A failed fetch still
// renders the page with the load-failed marker.
func (s *Server) selectUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = s.app.SelectUser(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, controller.ErrNotLoggedIn) || errors.Is(err, controller.ErrNotAdmin) {
			s.done(w, r, controller.ActionAdminSelectUser, err, "")
			return
		}
		logging.WithOperation(s.log, controller.ActionAdminSelectUser).Warn("action failed",
			logging.Err(err),
			logging.TraceID(instrumentation.GetTraceID(r.Context())))
	}
	s.render(w, r)
}

func (s *Server) adminCreateEntry(w http.ResponseWriter, r *http.Request) {
	err := s.ensureSelected(r)
	var in controller.EntryInput
	if err == nil {
		in, err = s.entryInput(r)
	}
	if err == nil {
		err = s.app.AdminCreateEntry(r.Context(), in)
	}
	s.done(w, r, controller.ActionAdminCreateEntry, err, "")
}

func (s *Server) adminDeleteEntry(w http.ResponseWriter, r *http.Request) {
	err := s.ensureSelected(r)
	var id int64
	if err == nil {
		id, err = pathID(r, "sid")
	}
	if err == nil {
		err = s.app.AdminDeleteEntry(r.Context(), id)
	}
	s.done(w, r, controller.ActionAdminDeleteEntry, err, "")
}

// ensureSelected makes the user in the path the admin selection. Only
// permission errors are returned; a failed fetch is repaired by the action's
// own re-fetch.
func (s *Server) ensureSelected(r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if sel := s.app.State().Selected; sel != nil && sel.UserID == id {
		return nil
	}
	err = s.app.SelectUser(r.Context(), id)
	if errors.Is(err, controller.ErrNotLoggedIn) || errors.Is(err, controller.ErrNotAdmin) {
		return err
	}
	return nil
}

// entryInput reads the entry form. Empty times are left zero for
// EntryInput.Validate to report.
func (s *Server) entryInput(r *http.Request) (controller.EntryInput, error) {
	in := controller.EntryInput{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: r.PostFormValue("description"),
		Location:    r.PostFormValue("location"),
	}
	var err error
	if v := r.PostFormValue("start_time"); v != "" {
		if in.Start, err = calendar.ParseDateTime(v, s.app.Location()); err != nil {
			return in, err
		}
	}
	if v := r.PostFormValue("end_time"); v != "" {
		if in.End, err = calendar.ParseDateTime(v, s.app.Location()); err != nil {
			return in, err
		}
	}
	return in, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
