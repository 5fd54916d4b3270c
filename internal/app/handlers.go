package app

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
	"github.com/klabast/wb-services/newsletter/internal/content"
	"github.com/klabast/wb-services/newsletter/internal/i18n"
	"github.com/klabast/wb-services/newsletter/pkg/logging"
	"github.com/klabast/wb-services/newsletter/pkg/metrics"
)

// Library is the document store behind the server
type Library interface {
	WeekLoader
	Load(ctx context.Context) (*content.Documents, error)
}

// Server renders the newsletter over HTTP. It keeps no per-reader state:
// every request builds a Controller from the reader's cookies.
type Server struct {
	settings *Settings
	library  Library
	weather  WeatherLookup
	gate     *Gate
	admin    *AdminAuth
	logger   *logging.Logger
	metrics  *metrics.Collector
	static   fs.FS
	pages    *template.Template
	now      func() time.Time
}

// ServerOptions wires a Server. Weather, Admin, Metrics and Static are optional.
type ServerOptions struct {
	Settings *Settings
	Library  Library
	Weather  WeatherLookup
	Gate     *Gate
	Admin    *AdminAuth
	Logger   *logging.Logger
	Metrics  *metrics.Collector
	Static   fs.FS
	Now      func() time.Time
}

// NewServer parses the page templates and returns a ready server
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Settings == nil || opts.Library == nil || opts.Gate == nil {
		return nil, errors.New("settings, library and gate are required")
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		settings: opts.Settings,
		library:  opts.Library,
		weather:  opts.Weather,
		gate:     opts.Gate,
		admin:    opts.Admin,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		static:   opts.Static,
		pages:    pages,
		now:      opts.Now,
	}, nil
}

// Router registers every route
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.Handle("/", s.requireUnlocked(false, s.handlePage)).Methods(http.MethodGet)
	r.Handle("/week/{date}", s.requireUnlocked(false, s.handlePage)).Methods(http.MethodGet)
	r.HandleFunc("/unlock", s.handleUnlockForm).Methods(http.MethodGet)
	r.HandleFunc("/unlock", s.handleUnlock).Methods(http.MethodPost)
	r.Handle("/prefs/classroom", s.requireUnlocked(false, s.handleClassroom)).Methods(http.MethodPost)
	r.Handle("/prefs/dark-mode", s.requireUnlocked(false, s.handleDarkMode)).Methods(http.MethodPost)

	r.Handle(`/calendar/{date:\d{4}-\d{2}-\d{2}}.ics`, s.requireUnlocked(false, s.handleEventICS)).Methods(http.MethodGet)
	r.HandleFunc("/calendar.ics", s.handleSubscription).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/weeks", s.requireUnlocked(true, s.handleWeeks)).Methods(http.MethodGet)
	api.Handle("/dashboard", s.requireUnlocked(true, s.handleDashboard)).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Handle("/reload", s.admin.Require(http.HandlerFunc(s.handleReload))).Methods(http.MethodPost)
	admin.Handle("/status", s.admin.Require(http.HandlerFunc(s.handleStatus))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.settings.AssetsDir != "" {
		r.PathPrefix("/images/").Handler(http.StripPrefix("/images/", http.FileServer(http.Dir(s.settings.AssetsDir))))
	}
	if s.static != nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(s.static))))
	}
	return r
}

// language picks ?lang=, then Accept-Language, then the configured default
func (s *Server) language(r *http.Request) i18n.Lang {
	if l, ok := i18n.Parse(r.URL.Query().Get("lang")); ok {
		return l
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language"), s.settings.DefaultLang)
}

func (s *Server) controller(prefs Preferences, lang i18n.Lang) *Controller {
	return NewController(ControllerOptions{
		Loader:     s.library,
		Weather:    s.weather,
		Prefs:      prefs,
		Logger:     s.logger,
		Now:        s.now,
		Lang:       lang,
		FilePrefix: s.settings.FilePrefix,
	})
}

func (s *Server) icsOptions() ICSOptions {
	return ICSOptions{
		ProductID:     s.settings.ICSProductID,
		SummarySuffix: s.settings.ICSSummarySuffix,
		Description:   s.settings.ICSDescription,
		UIDDomain:     s.settings.ICSUIDDomain,
		FilePrefix:    s.settings.FilePrefix,
		CalendarName:  s.settings.SchoolName,
		Timezone:      s.settings.Timezone,
	}
}

// handlePage renders the requested week, or the newest one
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := s.language(r)
	ctl := s.controller(NewCookiePreferences(w, r), lang)

	if err := ctl.Init(ctx, mux.Vars(r)["date"]); err != nil {
		s.renderError(w, r, lang, err)
		return
	}
	view, err := ctl.View(ctx)
	if err != nil {
		s.renderError(w, r, lang, err)
		return
	}

	data := s.pageData(lang, ctl.State().DarkMode)
	data.View = &view
	data.Title = view.Header.Title
	s.render(w, r, http.StatusOK, "page", data)
}

func (s *Server) handleUnlockForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if s.gate.Unlocked(NewCookiePreferences(w, r), s.now()) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	data := s.pageData(s.language(r), nil)
	data.Next = next
	s.render(w, r, http.StatusOK, "unlock", data)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		sendError(w, http.StatusBadRequest, "invalid form")
		return
	}
	next := safeNext(r.PostFormValue("next"))
	if s.gate.Attempt(NewCookiePreferences(w, r), r.PostFormValue("password"), s.now()) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	s.logger.Info(r.Context(), "Wrong reader password", logging.Fields{"remote_addr": r.RemoteAddr})
	data := s.pageData(s.language(r), nil)
	data.Next = next
	data.Error = MsgWrongPassword
	s.render(w, r, http.StatusUnauthorized, "unlock", data)
}

func (s *Server) handleClassroom(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		sendError(w, http.StatusBadRequest, "invalid form")
		return
	}
	ctl := s.controller(NewCookiePreferences(w, r), s.language(r))
	if err := ctl.SelectClassroom(r.PostFormValue("classroom")); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

func (s *Server) handleDarkMode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		sendError(w, http.StatusBadRequest, "invalid form")
		return
	}
	systemDark, _ := strconv.ParseBool(r.PostFormValue("system"))
	ctl := s.controller(NewCookiePreferences(w, r), s.language(r))
	ctl.ToggleDarkMode(systemDark)
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

// handleEventICS exports one calendar entry, with an optional reminder
func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.library.Documents()
	if !ok {
		sendError(w, http.StatusServiceUnavailable, MsgLoadFailed)
		return
	}
	date := mux.Vars(r)["date"]
	entry, ok := docs.Calendar.Entry(date)
	if !ok {
		sendError(w, http.StatusNotFound, "no calendar entry on "+date)
		return
	}

	var reminder *Reminder
	rem, wanted, err := ParseReminder(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if wanted {
		reminder = &rem
	}

	body, err := EventICS(s.icsOptions(), entry, reminder, s.now().UTC())
	if err != nil {
		s.logger.Error(r.Context(), "Failed to build event", logging.Fields{"date": date}, err)
		sendError(w, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	filename := s.settings.FilePrefix + "-" + date + ".ics"
	if err := writeICS(w, body, filename); err != nil {
		s.logger.Warn(r.Context(), "Error writing ICS", nil, err)
	}
}

// handleSubscription serves the whole school calendar as a feed
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.library.Documents()
	if !ok {
		sendError(w, http.StatusServiceUnavailable, MsgLoadFailed)
		return
	}
	body, err := SubscriptionICS(s.icsOptions(), docs.Calendar, s.now().UTC())
	if err != nil {
		s.logger.Error(r.Context(), "Failed to build calendar feed", nil, err)
		sendError(w, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	if err := writeICS(w, body, ""); err != nil {
		s.logger.Warn(r.Context(), "Error writing ICS", nil, err)
	}
}

func (s *Server) handleWeeks(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.library.Documents()
	if !ok {
		sendError(w, http.StatusServiceUnavailable, MsgLoadFailed)
		return
	}
	lang := s.language(r)
	weekOf := docs.Config.LabelsFor(lang).WeekOf

	resp := WeeksResponse{Newest: docs.Index.Newest(), Weeks: make([]WeekSummary, 0, len(docs.Index))}
	for _, key := range docs.Index {
		label := key
		if t, err := calendar.ParseDate(key); err == nil {
			label = weekOf + " " + i18n.FormatLong(t, lang)
		}
		resp.Weeks = append(resp.Weeks, WeekSummary{Key: key, Label: label})
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.library.Documents()
	if !ok {
		sendError(w, http.StatusServiceUnavailable, MsgLoadFailed)
		return
	}
	week := r.URL.Query().Get("week")
	if week == "" {
		week = docs.Index.Newest()
	}
	weekDate, err := calendar.ParseDate(week)
	if err != nil {
		sendError(w, http.StatusBadRequest, "week must be YYYY-MM-DD")
		return
	}
	d, err := calendar.Compute(docs.Calendar, weekDate, s.now())
	if err != nil {
		s.logger.Error(r.Context(), "Failed to compute dashboard", logging.Fields{"week": week}, err)
		sendError(w, http.StatusInternalServerError, ErrInternalServer)
		return
	}
	s.respond(w, r, http.StatusOK, DashboardResponse{Week: week, Dashboard: d})
}

// handleReload re-reads the startup documents
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if _, err := s.library.Load(r.Context()); err != nil {
		sendError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.logger.Info(r.Context(), "Documents reloaded", nil)
	s.respond(w, r, http.StatusOK, s.status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, ready := s.library.Documents()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.respond(w, r, status, HealthResponse{Status: http.StatusText(status), Ready: ready})
}

func (s *Server) status() StatusResponse {
	st := StatusResponse{
		Weather:        s.weather != nil,
		AdminProtected: s.admin.Enabled(),
	}
	if docs, ok := s.library.Documents(); ok {
		st.Ready = true
		st.Newest = docs.Index.Newest()
		st.Weeks = len(docs.Index)
		st.Classrooms = len(docs.Config.Classrooms)
	}
	return st
}

// requireUnlocked sends locked readers to the password screen, or a 401 for API calls
func (s *Server) requireUnlocked(api bool, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.gate.Unlocked(NewCookiePreferences(w, r), s.now()) {
			next(w, r)
			return
		}
		if api {
			sendError(w, http.StatusUnauthorized, "locked")
			return
		}
		http.Redirect(w, r, "/unlock?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
	})
}

func (s *Server) pageData(lang i18n.Lang, dark *bool) pageData {
	d := pageData{
		Lang:       lang,
		Title:      s.settings.SchoolName,
		SchoolName: s.settings.SchoolName,
	}
	if dark != nil {
		d.Dark = *dark
		d.Theme = "light-mode"
		if d.Dark {
			d.Theme = "dark-mode"
		}
	}
	return d
}

// renderError shows the banner for an essential-content failure
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, lang i18n.Lang, err error) {
	status := http.StatusInternalServerError
	msg := MsgLoadFailed
	var le *LoadError
	if errors.As(err, &le) {
		msg = le.Message
	}
	switch errors.Cause(err) {
	case content.ErrNotFound:
		status = http.StatusNotFound
	case ErrNotReady:
		status = http.StatusServiceUnavailable
	}

	data := s.pageData(lang, nil)
	data.Error = msg
	s.render(w, r, status, "error", data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error(r.Context(), "Error rendering template", logging.Fields{"template": name}, err)
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn(r.Context(), "Error writing page", logging.Fields{"template": name}, err)
	}
}
