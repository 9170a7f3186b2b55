package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sskweb/internal/config"
	"sskweb/internal/event"
	"sskweb/internal/i18n"
	"sskweb/internal/ics"
	appLog "sskweb/internal/log"
)

// Server is the preview server for the built site. It serves the static
// output and generates calendar downloads on request.
type Server struct {
	cfg   *config.Config
	event event.Config
	tr    *i18n.Translator
	gen   *ics.Generator
	now   func() time.Time

	router chi.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, ev event.Config, tr *i18n.Translator, gen *ics.Generator) *Server {
	s := &Server{
		cfg:    cfg,
		event:  ev,
		tr:     tr,
		gen:    gen,
		now:    time.Now,
		router: chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// SetClock overrides the time source used for the event status.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(s.router)
	}
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "output_dir", s.cfg.OutputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="sskweb", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/event", s.handleEvent)
	r.Get("/calendar.ics", s.handleCalendar)
	r.Get("/{locale}/calendar.ics", s.handleCalendar)
	r.Get("/", s.handleRoot)

	// Everything else comes from the static build.
	r.NotFound(s.staticFileServer().ServeHTTP)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleRoot sends visitors to the locale their browser prefers.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	locale := s.tr.MatchAcceptLanguage(r.Header.Get("Accept-Language"))
	if !s.buildsLocale(locale) {
		locale = s.cfg.DefaultLocale
	}
	w.Header().Add("Vary", "Accept-Language")
	http.Redirect(w, r, "/"+locale+"/", http.StatusFound)
}

func (s *Server) buildsLocale(locale string) bool {
	for _, l := range s.cfg.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// handleCalendar delivers a freshly generated document (new UID and
// DTSTAMP) as an attachment.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if locale := chi.URLParam(r, "locale"); locale != "" && !s.tr.Has(locale) {
		http.NotFound(w, r)
		return
	}
	// Headers are already sent when delivery fails; only log.
	if err := s.gen.ExportAndDownload(attachment{w: w}); err != nil {
		appLog.Error("calendar download failed", err, "path", r.URL.Path)
		return
	}
	appLog.Debug("calendar downloaded", "path", r.URL.Path, "remote", r.RemoteAddr)
}

// attachment is the HTTP download target for calendar exports.
type attachment struct {
	w http.ResponseWriter
}

func (a attachment) Download(filename, mediaType string, payload []byte) error {
	h := a.w.Header()
	h.Set("Content-Type", mediaType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Cache-Control", "no-store")
	a.w.WriteHeader(http.StatusOK)
	_, err := a.w.Write(payload)
	return err
}

// eventResponse is the JSON response shape for /api/event.
type eventResponse struct {
	Title         string       `json:"title"`
	Edition       string       `json:"edition"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	DateTime      string       `json:"date_time"`
	Location      string       `json:"location"`
	Country       string       `json:"country"`
	Timezone      string       `json:"timezone"`
	StartUTC      string       `json:"start_utc"`
	ICSStart      string       `json:"ics_start"`
	ICSEnd        string       `json:"ics_end"`
	Status        event.Status `json:"status"`
	CalendarFile  string       `json:"calendar_file"`
	CalendarURL   string       `json:"calendar_url"`
	Locale        string       `json:"locale"`
	AddToCalendar string       `json:"add_to_calendar"`
}

// handleEvent exposes the event facts and their formatted forms.
//
// GET /api/event?locale=en
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if !s.tr.Has(locale) {
		locale = s.tr.MatchAcceptLanguage(r.Header.Get("Accept-Language"))
	}

	ev := s.event
	writeJSON(w, http.StatusOK, eventResponse{
		Title:         ev.Title,
		Edition:       ev.Edition,
		Date:          ev.FormattedDate(locale),
		Time:          ev.FormattedTime(),
		DateTime:      ev.FormattedDateTime(),
		Location:      ev.FullLocation(),
		Country:       ev.Location.Country,
		Timezone:      ev.Timezone,
		StartUTC:      ev.StartISOStringUTC(),
		ICSStart:      ev.ICSStartTime(),
		ICSEnd:        ev.ICSEndTime(),
		Status:        ev.Status(s.now()),
		CalendarFile:  s.gen.Filename(),
		CalendarURL:   "/calendar.ics",
		Locale:        locale,
		AddToCalendar: s.tr.Translate(locale, "hero.add_to_calendar"),
	})
}

// staticFileServer serves the build output directory.
func (s *Server) staticFileServer() http.Handler {
	fileServer := http.FileServer(http.Dir(s.cfg.OutputDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// /api/* never falls through to HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if _, err := os.Stat(filepath.Join(s.cfg.OutputDir, "index.html")); err != nil {
			http.Error(w, "site not built yet", http.StatusServiceUnavailable)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
