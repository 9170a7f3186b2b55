package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sskweb/internal/config"
	"sskweb/internal/event"
	"sskweb/internal/i18n"
	"sskweb/internal/ics"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	tr, err := i18n.LoadEmbedded(cfg.DefaultLocale)
	require.NoError(t, err)

	ev := event.Default()
	gen := ics.NewGenerator(ev, ics.Options{UIDDomain: cfg.UIDDomain()})
	s := NewServer(cfg, ev, tr, gen)
	s.SetClock(func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) })
	return s
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, nil).Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestCalendarDownload(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	for _, target := range []string{"/calendar.ics", "/en/calendar.ics"} {
		rec := do(t, h, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
		require.Equal(t, "attachment; filename=slovanske-silove-klani-2026.ics", rec.Header().Get("Content-Disposition"))
		require.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"), target)
		require.NoError(t, ics.Verify(rec.Body.String(), event.Default()))
	}

	first, err := ics.Inspect(do(t, h, http.MethodGet, "/calendar.ics", nil).Body.String())
	require.NoError(t, err)
	second, err := ics.Inspect(do(t, h, http.MethodGet, "/calendar.ics", nil).Body.String())
	require.NoError(t, err)
	require.NotEqual(t, first.UID, second.UID)

	rec := do(t, h, http.MethodGet, "/xx/calendar.ics", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRootRedirectsByAcceptLanguage(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()

	rec := do(t, h, http.MethodGet, "/", map[string]string{"Accept-Language": "en-GB,en;q=0.9"})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/en/", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, "/cs/", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/", map[string]string{"Accept-Language": "fr"})
	require.Equal(t, "/cs/", rec.Header().Get("Location"))
}

func TestRootRedirectSkipsUnbuiltLocale(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, func(c *config.Config) { c.Locales = []string{"cs"} }).Handler()
	rec := do(t, h, http.MethodGet, "/", map[string]string{"Accept-Language": "en"})
	require.Equal(t, "/cs/", rec.Header().Get("Location"))
}

func TestEventAPI(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil).Handler()
	rec := do(t, h, http.MethodGet, "/api/event?locale=en", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "13.06.2026", resp.Date)
	require.Equal(t, "9:30 - 16:00", resp.Time)
	require.Equal(t, "13.06.2026 | 9:30", resp.DateTime)
	require.Equal(t, "2026-06-13T07:30:00Z", resp.StartUTC)
	require.Equal(t, "20260613T073000Z", resp.ICSStart)
	require.Equal(t, "20260613T140000Z", resp.ICSEnd)
	require.Equal(t, event.StatusUpcoming, resp.Status)
	require.Equal(t, "en", resp.Locale)
	require.Equal(t, "Add to calendar", resp.AddToCalendar)

	rec = do(t, h, http.MethodGet, "/api/event", map[string]string{"Accept-Language": "cs"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "cs", resp.Locale)
	require.Equal(t, "Přidat do kalendáře", resp.AddToCalendar)
}

func TestStaticFiles(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/cs/", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	out := s.cfg.OutputDir
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("root"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(out, "cs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "cs", "index.html"), []byte("<p>ahoj</p>"), 0o644))

	rec = do(t, h, http.MethodGet, "/cs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<p>ahoj</p>", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/missing.html", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "preview", Password: "secret"}
	}).Handler()

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/calendar.ics", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	req.SetBasicAuth("preview", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
