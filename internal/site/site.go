package site

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sskweb/internal/config"
	"sskweb/internal/event"
	"sskweb/internal/i18n"
	"sskweb/internal/ics"
	appLog "sskweb/internal/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// OGImageName is the social preview image written by the capture step.
const OGImageName = "og-image.png"

// Builder renders the static site into cfg.OutputDir.
type Builder struct {
	cfg   *config.Config
	event event.Config
	tr    *i18n.Translator
	gen   *ics.Generator
	now   func() time.Time

	page     *template.Template
	redirect *template.Template
}

// Result lists the files written by Build, relative to the output dir.
type Result struct {
	Files []string
}

// NewBuilder parses the embedded templates and checks that every configured
// locale has a translation table.
func NewBuilder(cfg *config.Config, ev event.Config, tr *i18n.Translator, gen *ics.Generator) (*Builder, error) {
	if cfg == nil || tr == nil || gen == nil {
		return nil, errors.New("site: config, translator and generator are required")
	}
	for _, locale := range cfg.Locales {
		if !tr.Has(locale) {
			return nil, fmt.Errorf("site: locale %q has no translation table", locale)
		}
	}

	// "t" is rebound per locale before execution.
	funcs := template.FuncMap{"t": func(key string) string { return key }}
	page, err := template.New("page.html").Funcs(funcs).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("site: parse page template: %w", err)
	}
	redirect, err := template.New("redirect.html").ParseFS(templateFS, "templates/redirect.html")
	if err != nil {
		return nil, fmt.Errorf("site: parse redirect template: %w", err)
	}

	return &Builder{
		cfg:      cfg,
		event:    ev,
		tr:       tr,
		gen:      gen,
		now:      time.Now,
		page:     page,
		redirect: redirect,
	}, nil
}

// SetClock overrides the time source used for the event status banner.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// Build writes every page, the calendar file and the SEO files.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	var res Result
	out := b.cfg.OutputDir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return res, fmt.Errorf("site: create output dir: %w", err)
	}

	started := time.Now()
	appLog.Info("site build start", "output_dir", out, "locales", strings.Join(b.cfg.Locales, ","))

	for _, locale := range b.cfg.Locales {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		html, err := b.renderPage(locale)
		if err != nil {
			return res, err
		}
		name := filepath.Join(locale, "index.html")
		if err := writeFile(out, name, html); err != nil {
			return res, err
		}
		res.Files = append(res.Files, name)
	}

	root, err := b.renderRedirect()
	if err != nil {
		return res, err
	}
	if err := writeFile(out, "index.html", root); err != nil {
		return res, err
	}
	res.Files = append(res.Files, "index.html")

	icsName, err := b.writeCalendar()
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, icsName)

	if b.cfg.Sitemap {
		sm, err := buildSitemap(b.cfg.SiteURL, b.cfg.Locales, b.now())
		if err != nil {
			return res, err
		}
		if err := writeFile(out, "sitemap.xml", sm); err != nil {
			return res, err
		}
		res.Files = append(res.Files, "sitemap.xml")
	}

	if err := writeFile(out, "robots.txt", robotsTxt(b.cfg.SiteURL, b.cfg.Sitemap)); err != nil {
		return res, err
	}
	res.Files = append(res.Files, "robots.txt")

	appLog.Info("site build done", "files", len(res.Files), "elapsed", time.Since(started).String())
	return res, nil
}

// writeCalendar generates the .ics file, verifies it parses back to the
// event, then writes it.
func (b *Builder) writeCalendar() (string, error) {
	var written string
	err := b.gen.ExportAndDownload(ics.DownloaderFunc(func(filename, _ string, payload []byte) error {
		if err := ics.Verify(string(payload), b.event); err != nil {
			return err
		}
		written = filename
		return writeFile(b.cfg.OutputDir, filename, payload)
	}))
	if err != nil {
		return "", fmt.Errorf("site: calendar file: %w", err)
	}
	return written, nil
}

type alternate struct {
	Locale string
	URL    string
}

type pageData struct {
	Locale     string
	Canonical  string
	Alternates []alternate
	OGImage    string

	Event     event.Config
	Date      string
	TimeRange string
	Location  string
	StartISO  string
	Status    event.Status

	CalendarFile string
	JSONLD       template.JS
}

func (b *Builder) renderPage(locale string) ([]byte, error) {
	tmpl, err := b.page.Clone()
	if err != nil {
		return nil, fmt.Errorf("site: clone page template: %w", err)
	}
	tmpl.Funcs(template.FuncMap{"t": b.tr.For(locale)})

	ld, err := eventJSONLD(b.event, b.cfg.SiteURL, locale)
	if err != nil {
		return nil, err
	}

	alternates := make([]alternate, 0, len(b.cfg.Locales))
	for _, l := range b.cfg.Locales {
		alternates = append(alternates, alternate{Locale: l, URL: pageURL(b.cfg.SiteURL, l)})
	}

	data := pageData{
		Locale:       locale,
		Canonical:    pageURL(b.cfg.SiteURL, locale),
		Alternates:   alternates,
		OGImage:      strings.TrimRight(b.cfg.SiteURL, "/") + "/" + OGImageName,
		Event:        b.event,
		Date:         b.event.FormattedDate(locale),
		TimeRange:    b.event.FormattedTime(),
		Location:     b.event.FullLocation(),
		StartISO:     b.event.StartISOStringUTC(),
		Status:       b.event.Status(b.now()),
		CalendarFile: b.gen.Filename(),
		JSONLD:       template.JS(ld),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("site: render %s page: %w", locale, err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) renderRedirect() ([]byte, error) {
	data := struct {
		Locale    string
		Title     string
		Canonical string
	}{
		Locale:    b.cfg.DefaultLocale,
		Title:     b.event.Title,
		Canonical: pageURL(b.cfg.SiteURL, b.cfg.DefaultLocale),
	}
	var buf bytes.Buffer
	if err := b.redirect.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("site: render root redirect: %w", err)
	}
	return buf.Bytes(), nil
}

// eventJSONLD describes the event as a schema.org Event.
func eventJSONLD(ev event.Config, siteURL, locale string) ([]byte, error) {
	doc := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Event",
		"name":        ev.Title,
		"description": ev.Edition,
		"startDate":   ev.StartISOStringUTC(),
		"endDate":     ev.EndUTC().Format(time.RFC3339),
		"inLanguage":  locale,
		"url":         pageURL(siteURL, locale),
		"eventStatus": "https://schema.org/EventScheduled",
		"location": map[string]any{
			"@type": "Place",
			"name":  ev.Location.Name,
			"address": map[string]any{
				"@type":           "PostalAddress",
				"addressLocality": ev.Location.City,
				"addressCountry":  ev.Location.Country,
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("site: encode JSON-LD: %w", err)
	}
	return data, nil
}

func pageURL(siteURL, locale string) string {
	return strings.TrimRight(siteURL, "/") + "/" + locale + "/"
}

// writeFile writes data to dir/name via a temp file and rename, so the
// preview server never serves a half-written file during a rebuild.
func writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("site: mkdir for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sskweb-*.tmp")
	if err != nil {
		return fmt.Errorf("site: temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("site: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("site: close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("site: rename %s: %w", name, err)
	}
	return nil
}
