package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"sskweb/internal/event"
)

// MediaType is the content type of generated calendar documents.
const MediaType = "text/calendar; charset=utf-8"

const (
	DefaultProductID  = "-//SlovanskeSiloveKlani//NONSGML v1.0//EN"
	DefaultUIDDomain  = "slovanskesiloveklani.cz"
	DefaultFilePrefix = "slovanske-silove-klani"

	descriptionSuffix = " amatérské silové soutěže / Amateur Strongman Competition"
)

// ErrNoDownloader is returned by ExportAndDownload when there is nothing to
// deliver the document to (headless runs without an output sink).
var ErrNoDownloader = errors.New("ics: no download target available")

// Downloader delivers a finished file to the user. The HTTP server answers
// with an attachment; the static build writes the file to disk.
type Downloader interface {
	Download(filename, mediaType string, payload []byte) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(filename, mediaType string, payload []byte) error

func (f DownloaderFunc) Download(filename, mediaType string, payload []byte) error {
	return f(filename, mediaType, payload)
}

// Options holds the identifiers stamped into every document. Zero fields
// fall back to the package defaults.
type Options struct {
	ProductID  string
	UIDDomain  string
	FilePrefix string

	// Now supplies DTSTAMP and the UID timestamp; time.Now when nil.
	Now func() time.Time
}

// Generator builds single-event calendar documents for one event.
type Generator struct {
	event event.Config
	opts  Options
}

// NewGenerator returns a Generator for ev.
func NewGenerator(ev event.Config, opts Options) *Generator {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = DefaultUIDDomain
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = DefaultFilePrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{event: ev, opts: opts}
}

// Generate renders the calendar document. Properties are emitted in the order
// VERSION, PRODID, UID, DTSTAMP, DTSTART, DTEND, SUMMARY, DESCRIPTION,
// LOCATION, with CRLF line endings.
func (g *Generator) Generate() string {
	now := g.opts.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId(g.opts.ProductID)

	ve := cal.AddEvent(g.uid(now))
	ve.SetDtStampTime(now)
	ve.SetProperty(ical.ComponentPropertyDtStart, g.event.ICSStartTime())
	ve.SetProperty(ical.ComponentPropertyDtEnd, g.event.ICSEndTime())
	ve.SetSummary(g.event.Title)
	ve.SetDescription(g.event.Edition + descriptionSuffix)
	ve.SetLocation(g.event.FullLocation())

	return cal.Serialize(ical.WithNewLineWindows)
}

// Filename returns "<prefix>-<year>.ics".
func (g *Generator) Filename() string {
	return fmt.Sprintf("%s-%d.ics", g.opts.FilePrefix, g.event.Year())
}

// ExportAndDownload generates a fresh document and hands it to d.
func (g *Generator) ExportAndDownload(d Downloader) error {
	if d == nil {
		return ErrNoDownloader
	}
	if err := d.Download(g.Filename(), MediaType, []byte(g.Generate())); err != nil {
		return fmt.Errorf("ics: deliver %s: %w", g.Filename(), err)
	}
	return nil
}

// uid is unique per document so re-downloads never collide in a client.
func (g *Generator) uid(now time.Time) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s@%s", now.UnixMilli(), rnd, g.opts.UIDDomain)
}
