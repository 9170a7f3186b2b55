package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"sskweb/internal/event"
	appLog "sskweb/internal/log"
)

const icsUTCLayout = "20060102T150405Z"

// ParsedEvent is the single VEVENT read back from a generated document.
type ParsedEvent struct {
	UID string

	Stamp time.Time
	Start time.Time
	End   time.Time

	Summary     string
	Description string
	Location    string
}

// Inspect parses a calendar document and returns its only event. Documents
// with zero or several VEVENTs are rejected.
func Inspect(body string) (ParsedEvent, error) {
	if body == "" {
		return ParsedEvent{}, errors.New("ics: empty document")
	}

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return ParsedEvent{}, fmt.Errorf("ics: parse: %w", err)
	}

	events := cal.Events()
	if len(events) != 1 {
		return ParsedEvent{}, fmt.Errorf("ics: expected exactly one VEVENT, got %d", len(events))
	}
	return parseVEvent(events[0])
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("ics: missing UID")
	}
	out.UID = uidProp.Value

	var err error
	if out.Stamp, err = utcProperty(ve, ical.ComponentPropertyDtstamp); err != nil {
		return out, err
	}
	if out.Start, err = utcProperty(ve, ical.ComponentPropertyDtStart); err != nil {
		return out, err
	}
	if out.End, err = utcProperty(ve, ical.ComponentPropertyDtEnd); err != nil {
		return out, err
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	return out, nil
}

func utcProperty(ve *ical.VEvent, name ical.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(name)
	if p == nil {
		return time.Time{}, fmt.Errorf("ics: missing %s", name)
	}
	t, err := time.Parse(icsUTCLayout, strings.TrimSpace(p.Value))
	if err != nil {
		return time.Time{}, fmt.Errorf("ics: %s: %w", name, err)
	}
	return t, nil
}

// Verify checks that body describes ev: one event with matching start, end
// and summary.
func Verify(body string, ev event.Config) error {
	parsed, err := Inspect(body)
	if err != nil {
		return err
	}
	if !parsed.Start.Equal(ev.StartUTC()) {
		return fmt.Errorf("ics: DTSTART %s does not match event start %s", parsed.Start, ev.StartUTC())
	}
	if !parsed.End.Equal(ev.EndUTC()) {
		return fmt.Errorf("ics: DTEND %s does not match event end %s", parsed.End, ev.EndUTC())
	}
	if parsed.Summary != ev.Title {
		return fmt.Errorf("ics: SUMMARY %q does not match title %q", parsed.Summary, ev.Title)
	}
	appLog.Debug("ics document verified", "uid", parsed.UID, "start", parsed.Start.Format(time.RFC3339))
	return nil
}
