package event

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEvent is returned by Validate when the record breaks the
// date/time invariants.
var ErrInvalidEvent = errors.New("invalid event config")

// Date is a calendar date in the event's own timezone.
type Date struct {
	Year  int `yaml:"year" json:"year"`
	Month int `yaml:"month" json:"month"` // 1-12
	Day   int `yaml:"day" json:"day"`     // 1-31
}

// Time holds the local wall-clock start and end of the event.
type Time struct {
	StartHour   int `yaml:"start_hour" json:"start_hour"`
	StartMinute int `yaml:"start_minute" json:"start_minute"`
	EndHour     int `yaml:"end_hour" json:"end_hour"`
	EndMinute   int `yaml:"end_minute" json:"end_minute"`
}

// Venue describes where the event takes place.
type Venue struct {
	Name    string `yaml:"name" json:"name"`
	City    string `yaml:"city" json:"city"`
	Country string `yaml:"country" json:"country"`
}

// Config is the single source of truth for the event. Every page string and
// the calendar document are derived from it; nothing outside this record
// carries event facts.
type Config struct {
	Title   string `yaml:"title" json:"title"`
	Edition string `yaml:"edition" json:"edition"`
	Date    Date   `yaml:"date" json:"date"`
	Time    Time   `yaml:"time" json:"time"`

	// Timezone is the IANA zone the wall-clock times are expressed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	Location Venue `yaml:"location" json:"location"`
}

// Default returns the configured edition of the competition.
func Default() Config {
	return Config{
		Title:   "Slovanské Silové Klání 2026",
		Edition: "5. ročník",
		Date: Date{
			Year:  2026,
			Month: 6,
			Day:   13,
		},
		Time: Time{
			StartHour:   9,
			StartMinute: 30,
			EndHour:     16,
			EndMinute:   0,
		},
		Timezone: "Europe/Prague",
		Location: Venue{
			Name:    "Za Hasičskou Zbrojnicí",
			City:    "Pustiměř",
			Country: "Česká republika",
		},
	}
}

// Validate checks that the date is a real calendar date and that the event
// ends after it starts on the same day.
func (c Config) Validate() error {
	d := c.Date
	if d.Year < 1000 || d.Year > 9999 {
		return fmt.Errorf("%w: year %d must have four digits", ErrInvalidEvent, d.Year)
	}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: date %04d-%02d-%02d out of range", ErrInvalidEvent, d.Year, d.Month, d.Day)
	}
	// time.Date normalizes overflow (e.g. 31 June -> 1 July); a round trip
	// that changes the fields means the date does not exist.
	probe := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	if probe.Year() != d.Year || int(probe.Month()) != d.Month || probe.Day() != d.Day {
		return fmt.Errorf("%w: %04d-%02d-%02d is not a calendar date", ErrInvalidEvent, d.Year, d.Month, d.Day)
	}

	t := c.Time
	if !validClock(t.StartHour, t.StartMinute) {
		return fmt.Errorf("%w: start time %d:%02d out of range", ErrInvalidEvent, t.StartHour, t.StartMinute)
	}
	if !validClock(t.EndHour, t.EndMinute) {
		return fmt.Errorf("%w: end time %d:%02d out of range", ErrInvalidEvent, t.EndHour, t.EndMinute)
	}
	if t.EndHour*60+t.EndMinute <= t.StartHour*60+t.StartMinute {
		return fmt.Errorf("%w: end %d:%02d is not after start %d:%02d", ErrInvalidEvent,
			t.EndHour, t.EndMinute, t.StartHour, t.StartMinute)
	}

	if c.Title == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidEvent)
	}
	return nil
}

func validClock(h, m int) bool {
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

// Year returns the calendar year of the event.
func (c Config) Year() int {
	return c.Date.Year
}

// Status describes where "now" falls relative to the event.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOngoing  Status = "ongoing"
	StatusPast     Status = "past"
)

// Status reports whether the event is still ahead, running, or over at now.
func (c Config) Status(now time.Time) Status {
	switch {
	case now.Before(c.StartUTC()):
		return StatusUpcoming
	case now.Before(c.EndUTC()):
		return StatusOngoing
	default:
		return StatusPast
	}
}
