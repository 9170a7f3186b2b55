package event

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	appLog "sskweb/internal/log"
)

const (
	// icsTimestampLayout is the compact UTC form used by DTSTART/DTEND.
	icsTimestampLayout = "20060102T150405Z"
	isoUTCLayout       = "2006-01-02T15:04:05Z"
)

// cestZone is used when no zone is configured or the zone database does not
// know the configured name. The event always runs in a Central European
// summer month, so UTC+2 matches the real rules for every edition so far.
var cestZone = time.FixedZone("CEST", 2*60*60)

var zoneCache sync.Map // name -> *time.Location

// Zone returns the event's timezone. An empty or unknown zone name
// resolves to fixed UTC+2.
func (c Config) Zone() *time.Location {
	if c.Timezone == "" {
		return cestZone
	}
	if loc, ok := zoneCache.Load(c.Timezone); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load event timezone; using fixed UTC+2", err, "timezone", c.Timezone)
		loc = cestZone
	}
	zoneCache.Store(c.Timezone, loc)
	return loc
}

// Start returns the local start instant in the event's timezone.
func (c Config) Start() time.Time {
	return time.Date(c.Date.Year, time.Month(c.Date.Month), c.Date.Day,
		c.Time.StartHour, c.Time.StartMinute, 0, 0, c.Zone())
}

// End returns the local end instant in the event's timezone.
func (c Config) End() time.Time {
	return time.Date(c.Date.Year, time.Month(c.Date.Month), c.Date.Day,
		c.Time.EndHour, c.Time.EndMinute, 0, 0, c.Zone())
}

// StartUTC is Start converted to UTC. Crossing midnight borrows into the
// previous day, month or year.
func (c Config) StartUTC() time.Time {
	return c.Start().UTC()
}

// EndUTC is End converted to UTC.
func (c Config) EndUTC() time.Time {
	return c.End().UTC()
}

// FormattedDate returns the date as DD.MM.YYYY.
//
// The locale argument is accepted for template compatibility; the output is
// the same fixed pattern for every locale.
func (c Config) FormattedDate(locale string) string {
	_ = locale
	return fmt.Sprintf("%02d.%02d.%d", c.Date.Day, c.Date.Month, c.Date.Year)
}

// FormattedTime returns the local time range, e.g. "9:30 - 16:00".
func (c Config) FormattedTime() string {
	return clock(c.Time.StartHour, c.Time.StartMinute) + " - " + clock(c.Time.EndHour, c.Time.EndMinute)
}

// FormattedDateTime returns the date and start time, e.g. "13.06.2026 | 9:30".
func (c Config) FormattedDateTime() string {
	return c.FormattedDate("") + " | " + clock(c.Time.StartHour, c.Time.StartMinute)
}

// ICSStartTime returns the UTC start as YYYYMMDDTHHMMSSZ.
func (c Config) ICSStartTime() string {
	return c.StartUTC().Format(icsTimestampLayout)
}

// ICSEndTime returns the UTC end as YYYYMMDDTHHMMSSZ.
func (c Config) ICSEndTime() string {
	return c.EndUTC().Format(icsTimestampLayout)
}

// StartISOStringUTC reformats ICSStartTime as YYYY-MM-DDTHH:MM:SSZ.
func (c Config) StartISOStringUTC() string {
	t, err := time.Parse(icsTimestampLayout, c.ICSStartTime())
	if err != nil {
		// ICSStartTime is produced with the same layout.
		panic(fmt.Sprintf("event: reparse ICS start: %v", err))
	}
	return t.Format(isoUTCLayout)
}

// FullLocation returns "<venue name>, <city>".
func (c Config) FullLocation() string {
	return c.Location.Name + ", " + c.Location.City
}

func clock(h, m int) string {
	return fmt.Sprintf("%d:%02d", h, m)
}
