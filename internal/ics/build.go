// Package ics renders observances as iCalendar (RFC 5545) documents and
// reads them back.
package ics

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"hinducal/internal/model"
)

const (
	ProductID       = "-//Hindu Calendar (Location-aware)//hinducal//EN"
	DefaultCalName  = "Hindu Calendar"
	uidDomain       = "hinducalendar"
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// UIDMode selects how event UIDs are derived.
type UIDMode string

const (
	// UIDStable hashes summary and time so regenerated calendars update
	// existing subscriber events instead of duplicating them.
	UIDStable UIDMode = "stable"
	// UIDRandom assigns a fresh UUIDv4 to every event.
	UIDRandom UIDMode = "random"
)

// ParseUIDMode accepts "stable" (also empty) or "random".
func ParseUIDMode(s string) (UIDMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(UIDStable):
		return UIDStable, nil
	case string(UIDRandom):
		return UIDRandom, nil
	}
	return "", fmt.Errorf("uid mode must be stable or random, got %q", s)
}

// BuildOptions tunes the calendar envelope.
type BuildOptions struct {
	CalName string
	// ViewerZone, when set, is advertised as X-WR-TIMEZONE.
	ViewerZone string
	UIDs       UIDMode
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// StableUID is md5 over "summary|date|ALLDAY" for all-day events and
// "summary|start|end" for timed ones, qualified with @hinducalendar.
func StableUID(e model.Event) string {
	var key string
	if e.AllDay {
		key = fmt.Sprintf("%s|%s|ALLDAY", e.Summary, e.Date.Format(dateLayout))
	} else {
		key = fmt.Sprintf("%s|%s|%s", e.Summary, e.Start.Format(timestampLayout), e.End.Format(timestampLayout))
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:]) + "@" + uidDomain
}

func eventUID(e model.Event, mode UIDMode) string {
	if mode == UIDRandom {
		return uuid.NewString()
	}
	return StableUID(e)
}

// Build serializes events into a VCALENDAR document. All-day events get a
// DATE start and an exclusive DATE end one day later; timed events are
// written in UTC.
func Build(events []model.Event, opts BuildOptions) []byte {
	if opts.CalName == "" {
		opts.CalName = DefaultCalName
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(opts.CalName)
	if opts.ViewerZone != "" {
		cal.SetXWRTimezone(opts.ViewerZone)
	}

	for _, e := range events {
		ve := cal.AddEvent(eventUID(e, opts.UIDs))
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(e.Summary)
		ve.SetDescription(e.Description)
		if e.AllDay {
			ve.SetAllDayStartAt(e.Date)
			ve.SetAllDayEndAt(e.Date.AddDate(0, 0, 1))
			continue
		}
		ve.SetStartAt(e.Start.UTC())
		ve.SetEndAt(e.End.UTC())
	}
	return []byte(cal.Serialize())
}

// Filename is the download name for a year range.
func Filename(yearFrom, yearTo int) string {
	if yearTo == 0 || yearTo == yearFrom {
		return fmt.Sprintf("hindu-calendar-%d.ics", yearFrom)
	}
	return fmt.Sprintf("hindu-calendar-%d-%d.ics", yearFrom, yearTo)
}
