// Package tz maps coordinates to IANA time zones.
package tz

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/ringsaturn/tzf"

	appLog "hinducal/internal/log"
)

// UTC is returned when no zone covers a coordinate.
const UTC = "UTC"

var (
	finderOnce sync.Once
	finder     tzf.F
	finderErr  error
)

func defaultFinder() (tzf.F, error) {
	finderOnce.Do(func() {
		finder, finderErr = tzf.NewDefaultFinder()
		if finderErr != nil {
			appLog.Error("time zone finder init failed; falling back to UTC", finderErr)
		}
	})
	return finder, finderErr
}

// Lookup returns the IANA zone name covering lat/lon, or "UTC".
func Lookup(lat, lon float64) string {
	f, err := defaultFinder()
	if err != nil {
		return UTC
	}
	name := f.GetTimezoneName(lon, lat)
	if name == "" {
		return UTC
	}
	return name
}

// Location loads the zone for lat/lon. When the local tz database lacks
// the name, UTC is used and its name returned instead.
func Location(lat, lon float64) (*time.Location, string) {
	name := Lookup(lat, lon)
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Warn("time zone not in tz database; using UTC", "zone", name, "err", err)
		return time.UTC, UTC
	}
	return loc, name
}

// Load validates and loads a viewer-supplied zone name. An empty, unknown
// or "Local" name yields nil; only IANA names are accepted.
func Load(name string) *time.Location {
	if name == "" || strings.EqualFold(name, "Local") {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Debug("ignoring unknown zone", "zone", name)
		return nil
	}
	return loc
}
