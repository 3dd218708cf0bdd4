package astro

import (
	"errors"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// ErrNoSunrise is returned for days on which the Sun stays above or below
// the horizon (polar day/night).
var ErrNoSunrise = errors.New("astro: no sunrise or sunset on this day")

// SunTimes returns sunrise and sunset for the civil day of `day` in loc.
// Both results are expressed in loc.
//
// go-sunrise takes the UTC date of solar noon. Far from the zone meridian
// (UTC+13/+14 in the Pacific) that date differs from the civil date, so
// the neighbouring dates are tried until sunrise lands on the civil day.
// A day with no sunrise of its own yields ErrNoSunrise.
func SunTimes(lat, lon float64, day time.Time, loc *time.Location) (rise, set time.Time, err error) {
	if loc == nil {
		loc = time.UTC
	}
	d := day.In(loc)
	civil := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

	for _, off := range []int{0, -1, 1} {
		c := civil.AddDate(0, 0, off)
		r, s := sunrise.SunriseSunset(lat, lon, c.Year(), c.Month(), c.Day())
		if r.IsZero() || s.IsZero() {
			continue
		}
		r, s = r.In(loc), s.In(loc)
		if sameCivilDay(r, d) {
			return r, s, nil
		}
	}
	return time.Time{}, time.Time{}, ErrNoSunrise
}

func sameCivilDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Sunrise is SunTimes without the sunset.
func Sunrise(lat, lon float64, day time.Time, loc *time.Location) (time.Time, error) {
	r, _, err := SunTimes(lat, lon, day, loc)
	return r, err
}
