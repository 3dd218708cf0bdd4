package panchang

import (
	"sync"
	"time"

	"github.com/teambition/rrule-go"

	"hinducal/internal/astro"
	appLog "hinducal/internal/log"
)

// Observer is a position on Earth together with the time zone its civil
// days are reckoned in. Sunrise and moonrise lookups are memoized per civil
// date; an Observer is safe for concurrent use.
type Observer struct {
	Lat  float64
	Lon  float64
	Loc  *time.Location
	Zone string

	mu       sync.Mutex
	sun      map[string]sunDay
	moon     map[string]moonDay
	lunation map[int][]astro.LunationInterval
}

type sunDay struct {
	rise, set time.Time
	err       error
}

type moonDay struct {
	rise time.Time
	ok   bool
}

// NewObserver builds an Observer. zone is the IANA name used in event
// descriptions; it defaults to loc.String().
func NewObserver(lat, lon float64, loc *time.Location, zone string) *Observer {
	if loc == nil {
		loc = time.UTC
	}
	if zone == "" {
		zone = loc.String()
	}
	return &Observer{
		Lat:      lat,
		Lon:      lon,
		Loc:      loc,
		Zone:     zone,
		sun:      make(map[string]sunDay),
		moon:     make(map[string]moonDay),
		lunation: make(map[int][]astro.LunationInterval),
	}
}

// SunTimes returns sunrise/sunset for the civil day, or astro.ErrNoSunrise.
func (o *Observer) SunTimes(day time.Time) (rise, set time.Time, err error) {
	key := dateKey(day.In(o.Loc))

	o.mu.Lock()
	if c, ok := o.sun[key]; ok {
		o.mu.Unlock()
		return c.rise, c.set, c.err
	}
	o.mu.Unlock()

	rise, set, err = astro.SunTimes(o.Lat, o.Lon, day, o.Loc)

	o.mu.Lock()
	o.sun[key] = sunDay{rise: rise, set: set, err: err}
	o.mu.Unlock()
	return rise, set, err
}

// Sunrise is SunTimes without the sunset.
func (o *Observer) Sunrise(day time.Time) (time.Time, error) {
	r, _, err := o.SunTimes(day)
	return r, err
}

// Moonrise returns the moonrise on the civil day, if the Moon rises.
func (o *Observer) Moonrise(day time.Time) (time.Time, bool) {
	key := dateKey(day.In(o.Loc))

	o.mu.Lock()
	if c, ok := o.moon[key]; ok {
		o.mu.Unlock()
		return c.rise, c.ok
	}
	o.mu.Unlock()

	rise, ok := astro.Moonrise(o.Lat, o.Lon, day, o.Loc)

	o.mu.Lock()
	o.moon[key] = moonDay{rise: rise, ok: ok}
	o.mu.Unlock()
	return rise, ok
}

// Lunations returns the amanta intervals spanning year. They do not depend
// on position but are cached here so concurrent years share the work.
func (o *Observer) Lunations(year int) []astro.LunationInterval {
	o.mu.Lock()
	if ivs, ok := o.lunation[year]; ok {
		o.mu.Unlock()
		return ivs
	}
	o.mu.Unlock()

	ivs := astro.AmantaIntervals(year)
	appLog.Debug("lunations computed", "year", year, "count", len(ivs))

	o.mu.Lock()
	o.lunation[year] = ivs
	o.mu.Unlock()
	return ivs
}

// At returns hour:00 local time on the civil day.
func (o *Observer) At(day time.Time, hour int) time.Time {
	d := day.In(o.Loc)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, o.Loc)
}

// Midnight returns local midnight of the civil day containing t.
func (o *Observer) Midnight(t time.Time) time.Time {
	return o.At(t, 0)
}

// YearDays returns every civil day of year in the observer's zone.
func (o *Observer) YearDays(year int) []time.Time {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, o.Loc)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, o.Loc)
	return Days(from, to)
}

// Days returns the local midnights from `from` through `to` inclusive, in
// from's location.
func Days(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: from,
		Until:   to,
	})
	if err != nil {
		appLog.Error("day iteration rule rejected; stepping manually", err)
		var out []time.Time
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			out = append(out, d)
		}
		return out
	}
	return r.All()
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
