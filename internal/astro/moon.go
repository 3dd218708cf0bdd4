package astro

import (
	"math"
	"time"
)

const (
	moonriseStep   = 10 * time.Minute
	moonriseRefine = 12

	// refraction plus the Moon's semidiameter allowance (Meeus ch. 15).
	moonStandardRefraction = 34.0 / 60.0
)

// Moonrise returns the first moonrise during the civil day of `day` in loc.
// ok is false when the Moon does not rise that day, which happens roughly
// once per lunation and more often at high latitudes.
func Moonrise(lat, lon float64, day time.Time, loc *time.Location) (rise time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)

	prevT := start
	prev := moonAboveHorizon(prevT, lat, lon)
	for t := start.Add(moonriseStep); !t.After(end); t = t.Add(moonriseStep) {
		cur := moonAboveHorizon(t, lat, lon)
		if prev < 0 && cur >= 0 {
			r := refineCrossing(prevT, t, lat, lon)
			if !r.Before(end) {
				return time.Time{}, false
			}
			return r.In(loc), true
		}
		prevT, prev = t, cur
	}
	return time.Time{}, false
}

// moonAboveHorizon returns the Moon's geocentric altitude minus the
// standard rise altitude h0 = 0.7275·π − 34', in degrees.
func moonAboveHorizon(t time.Time, lat, lon float64) float64 {
	ra, dec, dist := moonEquatorial(t)
	parallax := radToDeg(math.Asin(earthRadiusKm / dist))
	h0 := 0.7275*parallax - moonStandardRefraction
	return altitude(t, lat, lon, ra, dec) - h0
}

func refineCrossing(lo, hi time.Time, lat, lon float64) time.Time {
	for i := 0; i < moonriseRefine; i++ {
		mid := lo.Add(hi.Sub(lo) / 2)
		if moonAboveHorizon(mid, lat, lon) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi.Truncate(time.Second)
}
