// Package astro computes the solar and lunar quantities the panchang rules
// are built on: apparent ecliptic longitudes of the Sun and Moon, tithi and
// nakshatra, sidereal solar longitude, sunrise/sunset, moonrise and new
// moons.
//
// Longitudes come from the Meeus series (solar theory and ELP-derived lunar
// series), which keeps tithi boundaries within a couple of minutes of a
// full JPL ephemeris for dates between 1900 and 2100.
package astro

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

// earthRadiusKm is the equatorial radius used for lunar horizontal parallax.
const earthRadiusKm = 6378.14

// Longitudes returns the apparent geocentric ecliptic longitudes of the Sun
// and the Moon at t, in degrees within [0, 360).
func Longitudes(t time.Time) (sun, moon float64) {
	jde := ephemerisDay(t)
	T := base.J2000Century(jde)

	sun = normalizeAngle(solar.ApparentLongitude(T).Deg())

	lambda, _, _ := moonposition.Position(jde)
	dPsi, _ := nutation.Nutation(jde)
	moon = normalizeAngle(lambda.Deg() + dPsi.Deg())
	return sun, moon
}

// Elongation is the Moon's longitude minus the Sun's, in [0, 360).
func Elongation(t time.Time) float64 {
	sun, moon := Longitudes(t)
	return normalizeAngle(moon - sun)
}

// moonEquatorial returns apparent right ascension and declination (radians)
// and the geocentric distance in km.
func moonEquatorial(t time.Time) (ra, dec, distKm float64) {
	jde := ephemerisDay(t)
	lambda, beta, dist := moonposition.Position(jde)
	dPsi, dEps := nutation.Nutation(jde)
	eps := nutation.MeanObliquity(jde).Deg() + dEps.Deg()

	ra, dec = eclipticToEquatorial(lambda.Deg()+dPsi.Deg(), beta.Deg(), eps)
	return ra, dec, dist
}

// ephemerisDay converts a UT instant to a Julian Ephemeris Day.
func ephemerisDay(t time.Time) float64 {
	utc := t.UTC()
	return julian.TimeToJD(utc) + deltaT(utc)/86400.0
}

// deltaT estimates TT−UT in seconds (Espenak & Meeus polynomials).
func deltaT(t time.Time) float64 {
	y := float64(t.Year()) + (float64(t.YearDay())-0.5)/365.25
	switch {
	case y >= 2005 && y < 2050:
		u := y - 2000
		return 62.92 + 0.32217*u + 0.005589*u*u
	case y >= 2050 && y < 2150:
		u := (y - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-y)
	case y >= 1986 && y < 2005:
		u := y - 2000
		return 63.86 + 0.3345*u - 0.060374*u*u + 0.0017275*u*u*u +
			0.000651814*u*u*u*u + 0.00002373599*u*u*u*u*u
	case y >= 1961 && y < 1986:
		u := y - 1975
		return 45.45 + 1.067*u - u*u/260 - u*u*u/718
	case y >= 1941 && y < 1961:
		u := y - 1950
		return 29.07 + 0.407*u - u*u/233 + u*u*u/2547
	case y >= 1920 && y < 1941:
		u := y - 1920
		return 21.20 + 0.84493*u - 0.076100*u*u + 0.0020936*u*u*u
	case y >= 1900 && y < 1920:
		u := y - 1900
		return -2.79 + 1.494119*u - 0.0598939*u*u + 0.0061966*u*u*u - 0.000197*u*u*u*u
	default:
		u := (y - 1820) / 100
		return -20 + 32*u*u
	}
}

// eclipticToEquatorial converts ecliptic coordinates (degrees) to right
// ascension and declination (radians) for obliquity epsDeg.
func eclipticToEquatorial(lambdaDeg, betaDeg, epsDeg float64) (ra, dec float64) {
	lam := degToRad(lambdaDeg)
	bet := degToRad(betaDeg)
	eps := degToRad(epsDeg)

	sinDec := math.Sin(bet)*math.Cos(eps) + math.Cos(bet)*math.Sin(eps)*math.Sin(lam)
	dec = math.Asin(sinDec)

	y := math.Sin(lam)*math.Cos(eps) - math.Tan(bet)*math.Sin(eps)
	ra = math.Atan2(y, math.Cos(lam))
	if ra < 0 {
		ra += 2 * math.Pi
	}
	return ra, dec
}

// greenwichMeanSiderealTime returns GMST in degrees for a UT Julian Day
// (Meeus eq. 12.4).
func greenwichMeanSiderealTime(jd float64) float64 {
	jd0 := math.Floor(jd-0.5) + 0.5
	T := (jd0 - 2451545.0) / 36525.0

	gmst := 6.697374558 + 2400.0513369*T + 0.0000258622*T*T - 1.7222e-9*T*T*T
	gmst += 1.00273790935 * (jd - jd0) * 24.0

	gmst = math.Mod(gmst, 24)
	if gmst < 0 {
		gmst += 24
	}
	return gmst * 15.0
}

// altitude returns the geocentric altitude (degrees) of a body at ra/dec
// (radians) seen from lat/lon at t.
func altitude(t time.Time, latDeg, lonDeg, ra, dec float64) float64 {
	jd := julian.TimeToJD(t.UTC())
	lst := degToRad(normalizeAngle(greenwichMeanSiderealTime(jd) + lonDeg))
	h := lst - ra
	phi := degToRad(latDeg)

	sinAlt := math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Cos(h)
	return radToDeg(math.Asin(sinAlt))
}

func normalizeAngle(a float64) float64 {
	return unit.PMod(a, 360)
}

// wrap180 maps an angle onto [-180, 180).
func wrap180(a float64) float64 {
	return normalizeAngle(a+180) - 180
}

func degToRad(deg float64) float64 { return unit.AngleFromDeg(deg).Rad() }
func radToDeg(rad float64) float64 { return unit.Angle(rad).Deg() }
