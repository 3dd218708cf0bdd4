package astro

import (
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"
)

const (
	// lahiriJ2000Arcsec is the Lahiri ayanamsha at J2000.0 (23°51').
	lahiriJ2000Arcsec = 23*3600 + 51*60
	// precessionArcsecPerCentury is general precession in longitude.
	precessionArcsecPerCentury = 5028.796195
)

// LahiriAyanamsha returns an approximate Lahiri ayanamsha in degrees. It is
// accurate to a few arcminutes, which is ample for naming lunar months and
// nakshatras.
func LahiriAyanamsha(t time.Time) float64 {
	T := base.J2000Century(julian.TimeToJD(t.UTC()))
	// Precession moves the tropical origin westward, so the offset grows
	// with time.
	return unit.AngleFromSec(lahiriJ2000Arcsec + precessionArcsecPerCentury*T).Deg()
}

// SunSidereal returns the Sun's sidereal (nirayana) longitude in degrees.
func SunSidereal(t time.Time) float64 {
	sun, _ := Longitudes(t)
	return normalizeAngle(sun - LahiriAyanamsha(t))
}
