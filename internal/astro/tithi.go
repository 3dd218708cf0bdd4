package astro

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Paksha is the lunar fortnight.
type Paksha string

const (
	Shukla  Paksha = "Shukla"
	Krishna Paksha = "Krishna"
)

// tithiSpan is the elongation covered by one tithi.
const tithiSpan = 12.0

var tithiNames = [15]string{
	"Pratipada", "Dwitiya", "Tritiya", "Chaturthi", "Panchami",
	"Shashthi", "Saptami", "Ashtami", "Navami", "Dashami",
	"Ekadashi", "Dwadashi", "Trayodashi", "Chaturdashi", "Purnima",
}

// TithiAt returns the tithi (1..30) in force at t. 1..15 are the Shukla
// (waxing) tithis ending with Purnima, 16..30 the Krishna ones ending with
// Amavasya.
func TithiAt(t time.Time) int {
	return tithiFromElongation(Elongation(t))
}

func tithiFromElongation(e float64) int {
	n := int(math.Floor(normalizeAngle(e)/tithiSpan)) + 1
	if n > 30 {
		n = 30
	}
	return n
}

// PakshaOf returns the fortnight an absolute tithi belongs to.
func PakshaOf(n int) Paksha {
	if n >= 1 && n <= 15 {
		return Shukla
	}
	return Krishna
}

// ParsePaksha accepts "shukla" or "krishna" in any case.
func ParsePaksha(s string) (Paksha, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shukla":
		return Shukla, nil
	case "krishna":
		return Krishna, nil
	}
	return "", fmt.Errorf("astro: unknown paksha %q", s)
}

// TithiAbs converts a fortnight ordinal (1..15) to the absolute tithi
// number. Krishna Chaturthi is 19.
func TithiAbs(p Paksha, ordinal int) int {
	if p == Shukla {
		return ordinal
	}
	return 15 + ordinal
}

// TithiName returns the traditional name, e.g. "Shukla Chaturthi",
// "Purnima" or "Amavasya".
func TithiName(n int) string {
	switch {
	case n == 15:
		return "Purnima"
	case n == 30:
		return "Amavasya"
	case n >= 1 && n < 15:
		return string(Shukla) + " " + tithiNames[n-1]
	case n > 15 && n < 30:
		return string(Krishna) + " " + tithiNames[n-16]
	}
	return fmt.Sprintf("Tithi %d", n)
}

// nakshatraSpan is 13°20'.
const nakshatraSpan = 360.0 / 27.0

var nakshatraNames = [27]string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashira", "Ardra",
	"Punarvasu", "Pushya", "Ashlesha", "Magha", "Purva Phalguni",
	"Uttara Phalguni", "Hasta", "Chitra", "Swati", "Vishakha", "Anuradha",
	"Jyeshtha", "Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana",
	"Dhanishta", "Shatabhisha", "Purva Bhadrapada", "Uttara Bhadrapada",
	"Revati",
}

// NakshatraAt returns the lunar mansion (1..27) of the Moon's sidereal
// longitude at t.
func NakshatraAt(t time.Time) int {
	_, moon := Longitudes(t)
	sid := normalizeAngle(moon - LahiriAyanamsha(t))
	n := int(math.Floor(sid/nakshatraSpan)) + 1
	if n > 27 {
		n = 27
	}
	return n
}

// NakshatraName returns the name for 1..27.
func NakshatraName(n int) string {
	if n < 1 || n > 27 {
		return fmt.Sprintf("Nakshatra %d", n)
	}
	return nakshatraNames[n-1]
}
