package astro

import (
	"math"
	"sort"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonphase"
)

const (
	newMoonBracket   = 36 * time.Hour
	newMoonWiden     = 24 * time.Hour
	newMoonMaxWidens = 6
	newMoonMaxIter   = 50
	newMoonTolerance = 1e-4 // degrees
	newMoonDedup     = 18 * time.Hour

	synodicMonth = time.Duration(29.530588853 * 86400 * float64(time.Second))
)

// AmantaMonths are the lunar month names in amanta order, Chaitra first.
var AmantaMonths = [12]string{
	"Chaitra", "Vaisakha", "Jyeshtha", "Ashadha", "Shravana", "Bhadrapada",
	"Ashwin", "Kartika", "Margashirsha", "Pausha", "Magha", "Phalguna",
}

// LunationInterval is one amanta lunar month: from a new moon (Amavasya) to
// the next one. Start and End are UTC instants.
type LunationInterval struct {
	Start time.Time
	End   time.Time
	Name  string
	Index int // 0 = Chaitra
}

// Contains reports whether t falls in [Start, End).
func (iv LunationInterval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// LocalRange returns the first and last civil dates the interval touches in
// loc, as local midnights.
func (iv LunationInterval) LocalRange(loc *time.Location) (from, to time.Time) {
	s := iv.Start.In(loc)
	e := iv.End.Add(-time.Second).In(loc)
	from = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	to = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	return from, to
}

// conjunctionOffset is the signed Moon−Sun longitude difference in
// (-180, 180]; zero at new moon.
func conjunctionOffset(t time.Time) float64 {
	sun, moon := Longitudes(t)
	return wrap180(moon - sun)
}

// FindNewMoon refines a new moon near guess by bisection on the Moon−Sun
// longitude difference. ok is false if no conjunction is bracketed within
// about a week of guess.
func FindNewMoon(guess time.Time) (time.Time, bool) {
	guess = guess.UTC()
	left := guess.Add(-newMoonBracket)
	right := guess.Add(newMoonBracket)
	fl, fr := conjunctionOffset(left), conjunctionOffset(right)

	for tries := 0; fl*fr > 0 && tries < newMoonMaxWidens; tries++ {
		left = left.Add(-newMoonWiden)
		right = right.Add(newMoonWiden)
		fl, fr = conjunctionOffset(left), conjunctionOffset(right)
	}
	if fl*fr > 0 {
		return time.Time{}, false
	}

	for i := 0; i < newMoonMaxIter; i++ {
		mid := left.Add(right.Sub(left) / 2)
		fm := conjunctionOffset(mid)
		if math.Abs(fm) < newMoonTolerance {
			return mid, true
		}
		if fl*fm <= 0 {
			right = mid
		} else {
			left, fl = mid, fm
		}
	}
	return left.Add(right.Sub(left) / 2), true
}

// NewMoons returns the new moons from the one nearest 10 December of
// year−1 through the first one after 20 January of year+1, ascending. The
// span guarantees that every civil day of year lies inside a complete
// lunation.
func NewMoons(year int) []time.Time {
	start := time.Date(year-1, time.December, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 20, 0, 0, 0, 0, time.UTC)

	found := make([]time.Time, 0, 16)
	g := start
	for i := 0; i < 20; i, g = i+1, g.Add(synodicMonth) {
		nm, ok := FindNewMoon(meeusNewMoon(g))
		if !ok {
			continue
		}
		dup := false
		for _, f := range found {
			if absDuration(nm.Sub(f)) < newMoonDedup {
				dup = true
				break
			}
		}
		if !dup {
			found = append(found, nm)
		}
		if nm.After(end) {
			break
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Before(found[j]) })
	return found
}

// meeusNewMoon returns the mean-phase new moon nearest t from Meeus ch. 49,
// as a UT instant.
func meeusNewMoon(t time.Time) time.Time {
	jde := moonphase.New(decimalYear(t))
	ut := julian.JDToTime(jde)
	return ut.Add(-time.Duration(deltaT(ut) * float64(time.Second)))
}

func decimalYear(t time.Time) float64 {
	t = t.UTC()
	begin := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	next := begin.AddDate(1, 0, 0)
	return float64(t.Year()) + float64(t.Sub(begin))/float64(next.Sub(begin))
}

// amantaIndex maps a sidereal solar longitude at new moon onto the amanta
// month index; the Sun in sidereal Pisces opens Chaitra.
func amantaIndex(sunSidereal float64) int {
	return int(math.Floor(normalizeAngle(sunSidereal+30.0)/30.0)) % 12
}

// AmantaIntervals returns the named lunations spanning year.
func AmantaIntervals(year int) []LunationInterval {
	moons := NewMoons(year)
	out := make([]LunationInterval, 0, len(moons))
	for i := 0; i+1 < len(moons); i++ {
		idx := amantaIndex(SunSidereal(moons[i]))
		out = append(out, LunationInterval{
			Start: moons[i],
			End:   moons[i+1],
			Name:  AmantaMonths[idx],
			Index: idx,
		})
	}
	return out
}

// LunationAt returns the interval containing t, if any.
func LunationAt(intervals []LunationInterval, t time.Time) (LunationInterval, bool) {
	for _, iv := range intervals {
		if iv.Contains(t) {
			return iv, true
		}
	}
	return LunationInterval{}, false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
