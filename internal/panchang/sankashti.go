package panchang

import (
	"fmt"
	"time"

	"hinducal/internal/astro"
	"hinducal/internal/model"
)

var krishnaChaturthi = astro.TithiAbs(astro.Krishna, 4)

// Sankashti returns Sankashti Chaturthi (Krishna Chaturthi) for every
// lunation touching year, restricted to civil dates within year.
//
// The day is the first one in the lunation whose moonrise falls in Krishna
// Chaturthi. If moonrise never does (no moonrise that night, or the tithi
// ends before the Moon rises), the first day on which Krishna Chaturthi
// prevails at any whole hour is used instead.
func (o *Observer) Sankashti(year int) []model.Event {
	var out []model.Event
	for _, iv := range o.Lunations(year) {
		from, to := iv.LocalRange(o.Loc)
		days := Days(from, to)

		pick, atMoonrise := o.firstMoonriseTithi(days, krishnaChaturthi)
		if pick.IsZero() {
			pick = o.firstHourlyTithi(days, krishnaChaturthi, 0, 23)
		}
		if pick.IsZero() || pick.Year() != year {
			continue
		}

		desc := fmt.Sprintf("Krishna Chaturthi (tithi %d) at moonrise (%s).", krishnaChaturthi, o.Zone)
		if !atMoonrise {
			desc = fmt.Sprintf("Krishna Chaturthi detected during day (no/unsuitable moonrise) (%s).", o.Zone)
		}
		out = append(out, o.allDay(model.KindSankashti, pick, "Sankashti Chaturthi (Krishna)", desc))
	}
	SortEvents(out)
	return out
}

// firstMoonriseTithi returns the first day whose moonrise falls in tithi.
func (o *Observer) firstMoonriseTithi(days []time.Time, tithi int) (time.Time, bool) {
	for _, d := range days {
		mr, ok := o.Moonrise(d)
		if ok && astro.TithiAt(mr) == tithi {
			return d, true
		}
	}
	return time.Time{}, false
}

// firstHourlyTithi returns the first day on which tithi prevails at some
// whole hour between fromHour and toHour local time.
func (o *Observer) firstHourlyTithi(days []time.Time, tithi, fromHour, toHour int) time.Time {
	for _, d := range days {
		if _, ok := o.hourlyTithi(d, tithi, fromHour, toHour); ok {
			return d
		}
	}
	return time.Time{}
}

// hourlyTithi checks hh:00 for hh in [fromHour, toHour] on day and returns
// the first instant in tithi.
func (o *Observer) hourlyTithi(day time.Time, tithi, fromHour, toHour int) (time.Time, bool) {
	for hh := fromHour; hh <= toHour; hh++ {
		at := o.At(day, hh)
		if astro.TithiAt(at) == tithi {
			return at, true
		}
	}
	return time.Time{}, false
}
