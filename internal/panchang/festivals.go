package panchang

import (
	"fmt"
	"time"

	"hinducal/internal/astro"
	"hinducal/internal/model"
)

// festivalRule is one named observance fixed to a lunar month and tithi.
// find returns the matching civil day within days and its description.
//
// Month is the amanta name. Observances in a Krishna paksha are usually
// quoted by their purnimanta month, one ahead: Karwa Chauth (Kartika) and
// Mahashivratri (Phalguna) therefore sit in Ashwin and Magha here.
type festivalRule struct {
	Key     string
	Summary string
	Month   string
	find    func(o *Observer, days []time.Time) (time.Time, string, bool)
}

var festivals = []festivalRule{
	{
		Key: "diwali", Summary: "Diwali / Deepavali", Month: "Kartika",
		find: atSunrise(30, "Kartika Amavasya (tithi 30 at sunrise, %s)."),
	},
	{
		Key: "karwa_chauth", Summary: "Karwa Chauth", Month: "Ashwin",
		find: karwaChauth,
	},
	{
		Key: "mahashivratri", Summary: "Mahashivratri", Month: "Magha",
		find: atHour(29, 20, "Phalguna Krishna Chaturdashi (night), %s."),
	},
	{
		Key: "gudi_padwa", Summary: "Gudi Padwa (Maharashtra New Year)", Month: "Chaitra",
		find: atSunrise(1, "Chaitra Shukla Pratipada at sunrise (%s)."),
	},
	{
		Key: "ganesh_chaturthi", Summary: "Ganesh Chaturthi / Vinayaka Chaturthi", Month: "Bhadrapada",
		find: atSunrise(4, "Bhadrapada Shukla Chaturthi at sunrise (%s)."),
	},
	{
		Key: "navaratri_start", Summary: "Shardiya Navaratri begins", Month: "Ashwin",
		find: atSunrise(1, "Ashwin Shukla Pratipada at sunrise (%s)."),
	},
	{
		Key: "guru_nanak", Summary: "Guru Nanak Jayanti", Month: "Kartika",
		find: atSunrise(15, "Kartika Purnima at sunrise (%s)."),
	},
}

var festivalByKey = func() map[string]festivalRule {
	m := make(map[string]festivalRule, len(festivals))
	for _, f := range festivals {
		m[f.Key] = f
	}
	return m
}()

// atSunrise matches the first day whose sunrise falls in tithi.
func atSunrise(tithi int, descFmt string) func(*Observer, []time.Time) (time.Time, string, bool) {
	return func(o *Observer, days []time.Time) (time.Time, string, bool) {
		for _, d := range days {
			sr, err := o.Sunrise(d)
			if err != nil {
				continue
			}
			if astro.TithiAt(sr) == tithi {
				return d, fmt.Sprintf(descFmt, o.Zone), true
			}
		}
		return time.Time{}, "", false
	}
}

// atHour matches the first day on which tithi prevails at hour:00 local.
func atHour(tithi, hour int, descFmt string) func(*Observer, []time.Time) (time.Time, string, bool) {
	return func(o *Observer, days []time.Time) (time.Time, string, bool) {
		for _, d := range days {
			if astro.TithiAt(o.At(d, hour)) == tithi {
				return d, fmt.Sprintf(descFmt, o.Zone), true
			}
		}
		return time.Time{}, "", false
	}
}

// karwaChauth is Krishna Chaturthi at moonrise, falling back to an hourly
// evening scan (15:00 to 23:00) on the same day when the Moon has not
// risen in that tithi.
func karwaChauth(o *Observer, days []time.Time) (time.Time, string, bool) {
	for _, d := range days {
		if mr, ok := o.Moonrise(d); ok && astro.TithiAt(mr) == krishnaChaturthi {
			return d, fmt.Sprintf("Krishna Chaturthi (tithi %d) at moonrise (%s).", krishnaChaturthi, o.Zone), true
		}
		if at, ok := o.hourlyTithi(d, krishnaChaturthi, 15, 23); ok {
			return d, fmt.Sprintf("Krishna Chaturthi detected in evening (%s).", at.Format("15:04 MST")), true
		}
	}
	return time.Time{}, "", false
}

// Festivals evaluates the selected rules (all when keys is empty) against
// the lunations of year. Each rule yields at most one event, the first
// matching day dated within year.
func (o *Observer) Festivals(year int, keys []string) ([]model.Event, error) {
	chosen := festivals
	if len(keys) > 0 {
		chosen = make([]festivalRule, 0, len(keys))
		for _, k := range keys {
			f, ok := festivalByKey[k]
			if !ok {
				return nil, fmt.Errorf("%w %q", ErrUnknownFestival, k)
			}
			chosen = append(chosen, f)
		}
	}

	lunations := o.Lunations(year)
	var out []model.Event
	for _, f := range chosen {
		if ev, ok := o.festival(f, lunations, year); ok {
			out = append(out, ev)
		}
	}
	SortEvents(out)
	return out, nil
}

func (o *Observer) festival(f festivalRule, lunations []astro.LunationInterval, year int) (model.Event, bool) {
	for _, iv := range lunations {
		if iv.Name != f.Month {
			continue
		}
		from, to := iv.LocalRange(o.Loc)
		day, desc, ok := f.find(o, Days(from, to))
		if !ok || day.Year() != year {
			continue
		}
		return o.allDay(model.KindFestival, day, f.Summary, desc), true
	}
	return model.Event{}, false
}
