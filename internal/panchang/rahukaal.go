package panchang

import (
	"fmt"
	"time"

	"hinducal/internal/model"
)

// rahuSegment is the 1-based eighth of daylight ruled by Rahu per weekday.
var rahuSegment = map[time.Weekday]int{
	time.Monday:    2,
	time.Tuesday:   7,
	time.Wednesday: 5,
	time.Thursday:  6,
	time.Friday:    4,
	time.Saturday:  3,
	time.Sunday:    8,
}

// RahuKaalSlot divides daylight into eight equal parts and returns the part
// for weekday. A sunset not after sunrise is replaced by sunrise + 12h so
// the slot always has positive length.
func RahuKaalSlot(sunrise, sunset time.Time, weekday time.Weekday) (start, end time.Time) {
	if !sunset.After(sunrise) {
		sunset = sunrise.Add(12 * time.Hour)
	}
	seg := sunset.Sub(sunrise) / 8
	start = sunrise.Add(time.Duration(rahuSegment[weekday]-1) * seg)
	return start, start.Add(seg)
}

// RahuKaal returns one timed event per civil day of year. Days without a
// sunrise are skipped.
func (o *Observer) RahuKaal(year int) []model.Event {
	out := make([]model.Event, 0, 366)
	for _, d := range o.YearDays(year) {
		sr, ss, err := o.SunTimes(d)
		if err != nil {
			continue
		}
		start, end := RahuKaalSlot(sr, ss, d.Weekday())
		out = append(out, model.Event{
			Kind:        model.KindRahuKaal,
			Summary:     "Rahu Kaal",
			Description: fmt.Sprintf("Day divided into eight parts; weekday segment (%s).", o.Zone),
			Start:       start,
			End:         end,
		})
	}
	SortEvents(out)
	return out
}
