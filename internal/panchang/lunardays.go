package panchang

import (
	"fmt"

	"hinducal/internal/astro"
	"hinducal/internal/model"
)

// AmavasyaPurnima returns the new- and full-moon days of year: civil days
// whose sunrise falls in tithi 30 or 15.
func (o *Observer) AmavasyaPurnima(year int) []model.Event {
	var out []model.Event
	for _, d := range o.YearDays(year) {
		sr, err := o.Sunrise(d)
		if err != nil {
			continue
		}
		switch astro.TithiAt(sr) {
		case 30:
			out = append(out, o.allDay(model.KindAmavasya, d, "Amavasya",
				fmt.Sprintf("Tithi 30 at sunrise (%s).", o.Zone)))
		case 15:
			out = append(out, o.allDay(model.KindPurnima, d, "Purnima",
				fmt.Sprintf("Tithi 15 at sunrise (%s).", o.Zone)))
		}
	}
	return out
}
