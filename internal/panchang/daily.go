package panchang

import (
	"context"
	"fmt"
	"time"

	"hinducal/internal/astro"
)

// MaxDailyDays bounds a single Daily request.
const MaxDailyDays = 31

// Day is one row of a daily panchang sheet. Times are in the observer's
// zone; zero times mean the event does not occur that day.
type Day struct {
	Date     string    `json:"date"`
	Weekday  string    `json:"weekday"`
	Sunrise  time.Time `json:"sunrise,omitzero"`
	Sunset   time.Time `json:"sunset,omitzero"`
	Moonrise time.Time `json:"moonrise,omitzero"`

	Tithi         int    `json:"tithi"`
	TithiName     string `json:"tithi_name"`
	Paksha        string `json:"paksha"`
	Nakshatra     int    `json:"nakshatra"`
	NakshatraName string `json:"nakshatra_name"`
	Month         string `json:"month"`

	RahuKaalStart time.Time `json:"rahu_kaal_start,omitzero"`
	RahuKaalEnd   time.Time `json:"rahu_kaal_end,omitzero"`
}

// Sheet is a run of Day rows for one coordinate.
type Sheet struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zone string  `json:"zone"`
	Days []Day   `json:"days"`
}

// Daily builds a panchang sheet of n days starting at the calendar date
// of from, taken as written. A zero from means today in the coordinate's
// zone. Tithi, paksha and nakshatra are taken at sunrise, or at local noon
// on days without one.
func (e *Engine) Daily(ctx context.Context, lat, lon float64, from time.Time, n int) (Sheet, error) {
	if n < 1 || n > MaxDailyDays {
		return Sheet{}, fmt.Errorf("%w: days must be 1..%d, got %d", ErrInvalidRequest, MaxDailyDays, n)
	}
	probe := Request{Lat: lat, Lon: lon, YearFrom: 2000}
	if err := probe.Validate(); err != nil {
		return Sheet{}, err
	}

	o := e.observer(lat, lon)
	if from.IsZero() {
		from = e.now().In(o.Loc)
	}
	if y := from.Year(); y < 1900 || y > 2100 {
		return Sheet{}, fmt.Errorf("%w: year %d outside 1900..2100", ErrInvalidRequest, y)
	}
	start := o.Midnight(time.Date(from.Year(), from.Month(), from.Day(), 12, 0, 0, 0, o.Loc))
	sheet := Sheet{Lat: lat, Lon: lon, Zone: o.Zone}

	for _, d := range Days(start, start.AddDate(0, 0, n-1)) {
		if err := ctx.Err(); err != nil {
			return Sheet{}, err
		}
		sheet.Days = append(sheet.Days, o.day(d))
	}
	return sheet, nil
}

func (o *Observer) day(d time.Time) Day {
	row := Day{Date: dateKey(d), Weekday: d.Weekday().String()}

	ref := o.At(d, 12)
	if rise, set, err := o.SunTimes(d); err == nil {
		row.Sunrise, row.Sunset = rise, set
		row.RahuKaalStart, row.RahuKaalEnd = RahuKaalSlot(rise, set, d.Weekday())
		ref = rise
	}
	if mr, ok := o.Moonrise(d); ok {
		row.Moonrise = mr
	}

	row.Tithi = astro.TithiAt(ref)
	row.TithiName = astro.TithiName(row.Tithi)
	row.Paksha = string(astro.PakshaOf(row.Tithi))
	row.Nakshatra = astro.NakshatraAt(ref)
	row.NakshatraName = astro.NakshatraName(row.Nakshatra)

	if iv, ok := astro.LunationAt(o.Lunations(ref.Year()), ref); ok {
		row.Month = iv.Name
	}
	return row
}
