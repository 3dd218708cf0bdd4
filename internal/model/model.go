package model

import "time"

// Kind classifies an observance so consumers can filter or coalesce
// without matching on summary text.
type Kind string

const (
	KindEkadashi  Kind = "ekadashi"
	KindSankashti Kind = "sankashti"
	KindAmavasya  Kind = "amavasya"
	KindPurnima   Kind = "purnima"
	KindRahuKaal  Kind = "rahu_kaal"
	KindFestival  Kind = "festival"
)

// Event is a single computed observance.
//
// All-day events carry Date (local midnight of the civil day in the
// observer's zone). Timed events carry Start/End instead.
type Event struct {
	Kind Kind

	Summary     string
	Description string

	AllDay bool

	Date time.Time

	Start time.Time
	End   time.Time
}

// Day returns the civil day the event belongs to, as local midnight.
func (e Event) Day() time.Time {
	if e.AllDay {
		return e.Date
	}
	s := e.Start
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
}

// SortTime orders all-day events at 00:00 of their day and timed events at
// their start.
func (e Event) SortTime() time.Time {
	if e.AllDay {
		return e.Date
	}
	return e.Start
}

// DateKey is the YYYY-MM-DD form of Day.
func (e Event) DateKey() string {
	return e.Day().Format("2006-01-02")
}

// Coordinates is an observer position in decimal degrees (east/north
// positive).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
