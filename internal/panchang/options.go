package panchang

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnknownFestival is returned for festival keys with no rule.
	ErrUnknownFestival = errors.New("unknown festival")
	// ErrInvalidRequest covers bad coordinates, year ranges and traditions.
	ErrInvalidRequest = errors.New("invalid request")
)

// Tradition selects the Ekadashi observance rule.
type Tradition string

const (
	Smartha   Tradition = "smartha"
	Vaishnava Tradition = "vaishnava"
)

// ParseTradition accepts "smartha" (also the empty string) or "vaishnava".
func ParseTradition(s string) (Tradition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Smartha):
		return Smartha, nil
	case string(Vaishnava):
		return Vaishnava, nil
	}
	return "", fmt.Errorf("%w: tradition must be smartha or vaishnava, got %q", ErrInvalidRequest, s)
}

// Options selects which observances are generated.
type Options struct {
	Tradition Tradition

	Sankashti       bool
	AmavasyaPurnima bool
	RahuKaal        bool
	Festivals       bool

	// FestivalKeys restricts festivals to these rule keys; empty means all.
	FestivalKeys []string
}

// DefaultOptions enables everything with the Smartha tradition.
func DefaultOptions() Options {
	return Options{
		Tradition:       Smartha,
		Sankashti:       true,
		AmavasyaPurnima: true,
		RahuKaal:        true,
		Festivals:       true,
	}
}

// ParseFestivalKeys parses "all" (or empty) into nil, otherwise a comma
// separated list of known rule keys.
func ParseFestivalKeys(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	var keys []string
	for _, part := range strings.Split(s, ",") {
		k := strings.ToLower(strings.TrimSpace(part))
		if k == "" {
			continue
		}
		if _, ok := festivalByKey[k]; !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownFestival, k, strings.Join(FestivalKeys(), ", "))
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// FestivalKeys lists every known festival rule key, sorted.
func FestivalKeys() []string {
	keys := make([]string, 0, len(festivals))
	for _, f := range festivals {
		keys = append(keys, f.Key)
	}
	sort.Strings(keys)
	return keys
}

// Request describes a calendar to generate.
type Request struct {
	Lat float64
	Lon float64

	YearFrom int
	// YearTo is inclusive; zero means YearFrom.
	YearTo int

	Options Options

	// Viewer, when set, coalesces Rahu Kaal to one window per civil date
	// in that zone.
	Viewer *time.Location
}

// Normalize fills YearTo and the tradition.
func (r *Request) Normalize() {
	if r.YearTo == 0 {
		r.YearTo = r.YearFrom
	}
	if r.Options.Tradition == "" {
		r.Options.Tradition = Smartha
	}
}

// Validate checks coordinates, the year range and option values.
func (r Request) Validate() error {
	if math.IsNaN(r.Lat) || r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidRequest, r.Lat)
	}
	if math.IsNaN(r.Lon) || r.Lon < -180 || r.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidRequest, r.Lon)
	}
	if r.YearFrom < 1900 || r.YearFrom > 2100 {
		return fmt.Errorf("%w: year %d outside 1900..2100", ErrInvalidRequest, r.YearFrom)
	}
	yt := r.YearTo
	if yt == 0 {
		yt = r.YearFrom
	}
	if yt < r.YearFrom {
		return fmt.Errorf("%w: year_to %d before year %d", ErrInvalidRequest, yt, r.YearFrom)
	}
	if yt > 2100 {
		return fmt.Errorf("%w: year_to %d after 2100", ErrInvalidRequest, yt)
	}
	if _, err := ParseTradition(string(r.Options.Tradition)); err != nil {
		return err
	}
	for _, k := range r.Options.FestivalKeys {
		if _, ok := festivalByKey[k]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownFestival, k)
		}
	}
	return nil
}

// Years returns the number of years the request spans.
func (r Request) Years() int {
	yt := r.YearTo
	if yt == 0 {
		yt = r.YearFrom
	}
	return yt - r.YearFrom + 1
}
