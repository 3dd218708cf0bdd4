package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hinducal/internal/panchang"
	"hinducal/internal/tz"
)

// errBadRequest marks query problems reported as 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// calendarQuery is the parsed form of the /ics and /api/events parameters.
type calendarQuery struct {
	req        panchang.Request
	viewerZone string
	festivals  string
}

// cacheKey identifies the generated payload for the calendar cache.
func (q calendarQuery) cacheKey(kind string) []string {
	o := q.req.Options
	return []string{
		kind,
		strconv.FormatFloat(q.req.Lat, 'f', 4, 64),
		strconv.FormatFloat(q.req.Lon, 'f', 4, 64),
		strconv.Itoa(q.req.YearFrom),
		strconv.Itoa(q.req.YearTo),
		string(o.Tradition),
		strconv.FormatBool(o.Sankashti),
		strconv.FormatBool(o.AmavasyaPurnima),
		strconv.FormatBool(o.RahuKaal),
		strconv.FormatBool(o.Festivals),
		strings.Join(o.FestivalKeys, ","),
		q.viewerZone,
	}
}

// parseBool accepts the usual query spellings; an absent value is false.
func parseBool(v url.Values, name string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(v.Get(name)))
	switch raw {
	case "":
		return false, nil
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean, got %q", name, v.Get(name))
	}
	return b, nil
}

func parseFloat(v url.Values, name string) (float64, bool, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, badRequest("%s must be a number, got %q", name, raw)
	}
	return f, true, nil
}

func parseIntDefault(v url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

// coordinates reads lat/lon, or geolocates the client when auto_location
// is set and either is missing.
func (s *Server) coordinates(ctx context.Context, r *http.Request) (lat, lon float64, err error) {
	v := r.URL.Query()
	lat, hasLat, err := parseFloat(v, "lat")
	if err != nil {
		return 0, 0, err
	}
	lon, hasLon, err := parseFloat(v, "lon")
	if err != nil {
		return 0, 0, err
	}
	if hasLat && hasLon {
		return lat, lon, nil
	}

	auto, err := parseBool(v, "auto_location")
	if err != nil {
		return 0, 0, err
	}
	if !auto {
		return 0, 0, badRequest("lat and lon are required unless auto_location=true")
	}
	if s.locator == nil {
		return 0, 0, badRequest("auto-location failed: geolocation is not configured")
	}
	c, err := s.locator.Locate(ctx, clientIP(r))
	if err != nil {
		return 0, 0, badRequest("auto-location failed: %v", err)
	}
	return c.Lat, c.Lon, nil
}

// parseCalendarQuery validates the shared /ics and /api/events parameters.
func (s *Server) parseCalendarQuery(r *http.Request) (calendarQuery, error) {
	v := r.URL.Query()
	var q calendarQuery

	lat, lon, err := s.coordinates(r.Context(), r)
	if err != nil {
		return q, err
	}

	if strings.TrimSpace(v.Get("year")) == "" {
		return q, badRequest("year is required")
	}
	year, err := parseIntDefault(v, "year", 0)
	if err != nil {
		return q, err
	}
	yearTo, err := parseIntDefault(v, "year_to", year)
	if err != nil {
		return q, err
	}
	if yearTo < year {
		return q, badRequest("year_to (%d) must be >= year (%d)", yearTo, year)
	}
	if span := yearTo - year + 1; span > s.cfg.Server.MaxYearSpan {
		return q, badRequest("year span %d exceeds the maximum of %d", span, s.cfg.Server.MaxYearSpan)
	}

	tradition := v.Get("tradition")
	if tradition == "" {
		tradition = s.cfg.Defaults.Tradition
	}
	tr, err := panchang.ParseTradition(tradition)
	if err != nil {
		return q, badRequest("%v", err)
	}

	var flags [4]bool
	for i, name := range []string{"no_sankashti", "no_ap", "no_rahukaal", "no_festivals"} {
		if flags[i], err = parseBool(v, name); err != nil {
			return q, err
		}
	}

	q.festivals = v.Get("festivals")
	if q.festivals == "" {
		q.festivals = s.cfg.Defaults.Festivals
	}
	keys, err := panchang.ParseFestivalKeys(q.festivals)
	if err != nil {
		return q, badRequest("%v", err)
	}

	q.req = panchang.Request{
		Lat:      lat,
		Lon:      lon,
		YearFrom: year,
		YearTo:   yearTo,
		Options: panchang.Options{
			Tradition:       tr,
			Sankashti:       !flags[0],
			AmavasyaPurnima: !flags[1],
			RahuKaal:        !flags[2],
			Festivals:       !flags[3],
			FestivalKeys:    keys,
		},
	}
	if viewer := tz.Load(v.Get("viewer_tz")); viewer != nil {
		q.req.Viewer = viewer
		q.viewerZone = viewer.String()
	}
	if err := q.req.Validate(); err != nil {
		return q, badRequest("%v", err)
	}
	return q, nil
}

// parseDailyQuery validates /api/panchang parameters. Without a date, from
// is zero and the generator starts at today in the coordinate's zone.
func (s *Server) parseDailyQuery(r *http.Request) (lat, lon float64, from time.Time, days int, err error) {
	v := r.URL.Query()
	if lat, lon, err = s.coordinates(r.Context(), r); err != nil {
		return
	}

	if raw := strings.TrimSpace(v.Get("date")); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			err = badRequest("date must be YYYY-MM-DD, got %q", raw)
			return
		}
	}

	if days, err = parseIntDefault(v, "days", 7); err != nil {
		return
	}
	if days < 1 || days > panchang.MaxDailyDays {
		err = badRequest("days must be between 1 and %d", panchang.MaxDailyDays)
	}
	return
}
