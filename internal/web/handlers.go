package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"hinducal/internal/ics"
	appLog "hinducal/internal/log"
	"hinducal/internal/model"
	"hinducal/internal/panchang"
	"hinducal/internal/store"
)

// statusFor maps a handler error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, panchang.ErrInvalidRequest),
		errors.Is(err, panchang.ErrUnknownFestival):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err, "path", r.URL.Path, "query", r.URL.RawQuery)
		writeError(w, status, "calendar generation failed")
		return
	}
	appLog.Debug("request rejected", "path", r.URL.Path, "err", err)
	writeError(w, status, err.Error())
}

// handleICS serves a generated calendar as a download.
//
// GET /ics?lat=..&lon=..&year=..[&year_to=..][&tradition=smartha|vaishnava]
//
//	[&no_sankashti=1][&no_ap=1][&no_rahukaal=1][&no_festivals=1]
//	[&festivals=all|k1,k2][&viewer_tz=Area/City][&auto_location=1]
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseCalendarQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	key := store.Key(q.cacheKey("ics")...)
	if e, ok, err := s.cache.Get(ctx, key, s.cfg.Server.CacheTTL); err != nil {
		appLog.Error("calendar cache read failed", err)
	} else if ok {
		writeCalendar(w, e.Filename, e.Payload, "hit")
		return
	}

	res, err := s.gen.Generate(ctx, q.req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	name := ics.Filename(q.req.YearFrom, q.req.YearTo)
	payload := ics.Build(res.Events, ics.BuildOptions{
		ViewerZone: q.viewerZone,
		UIDs:       ics.UIDStable,
		Now:        s.now(),
	})
	if err := s.cache.Put(ctx, key, name, payload); err != nil {
		appLog.Error("calendar cache write failed", err)
	}
	writeCalendar(w, name, payload, "miss")
}

func writeCalendar(w http.ResponseWriter, filename string, payload []byte, cache string) {
	h := w.Header()
	h.Set("Content-Type", "text/calendar; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// eventDTO is the JSON view of an observance.
type eventDTO struct {
	UID         string     `json:"uid"`
	Kind        model.Kind `json:"kind"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	AllDay      bool       `json:"all_day"`
	Date        string     `json:"date"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

func toDTO(e model.Event) eventDTO {
	d := eventDTO{
		UID:         ics.StableUID(e),
		Kind:        e.Kind,
		Summary:     e.Summary,
		Description: e.Description,
		AllDay:      e.AllDay,
		Date:        e.DateKey(),
	}
	if !e.AllDay {
		start, end := e.Start, e.End
		d.Start, d.End = &start, &end
	}
	return d
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Lat      float64    `json:"lat"`
	Lon      float64    `json:"lon"`
	Zone     string     `json:"zone"`
	ViewerTZ string     `json:"viewer_tz,omitempty"`
	YearFrom int        `json:"year"`
	YearTo   int        `json:"year_to"`
	Count    int        `json:"count"`
	Events   []eventDTO `json:"events"`
}

// handleEvents returns the same observances as /ics as JSON.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseCalendarQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.gen.Generate(r.Context(), q.req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := eventsResponse{
		Lat:      q.req.Lat,
		Lon:      q.req.Lon,
		Zone:     res.Zone,
		ViewerTZ: q.viewerZone,
		YearFrom: q.req.YearFrom,
		YearTo:   q.req.YearTo,
		Count:    len(res.Events),
		Events:   make([]eventDTO, 0, len(res.Events)),
	}
	for _, e := range res.Events {
		resp.Events = append(resp.Events, toDTO(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePanchang returns a daily panchang sheet.
//
// GET /api/panchang?lat=..&lon=..[&date=YYYY-MM-DD][&days=1..31]
func (s *Server) handlePanchang(w http.ResponseWriter, r *http.Request) {
	lat, lon, from, days, err := s.parseDailyQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sheet, err := s.gen.Daily(r.Context(), lat, lon, from, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}
