package web

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinducal/internal/config"
	"hinducal/internal/ics"
	"hinducal/internal/model"
	"hinducal/internal/panchang"
	"hinducal/internal/store"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []panchang.Request
	froms    []time.Time
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, req panchang.Request) (panchang.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return panchang.Result{}, f.err
	}
	day := time.Date(req.YearFrom, 1, 10, 0, 0, 0, 0, ist)
	return panchang.Result{
		Zone: "Asia/Kolkata",
		Events: []model.Event{
			{Kind: model.KindEkadashi, Summary: "Putrada Ekadashi (Shukla)", AllDay: true, Date: day},
			{Kind: model.KindRahuKaal, Summary: "Rahu Kaal", Start: day.Add(11 * time.Hour), End: day.Add(12 * time.Hour)},
		},
	}, nil
}

func (f *fakeGenerator) Daily(_ context.Context, lat, lon float64, from time.Time, days int) (panchang.Sheet, error) {
	f.mu.Lock()
	f.froms = append(f.froms, from)
	f.mu.Unlock()
	if from.IsZero() {
		from = time.Date(2025, 8, 27, 0, 0, 0, 0, ist)
	}
	sheet := panchang.Sheet{Lat: lat, Lon: lon, Zone: "Asia/Kolkata"}
	for i := 0; i < days; i++ {
		sheet.Days = append(sheet.Days, panchang.Day{Date: from.AddDate(0, 0, i).Format("2006-01-02")})
	}
	return sheet, nil
}

func (f *fakeGenerator) last() panchang.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeLocator struct {
	coords model.Coordinates
	err    error
	ips    []string
}

func (l *fakeLocator) Locate(_ context.Context, ip string) (model.Coordinates, error) {
	l.ips = append(l.ips, ip)
	return l.coords, l.err
}

func newTestServer(t *testing.T, cfg *config.Config, gen Generator, loc Locator, cache *store.Store) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := NewServer(cfg, gen, loc, cache)
	s.now = func() time.Time { return time.Date(2025, 8, 27, 9, 0, 0, 0, time.UTC) }
	return s.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRootAndHealth(t *testing.T) {
	h := newTestServer(t, nil, &fakeGenerator{}, nil, nil)

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hindu Calendar API is running")

	rec = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestICS(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestServer(t, nil, gen, nil, nil)

	rec := get(t, h, "/ics?lat=19.076&lon=72.8777&year=2025&year_to=2026&tradition=vaishnava&no_ap=1&festivals=diwali&viewer_tz=Europe/Stockholm")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="hindu-calendar-2025-2026.ics"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "X-WR-TIMEZONE:Europe/Stockholm")

	req := gen.last()
	assert.Equal(t, 2025, req.YearFrom)
	assert.Equal(t, 2026, req.YearTo)
	assert.Equal(t, panchang.Vaishnava, req.Options.Tradition)
	assert.False(t, req.Options.AmavasyaPurnima)
	assert.True(t, req.Options.Sankashti)
	assert.Equal(t, []string{"diwali"}, req.Options.FestivalKeys)
	require.NotNil(t, req.Viewer)
	assert.Equal(t, "Europe/Stockholm", req.Viewer.String())

	cal, err := ics.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, cal.Events, 2)
}

func TestICSSingleYearFilename(t *testing.T) {
	h := newTestServer(t, nil, &fakeGenerator{}, nil, nil)
	rec := get(t, h, "/ics?lat=19&lon=72&year=2025")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="hindu-calendar-2025.ics"`, rec.Header().Get("Content-Disposition"))
	assert.NotContains(t, rec.Body.String(), "X-WR-TIMEZONE")
}

func TestICSInvalidViewerTZIgnored(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestServer(t, nil, gen, nil, nil)
	for _, zone := range []string{"Mars/Olympus", "Local"} {
		rec := get(t, h, "/ics?lat=19&lon=72&year=2025&viewer_tz="+zone)
		require.Equal(t, http.StatusOK, rec.Code, zone)
		assert.Nil(t, gen.last().Viewer, zone)
		assert.NotContains(t, rec.Body.String(), "X-WR-TIMEZONE", zone)
	}
}

func TestICSBadRequests(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxYearSpan = 3
	h := newTestServer(t, cfg, &fakeGenerator{}, nil, nil)

	cases := map[string]string{
		"missing coordinates": "/ics?year=2025",
		"missing year":        "/ics?lat=19&lon=72",
		"bad lat":             "/ics?lat=north&lon=72&year=2025",
		"lat range":           "/ics?lat=95&lon=72&year=2025",
		"year_to before year": "/ics?lat=19&lon=72&year=2025&year_to=2024",
		"span":                "/ics?lat=19&lon=72&year=2025&year_to=2030",
		"tradition":           "/ics?lat=19&lon=72&year=2025&tradition=iskcon",
		"festival":            "/ics?lat=19&lon=72&year=2025&festivals=holi",
		"bool":                "/ics?lat=19&lon=72&year=2025&no_ap=maybe",
		"no locator":          "/ics?year=2025&auto_location=true",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := get(t, h, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorBody(t, rec))
		})
	}
}

func TestICSAutoLocation(t *testing.T) {
	gen := &fakeGenerator{}
	loc := &fakeLocator{coords: model.Coordinates{Lat: 59.33, Lon: 18.06}}
	h := newTestServer(t, nil, gen, loc, nil)

	req := httptest.NewRequest(http.MethodGet, "/ics?year=2025&auto_location=true", nil)
	req.Header.Set("X-Forwarded-For", "81.2.69.142")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 59.33, gen.last().Lat)
	assert.Equal(t, []string{"81.2.69.142"}, loc.ips)
}

func TestICSAutoLocationFailure(t *testing.T) {
	loc := &fakeLocator{err: errors.New("geolocation failed: 429 Too Many Requests")}
	h := newTestServer(t, nil, &fakeGenerator{}, loc, nil)

	rec := get(t, h, "/ics?year=2025&auto_location=1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "auto-location failed")
}

func TestICSExplicitCoordinatesWinOverAutoLocation(t *testing.T) {
	gen := &fakeGenerator{}
	loc := &fakeLocator{coords: model.Coordinates{Lat: 1, Lon: 1}}
	h := newTestServer(t, nil, gen, loc, nil)

	rec := get(t, h, "/ics?lat=19&lon=72&year=2025&auto_location=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, loc.ips)
	assert.Equal(t, 19.0, gen.last().Lat)
}

func TestICSGenerationFailure(t *testing.T) {
	h := newTestServer(t, nil, &fakeGenerator{err: errors.New("ephemeris exploded")}, nil, nil)
	rec := get(t, h, "/ics?lat=19&lon=72&year=2025")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, errorBody(t, rec), "exploded")
}

func TestICSCache(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	gen := &fakeGenerator{}
	h := newTestServer(t, nil, gen, nil, cache)

	first := get(t, h, "/ics?lat=19&lon=72&year=2025")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))

	second := get(t, h, "/ics?lat=19&lon=72&year=2025")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, gen.calls())

	third := get(t, h, "/ics?lat=19&lon=72&year=2025&no_rahukaal=1")
	assert.Equal(t, "miss", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, gen.calls())
}

func TestICSGzip(t *testing.T) {
	h := newTestServer(t, nil, &fakeGenerator{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ics?lat=19&lon=72&year=2025", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "BEGIN:VCALENDAR"))
}

func TestEvents(t *testing.T) {
	h := newTestServer(t, nil, &fakeGenerator{}, nil, nil)
	rec := get(t, h, "/api/events?lat=19&lon=72&year=2025")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Asia/Kolkata", resp.Zone)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Events, 2)

	allDay, timed := resp.Events[0], resp.Events[1]
	assert.Equal(t, "2025-01-10", allDay.Date)
	assert.Nil(t, allDay.Start)
	assert.True(t, strings.HasSuffix(allDay.UID, "@hinducalendar"))
	require.NotNil(t, timed.Start)
	assert.Equal(t, model.KindRahuKaal, timed.Kind)
}

func TestPanchang(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestServer(t, nil, gen, nil, nil)

	rec := get(t, h, "/api/panchang?lat=19&lon=72&date=2025-03-01&days=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var sheet panchang.Sheet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	require.Len(t, sheet.Days, 3)
	assert.Equal(t, "2025-03-01", sheet.Days[0].Date)

	rec = get(t, h, "/api/panchang?lat=19&lon=72")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	assert.Len(t, sheet.Days, 7)
	assert.Equal(t, "2025-08-27", sheet.Days[0].Date)

	gen.mu.Lock()
	froms := append([]time.Time(nil), gen.froms...)
	gen.mu.Unlock()
	require.Len(t, froms, 2)
	assert.Equal(t, "2025-03-01", froms[0].Format("2006-01-02"))
	assert.True(t, froms[1].IsZero(), "today is resolved in the coordinate's zone, not the server's")

	for _, target := range []string{
		"/api/panchang?lat=19&lon=72&days=0",
		"/api/panchang?lat=19&lon=72&days=32",
		"/api/panchang?lat=19&lon=72&date=01/03/2025",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, h, target).Code, target)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	h := newTestServer(t, cfg, &fakeGenerator{}, nil, nil)

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/ics?lat=19&lon=72&year=2025").Code)

	req := httptest.NewRequest(http.MethodGet, "/ics?lat=19&lon=72&year=2025", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	h := newTestServer(t, nil, &fakeGenerator{}, nil, nil)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestICSWithEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("full-year astronomy")
	}
	eng := &panchang.Engine{Resolve: func(float64, float64) (*time.Location, string) { return ist, "Asia/Kolkata" }}
	h := newTestServer(t, nil, eng, nil, nil)

	rec := get(t, h, "/ics?lat=19.076&lon=72.8777&year=2025&no_rahukaal=1&no_sankashti=1&festivals=ganesh_chaturthi")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cal, err := ics.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	counts := map[string]int{}
	for _, c := range ics.CountBySummary(cal.Events) {
		counts[c.Summary] = c.Count
	}
	assert.Equal(t, 1, counts["Ganesh Chaturthi / Vinayaka Chaturthi"])
	assert.Zero(t, counts["Rahu Kaal"])
	assert.Empty(t, ics.DuplicateUIDs(cal.Events))
}
