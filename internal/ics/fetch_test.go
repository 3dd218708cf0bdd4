package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedServer(t *testing.T, body []byte, hits, notModified *atomic.Int32, down *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if down.Load() {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRevalidates(t *testing.T) {
	payload := Build(sampleEvents(), BuildOptions{})
	var hits, notModified atomic.Int32
	var down atomic.Bool
	srv := feedServer(t, payload, &hits, &notModified, &down)

	f := NewFetcher(t.TempDir(), 0)
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/ics?lat=19.076&lon=72.8777&year=2025")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, payload, first.Body)

	second, err := f.Fetch(ctx, srv.URL+"/ics?lat=19.076&lon=72.8777&year=2025")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, payload, second.Body)
	assert.EqualValues(t, 1, notModified.Load())

	down.Store(true)
	third, err := f.Fetch(ctx, srv.URL+"/ics?lat=19.076&lon=72.8777&year=2025")
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.EqualValues(t, 3, hits.Load())
}

func TestFetchWithoutCache(t *testing.T) {
	var hits, notModified atomic.Int32
	var down atomic.Bool
	srv := feedServer(t, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), &hits, &notModified, &down)

	f := NewFetcher("", 0)
	for range 2 {
		res, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.False(t, res.FromCache)
	}
	assert.Zero(t, notModified.Load())

	down.Store(true)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "503")
}

func TestIsURLAndRedact(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.ics"))
	assert.True(t, IsURL("http://127.0.0.1:8000/ics"))
	assert.False(t, IsURL("site/2025-fullcalendar-smartha.ics"))

	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://user:pw@example.com/ics?lat=1&lon=2"))
	assert.Equal(t, "(redacted)", redactURL("not a url"))
}
