package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinducal/internal/model"
)

type providers struct {
	primary, fallback *httptest.Server
	primaryHits       atomic.Int32
	fallbackHits      atomic.Int32

	mu            sync.Mutex
	primaryPaths  []string
	fallbackPaths []string
}

func (p *providers) paths() (primary, fallback []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.primaryPaths...), append([]string(nil), p.fallbackPaths...)
}

func newProviders(t *testing.T, primary, fallback http.HandlerFunc) *providers {
	t.Helper()
	p := &providers{}
	p.primary = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.primaryHits.Add(1)
		p.mu.Lock()
		p.primaryPaths = append(p.primaryPaths, r.URL.Path)
		p.mu.Unlock()
		primary(w, r)
	}))
	p.fallback = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.fallbackHits.Add(1)
		p.mu.Lock()
		p.fallbackPaths = append(p.fallbackPaths, r.URL.Path)
		p.mu.Unlock()
		fallback(w, r)
	}))
	t.Cleanup(p.primary.Close)
	t.Cleanup(p.fallback.Close)
	return p
}

func (p *providers) locator(cacheDir string) *Locator {
	return NewLocator(Config{PrimaryURL: p.primary.URL, FallbackURL: p.fallback.URL, CacheDir: cacheDir})
}

func ipinfoOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ip":"8.8.8.8","loc":"19.0760,72.8777"}`))
}

func ipapiOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"latitude":59.33,"longitude":18.06}`))
}

func fail(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "rate limited", http.StatusTooManyRequests)
}

func TestLocatePrimary(t *testing.T) {
	p := newProviders(t, ipinfoOK, ipapiOK)
	c, err := p.locator("").Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, model.Coordinates{Lat: 19.0760, Lon: 72.8777}, c)
	primary, _ := p.paths()
	assert.Equal(t, []string{"/8.8.8.8/json"}, primary)
	assert.Zero(t, p.fallbackHits.Load())
}

func TestLocateFallback(t *testing.T) {
	p := newProviders(t, fail, ipapiOK)
	c, err := p.locator("").Locate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.Coordinates{Lat: 59.33, Lon: 18.06}, c)
	primary, fallback := p.paths()
	assert.Equal(t, []string{"/json"}, primary)
	assert.Equal(t, []string{"/json/"}, fallback)
}

func TestLocateBadPrimaryPayload(t *testing.T) {
	p := newProviders(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"loc":""}`))
	}, ipapiOK)
	c, err := p.locator("").Locate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 59.33, c.Lat)
}

func TestLocateBothFail(t *testing.T) {
	p := newProviders(t, fail, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
	})
	_, err := p.locator("").Locate(context.Background(), "")
	require.ErrorIs(t, err, ErrLocateFailed)
	assert.Contains(t, err.Error(), "RateLimited")
}

func TestLocatePrivateIPIsSelf(t *testing.T) {
	p := newProviders(t, ipinfoOK, ipapiOK)
	_, err := p.locator("").Locate(context.Background(), "192.168.1.20")
	require.NoError(t, err)
	primary, _ := p.paths()
	assert.Equal(t, []string{"/json"}, primary)
}

func TestLocateCache(t *testing.T) {
	p := newProviders(t, ipinfoOK, ipapiOK)
	dir := t.TempDir()

	first, err := p.locator(dir).Locate(context.Background(), "8.8.4.4")
	require.NoError(t, err)
	second, err := p.locator(dir).Locate(context.Background(), "8.8.4.4")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), p.primaryHits.Load())
}

func TestIsPublic(t *testing.T) {
	cases := map[string]bool{
		"8.8.8.8":      true,
		"2001:4860::1": true,
		"127.0.0.1":    false,
		"10.1.2.3":     false,
		"172.16.0.1":   false,
		"::1":          false,
		"fe80::1":      false,
		"not-an-ip":    false,
		"":             false,
	}
	for ip, want := range cases {
		assert.Equal(t, want, IsPublic(ip), ip)
	}
}
