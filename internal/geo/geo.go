// Package geo resolves approximate coordinates from an IP address through
// public geolocation services.
package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	appLog "hinducal/internal/log"
	"hinducal/internal/model"
)

const (
	DefaultPrimaryURL  = "https://ipinfo.io"
	DefaultFallbackURL = "https://ipapi.co"
	DefaultTimeout     = 4 * time.Second
	DefaultCacheTTL    = 24 * time.Hour

	selfKey = "self"
)

// ErrLocateFailed wraps the fallback provider's error when neither
// provider produced coordinates.
var ErrLocateFailed = errors.New("geolocation failed")

// Config configures a Locator. Zero fields take the defaults above; an
// empty CacheDir disables the disk cache.
type Config struct {
	PrimaryURL  string
	FallbackURL string
	Timeout     time.Duration
	CacheDir    string
	CacheTTL    time.Duration
}

// Locator looks up coordinates with ipinfo first and ipapi as fallback.
type Locator struct {
	client   *http.Client
	primary  string
	fallback string
	cacheDir string
	ttl      time.Duration
}

// cacheEntry is the on-disk form of one lookup.
type cacheEntry struct {
	IP        string    `json:"ip"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Provider  string    `json:"provider"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLocator builds a Locator from cfg.
func NewLocator(cfg Config) *Locator {
	if cfg.PrimaryURL == "" {
		cfg.PrimaryURL = DefaultPrimaryURL
	}
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = DefaultFallbackURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &Locator{
		client:   &http.Client{Timeout: cfg.Timeout},
		primary:  strings.TrimRight(cfg.PrimaryURL, "/"),
		fallback: strings.TrimRight(cfg.FallbackURL, "/"),
		cacheDir: cfg.CacheDir,
		ttl:      cfg.CacheTTL,
	}
}

// IsPublic reports whether ip is a routable address worth asking a
// provider about. Loopback, private, link-local and unparsable addresses
// are resolved as the server's own location instead.
func IsPublic(ip string) bool {
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return false
	}
	return !(addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast())
}

// Locate resolves ip, or the caller's own public address when ip is empty
// or not public. Errors from the primary provider are logged and the
// fallback tried; only the fallback's error is returned.
func (l *Locator) Locate(ctx context.Context, ip string) (model.Coordinates, error) {
	key := strings.TrimSpace(ip)
	if !IsPublic(key) {
		key = selfKey
	}

	if c, ok := l.loadCache(key); ok {
		appLog.Debug("geolocation cache hit", "ip", key)
		return c, nil
	}

	c, err := l.ipinfo(ctx, key)
	provider := "ipinfo"
	if err != nil {
		appLog.Warn("primary geolocation failed; trying fallback", "ip", key, "err", err)
		c, err = l.ipapi(ctx, key)
		provider = "ipapi"
		if err != nil {
			appLog.Error("geolocation failed", err, "ip", key)
			return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLocateFailed, err)
		}
	}

	if err := l.saveCache(key, c, provider); err != nil {
		appLog.Error("geolocation cache save failed", err, "ip", key)
	}
	appLog.Info("geolocation resolved", "ip", key, "provider", provider, "lat", c.Lat, "lon", c.Lon)
	return c, nil
}

func providerURL(base, ip, suffix string) string {
	if ip == selfKey {
		return base + suffix
	}
	return base + "/" + ip + suffix
}

// ipinfo reads {"loc": "lat,lon"}.
func (l *Locator) ipinfo(ctx context.Context, ip string) (model.Coordinates, error) {
	var body struct {
		Loc string `json:"loc"`
	}
	if err := l.getJSON(ctx, providerURL(l.primary, ip, "/json"), &body); err != nil {
		return model.Coordinates{}, err
	}
	latS, lonS, ok := strings.Cut(body.Loc, ",")
	if !ok {
		return model.Coordinates{}, fmt.Errorf("ipinfo: unexpected loc %q", body.Loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("ipinfo: latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("ipinfo: longitude: %w", err)
	}
	return model.Coordinates{Lat: lat, Lon: lon}, nil
}

// ipapi reads {"latitude": .., "longitude": ..}.
func (l *Locator) ipapi(ctx context.Context, ip string) (model.Coordinates, error) {
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Error     bool     `json:"error"`
		Reason    string   `json:"reason"`
	}
	if err := l.getJSON(ctx, providerURL(l.fallback, ip, "/json/"), &body); err != nil {
		return model.Coordinates{}, err
	}
	if body.Error {
		return model.Coordinates{}, fmt.Errorf("ipapi: %s", body.Reason)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return model.Coordinates{}, errors.New("ipapi: response without coordinates")
	}
	return model.Coordinates{Lat: *body.Latitude, Lon: *body.Longitude}, nil
}

func (l *Locator) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hinducal")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (l *Locator) cachePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(l.cacheDir, hex.EncodeToString(sum[:8]), "location.json")
}

func (l *Locator) loadCache(key string) (model.Coordinates, bool) {
	if l.cacheDir == "" {
		return model.Coordinates{}, false
	}
	data, err := os.ReadFile(l.cachePath(key))
	if err != nil {
		return model.Coordinates{}, false
	}
	var e cacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Coordinates{}, false
	}
	if e.IP != key || time.Since(e.UpdatedAt) > l.ttl {
		return model.Coordinates{}, false
	}
	return model.Coordinates{Lat: e.Lat, Lon: e.Lon}, true
}

func (l *Locator) saveCache(key string, c model.Coordinates, provider string) error {
	if l.cacheDir == "" {
		return nil
	}
	path := l.cachePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cacheEntry{
		IP:        key,
		Lat:       c.Lat,
		Lon:       c.Lon,
		Provider:  provider,
		UpdatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
