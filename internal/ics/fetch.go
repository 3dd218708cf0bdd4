package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "hinducal/internal/log"
)

// maxFeedBytes caps a downloaded calendar body.
const maxFeedBytes = 32 << 20

// cacheMeta holds validators for a cached subscription body.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetched is a downloaded calendar body.
type Fetched struct {
	Body []byte
	// FromCache is set when the body came from disk after a 304 or a
	// failed request.
	FromCache bool
}

// Fetcher downloads published calendars (a served /ics URL or a static
// subscription file) with ETag / Last-Modified revalidation against a disk
// cache.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher. An empty cacheDir disables the cache.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, cacheDir: cacheDir}
}

// IsURL reports whether s is an http(s) URL rather than a file path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch GETs rawURL. With a cache, validators from the previous response
// are sent and the cached body is reused on 304, and also on network
// errors or non-OK statuses.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Fetched, error) {
	if rawURL == "" {
		return Fetched{}, errors.New("calendar URL is empty")
	}

	var (
		dir    string
		meta   cacheMeta
		cached []byte
	)
	if f.cacheDir != "" {
		dir = f.cachePath(rawURL)
		meta, _ = loadCacheMeta(dir)
		cached, _ = os.ReadFile(filepath.Join(dir, "body.ics"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Fetched{}, err
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("calendar fetch start", "url", redactURL(rawURL))
	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Warn("calendar fetch failed, using cached body", "err", err, "url", redactURL(rawURL))
			return Fetched{Body: cached, FromCache: true}, nil
		}
		return Fetched{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if err != nil {
			return Fetched{}, err
		}
		if dir != "" {
			next := cacheMeta{
				URL:          rawURL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(dir, next, body); err != nil {
				appLog.Error("calendar cache save failed", err, "url", redactURL(rawURL))
			}
		}
		return Fetched{Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return Fetched{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("calendar not modified; using cache", "url", redactURL(rawURL))
		return Fetched{Body: cached, FromCache: true}, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("calendar fetch non-OK, using cached body", "status", resp.StatusCode, "url", redactURL(rawURL))
			return Fetched{Body: cached, FromCache: true}, nil
		}
		return Fetched{}, fmt.Errorf("GET %s: %s", redactURL(rawURL), resp.Status)
	}
}

func (f *Fetcher) cachePath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

// saveCache writes the body before the metadata so validators never refer
// to a missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := WriteFile(filepath.Join(dir, "body.ics"), body); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only. Query strings carry coordinates
// and the userinfo part may hold basic-auth credentials.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
