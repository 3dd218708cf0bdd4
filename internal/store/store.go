// Package store caches generated calendar payloads in SQLite so repeated
// subscription polls skip the astronomy.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	appLog "hinducal/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendars (
	key        TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS calendars_created_at ON calendars(created_at);
`

// Entry is one cached calendar.
type Entry struct {
	Key       string
	Filename  string
	Payload   []byte
	CreatedAt time.Time
}

// Store is a SQLite-backed calendar cache. A nil *Store is valid and
// caches nothing.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the cache database at path. An empty
// path returns a nil Store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	appLog.Info("calendar cache opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the entry for key when it is younger than ttl. A ttl of zero
// or less accepts any age.
func (s *Store) Get(ctx context.Context, key string, ttl time.Duration) (Entry, bool, error) {
	if s == nil {
		return Entry{}, false, nil
	}

	var (
		e       Entry
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, filename, payload, created_at FROM calendars WHERE key = ?`, key,
	).Scan(&e.Key, &e.Filename, &e.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to query calendar cache: %w", err)
	}

	e.CreatedAt = time.Unix(created, 0).UTC()
	if ttl > 0 && time.Since(e.CreatedAt) > ttl {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put stores or replaces the payload under key.
func (s *Store) Put(ctx context.Context, key, filename string, payload []byte) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendars (key, filename, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			filename = excluded.filename,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		key, filename, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store calendar: %w", err)
	}
	return nil
}

// Purge deletes entries created before olderThan and returns how many
// were removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE created_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge calendar cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		appLog.Info("calendar cache purged", "removed", n)
	}
	return n, nil
}

// Key derives a cache key from the canonical request parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
