package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hinducal/internal/panchang"
)

// Environment variables that override the file.
const (
	EnvListen    = "HINDUCAL_LISTEN"
	EnvLogLevel  = "HINDUCAL_LOG_LEVEL"
	EnvCachePath = "HINDUCAL_CACHE_PATH"
	EnvOutputDir = "HINDUCAL_OUTPUT_DIR"
)

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is "console" (default) or "json".
	Format string `yaml:"format" json:"format"`
	// File, when set, receives logs instead of stderr and is rotated.
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" json:"max_backups,omitempty"`
}

// DefaultsConfig holds the generation defaults shared by the CLI and API.
type DefaultsConfig struct {
	Tradition string `yaml:"tradition" json:"tradition"`
	// Festivals is "all" or a comma separated list of festival keys.
	Festivals string `yaml:"festivals" json:"festivals"`
	// UIDMode is "stable" or "random" for CLI output.
	UIDMode string `yaml:"uid_mode" json:"uid_mode"`
	// OutputDir is where the CLI writes calendars without --outfile.
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// ServerConfig tunes the HTTP API.
type ServerConfig struct {
	// MaxYearSpan caps year_to - year + 1 per request.
	MaxYearSpan int `yaml:"max_year_span" json:"max_year_span"`
	// CachePath is the SQLite file for generated calendars; empty disables.
	CachePath string        `yaml:"cache_path" json:"cache_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	// Workers bounds concurrently computed years per request.
	Workers int `yaml:"workers" json:"workers"`
}

// GeolocationConfig configures IP geolocation providers.
type GeolocationConfig struct {
	PrimaryURL  string        `yaml:"primary_url" json:"primary_url"`
	FallbackURL string        `yaml:"fallback_url" json:"fallback_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	// CacheDir stores per-IP lookups; empty disables the cache.
	CacheDir string        `yaml:"cache_dir" json:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// CalendarConfig is one calendar regenerated by the publisher.
type CalendarConfig struct {
	// ID names the output file ({output_dir}/{id}.ics).
	ID   string  `yaml:"id" json:"id"`
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`

	Tradition   string `yaml:"tradition,omitempty" json:"tradition,omitempty"`
	NoSankashti bool   `yaml:"no_sankashti,omitempty" json:"no_sankashti,omitempty"`
	NoAP        bool   `yaml:"no_ap,omitempty" json:"no_ap,omitempty"`
	NoRahuKaal  bool   `yaml:"no_rahukaal,omitempty" json:"no_rahukaal,omitempty"`
	NoFestivals bool   `yaml:"no_festivals,omitempty" json:"no_festivals,omitempty"`
	Festivals   string `yaml:"festivals,omitempty" json:"festivals,omitempty"`
	ViewerTZ    string `yaml:"viewer_tz,omitempty" json:"viewer_tz,omitempty"`
}

// Options converts the calendar's switches into generation options.
func (c CalendarConfig) Options() (panchang.Options, error) {
	tr, err := panchang.ParseTradition(c.Tradition)
	if err != nil {
		return panchang.Options{}, err
	}
	keys, err := panchang.ParseFestivalKeys(c.Festivals)
	if err != nil {
		return panchang.Options{}, err
	}
	return panchang.Options{
		Tradition:       tr,
		Sankashti:       !c.NoSankashti,
		AmavasyaPurnima: !c.NoAP,
		RahuKaal:        !c.NoRahuKaal,
		Festivals:       !c.NoFestivals,
		FestivalKeys:    keys,
	}, nil
}

// PublishConfig drives scheduled regeneration of static calendars.
type PublishConfig struct {
	// Schedule is a cron expression; empty disables publishing.
	Schedule   string           `yaml:"schedule" json:"schedule"`
	OutputDir  string           `yaml:"output_dir" json:"output_dir"`
	YearsAhead int              `yaml:"years_ahead" json:"years_ahead"`
	Calendars  []CalendarConfig `yaml:"calendars" json:"calendars"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	Log         LogConfig         `yaml:"log" json:"log"`
	Defaults    DefaultsConfig    `yaml:"defaults" json:"defaults"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Geolocation GeolocationConfig `yaml:"geolocation" json:"geolocation"`
	Publish     PublishConfig     `yaml:"publish" json:"publish"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8000"
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = "info"
	}
	if c.Log.Format != "json" {
		c.Log.Format = "console"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}

	if c.Defaults.Tradition == "" {
		c.Defaults.Tradition = string(panchang.Smartha)
	}
	if c.Defaults.Festivals == "" {
		c.Defaults.Festivals = "all"
	}
	if c.Defaults.UIDMode == "" {
		c.Defaults.UIDMode = "stable"
	}
	if c.Defaults.OutputDir == "" {
		c.Defaults.OutputDir = "site"
	}

	if c.Server.MaxYearSpan <= 0 {
		c.Server.MaxYearSpan = 5
	}
	if c.Server.CacheTTL <= 0 {
		c.Server.CacheTTL = 6 * time.Hour
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = 4
	}

	if c.Geolocation.PrimaryURL == "" {
		c.Geolocation.PrimaryURL = "https://ipinfo.io"
	}
	if c.Geolocation.FallbackURL == "" {
		c.Geolocation.FallbackURL = "https://ipapi.co"
	}
	if c.Geolocation.Timeout <= 0 {
		c.Geolocation.Timeout = 4 * time.Second
	}
	if c.Geolocation.CacheTTL <= 0 {
		c.Geolocation.CacheTTL = 24 * time.Hour
	}

	if c.Publish.OutputDir == "" {
		c.Publish.OutputDir = "site/published"
	}
	if c.Publish.YearsAhead < 0 {
		c.Publish.YearsAhead = 0
	}
	if c.Publish.Calendars == nil {
		c.Publish.Calendars = []CalendarConfig{}
	}
}

// Validate rejects configs the server cannot run with.
func (c *Config) Validate() error {
	if _, err := panchang.ParseTradition(c.Defaults.Tradition); err != nil {
		return fmt.Errorf("defaults.tradition: %w", err)
	}
	if _, err := panchang.ParseFestivalKeys(c.Defaults.Festivals); err != nil {
		return fmt.Errorf("defaults.festivals: %w", err)
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		return errors.New("basic_auth requires both username and password")
	}

	seen := make(map[string]bool, len(c.Publish.Calendars))
	for i, cal := range c.Publish.Calendars {
		if cal.ID == "" || strings.ContainsAny(cal.ID, `/\`) {
			return fmt.Errorf("publish.calendars[%d]: id must be a plain file name, got %q", i, cal.ID)
		}
		if seen[cal.ID] {
			return fmt.Errorf("publish.calendars[%d]: duplicate id %q", i, cal.ID)
		}
		seen[cal.ID] = true
		if cal.Lat < -90 || cal.Lat > 90 || cal.Lon < -180 || cal.Lon > 180 {
			return fmt.Errorf("publish.calendars[%d] %s: coordinates out of range", i, cal.ID)
		}
		if _, err := cal.Options(); err != nil {
			return fmt.Errorf("publish.calendars[%d] %s: %w", i, cal.ID, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from HINDUCAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvCachePath); ok {
		c.Server.CachePath = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Publish.OutputDir = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created) and returned.
//   - Otherwise the YAML is read and normalized.
//
// Environment overrides are applied last and never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory with 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hinducal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
