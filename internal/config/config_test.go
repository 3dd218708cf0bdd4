package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinducal/internal/panchang"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "hinducal.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8000", cfg.Listen)
	assert.Equal(t, 5, cfg.Server.MaxYearSpan)
	assert.Equal(t, 6*time.Hour, cfg.Server.CacheTTL)
	assert.Equal(t, "smartha", cfg.Defaults.Tradition)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hinducal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
server:
  max_year_span: 10
  cache_ttl: 90m
publish:
  schedule: "0 3 * * *"
  calendars:
    - id: mumbai
      name: Mumbai
      lat: 19.076
      lon: 72.8777
      tradition: vaishnava
      no_rahukaal: true
      festivals: diwali,gudi_padwa
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 10, cfg.Server.MaxYearSpan)
	assert.Equal(t, 90*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	require.Len(t, cfg.Publish.Calendars, 1)

	opts, err := cfg.Publish.Calendars[0].Options()
	require.NoError(t, err)
	assert.Equal(t, panchang.Vaishnava, opts.Tradition)
	assert.False(t, opts.RahuKaal)
	assert.True(t, opts.Sankashti)
	assert.Equal(t, []string{"diwali", "gudi_padwa"}, opts.FestivalKeys)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvListen, "0.0.0.0:80")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvCachePath, "")
	t.Setenv(EnvOutputDir, "/srv/ics")

	cfg := DefaultConfig()
	cfg.Server.CachePath = "var/cache.db"
	cfg.ApplyEnv()

	assert.Equal(t, "0.0.0.0:80", cfg.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Empty(t, cfg.Server.CachePath, "explicitly empty env disables the cache")
	assert.Equal(t, "/srv/ics", cfg.Publish.OutputDir)
}

func TestEnvNotSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hinducal.yaml")
	t.Setenv(EnvListen, "0.0.0.0:1234")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:1234", cfg.Listen)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "1234")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"tradition":  func(c *Config) { c.Defaults.Tradition = "other" },
		"festivals":  func(c *Config) { c.Defaults.Festivals = "holi" },
		"basic auth": func(c *Config) { c.BasicAuth = &BasicAuthConfig{Username: "u"} },
		"empty id": func(c *Config) {
			c.Publish.Calendars = []CalendarConfig{{Lat: 1, Lon: 1}}
		},
		"path id": func(c *Config) {
			c.Publish.Calendars = []CalendarConfig{{ID: "../x"}}
		},
		"duplicate id": func(c *Config) {
			c.Publish.Calendars = []CalendarConfig{{ID: "a"}, {ID: "a"}}
		},
		"coordinates": func(c *Config) {
			c.Publish.Calendars = []CalendarConfig{{ID: "a", Lat: 95}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
