package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hinducal/internal/config"
	"hinducal/internal/geo"
	appLog "hinducal/internal/log"
	"hinducal/internal/model"
	"hinducal/internal/panchang"
)

// app carries state shared by subcommands once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config

	// resolve and locate replace the time zone lookup and IP geolocation
	// when set.
	resolve panchang.ZoneResolver
	locate  func(ctx context.Context) (model.Coordinates, error)
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hinducal",
		Short: "Location-aware Hindu calendar (.ics) generator",
		Long: `hinducal computes Ekadashi (Smarta/Vaishnava), Sankashti Chaturthi,
Amavasya/Purnima, Rahu Kaal and major festivals for a location and writes
them as an iCalendar subscription file, or serves them over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config (created with defaults if missing)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		a.newGenerateCmd(),
		a.newServeCmd(),
		a.newPanchangCmd(),
		a.newVerifyCmd(),
	)
	return root
}

// load reads the config file when --config is given, otherwise starts
// from defaults, then applies environment and flag overrides and installs
// the logger.
func (a *app) load() error {
	var cfg *config.Config
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
		cfg.ApplyEnv()
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appLog.Init(appLog.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	appLog.Debug("effective config",
		"config_path", a.configPath,
		"listen", cfg.Listen,
		"tradition", cfg.Defaults.Tradition,
		"max_year_span", cfg.Server.MaxYearSpan,
		"cache_path", cfg.Server.CachePath,
		"publish_calendars", len(cfg.Publish.Calendars),
	)

	a.cfg = cfg
	return nil
}

func (a *app) engine() *panchang.Engine {
	return &panchang.Engine{Resolve: a.resolve, Workers: a.cfg.Server.Workers}
}

func (a *app) locator() *geo.Locator {
	g := a.cfg.Geolocation
	return geo.NewLocator(geo.Config{
		PrimaryURL:  g.PrimaryURL,
		FallbackURL: g.FallbackURL,
		Timeout:     g.Timeout,
		CacheDir:    g.CacheDir,
		CacheTTL:    g.CacheTTL,
	})
}

// autoLocate resolves this machine's public location.
func (a *app) autoLocate(ctx context.Context) (model.Coordinates, error) {
	if a.locate != nil {
		return a.locate(ctx)
	}
	return a.locator().Locate(ctx, "")
}

// coordinates returns --lat/--lon, or the auto-detected location when
// both are unset and --auto-location is given.
func (a *app) coordinates(cmd *cobra.Command, lat, lon float64, auto bool) (float64, float64, error) {
	flags := cmd.Flags()
	if flags.Changed("lat") && flags.Changed("lon") {
		return lat, lon, nil
	}
	if !auto {
		return 0, 0, errors.New("--lat and --lon are required (or pass --auto-location)")
	}
	c, err := a.autoLocate(cmd.Context())
	if err != nil {
		return 0, 0, fmt.Errorf("auto-location failed: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Auto-detected location: %.4f, %.4f\n", c.Lat, c.Lon)
	return c.Lat, c.Lon, nil
}
