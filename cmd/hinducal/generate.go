package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"hinducal/internal/ics"
	"hinducal/internal/panchang"
	"hinducal/internal/tz"
)

type generateFlags struct {
	year, yearTo int
	lat, lon     float64
	autoLocation bool

	tradition   string
	noSankashti bool
	noAP        bool
	noRahuKaal  bool
	noFestivals bool
	festivals   string
	viewerTZ    string
	uidMode     string
	outfile     string
}

func (a *app) newGenerateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a calendar (.ics) for a location and year range",
		Example: `  hinducal generate --lat 19.0760 --lon 72.8777 --year 2025
  hinducal generate --auto-location --year 2025 --year-to 2027 --tradition vaishnava
  hinducal generate --lat 59.33 --lon 18.06 --year 2025 --viewer-tz Europe/Stockholm --no-rahukaal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&f.year, "year", 0, "Start year, e.g. 2025 (required)")
	fl.IntVar(&f.yearTo, "year-to", 0, "End year, inclusive (default: --year)")
	fl.Float64Var(&f.lat, "lat", 0, "Latitude in decimal degrees")
	fl.Float64Var(&f.lon, "lon", 0, "Longitude in decimal degrees")
	fl.BoolVar(&f.autoLocation, "auto-location", false, "Detect coordinates from this machine's public IP when --lat/--lon are missing")
	fl.StringVar(&f.tradition, "tradition", "", "Ekadashi rule set: smartha or vaishnava (default from config)")
	fl.BoolVar(&f.noSankashti, "no-sankashti", false, "Exclude Sankashti Chaturthi")
	fl.BoolVar(&f.noAP, "no-ap", false, "Exclude Amavasya and Purnima")
	fl.BoolVar(&f.noRahuKaal, "no-rahukaal", false, "Exclude Rahu Kaal")
	fl.BoolVar(&f.noFestivals, "no-festivals", false, "Exclude festivals")
	fl.StringVar(&f.festivals, "festivals", "", `Festival keys, comma separated, or "all" (default from config)`)
	fl.StringVar(&f.viewerTZ, "viewer-tz", "", "Keep one Rahu Kaal per day in this IANA zone and advertise it as X-WR-TIMEZONE")
	fl.StringVar(&f.uidMode, "uid", "", "Event UIDs: stable or random (default from config)")
	fl.StringVar(&f.outfile, "outfile", "", "Output path (default: {output_dir}/{year}[-{year_to}]-fullcalendar-{tradition}.ics)")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, f generateFlags) error {
	defaults := a.cfg.Defaults
	if f.tradition == "" {
		f.tradition = defaults.Tradition
	}
	if f.festivals == "" {
		f.festivals = defaults.Festivals
	}
	if f.uidMode == "" {
		f.uidMode = defaults.UIDMode
	}
	if f.yearTo == 0 {
		f.yearTo = f.year
	}
	if f.yearTo < f.year {
		return fmt.Errorf("--year-to (%d) must be >= --year (%d)", f.yearTo, f.year)
	}

	tradition, err := panchang.ParseTradition(f.tradition)
	if err != nil {
		return err
	}
	keys, err := panchang.ParseFestivalKeys(f.festivals)
	if err != nil {
		return err
	}
	uids, err := ics.ParseUIDMode(f.uidMode)
	if err != nil {
		return err
	}

	var viewer string
	viewerLoc := tz.Load(f.viewerTZ)
	if f.viewerTZ != "" {
		if viewerLoc == nil {
			return errors.New("--viewer-tz: unknown time zone " + f.viewerTZ)
		}
		viewer = viewerLoc.String()
	}

	lat, lon, err := a.coordinates(cmd, f.lat, f.lon, f.autoLocation)
	if err != nil {
		return err
	}

	res, err := a.engine().Generate(cmd.Context(), panchang.Request{
		Lat:      lat,
		Lon:      lon,
		YearFrom: f.year,
		YearTo:   f.yearTo,
		Options: panchang.Options{
			Tradition:       tradition,
			Sankashti:       !f.noSankashti,
			AmavasyaPurnima: !f.noAP,
			RahuKaal:        !f.noRahuKaal,
			Festivals:       !f.noFestivals,
			FestivalKeys:    keys,
		},
		Viewer: viewerLoc,
	})
	if err != nil {
		return err
	}

	out := f.outfile
	if out == "" {
		out = defaultOutfile(defaults.OutputDir, f.year, f.yearTo, tradition)
	}
	payload := ics.Build(res.Events, ics.BuildOptions{ViewerZone: viewer, UIDs: uids})
	if err := ics.WriteFile(out, payload); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}

func defaultOutfile(dir string, year, yearTo int, tradition panchang.Tradition) string {
	name := fmt.Sprintf("%d-fullcalendar-%s.ics", year, tradition)
	if yearTo != year {
		name = fmt.Sprintf("%d-%d-fullcalendar-%s.ics", year, yearTo, tradition)
	}
	return filepath.Join(dir, name)
}
