package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hinducal/internal/panchang"
)

func (a *app) newPanchangCmd() *cobra.Command {
	var (
		lat, lon float64
		auto     bool
		date     string
		days     int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "panchang",
		Short: "Print a daily panchang (sunrise, tithi, nakshatra, Rahu Kaal)",
		Example: `  hinducal panchang --lat 19.0760 --lon 72.8777
  hinducal panchang --auto-location --date 2025-10-18 --days 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var from time.Time
			if date != "" {
				d, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				from = d
			}

			la, lo, err := a.coordinates(cmd, lat, lon, auto)
			if err != nil {
				return err
			}
			sheet, err := a.engine().Daily(cmd.Context(), la, lo, from, days)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sheet)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Panchang for %.4f, %.4f (%s)\n\n", sheet.Lat, sheet.Lon, sheet.Zone)
			return writeTable(cmd.OutOrStdout(), sheetHeader, sheetRows(sheet))
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&lat, "lat", 0, "Latitude in decimal degrees")
	fl.Float64Var(&lon, "lon", 0, "Longitude in decimal degrees")
	fl.BoolVar(&auto, "auto-location", false, "Detect coordinates from this machine's public IP when --lat/--lon are missing")
	fl.StringVar(&date, "date", "", "First day, YYYY-MM-DD (default: today at the location)")
	fl.IntVar(&days, "days", 1, fmt.Sprintf("Number of days, 1..%d", panchang.MaxDailyDays))
	fl.BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

var sheetHeader = []string{"Date", "Day", "Sunrise", "Sunset", "Moonrise", "Tithi", "Nakshatra", "Month", "Rahu Kaal"}

func sheetRows(s panchang.Sheet) [][]string {
	rows := make([][]string, 0, len(s.Days))
	for _, d := range s.Days {
		rahu := "-"
		if !d.RahuKaalStart.IsZero() {
			rahu = clock(d.RahuKaalStart) + "-" + clock(d.RahuKaalEnd)
		}
		rows = append(rows, []string{
			d.Date,
			d.Weekday[:3],
			clock(d.Sunrise),
			clock(d.Sunset),
			clock(d.Moonrise),
			fmt.Sprintf("%s %s (%d)", d.Paksha, d.TithiName, d.Tithi),
			d.NakshatraName,
			d.Month,
			rahu,
		})
	}
	return rows
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04")
}
