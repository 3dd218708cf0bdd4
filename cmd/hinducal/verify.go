package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hinducal/internal/ics"
)

func (a *app) newVerifyCmd() *cobra.Command {
	var (
		cacheDir string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify FILE.ics|URL",
		Short: "Parse a calendar file or subscription URL and summarize its events",
		Example: `  hinducal verify site/2025-fullcalendar-smartha.ics
  hinducal verify "http://127.0.0.1:8000/ics?lat=19.076&lon=72.8777&year=2025"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readCalendar(cmd, args[0], cacheDir, timeout)
			if err != nil {
				return err
			}
			cal, err := ics.Parse(body)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PRODID:   %s\n", cal.ProductID)
			fmt.Fprintf(out, "Name:     %s\n", cal.Name)
			if cal.Timezone != "" {
				fmt.Fprintf(out, "Timezone: %s\n", cal.Timezone)
			}
			fmt.Fprintf(out, "Events:   %d\n\n", len(cal.Events))

			counts := ics.CountBySummary(cal.Events)
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{c.Summary, strconv.Itoa(c.Count)})
			}
			if err := writeTable(out, []string{"Summary", "Count"}, rows); err != nil {
				return err
			}

			if dups := ics.DuplicateUIDs(cal.Events); len(dups) > 0 {
				return fmt.Errorf("%d duplicate UIDs: %s", len(dups), strings.Join(dups, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Revalidate URLs against this cache (ETag / Last-Modified)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "HTTP timeout for URLs")
	return cmd
}

func readCalendar(cmd *cobra.Command, src, cacheDir string, timeout time.Duration) ([]byte, error) {
	if !ics.IsURL(src) {
		return os.ReadFile(src)
	}
	res, err := ics.NewFetcher(cacheDir, timeout).Fetch(cmd.Context(), src)
	if err != nil {
		return nil, err
	}
	if res.FromCache {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using cached copy")
	}
	return res.Body, nil
}
