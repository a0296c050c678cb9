package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/irfndi/astro-snapshot-go/internal/services"
	"github.com/spf13/cobra"
)

type precomputeReport struct {
	Summary  *services.WarmSummary `json:"summary"`
	Coverage map[string]int        `json:"coverage,omitempty"`
}

func newPrecomputeCmd(factory appFactory) *cobra.Command {
	var (
		year     int
		from, to string
		mode     string
	)

	cmd := &cobra.Command{
		Use:   "precompute",
		Short: "Compute every snapshot in a date range through the cache",
		Example: "  snapshotctl precompute --year 2025\n" +
			"  snapshotctl precompute --from 2025-01-01 --to 2025-03-31 --mode sidereal",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(year, from, to)
			if err != nil {
				return err
			}
			modes, err := parseModes(mode)
			if err != nil {
				return err
			}

			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Warmer.WarmRange(cmd.Context(), start, end, modes)
			if err != nil {
				return err
			}
			// Coverage is read after pending writes land.
			a.Cache.Wait()

			report := precomputeReport{Summary: summary}
			if a.Repository != nil {
				report.Coverage = make(map[string]int, len(modes))
				for _, m := range modes {
					records, err := a.Repository.ListRange(cmd.Context(), start, end, m)
					if err != nil {
						return fmt.Errorf("read coverage: %w", err)
					}
					report.Coverage[string(m)] = len(records)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d snapshots failed", summary.Failed, summary.Requested)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "precompute every date of this year")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&mode, "mode", "all", "tropical, sidereal or all")
	cmd.MarkFlagsMutuallyExclusive("year", "from")
	cmd.MarkFlagsMutuallyExclusive("year", "to")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func parseRange(year int, from, to string) (time.Time, time.Time, error) {
	if year != 0 {
		if year < 1 || year > 9999 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid year %d", year)
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, -1), nil
	}
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, errors.New("either --year or both --from and --to are required")
	}
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", to)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return start, end, nil
}

func parseModes(s string) ([]models.ZodiacMode, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return models.ZodiacModes, nil
	}
	mode, err := models.ParseZodiacMode(s)
	if err != nil {
		return nil, err
	}
	return []models.ZodiacMode{mode}, nil
}
