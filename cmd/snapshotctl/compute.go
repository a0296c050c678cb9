package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/spf13/cobra"
)

func newComputeCmd(factory appFactory) *cobra.Command {
	var date, mode string
	var bodies []string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the snapshot for one date and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(date, time.Now)
			if err != nil {
				return err
			}
			zodiac, err := models.ParseZodiacMode(mode)
			if err != nil {
				return err
			}
			selected, err := parseBodies(bodies)
			if err != nil {
				return err
			}

			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot, err := a.Cache.Get(cmd.Context(), day, zodiac)
			if err != nil {
				return fmt.Errorf("compute snapshot: %w", err)
			}
			if len(selected) > 0 {
				return printPositions(cmd.OutOrStdout(), snapshot, selected)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().StringVar(&mode, "mode", string(models.Tropical), "zodiac mode: tropical or sidereal")
	cmd.Flags().StringSliceVar(&bodies, "body", nil, "print one line per listed body instead of JSON (repeatable)")
	return cmd
}

func parseBodies(names []string) ([]models.Body, error) {
	bodies := make([]models.Body, 0, len(names))
	for _, name := range names {
		body, err := models.ParseBody(name)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// printPositions writes lines such as "Mercury  Aries  12.50°  retrograde".
func printPositions(w io.Writer, snapshot *models.Snapshot, bodies []models.Body) error {
	for _, body := range bodies {
		pos := snapshot.Positions[body]
		motion := "direct"
		if pos.Retrograde {
			motion = "retrograde"
		}
		line := fmt.Sprintf("%-8s %-11s %6.2f°  %s", body.DisplayName(), pos.Sign, pos.DegreeInSign, motion)
		if pos.Degraded {
			line += "  (degraded)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func parseDate(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now().UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}
