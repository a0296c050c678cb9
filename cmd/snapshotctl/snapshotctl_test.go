package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/app"
	"github.com/irfndi/astro-snapshot-go/internal/config"
	"github.com/irfndi/astro-snapshot-go/internal/database"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(t *testing.T, configure func(a *app.App)) appFactory {
	t.Helper()
	return func(ctx context.Context) (*app.App, error) {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		a, err := app.New(ctx, &config.Config{
			Ephemeris: config.EphemerisConfig{Provider: "circular"},
			Astro:     config.AstroConfig{Ayanamsa: 24.1},
			Cache:     config.CacheConfig{Store: "none", WarmConcurrent: 2},
		}, logger)
		if err == nil && configure != nil {
			configure(a)
		}
		return a, err
	}
}

func execute(t *testing.T, factory appFactory, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(factory)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCompute_PrintsSnapshot(t *testing.T) {
	out, err := execute(t, testFactory(t, nil), "compute", "--date", "2025-03-20", "--mode", "sidereal")
	require.NoError(t, err)

	var snapshot models.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snapshot))
	assert.Equal(t, "2025-03-20", snapshot.Date)
	assert.Equal(t, models.Sidereal, snapshot.ZodiacMode)
	assert.Equal(t, 24.1, snapshot.AyanamsaApplied)
	assert.Len(t, snapshot.Positions, 10)
}

func TestCompute_BodyLines(t *testing.T) {
	out, err := execute(t, testFactory(t, nil), "compute", "--date", "2025-03-20", "--body", "SUN", "--body", "mercury")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Sun "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Mercury "), lines[1])
	assert.Contains(t, lines[0], "°")
	assert.Contains(t, lines[0], "direct")
}

func TestCompute_RejectsUnknownBody(t *testing.T) {
	_, err := execute(t, testFactory(t, nil), "compute", "--body", "vulcan")
	assert.ErrorContains(t, err, "unknown body")
}

func TestCompute_RejectsBadInput(t *testing.T) {
	_, err := execute(t, testFactory(t, nil), "compute", "--date", "03/20/2025")
	assert.ErrorContains(t, err, "invalid date")

	_, err = execute(t, testFactory(t, nil), "compute", "--mode", "draconic")
	assert.ErrorContains(t, err, "unknown zodiac mode")
}

func TestPrecompute_Range(t *testing.T) {
	out, err := execute(t, testFactory(t, nil), "precompute", "--from", "2025-01-01", "--to", "2025-01-05", "--mode", "tropical")
	require.NoError(t, err)

	var report precomputeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 5, report.Summary.Requested)
	assert.Equal(t, 5, report.Summary.Served)
	assert.Nil(t, report.Coverage)
}

func TestPrecompute_ReportsCoverage(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, mode := range []string{"tropical", "sidereal"} {
		mockPool.ExpectQuery(`SELECT snapshot_date`).
			WithArgs(day, day.AddDate(0, 0, 1), mode).
			WillReturnRows(pgxmock.NewRows([]string{"snapshot_date", "zodiac_mode", "computed_at", "updated_at"}).
				AddRow(day, mode, day, day))
	}

	factory := testFactory(t, func(a *app.App) {
		a.Repository = database.NewSnapshotRepository(mockPool)
	})
	out, err := execute(t, factory, "precompute", "--from", "2025-01-01", "--to", "2025-01-02")
	require.NoError(t, err)

	var report precomputeReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.Summary.Requested)
	assert.Equal(t, map[string]int{"tropical": 1, "sidereal": 1}, report.Coverage)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPrecompute_FlagValidation(t *testing.T) {
	_, err := execute(t, testFactory(t, nil), "precompute")
	assert.Error(t, err)

	_, err = execute(t, testFactory(t, nil), "precompute", "--year", "2025", "--from", "2025-01-01", "--to", "2025-01-02")
	assert.Error(t, err)

	_, err = execute(t, testFactory(t, nil), "precompute", "--from", "2025-01-01")
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	start, end, err := parseRange(2024, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", start.Format(models.DateLayout))
	assert.Equal(t, "2024-12-31", end.Format(models.DateLayout))

	start, end, err = parseRange(0, "2025-02-01", "2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, start, end)

	tests := []struct {
		name     string
		year     int
		from, to string
	}{
		{"reversed", 0, "2025-02-02", "2025-02-01"},
		{"bad from", 0, "2025-2-1", "2025-02-01"},
		{"bad to", 0, "2025-02-01", "tomorrow"},
		{"missing to", 0, "2025-02-01", ""},
		{"year out of range", 10000, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseRange(tt.year, tt.from, tt.to)
			assert.Error(t, err)
		})
	}
}

func TestParseModes(t *testing.T) {
	modes, err := parseModes("all")
	require.NoError(t, err)
	assert.Equal(t, models.ZodiacModes, modes)

	modes, err = parseModes("Sidereal")
	require.NoError(t, err)
	assert.Equal(t, []models.ZodiacMode{models.Sidereal}, modes)

	_, err = parseModes("helio")
	assert.Error(t, err)
}

func TestParseDate_DefaultsToToday(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 5, 6, 22, 0, 0, 0, time.FixedZone("x", -5*3600)) }
	day, err := parseDate("", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-07", day.Format(models.DateLayout))
}
