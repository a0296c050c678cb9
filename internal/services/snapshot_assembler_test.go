package services

import (
	"context"
	"testing"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/astro"
	"github.com/irfndi/astro-snapshot-go/internal/ephemeris"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// spreadLongitudes places the bodies 37 degrees apart starting at 1 degree.
func spreadLongitudes() map[models.Body]float64 {
	lons := make(map[models.Body]float64, len(models.Bodies))
	for i, b := range models.Bodies {
		lons[b] = 1 + float64(i)*37
	}
	return lons
}

func newTestAssembler(provider ephemeris.Provider) *SnapshotAssembler {
	return NewSnapshotAssembler(provider, AssemblerConfig{
		Ayanamsa:    astro.DefaultAyanamsa,
		CallTimeout: time.Second,
		Concurrency: 8,
	}, quietLogger())
}

func findAspect(aspects []models.Aspect, a, b models.Body) (models.Aspect, bool) {
	for _, aspect := range aspects {
		if aspect.BodyA == a && aspect.BodyB == b {
			return aspect, true
		}
	}
	return models.Aspect{}, false
}

func TestAssemble_SunAtZeroIsAries(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 0
	provider := NewStubProvider(testDate, lons)

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	sun := snapshot.Positions[models.Sun]
	assert.Equal(t, models.Aries, sun.Sign)
	assert.Equal(t, 0, sun.SignIndex)
	assert.Equal(t, 0.0, sun.DegreeInSign)
	assert.Equal(t, 0.0, sun.Longitude)
	assert.Equal(t, "2025-03-20", snapshot.Date)
	assert.Equal(t, "stub", snapshot.Provider)
	assert.Equal(t, 0.0, snapshot.AyanamsaApplied)
}

func TestAssemble_OppositionBetweenTenAndOneNinety(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 10
	lons[models.Moon] = 190
	provider := NewStubProvider(testDate, lons)

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	aspect, ok := findAspect(snapshot.Aspects, models.Sun, models.Moon)
	require.True(t, ok)
	assert.Equal(t, "opposition", aspect.Kind)
	assert.Equal(t, 180.0, aspect.SeparationDeg)
	assert.Equal(t, 8.0, aspect.OrbDeg)
	assert.Equal(t, 0.0, aspect.DeviationDeg)
}

func TestAssemble_FullMoonWindowWinsOverWaxingGibbous(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 0
	lons[models.Moon] = 175
	provider := NewStubProvider(testDate, lons)
	provider.Illum = 0.99

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Equal(t, astro.PhaseFullMoon, snapshot.LunarPhase.Name)
	assert.Equal(t, 175.0, snapshot.LunarPhase.PhaseAngleDeg)
	assert.Equal(t, 0.99, snapshot.LunarPhase.Illumination)
}

func TestAssemble_SiderealShiftsSunIntoPisces(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 20
	provider := NewStubProvider(testDate, lons)

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Sidereal)
	require.NoError(t, err)

	sun := snapshot.Positions[models.Sun]
	assert.InDelta(t, 355.9, sun.Longitude, 1e-9)
	assert.Equal(t, models.Pisces, sun.Sign)
	assert.Equal(t, models.Sidereal, snapshot.ZodiacMode)
	assert.Equal(t, 24.1, snapshot.AyanamsaApplied)
}

func TestAssemble_AllFireSigns(t *testing.T) {
	fire := []float64{5, 125, 245}
	lons := make(map[models.Body]float64)
	for i, b := range models.Bodies {
		lons[b] = fire[i%3] + float64(i)
	}
	provider := NewStubProvider(testDate, lons)

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"fire": 100, "earth": 0, "air": 0, "water": 0}, snapshot.ElementTally.Percentages)
	assert.Equal(t, models.TotalWeight(), snapshot.ElementTally.Counts["fire"])
}

func TestAssemble_PhaseIsModeInvariant(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 3
	lons[models.Moon] = 93
	provider := NewStubProvider(testDate, lons)
	assembler := newTestAssembler(provider)

	tropical, err := assembler.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)
	sidereal, err := assembler.Assemble(context.Background(), testDate, models.Sidereal)
	require.NoError(t, err)

	assert.Equal(t, tropical.LunarPhase, sidereal.LunarPhase)
	assert.Equal(t, astro.PhaseFirstQuarter, tropical.LunarPhase.Name)
}

func TestAssemble_IssuesTwentyOneLookups(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())

	_, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Equal(t, int64(21), provider.Calls())
}

func TestAssemble_RetrogradeFromFiniteDifference(t *testing.T) {
	lons := spreadLongitudes()
	provider := NewStubProvider(testDate, lons)
	provider.Previous[models.Mercury] = lons[models.Mercury] + 0.5

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	mercury := snapshot.Positions[models.Mercury]
	assert.True(t, mercury.Retrograde)
	assert.Equal(t, -0.5, mercury.SpeedDegPerDay)
	assert.True(t, snapshot.Highlights.MercuryRetrograde)

	venus := snapshot.Positions[models.Venus]
	assert.False(t, venus.Retrograde)
	assert.Equal(t, 1.0, venus.SpeedDegPerDay)
}

func TestAssemble_WrapBoundaryNaiveVersusWrapAware(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 0.5
	provider := NewStubProvider(testDate, lons)
	provider.Previous[models.Sun] = 359.5

	naive, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)
	assert.True(t, naive.Positions[models.Sun].Retrograde)
	assert.Equal(t, -359.0, naive.Positions[models.Sun].SpeedDegPerDay)

	wrapAware := NewSnapshotAssembler(provider, AssemblerConfig{WrapAwareMotion: true}, quietLogger())
	fixed, err := wrapAware.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)
	assert.False(t, fixed.Positions[models.Sun].Retrograde)
	assert.InDelta(t, 1.0, fixed.Positions[models.Sun].SpeedDegPerDay, 1e-9)
}

func TestAssemble_CurrentFailureUsesDefaultPosition(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())
	provider.FailCurrent[models.Saturn] = true

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultPosition(models.Saturn), snapshot.Positions[models.Saturn])
	assert.Equal(t, []models.Body{models.Saturn}, snapshot.DegradedBodies)
	assert.True(t, snapshot.Degraded())
	assert.Len(t, snapshot.Positions, 10)
	assert.Equal(t, models.TotalWeight(), snapshot.ElementTally.Total)
}

func TestAssemble_DegradedBodyLoggedByDisplayName(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())
	provider.FailCurrent[models.Saturn] = true
	provider.FailPrevious[models.Mercury] = true

	logger, hook := test.NewNullLogger()
	assembler := NewSnapshotAssembler(provider, AssemblerConfig{CallTimeout: time.Second}, logger)
	_, err := assembler.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	logged := map[string]string{}
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			if body, ok := entry.Data["body"].(string); ok {
				logged[body] = entry.Message
			}
		}
	}
	assert.Equal(t, "Longitude lookup failed, using default position", logged["Saturn"])
	assert.Equal(t, "Previous-day lookup failed, motion unknown", logged["Mercury"])
}

func TestAssemble_PreviousFailureKeepsPosition(t *testing.T) {
	lons := spreadLongitudes()
	provider := NewStubProvider(testDate, lons)
	provider.FailPrevious[models.Mars] = true

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	mars := snapshot.Positions[models.Mars]
	assert.Equal(t, lons[models.Mars], mars.Longitude)
	assert.Equal(t, 0.0, mars.SpeedDegPerDay)
	assert.False(t, mars.Retrograde)
	assert.True(t, mars.Degraded)
	assert.Equal(t, []models.Body{models.Mars}, snapshot.DegradedBodies)
}

func TestAssemble_LunarPhaseUnknownWhenInputsMissing(t *testing.T) {
	tests := []struct {
		name      string
		configure func(p *StubProvider)
	}{
		{"sun fails", func(p *StubProvider) { p.FailCurrent[models.Sun] = true }},
		{"moon fails", func(p *StubProvider) { p.FailCurrent[models.Moon] = true }},
		{"illumination fails", func(p *StubProvider) { p.FailIllumination = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewStubProvider(testDate, spreadLongitudes())
			tt.configure(provider)

			snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
			require.NoError(t, err)

			assert.Equal(t, astro.UnknownLunarPhase(), snapshot.LunarPhase)
			assert.Equal(t, astro.PhaseUnknown, snapshot.LunarPhase.Name)
			assert.Equal(t, 0.5, snapshot.LunarPhase.Illumination)
		})
	}
}

func TestAssemble_SlowProviderDegradesWithinTimeout(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())
	provider.Delay = 500 * time.Millisecond
	assembler := NewSnapshotAssembler(provider, AssemblerConfig{
		CallTimeout: 20 * time.Millisecond,
		Concurrency: 21,
	}, quietLogger())

	start := time.Now()
	snapshot, err := assembler.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, models.Bodies, snapshot.DegradedBodies)
	assert.Equal(t, astro.PhaseUnknown, snapshot.LunarPhase.Name)
	for _, b := range models.Bodies {
		assert.Equal(t, models.Aries, snapshot.Positions[b].Sign)
	}
}

func TestAssemble_CancelledContextFails(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshot, err := newTestAssembler(provider).Assemble(ctx, testDate, models.Tropical)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, snapshot)
}

func TestAssemble_UnsupportedMode(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())

	_, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.ZodiacMode("draconic"))
	require.Error(t, err)
	assert.Equal(t, int64(0), provider.Calls())
}

func TestAssemble_HeadlineAspects(t *testing.T) {
	lons := spreadLongitudes()
	lons[models.Sun] = 100
	lons[models.Mars] = 190    // square to the Sun
	lons[models.Jupiter] = 220 // trine to the Sun
	lons[models.Venus] = 102   // conjunction, not a headline body
	provider := NewStubProvider(testDate, lons)

	snapshot, err := newTestAssembler(provider).Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	require.NotNil(t, snapshot.Highlights.HeadlineAspects)
	for _, aspect := range snapshot.Highlights.HeadlineAspects {
		assert.Equal(t, models.Sun, aspect.BodyA)
		assert.Contains(t, []models.Body{models.Mars, models.Jupiter, models.Saturn}, aspect.BodyB)
	}
	mars, ok := findAspect(snapshot.Highlights.HeadlineAspects, models.Sun, models.Mars)
	require.True(t, ok)
	assert.Equal(t, "square", mars.Kind)
	jupiter, ok := findAspect(snapshot.Highlights.HeadlineAspects, models.Sun, models.Jupiter)
	require.True(t, ok)
	assert.Equal(t, "trine", jupiter.Kind)
	_, ok = findAspect(snapshot.Highlights.HeadlineAspects, models.Sun, models.Venus)
	assert.False(t, ok)

	assert.Equal(t, snapshot.Positions[models.Sun].Sign, snapshot.Highlights.SunSign)
	assert.Equal(t, snapshot.Positions[models.Moon].Sign, snapshot.Highlights.MoonSign)
}

func TestAssemble_Deterministic(t *testing.T) {
	provider := NewStubProvider(testDate, spreadLongitudes())
	assembler := newTestAssembler(provider)
	fixed := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	assembler.now = func() time.Time { return fixed }

	a, err := assembler.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)
	b, err := assembler.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAssemble_WithCircularProvider(t *testing.T) {
	assembler := newTestAssembler(ephemeris.NewCircularOrbitProvider())

	snapshot, err := assembler.Assemble(context.Background(), testDate, models.Tropical)
	require.NoError(t, err)

	assert.Empty(t, snapshot.DegradedBodies)
	assert.Equal(t, "circular", snapshot.Provider)
	// Around the March equinox the Sun sits near 0 degrees.
	sunLon := snapshot.Positions[models.Sun].Longitude
	assert.True(t, sunLon > 355 || sunLon < 5, "sun longitude %v", sunLon)
	assert.NotEqual(t, astro.PhaseUnknown, snapshot.LunarPhase.Name)
	assert.NoError(t, snapshot.Validate())
}
