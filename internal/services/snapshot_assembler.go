package services

import (
	"context"
	"fmt"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/astro"
	"github.com/irfndi/astro-snapshot-go/internal/ephemeris"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/irfndi/astro-snapshot-go/internal/telemetry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SnapshotSource computes a snapshot for a date and mode.
type SnapshotSource interface {
	Assemble(ctx context.Context, date time.Time, mode models.ZodiacMode) (*models.Snapshot, error)
}

// AssemblerConfig tunes snapshot assembly.
type AssemblerConfig struct {
	Ayanamsa        float64
	WrapAwareMotion bool
	// CallTimeout bounds every individual provider call.
	CallTimeout time.Duration
	// Concurrency caps in-flight provider calls for one snapshot.
	Concurrency int
}

// headlineBodies are the bodies whose Sun aspects appear in the highlights.
var headlineBodies = []models.Body{models.Mars, models.Jupiter, models.Saturn}

// SnapshotAssembler turns provider lookups into an immutable Snapshot.
type SnapshotAssembler struct {
	provider ephemeris.Provider
	config   AssemblerConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewSnapshotAssembler creates an assembler over provider.
func NewSnapshotAssembler(provider ephemeris.Provider, config AssemblerConfig, logger *logrus.Logger) *SnapshotAssembler {
	if config.CallTimeout <= 0 {
		config.CallTimeout = 5 * time.Second
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotAssembler{
		provider: provider,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// bodyLookup holds the two raw longitudes fetched for one body.
type bodyLookup struct {
	curr, prev       float64
	currErr, prevErr error
}

// Assemble fetches longitudes at the date and one day earlier for every body
// plus the lunar illumination, then derives positions, motion, aspects,
// tallies, lunar phase and highlights. Provider failures degrade individual
// bodies and never fail the snapshot; only cancellation of ctx does.
func (a *SnapshotAssembler) Assemble(ctx context.Context, date time.Time, mode models.ZodiacMode) (*models.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetSnapshotTracer(), "snapshot.assemble",
		telemetry.StringAttribute("snapshot.date", date.Format(models.DateLayout)),
		telemetry.StringAttribute("snapshot.mode", string(mode)),
		telemetry.StringAttribute("ephemeris.provider", a.provider.Name()),
	)
	defer span.End()

	if mode != models.Tropical && mode != models.Sidereal {
		err := fmt.Errorf("unsupported zodiac mode %q", mode)
		telemetry.RecordError(span, err)
		return nil, err
	}

	at := ephemeris.InstantFromDate(date)
	lookups := make([]bodyLookup, len(models.Bodies))
	var (
		illumination    float64
		illuminationErr error
	)

	g := new(errgroup.Group)
	g.SetLimit(a.config.Concurrency)
	for i, body := range models.Bodies {
		g.Go(func() error {
			lookups[i].curr, lookups[i].currErr = a.longitude(ctx, body, at)
			return nil
		})
		g.Go(func() error {
			lookups[i].prev, lookups[i].prevErr = a.longitude(ctx, body, at.PreviousDay())
			return nil
		})
	}
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, a.config.CallTimeout)
		defer cancel()
		illumination, illuminationErr = a.provider.Illumination(callCtx, at)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("snapshot assembly for %s aborted: %w", date.Format(models.DateLayout), err)
	}

	positions := make(map[models.Body]models.BodyPosition, len(models.Bodies))
	degraded := []models.Body{}
	for i, body := range models.Bodies {
		pos := a.position(body, lookups[i], mode)
		if pos.Degraded {
			degraded = append(degraded, body)
		}
		positions[body] = pos
	}

	lunar := astro.UnknownLunarPhase()
	sun, moon := lookups[0], lookups[1]
	switch {
	case illuminationErr != nil:
		a.logger.WithError(illuminationErr).WithField("date", date.Format(models.DateLayout)).
			Warn("Illumination lookup failed, lunar phase unknown")
	case sun.currErr == nil && moon.currErr == nil:
		// The Moon-Sun angle is the same in either zodiac, so raw tropical
		// longitudes are used.
		lunar = astro.ResolveLunarPhase(sun.curr, moon.curr, illumination)
	}

	aspects := astro.DetectAspects(positions)
	ayanamsa := 0.0
	if mode == models.Sidereal {
		ayanamsa = a.config.Ayanamsa
	}

	snapshot := &models.Snapshot{
		Date:            date.Format(models.DateLayout),
		ZodiacMode:      mode,
		AyanamsaApplied: ayanamsa,
		Positions:       positions,
		Aspects:         aspects,
		ElementTally:    astro.TallyElements(positions),
		ModalityTally:   astro.TallyModalities(positions),
		LunarPhase:      lunar,
		Highlights:      buildHighlights(positions, aspects),
		DegradedBodies:  degraded,
		Provider:        a.provider.Name(),
		ComputedAt:      a.now().UTC(),
	}
	if err := snapshot.Validate(); err != nil {
		panic(fmt.Sprintf("assembled snapshot violates invariants: %v", err))
	}

	telemetry.SetSpanAttributes(span,
		telemetry.Int64Attribute("snapshot.aspects", int64(len(aspects))),
		telemetry.Int64Attribute("snapshot.degraded_bodies", int64(len(degraded))),
	)
	return snapshot, nil
}

func (a *SnapshotAssembler) longitude(ctx context.Context, body models.Body, at ephemeris.Instant) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.config.CallTimeout)
	defer cancel()
	return a.provider.Longitude(callCtx, body, at)
}

// position applies the degradation rules: no longitude at T yields the
// default position; no longitude at T-1 keeps the position as stationary.
func (a *SnapshotAssembler) position(body models.Body, l bodyLookup, mode models.ZodiacMode) models.BodyPosition {
	if l.currErr != nil {
		a.logger.WithError(l.currErr).WithField("body", body.DisplayName()).Warn("Longitude lookup failed, using default position")
		return models.DefaultPosition(body)
	}

	pos := astro.Place(body, l.curr, mode, a.config.Ayanamsa)
	if l.prevErr != nil {
		a.logger.WithError(l.prevErr).WithField("body", body.DisplayName()).Warn("Previous-day lookup failed, motion unknown")
		pos.Degraded = true
		return pos
	}

	motion := astro.ClassifyMotion(l.prev, l.curr, a.config.WrapAwareMotion)
	pos.SpeedDegPerDay = motion.SpeedDegPerDay
	pos.Retrograde = motion.Retrograde
	return pos
}

func buildHighlights(positions map[models.Body]models.BodyPosition, aspects []models.Aspect) models.Highlights {
	headline := []models.Aspect{}
	for _, aspect := range aspects {
		if !aspect.Involves(models.Sun) {
			continue
		}
		for _, b := range headlineBodies {
			if aspect.Involves(b) {
				headline = append(headline, aspect)
				break
			}
		}
	}
	return models.Highlights{
		SunSign:           positions[models.Sun].Sign,
		MoonSign:          positions[models.Moon].Sign,
		MercuryRetrograde: positions[models.Mercury].Retrograde,
		HeadlineAspects:   headline,
	}
}
