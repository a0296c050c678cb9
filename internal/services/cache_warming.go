package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SnapshotGetter is the part of the snapshot cache the warmer needs.
type SnapshotGetter interface {
	Get(ctx context.Context, date time.Time, mode models.ZodiacMode) (*models.Snapshot, error)
}

// WarmSummary reports the outcome of a warming run. Served counts every
// successful lookup, whether it was computed or already held by a tier.
type WarmSummary struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Requested int           `json:"requested"`
	Served    int           `json:"served"`
	Degraded  int           `json:"degraded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

// SnapshotWarmer precomputes snapshots through the cache so that later
// requests hit the in-process or persistent tier.
type SnapshotWarmer struct {
	cache       SnapshotGetter
	concurrency int
	logger      *logrus.Logger
}

// NewSnapshotWarmer creates a warmer running at most concurrency
// computations at once.
func NewSnapshotWarmer(cache SnapshotGetter, concurrency int, logger *logrus.Logger) *SnapshotWarmer {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotWarmer{
		cache:       cache,
		concurrency: concurrency,
		logger:      logger,
	}
}

// WarmRange computes every date in [from, to] for each mode. Individual
// failures are counted, not returned; an error is returned only for an
// invalid range or when ctx is cancelled.
func (w *SnapshotWarmer) WarmRange(ctx context.Context, from, to time.Time, modes []models.ZodiacMode) (*WarmSummary, error) {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid warm range: %s is after %s", from.Format(models.DateLayout), to.Format(models.DateLayout))
	}
	if len(modes) == 0 {
		modes = models.ZodiacModes
	}

	start := time.Now()
	summary := &WarmSummary{
		From: from.Format(models.DateLayout),
		To:   to.Format(models.DateLayout),
	}
	w.logger.WithFields(logrus.Fields{
		"from":  summary.From,
		"to":    summary.To,
		"modes": modes,
	}).Info("Starting snapshot warming")

	var served, degraded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, mode := range modes {
			if gctx.Err() != nil {
				break
			}
			summary.Requested++
			g.Go(func() error {
				snapshot, err := w.cache.Get(gctx, day, mode)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					failed.Add(1)
					w.logger.WithError(err).WithFields(logrus.Fields{
						"date": day.Format(models.DateLayout),
						"mode": mode,
					}).Warn("Failed to warm snapshot")
					return nil
				}
				served.Add(1)
				if snapshot.Degraded() {
					degraded.Add(1)
				}
				return nil
			})
		}
	}
	err := g.Wait()

	summary.Served = int(served.Load())
	summary.Degraded = int(degraded.Load())
	summary.Failed = int(failed.Load())
	summary.Duration = time.Since(start)

	w.logger.WithFields(logrus.Fields{
		"requested":   summary.Requested,
		"served":      summary.Served,
		"degraded":    summary.Degraded,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
	}).Info("Snapshot warming completed")

	if err != nil {
		return summary, fmt.Errorf("snapshot warming interrupted: %w", err)
	}
	if ctx.Err() != nil {
		return summary, fmt.Errorf("snapshot warming interrupted: %w", ctx.Err())
	}
	return summary, nil
}

// WarmUpcoming warms today and the following daysAhead days in every mode.
func (w *SnapshotWarmer) WarmUpcoming(ctx context.Context, today time.Time, daysAhead int) (*WarmSummary, error) {
	if daysAhead < 0 {
		daysAhead = 0
	}
	return w.WarmRange(ctx, today, today.AddDate(0, 0, daysAhead), models.ZodiacModes)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
