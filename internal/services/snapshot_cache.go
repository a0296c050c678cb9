package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/cache"
	"github.com/irfndi/astro-snapshot-go/internal/logging"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/irfndi/astro-snapshot-go/internal/telemetry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// SnapshotCacheConfig tunes the snapshot cache.
type SnapshotCacheConfig struct {
	// Freshness is how long an in-process entry is served without
	// consulting the persistent tier.
	Freshness time.Duration
	// WriteTimeout bounds each asynchronous persistent write.
	WriteTimeout time.Duration
	// SingleFlight collapses concurrent misses for the same key.
	SingleFlight bool
}

type cacheEntry struct {
	snapshot *models.Snapshot
	storedAt time.Time
}

// SnapshotCache serves snapshots from an in-process map, then the persistent
// store, then fresh assembly. Fresh results are written to the map before
// returning and to the persistent store in the background.
//
// Persistent hits are not age-checked: a stored snapshot is served for as
// long as the store keeps it. Without SingleFlight, concurrent misses for
// one key each assemble and the last write wins.
//
// Degraded snapshots are held in memory only and never written to the
// persistent store. Once the freshness window passes they are assembled
// again, so a recovered provider replaces them.
type SnapshotCache struct {
	source    SnapshotSource
	store     cache.SnapshotStore
	analytics *CacheAnalyticsService
	config    SnapshotCacheConfig
	logger    *logrus.Logger
	now       func() time.Time

	mu      sync.RWMutex
	entries map[models.SnapshotKey]cacheEntry

	group   singleflight.Group
	writes  sync.WaitGroup
	pending atomic.Int64
}

// NewSnapshotCache creates a cache. A nil store disables the persistent tier
// and a nil analytics service gets a private one.
func NewSnapshotCache(source SnapshotSource, store cache.SnapshotStore, analytics *CacheAnalyticsService, config SnapshotCacheConfig, logger *logrus.Logger) *SnapshotCache {
	if store == nil {
		store = cache.NopSnapshotStore{}
	}
	if analytics == nil {
		analytics = NewCacheAnalyticsService(nil, logger)
	}
	if config.Freshness <= 0 {
		config.Freshness = time.Hour
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotCache{
		source:    source,
		store:     store,
		analytics: analytics,
		config:    config,
		logger:    logger,
		now:       time.Now,
		entries:   make(map[models.SnapshotKey]cacheEntry),
	}
}

// SetClock replaces the time source used for freshness checks.
func (c *SnapshotCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the snapshot for the calendar date of date in mode.
func (c *SnapshotCache) Get(ctx context.Context, date time.Time, mode models.ZodiacMode) (*models.Snapshot, error) {
	key := models.NewSnapshotKey(date, mode)
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "snapshot_cache.get",
		telemetry.StringAttribute("cache.key", key.String()))
	defer span.End()

	start := time.Now()
	if snapshot, ok := c.lookupMemory(key); ok {
		c.analytics.RecordHit(CategoryMemory)
		telemetry.SetSpanAttributes(span, telemetry.StringAttribute("cache.tier", CategoryMemory))
		logging.LogCacheOperation(c.logger, "get", key.String(), CategoryMemory, true, time.Since(start).Milliseconds())
		return snapshot, nil
	}
	c.analytics.RecordMiss(CategoryMemory)

	if snapshot, ok := c.lookupStore(ctx, key); ok {
		c.analytics.RecordHit(c.store.Name())
		c.remember(key, snapshot)
		telemetry.SetSpanAttributes(span, telemetry.StringAttribute("cache.tier", c.store.Name()))
		logging.LogCacheOperation(c.logger, "get", key.String(), c.store.Name(), true, time.Since(start).Milliseconds())
		return snapshot, nil
	}

	telemetry.SetSpanAttributes(span, telemetry.StringAttribute("cache.tier", "compute"))
	var (
		snapshot *models.Snapshot
		err      error
	)
	if c.config.SingleFlight {
		var v interface{}
		v, err, _ = c.group.Do(key.String(), func() (interface{}, error) {
			return c.compute(ctx, key, date)
		})
		if err == nil {
			snapshot = v.(*models.Snapshot)
		}
	} else {
		snapshot, err = c.compute(ctx, key, date)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logging.LogCacheOperation(c.logger, "compute", key.String(), "compute", false, time.Since(start).Milliseconds())
	return snapshot, nil
}

func (c *SnapshotCache) lookupMemory(key models.SnapshotKey) (*models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.storedAt) >= c.config.Freshness {
		return nil, false
	}
	return entry.snapshot, true
}

// lookupStore treats every read failure as a miss.
func (c *SnapshotCache) lookupStore(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, bool) {
	snapshot, err := c.store.Get(ctx, key)
	if err == nil {
		return snapshot, true
	}
	c.analytics.RecordMiss(c.store.Name())
	if !errors.Is(err, cache.ErrSnapshotNotFound) {
		c.analytics.RecordError(c.store.Name())
		c.logger.WithError(err).WithFields(logrus.Fields{
			"key":   key.String(),
			"store": c.store.Name(),
		}).Warn("Persistent snapshot read failed, treating as miss")
	}
	return nil, false
}

func (c *SnapshotCache) remember(key models.SnapshotKey, snapshot *models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{snapshot: snapshot, storedAt: c.now()}
}

func (c *SnapshotCache) compute(ctx context.Context, key models.SnapshotKey, date time.Time) (*models.Snapshot, error) {
	start := time.Now()
	snapshot, err := c.source.Assemble(ctx, date, key.Mode)
	if err != nil {
		return nil, err
	}
	c.analytics.RecordComputation(time.Since(start))

	c.remember(key, snapshot)
	if snapshot.Degraded() {
		// Keep partial results out of the long-lived tier; the in-process
		// entry expires after the freshness window and is retried then.
		c.logger.WithFields(logrus.Fields{
			"key":             key.String(),
			"degraded_bodies": snapshot.DegradedBodies,
		}).Warn("Degraded snapshot not persisted")
		return snapshot, nil
	}
	c.persistAsync(key, snapshot)
	return snapshot, nil
}

func (c *SnapshotCache) persistAsync(key models.SnapshotKey, snapshot *models.Snapshot) {
	c.writes.Add(1)
	c.pending.Add(1)
	go func() {
		defer c.writes.Done()
		defer c.pending.Add(-1)

		ctx, cancel := context.WithTimeout(context.Background(), c.config.WriteTimeout)
		defer cancel()

		start := time.Now()
		if err := c.store.Put(ctx, key, snapshot); err != nil {
			c.analytics.RecordError(c.store.Name())
			c.logger.WithError(err).WithFields(logrus.Fields{
				"key":   key.String(),
				"store": c.store.Name(),
			}).Error("Failed to persist snapshot")
			return
		}
		logging.LogCacheOperation(c.logger, "set", key.String(), c.store.Name(), false, time.Since(start).Milliseconds())
	}()
}

// Wait blocks until all pending persistent writes have finished.
func (c *SnapshotCache) Wait() {
	c.writes.Wait()
}

// Purge drops every in-process entry and returns how many were removed. The
// persistent tier is untouched.
func (c *SnapshotCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[models.SnapshotKey]cacheEntry)
	c.logger.WithField("entries", n).Info("In-process snapshot cache purged")
	return n
}

// Len returns the number of in-process entries, fresh or not.
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns per-tier counters and cache configuration.
func (c *SnapshotCache) Stats() *CacheMetrics {
	metrics := c.analytics.GetMetrics()
	metrics.MemoryEntries = c.Len()
	metrics.PendingWrites = c.pending.Load()
	metrics.PersistentStore = c.store.Name()
	metrics.SingleFlight = c.config.SingleFlight
	metrics.FreshnessSeconds = c.config.Freshness.Seconds()
	return metrics
}

// ResetStats clears the hit/miss counters.
func (c *SnapshotCache) ResetStats() {
	c.analytics.ResetStats()
}
