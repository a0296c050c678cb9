package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache tier categories used by the snapshot cache.
const (
	CategoryMemory = "memory"
)

const analyticsStatsKey = "cache:analytics:stats"

// CacheStats represents cache statistics
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Errors      int64     `json:"errors"`
	HitRate     float64   `json:"hit_rate"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheMetrics is the snapshot cache report. Overall counts one hit per
// request served from any tier and one miss per request that had to be
// computed.
type CacheMetrics struct {
	Overall          CacheStats            `json:"overall"`
	ByCategory       map[string]CacheStats `json:"by_category"`
	Computations     int64                 `json:"computations"`
	AvgComputeMs     float64               `json:"avg_compute_ms"`
	MemoryEntries    int                   `json:"memory_entries"`
	PendingWrites    int64                 `json:"pending_writes"`
	PersistentStore  string                `json:"persistent_store"`
	SingleFlight     bool                  `json:"single_flight"`
	FreshnessSeconds float64               `json:"freshness_seconds"`
}

// CacheAnalyticsService tracks cache performance metrics
type CacheAnalyticsService struct {
	redisClient  redis.Cmdable
	logger       *logrus.Logger
	stats        map[string]*CacheStats
	computations int64
	computeTotal time.Duration
	mu           sync.RWMutex
}

// NewCacheAnalyticsService creates a new cache analytics service. The Redis
// client is only used for periodic reporting and may be nil.
func NewCacheAnalyticsService(redisClient redis.Cmdable, logger *logrus.Logger) *CacheAnalyticsService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CacheAnalyticsService{
		redisClient: redisClient,
		logger:      logger,
		stats:       make(map[string]*CacheStats),
	}
}

// RecordHit records a cache hit for the given category
func (c *CacheAnalyticsService) RecordHit(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.category(category)
	s.Hits++
	c.touch(s)
}

// RecordMiss records a cache miss for the given category
func (c *CacheAnalyticsService) RecordMiss(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.category(category)
	s.Misses++
	c.touch(s)
}

// RecordError records a failed read or write against the given category.
// Errors are not operations and do not move the hit rate.
func (c *CacheAnalyticsService) RecordError(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.category(category)
	s.Errors++
	s.LastUpdated = time.Now()
}

// RecordComputation records one snapshot assembly and its duration.
func (c *CacheAnalyticsService) RecordComputation(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.computations++
	c.computeTotal += duration
}

func (c *CacheAnalyticsService) category(name string) *CacheStats {
	if c.stats[name] == nil {
		c.stats[name] = &CacheStats{}
	}
	return c.stats[name]
}

func (c *CacheAnalyticsService) touch(s *CacheStats) {
	s.TotalOps++
	s.HitRate = float64(s.Hits) / float64(s.TotalOps)
	s.LastUpdated = time.Now()
}

// GetStats returns cache statistics for a specific category
func (c *CacheAnalyticsService) GetStats(category string) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stats, exists := c.stats[category]; exists {
		return *stats
	}
	return CacheStats{}
}

// GetAllStats returns all cache statistics
func (c *CacheAnalyticsService) GetAllStats() map[string]CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]CacheStats, len(c.stats))
	for category, stats := range c.stats {
		result[category] = *stats
	}
	return result
}

// GetMetrics returns per-tier statistics and the derived overall figures.
func (c *CacheAnalyticsService) GetMetrics() *CacheMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metrics := &CacheMetrics{
		ByCategory:   make(map[string]CacheStats, len(c.stats)),
		Computations: c.computations,
	}
	for category, stats := range c.stats {
		metrics.ByCategory[category] = *stats
		metrics.Overall.Hits += stats.Hits
		metrics.Overall.Errors += stats.Errors
		if stats.LastUpdated.After(metrics.Overall.LastUpdated) {
			metrics.Overall.LastUpdated = stats.LastUpdated
		}
	}
	metrics.Overall.Misses = c.computations
	metrics.Overall.TotalOps = metrics.Overall.Hits + metrics.Overall.Misses
	if metrics.Overall.TotalOps > 0 {
		metrics.Overall.HitRate = float64(metrics.Overall.Hits) / float64(metrics.Overall.TotalOps)
	}
	if c.computations > 0 {
		metrics.AvgComputeMs = float64(c.computeTotal.Milliseconds()) / float64(c.computations)
	}
	return metrics
}

// ResetStats resets all cache statistics
func (c *CacheAnalyticsService) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*CacheStats)
	c.computations = 0
	c.computeTotal = 0
}

// StartPeriodicReporting periodically writes the current stats to Redis until
// ctx is cancelled. It is a no-op without a Redis client.
func (c *CacheAnalyticsService) StartPeriodicReporting(ctx context.Context, interval time.Duration) {
	if c.redisClient == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.reportStats(ctx); err != nil && ctx.Err() == nil {
					c.logger.WithError(err).Debug("Failed to report cache stats")
				}
			}
		}
	}()
}

// reportStats stores the current metrics in Redis with a 24 hour TTL.
func (c *CacheAnalyticsService) reportStats(ctx context.Context) error {
	statsJSON, err := json.Marshal(c.GetMetrics())
	if err != nil {
		return err
	}
	return c.redisClient.Set(ctx, analyticsStatsKey, statsJSON, 24*time.Hour).Err()
}
