package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAnalyticsService_RecordHitAndMiss(t *testing.T) {
	service := NewCacheAnalyticsService(nil, nil)

	service.RecordHit(CategoryMemory)
	service.RecordHit(CategoryMemory)
	service.RecordMiss(CategoryMemory)

	stats := service.GetStats(CategoryMemory)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(3), stats.TotalOps)
	assert.Equal(t, 2.0/3.0, stats.HitRate)
	assert.False(t, stats.LastUpdated.IsZero())

	assert.Equal(t, CacheStats{}, service.GetStats("unknown"))
}

func TestCacheAnalyticsService_ErrorsDoNotMoveHitRate(t *testing.T) {
	service := NewCacheAnalyticsService(nil, nil)

	service.RecordHit("redis")
	service.RecordError("redis")

	stats := service.GetStats("redis")
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(1), stats.TotalOps)
	assert.Equal(t, 1.0, stats.HitRate)
}

func TestCacheAnalyticsService_GetMetrics(t *testing.T) {
	service := NewCacheAnalyticsService(nil, nil)

	service.RecordMiss(CategoryMemory)
	service.RecordMiss("redis")
	service.RecordComputation(40 * time.Millisecond)
	service.RecordHit(CategoryMemory)
	service.RecordMiss(CategoryMemory)
	service.RecordHit("redis")

	metrics := service.GetMetrics()
	assert.Equal(t, int64(2), metrics.Overall.Hits)
	assert.Equal(t, int64(1), metrics.Overall.Misses)
	assert.Equal(t, int64(3), metrics.Overall.TotalOps)
	assert.InDelta(t, 2.0/3.0, metrics.Overall.HitRate, 1e-12)
	assert.Equal(t, int64(1), metrics.Computations)
	assert.Equal(t, 40.0, metrics.AvgComputeMs)
	assert.Len(t, metrics.ByCategory, 2)
}

func TestCacheAnalyticsService_ResetStats(t *testing.T) {
	service := NewCacheAnalyticsService(nil, nil)
	service.RecordHit(CategoryMemory)
	service.RecordComputation(time.Second)

	service.ResetStats()

	assert.Empty(t, service.GetAllStats())
	assert.Equal(t, int64(0), service.GetMetrics().Computations)
}

func TestCacheAnalyticsService_ReportStats(t *testing.T) {
	redisServer, redisClient := testutil.NewTestRedis(t)

	service := NewCacheAnalyticsService(redisClient, quietLogger())
	service.RecordHit(CategoryMemory)

	require.NoError(t, service.reportStats(context.Background()))

	raw, err := redisServer.Get(analyticsStatsKey)
	require.NoError(t, err)
	var metrics CacheMetrics
	require.NoError(t, json.Unmarshal([]byte(raw), &metrics))
	assert.Equal(t, int64(1), metrics.ByCategory[CategoryMemory].Hits)
	assert.Equal(t, 24*time.Hour, redisServer.TTL(analyticsStatsKey))
}

func TestCacheAnalyticsService_StartPeriodicReporting(t *testing.T) {
	redisServer, redisClient := testutil.NewTestRedis(t)

	service := NewCacheAnalyticsService(redisClient, quietLogger())
	service.RecordMiss(CategoryMemory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartPeriodicReporting(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return redisServer.Exists(analyticsStatsKey)
	}, time.Second, 10*time.Millisecond)
}

func TestCacheAnalyticsService_PeriodicReportingWithoutRedis(t *testing.T) {
	service := NewCacheAnalyticsService(nil, nil)
	assert.NotPanics(t, func() {
		service.StartPeriodicReporting(context.Background(), time.Millisecond)
	})
}

func TestCacheAnalyticsService_PeriodicReportingLogsRedisFailure(t *testing.T) {
	redisServer, redisClient := testutil.NewTestRedis(t)
	redisServer.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	service := NewCacheAnalyticsService(redisClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartPeriodicReporting(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Message == "Failed to report cache stats" && entry.Level == logrus.DebugLevel {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
