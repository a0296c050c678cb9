package app

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/irfndi/astro-snapshot-go/internal/config"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func baseConfig() *config.Config {
	return &config.Config{
		Ephemeris: config.EphemerisConfig{Provider: "circular"},
		Astro:     config.AstroConfig{Ayanamsa: 24.1},
		Cache:     config.CacheConfig{Store: "none", Freshness: "1h"},
	}
}

func TestNew_CircularWithoutStore(t *testing.T) {
	a, err := New(context.Background(), baseConfig(), quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "circular", a.Provider.Name())
	assert.Nil(t, a.Breaker)
	assert.Nil(t, a.EphemerisClient)
	assert.Equal(t, "none", a.Store.Name())

	snapshot, err := a.Cache.Get(context.Background(), time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), models.Sidereal)
	require.NoError(t, err)
	assert.Equal(t, 24.1, snapshot.AyanamsaApplied)
}

func TestNew_HTTPProviderIsGuarded(t *testing.T) {
	cfg := baseConfig()
	cfg.Ephemeris = config.EphemerisConfig{
		Provider:                "http",
		ServiceURL:              "http://127.0.0.1:1",
		BreakerFailureThreshold: 3,
	}

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Breaker)
	require.NotNil(t, a.EphemerisClient)
	assert.Equal(t, "http", a.Provider.Name())
}

func TestNew_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.Cache.Store = "redis"
	cfg.Redis = config.RedisConfig{Host: mr.Host(), Port: port}

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	_, err = a.Cache.Get(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), models.Tropical)
	require.NoError(t, err)
	a.Close()

	assert.Equal(t, "redis", a.Store.Name())
	assert.Len(t, mr.Keys(), 1)
}

func TestNew_UnreachableStoreFails(t *testing.T) {
	cfg := baseConfig()
	cfg.Cache.Store = "redis"
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := New(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
