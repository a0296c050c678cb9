// Package app assembles the snapshot pipeline from configuration. The HTTP
// server and the batch CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/irfndi/astro-snapshot-go/internal/cache"
	"github.com/irfndi/astro-snapshot-go/internal/config"
	"github.com/irfndi/astro-snapshot-go/internal/database"
	"github.com/irfndi/astro-snapshot-go/internal/ephemeris"
	"github.com/irfndi/astro-snapshot-go/internal/services"
	"github.com/sirupsen/logrus"
)

// App holds the wired components. Optional components are nil when the
// configuration does not use them.
type App struct {
	Config *config.Config
	Logger *logrus.Logger

	EphemerisClient *ephemeris.HTTPClient
	Breaker         *services.CircuitBreaker
	Provider        ephemeris.Provider

	Redis      *database.RedisClient
	Postgres   *database.PostgresDB
	Repository *database.SnapshotRepository
	Store      cache.SnapshotStore

	Recovery  *services.ErrorRecoveryManager
	Optimizer *services.ResourceOptimizer
	Analytics *services.CacheAnalyticsService
	Assembler *services.SnapshotAssembler
	Cache     *services.SnapshotCache
	Warmer    *services.SnapshotWarmer
}

// New connects the configured stores and builds the provider, assembler,
// cache and warmer. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Recovery:  services.NewErrorRecoveryManager(logger),
		Optimizer: services.NewResourceOptimizer(services.ResourceOptimizerConfig{}, logger),
	}

	a.Provider = a.newProvider()

	if err := a.connectStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if a.Redis != nil {
		a.Analytics = services.NewCacheAnalyticsService(a.Redis.Client, logger)
	} else {
		a.Analytics = services.NewCacheAnalyticsService(nil, logger)
	}

	concurrency := cfg.Ephemeris.Concurrency
	if concurrency <= 0 {
		concurrency = a.Optimizer.RecommendedWorkers()
	}
	a.Assembler = services.NewSnapshotAssembler(a.Provider, services.AssemblerConfig{
		Ayanamsa:        cfg.Astro.Ayanamsa,
		WrapAwareMotion: cfg.Astro.WrapAwareMotion,
		CallTimeout:     cfg.Ephemeris.LookupTimeout(),
		Concurrency:     concurrency,
	}, logger)

	a.Cache = services.NewSnapshotCache(a.Assembler, a.Store, a.Analytics, services.SnapshotCacheConfig{
		Freshness:    cfg.Cache.FreshnessWindow(),
		WriteTimeout: cfg.Cache.WriteDeadline(),
		SingleFlight: cfg.Cache.SingleFlight,
	}, logger)

	warmConcurrency := cfg.Cache.WarmConcurrent
	if warmConcurrency <= 0 {
		warmConcurrency = a.Optimizer.RecommendedWorkers() / 2
	}
	a.Warmer = services.NewSnapshotWarmer(a.Cache, warmConcurrency, logger)

	logger.WithFields(logrus.Fields{
		"provider":          a.Provider.Name(),
		"store":             a.Store.Name(),
		"concurrency":       concurrency,
		"warm_concurrency":  warmConcurrency,
		"single_flight":     cfg.Cache.SingleFlight,
		"wrap_aware_motion": cfg.Astro.WrapAwareMotion,
	}).Info("Snapshot pipeline initialized")
	return a, nil
}

func (a *App) newProvider() ephemeris.Provider {
	cfg := a.Config.Ephemeris
	if cfg.Provider != "http" {
		return ephemeris.NewCircularOrbitProvider()
	}

	a.EphemerisClient = ephemeris.NewHTTPClient(&cfg, a.Logger)
	a.Breaker = services.NewCircuitBreaker("ephemeris", services.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: 2,
		Timeout:          cfg.BreakerTimeout(),
		MaxRequests:      lookupsPerSnapshot,
	}, a.Logger)
	return services.NewBreakerProvider(a.EphemerisClient, a.Breaker)
}

// lookupsPerSnapshot is the half-open probe budget: enough for one full
// snapshot (two longitudes per body plus illumination).
const lookupsPerSnapshot = 21

func (a *App) connectStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Cache.Store {
	case "redis":
		err := a.Recovery.ExecuteWithRetry(ctx, "redis_connect", func(ctx context.Context) error {
			redisClient, err := database.NewRedisConnection(cfg.Redis)
			if err != nil {
				return err
			}
			a.Redis = redisClient
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.Store = cache.NewRedisSnapshotStore(a.Redis.Client, cfg.Cache.PersistentExpiry())

	case "postgres":
		err := a.Recovery.ExecuteWithRetry(ctx, "database_connect", func(ctx context.Context) error {
			db, err := database.NewPostgresConnection(&cfg.Database)
			if err != nil {
				return err
			}
			a.Postgres = db
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Repository = database.NewSnapshotRepository(database.NewTracedDB(a.Postgres.Pool))
		err = a.Recovery.ExecuteWithRetry(ctx, "schema_migration", a.Repository.EnsureSchema)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot schema: %w", err)
		}
		a.Store = a.Repository

	default:
		a.Store = cache.NopSnapshotStore{}
	}
	return nil
}

// Close waits for pending persistent writes and releases connections.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Wait()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
