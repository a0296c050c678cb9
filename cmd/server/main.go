package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/astro-snapshot-go/internal/api"
	"github.com/irfndi/astro-snapshot-go/internal/api/handlers"
	"github.com/irfndi/astro-snapshot-go/internal/app"
	"github.com/irfndi/astro-snapshot-go/internal/config"
	"github.com/irfndi/astro-snapshot-go/internal/logging"
	"github.com/irfndi/astro-snapshot-go/internal/telemetry"
)

const analyticsReportInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = telemetry.ServiceName
	}

	if err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetry.Shutdown(); err != nil {
			logger.WithError(err).Warn("Failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled && cfg.Telemetry.ExportLogs {
		hook, err := logging.NewOTLPHook(logging.OTLPConfig{
			Endpoint:       otlpHost(cfg.Telemetry.OTLPEndpoint),
			ServiceName:    serviceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Environment,
		})
		if err != nil {
			logger.WithError(err).Warn("OTLP log export disabled")
		} else {
			logger.AddHook(hook)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = hook.Shutdown(ctx)
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Analytics.StartPeriodicReporting(ctx, analyticsReportInterval)

	if cfg.Cache.WarmOnStartup {
		go func() {
			// Warming failures are logged by the warmer; startup never waits on it.
			_, _ = a.Warmer.WarmUpcoming(ctx, time.Now().UTC(), cfg.Cache.WarmDaysAhead)
		}()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Cache:       a.Cache,
		Health:      healthDependencies(a),
		Logger:      logger,
		ServiceName: serviceName,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadDeadline(),
		WriteTimeout:      cfg.Server.WriteDeadline(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogStartup(logger, serviceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logging.LogShutdown(logger, serviceName, "signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownDeadline())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

// healthDependencies converts optional components to interface values,
// leaving absent ones as untyped nil so they report "disabled".
func healthDependencies(a *app.App) handlers.HealthDependencies {
	deps := handlers.HealthDependencies{
		System:  a.Optimizer,
		Version: a.Config.Telemetry.ServiceVersion,
	}
	if a.Postgres != nil {
		deps.Database = a.Postgres
	}
	if a.Redis != nil {
		deps.Redis = a.Redis
	}
	if a.EphemerisClient != nil {
		deps.Ephemeris = a.EphemerisClient
	}
	if a.Breaker != nil {
		deps.Breaker = a.Breaker
	}
	return deps
}

// otlpHost strips the scheme from the collector URL for the log exporter,
// which takes host:port.
func otlpHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}

