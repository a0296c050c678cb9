package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Ephemeris   EphemerisConfig `mapstructure:"ephemeris"`
	Astro       AstroConfig     `mapstructure:"astro"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EphemerisConfig selects and tunes the ephemeris provider.
type EphemerisConfig struct {
	// Provider is "http" for the ephemeris sidecar or "circular" for the
	// built-in low-precision model.
	Provider    string `mapstructure:"provider"`
	ServiceURL  string `mapstructure:"service_url"`
	Timeout     int    `mapstructure:"timeout"`
	CallTimeout string `mapstructure:"call_timeout"`
	Concurrency int    `mapstructure:"concurrency"`
	// Breaker settings guard the sidecar so a dead service fails fast.
	BreakerFailureThreshold int    `mapstructure:"breaker_failure_threshold"`
	BreakerOpenTimeout      string `mapstructure:"breaker_open_timeout"`
}

type AstroConfig struct {
	Ayanamsa        float64 `mapstructure:"ayanamsa"`
	WrapAwareMotion bool    `mapstructure:"wrap_aware_motion"`
}

type CacheConfig struct {
	// Store is "redis", "postgres" or "none".
	Store          string `mapstructure:"store"`
	Freshness      string `mapstructure:"freshness"`
	PersistentTTL  string `mapstructure:"persistent_ttl"`
	WriteTimeout   string `mapstructure:"write_timeout"`
	SingleFlight   bool   `mapstructure:"single_flight"`
	WarmOnStartup  bool   `mapstructure:"warm_on_startup"`
	WarmDaysAhead  int    `mapstructure:"warm_days_ahead"`
	WarmConcurrent int    `mapstructure:"warm_concurrency"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Exporter       string `mapstructure:"exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ExportLogs     bool   `mapstructure:"export_logs"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// FreshnessWindow returns the parsed in-process cache freshness window.
func (c CacheConfig) FreshnessWindow() time.Duration {
	return parseDurationOr(c.Freshness, time.Hour)
}

// PersistentExpiry returns the persistent tier TTL; zero means no expiry.
func (c CacheConfig) PersistentExpiry() time.Duration {
	return parseDurationOr(c.PersistentTTL, 0)
}

// WriteDeadline bounds asynchronous persistent writes.
func (c CacheConfig) WriteDeadline() time.Duration {
	return parseDurationOr(c.WriteTimeout, 5*time.Second)
}

// LookupTimeout bounds a single ephemeris call.
func (c EphemerisConfig) LookupTimeout() time.Duration {
	return parseDurationOr(c.CallTimeout, 5*time.Second)
}

// BreakerTimeout is how long the breaker stays open before probing again.
func (c EphemerisConfig) BreakerTimeout() time.Duration {
	return parseDurationOr(c.BreakerOpenTimeout, 30*time.Second)
}

func (s ServerConfig) ReadDeadline() time.Duration {
	return parseDurationOr(s.ReadTimeout, 10*time.Second)
}

func (s ServerConfig) WriteDeadline() time.Duration {
	return parseDurationOr(s.WriteTimeout, 30*time.Second)
}

func (s ServerConfig) ShutdownDeadline() time.Duration {
	return parseDurationOr(s.ShutdownTimeout, 30*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ephemeris.service_url", "EPHEMERIS_SERVICE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind EPHEMERIS_SERVICE_URL environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Ephemeris.Provider = strings.ToLower(config.Ephemeris.Provider)
	config.Cache.Store = strings.ToLower(config.Cache.Store)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks enum values and duration strings.
func (c *Config) Validate() error {
	switch c.Ephemeris.Provider {
	case "http":
		if c.Ephemeris.ServiceURL == "" {
			return errors.New("ephemeris.service_url is required when ephemeris.provider is http")
		}
	case "circular":
	default:
		return fmt.Errorf("unsupported ephemeris provider %q", c.Ephemeris.Provider)
	}

	switch c.Cache.Store {
	case "redis", "postgres", "none":
	default:
		return fmt.Errorf("unsupported cache store %q", c.Cache.Store)
	}

	durations := map[string]string{
		"cache.freshness":                c.Cache.Freshness,
		"cache.persistent_ttl":           c.Cache.PersistentTTL,
		"cache.write_timeout":            c.Cache.WriteTimeout,
		"ephemeris.call_timeout":         c.Ephemeris.CallTimeout,
		"ephemeris.breaker_open_timeout": c.Ephemeris.BreakerOpenTimeout,
		"server.read_timeout":            c.Server.ReadTimeout,
		"server.write_timeout":           c.Server.WriteTimeout,
		"server.shutdown_timeout":        c.Server.ShutdownTimeout,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s duration: %w", name, err)
		}
	}

	if c.Cache.FreshnessWindow() <= 0 {
		return errors.New("cache.freshness must be positive")
	}
	if c.Astro.Ayanamsa < 0 || c.Astro.Ayanamsa >= 360 {
		return fmt.Errorf("astro.ayanamsa must be in [0,360), got %v", c.Astro.Ayanamsa)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "astro_snapshot")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", "300s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Ephemeris
	viper.SetDefault("ephemeris.provider", "circular")
	viper.SetDefault("ephemeris.service_url", "")
	viper.SetDefault("ephemeris.timeout", 10)
	viper.SetDefault("ephemeris.call_timeout", "5s")
	viper.SetDefault("ephemeris.concurrency", 8)
	viper.SetDefault("ephemeris.breaker_failure_threshold", 5)
	viper.SetDefault("ephemeris.breaker_open_timeout", "30s")

	// Astro
	viper.SetDefault("astro.ayanamsa", 24.1)
	viper.SetDefault("astro.wrap_aware_motion", false)

	// Cache
	viper.SetDefault("cache.store", "redis")
	viper.SetDefault("cache.freshness", "1h")
	viper.SetDefault("cache.persistent_ttl", "0s")
	viper.SetDefault("cache.write_timeout", "5s")
	viper.SetDefault("cache.single_flight", false)
	viper.SetDefault("cache.warm_on_startup", true)
	viper.SetDefault("cache.warm_days_ahead", 0)
	viper.SetDefault("cache.warm_concurrency", 4)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	viper.SetDefault("telemetry.export_logs", false)
	viper.SetDefault("telemetry.service_name", "astro-snapshot-go")
	viper.SetDefault("telemetry.service_version", "1.0.0")
}
