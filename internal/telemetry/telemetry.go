package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Service information
	ServiceName    = "astro-snapshot-go"
	ServiceVersion = "1.0.0"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	Exporter       string // "otlp" or "stdout"
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRate     float64
	BatchTimeout   time.Duration
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:        true,
		Exporter:       "otlp",
		OTLPEndpoint:   "http://localhost:4318",
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
	}
}

var (
	mu             sync.Mutex
	globalProvider *sdktrace.TracerProvider
)

// InitTelemetry installs the global tracer provider. A disabled config
// leaves the no-op provider in place.
func InitTelemetry(config TelemetryConfig) error {
	if !config.Enabled {
		return nil
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, config)
	if err != nil {
		return err
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = ServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	sampleRate := config.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	batchTimeout := config.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	mu.Lock()
	globalProvider = provider
	mu.Unlock()
	return nil
}

func newExporter(ctx context.Context, config TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(config.Exporter) {
	case "stdout", "console":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	default:
		hostport, urlPath, insecure, _, err := normalizeOTLPEndpoint(config.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid OTLPEndpoint: %w", err)
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(urlPath),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exporter, nil
	}
}

// normalizeOTLPEndpoint splits a collector base URL into the host:port and
// trace path the exporter expects.
func normalizeOTLPEndpoint(endpoint string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", false, "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", false, "", fmt.Errorf("endpoint %q must include scheme and host", endpoint)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, "/v1/traces") {
		path += "/v1/traces"
	}
	insecure = u.Scheme == "http"
	resolved = u.Scheme + "://" + u.Host + path
	return u.Host, path, insecure, resolved, nil
}

// Shutdown flushes and stops the global tracer provider, if any.
func Shutdown() error {
	mu.Lock()
	provider := globalProvider
	globalProvider = nil
	mu.Unlock()

	if provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return provider.Shutdown(ctx)
}

// GetTracer returns a named tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func GetHTTPTracer() trace.Tracer {
	return GetTracer(ServiceName + "/http")
}

func GetCacheTracer() trace.Tracer {
	return GetTracer(ServiceName + "/cache")
}

func GetExternalTracer() trace.Tracer {
	return GetTracer(ServiceName + "/external")
}

func GetSnapshotTracer() trace.Tracer {
	return GetTracer(ServiceName + "/snapshot")
}

// StartSpan starts a span on the given tracer.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordError marks the span failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanStatus(span trace.Span, code codes.Code, description string) {
	span.SetStatus(code, description)
}

func StringAttribute(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func Int64Attribute(key string, value int64) attribute.KeyValue {
	return attribute.Int64(key, value)
}

func BoolAttribute(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}
