package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OTLPConfig holds configuration for OpenTelemetry log export
type OTLPConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// OTLPHook forwards logrus entries to an OpenTelemetry logger.
type OTLPHook struct {
	logger   otellog.Logger
	shutdown func(context.Context) error
}

// NewOTLPHook creates an OTLP/HTTP log exporter and wraps it as a logrus hook.
func NewOTLPHook(config OTLPConfig) (*OTLPHook, error) {
	ctx := context.Background()

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(endpoint),
		otlploghttp.WithURLPath("/v1/logs"),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	return &OTLPHook{
		logger:   provider.Logger(config.ServiceName),
		shutdown: provider.Shutdown,
	}, nil
}

// NewOTLPHookWithLogger wraps an existing OpenTelemetry logger.
func NewOTLPHookWithLogger(logger otellog.Logger) *OTLPHook {
	return &OTLPHook{logger: logger}
}

// Levels implements logrus.Hook.
func (h *OTLPHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *OTLPHook) Fire(entry *logrus.Entry) error {
	attrs := make([]otellog.KeyValue, 0, len(entry.Data))
	for k, v := range entry.Data {
		attrs = append(attrs, otellog.String(k, fmt.Sprint(v)))
	}

	record := otellog.Record{}
	record.SetTimestamp(entry.Time)
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(convertLogrusLevelToSeverity(entry.Level))
	record.SetSeverityText(entry.Level.String())
	record.SetBody(otellog.StringValue(entry.Message))
	record.AddAttributes(attrs...)

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
	return nil
}

// Shutdown flushes and stops the exporter.
func (h *OTLPHook) Shutdown(ctx context.Context) error {
	if h.shutdown != nil {
		return h.shutdown(ctx)
	}
	return nil
}

func convertLogrusLevelToSeverity(level logrus.Level) otellog.Severity {
	switch level {
	case logrus.TraceLevel:
		return otellog.SeverityTrace
	case logrus.DebugLevel:
		return otellog.SeverityDebug
	case logrus.InfoLevel:
		return otellog.SeverityInfo
	case logrus.WarnLevel:
		return otellog.SeverityWarn
	case logrus.ErrorLevel:
		return otellog.SeverityError
	case logrus.FatalLevel, logrus.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}
