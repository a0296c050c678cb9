package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
)

type recordingLogger struct {
	embedded.Logger
	records []otellog.Record
}

func (r *recordingLogger) Emit(_ context.Context, record otellog.Record) {
	r.records = append(r.records, record)
}

func (r *recordingLogger) Enabled(context.Context, otellog.EnabledParameters) bool {
	return true
}

func TestParseLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogrusLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogrusLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogrusLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogrusLevel("verbose"))
}

func TestNewLogger_Formatter(t *testing.T) {
	dev := NewLogger("debug", "development")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLogger("info", "production")
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestLogCacheOperation(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	LogCacheOperation(logger, "get", "snapshot:2025-01-01:tropical", "memory", true, 3)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "Cache operation", entry.Message)
	assert.Equal(t, "memory", entry.Data["tier"])
	assert.Equal(t, true, entry.Data["hit"])
	assert.Equal(t, "cache", entry.Data["event"])
}

func TestLogAPIRequest_ServerErrorsLogAtErrorLevel(t *testing.T) {
	logger, hook := test.NewNullLogger()

	LogAPIRequest(logger, "GET", "/api/v1/snapshot", 200, 12, "req-1")
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	LogAPIRequest(logger, "GET", "/api/v1/snapshot", 503, 12, "req-2")
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "req-2", hook.LastEntry().Data["request_id"])
}

func TestOTLPHook_ForwardsEntries(t *testing.T) {
	recorder := &recordingLogger{}
	logger, _ := test.NewNullLogger()
	logger.AddHook(NewOTLPHookWithLogger(recorder))

	logger.WithField("date", "2025-06-21").Warn("ephemeris lookup failed")

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, "ephemeris lookup failed", record.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, record.Severity())
	assert.Equal(t, 1, record.AttributesLen())
}

func TestConvertLogrusLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, convertLogrusLevelToSeverity(logrus.DebugLevel))
	assert.Equal(t, otellog.SeverityError, convertLogrusLevelToSeverity(logrus.ErrorLevel))
	assert.Equal(t, otellog.SeverityFatal, convertLogrusLevelToSeverity(logrus.PanicLevel))
}
