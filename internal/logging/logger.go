package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the JSON logrus logger shared by services and handlers.
// Development environments get a text formatter for readability.
func NewLogger(logLevel string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(ParseLogrusLevel(logLevel))
	if strings.EqualFold(environment, "development") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithComponent creates a logger entry with component context
func WithComponent(logger *logrus.Logger, componentName string) *logrus.Entry {
	return logger.WithField("component", componentName)
}

// LogCacheOperation logs cache operations in a standardized format
func LogCacheOperation(logger *logrus.Logger, operation string, key string, tier string, hit bool, durationMs int64) {
	logger.WithFields(logrus.Fields{
		"operation":   operation,
		"key":         key,
		"tier":        tier,
		"hit":         hit,
		"duration_ms": durationMs,
		"event":       "cache",
	}).Debug("Cache operation")
}

// LogAPIRequest logs API requests in a standardized format
func LogAPIRequest(logger *logrus.Logger, method string, path string, statusCode int, durationMs int64, requestID string) {
	entry := logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      statusCode,
		"duration_ms": durationMs,
		"request_id":  requestID,
		"event":       "api",
	})
	if statusCode >= 500 {
		entry.Error("API request")
		return
	}
	entry.Info("API request")
}

// LogStartup logs application startup information
func LogStartup(logger *logrus.Logger, serviceName string, version string, port int) {
	logger.WithFields(logrus.Fields{
		"service": serviceName,
		"version": version,
		"port":    port,
		"event":   "startup",
	}).Info("Application startup")
}

// LogShutdown logs application shutdown information
func LogShutdown(logger *logrus.Logger, serviceName string, reason string) {
	logger.WithFields(logrus.Fields{
		"service": serviceName,
		"reason":  reason,
		"event":   "shutdown",
	}).Info("Application shutdown")
}
