package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	header := w.Header().Get(RequestIDHeader)
	assert.Equal(t, seen, header)
	_, err := uuid.Parse(header)
	assert.NoError(t, err)
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_LogsRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/api/v1/snapshot/:date", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot/nope", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/snapshot/:date", entry["path"])
	assert.Equal(t, float64(http.StatusBadRequest), entry["status"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), entry["request_id"])
}

func TestTelemetryMiddleware_PassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(TelemetryMiddleware("test-service"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/traced", func(c *gin.Context) {
		AddSpanAttribute(c, "custom", 42)
		RecordError(c, errors.New("boom"), "failed")
		c.Status(http.StatusAccepted)
	})

	for path, status := range map[string]int{"/health": http.StatusOK, "/traced": http.StatusAccepted} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}
