package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/astro-snapshot-go/internal/ephemeris"
	"github.com/irfndi/astro-snapshot-go/internal/services"
)

var startTime = time.Now()

// HealthChecker is implemented by the Redis and PostgreSQL clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EphemerisHealthChecker is implemented by the ephemeris sidecar client.
type EphemerisHealthChecker interface {
	HealthCheck(ctx context.Context) (*ephemeris.HealthResponse, error)
}

// BreakerReporter exposes circuit breaker statistics.
type BreakerReporter interface {
	GetStats() services.CircuitBreakerStats
}

// SystemReporter samples host resource usage.
type SystemReporter interface {
	Snapshot() services.SystemSnapshot
}

// HealthDependencies lists what the health check probes. Nil fields are
// reported as "disabled" and do not affect the overall status.
type HealthDependencies struct {
	Database  HealthChecker
	Redis     HealthChecker
	Ephemeris EphemerisHealthChecker
	Breaker   BreakerReporter
	System    SystemReporter
	Version   string
}

type HealthHandler struct {
	deps    HealthDependencies
	timeout time.Duration
}

type HealthResponse struct {
	Status    string                        `json:"status"`
	Timestamp time.Time                     `json:"timestamp"`
	Services  map[string]string             `json:"services"`
	Breaker   *services.CircuitBreakerStats `json:"circuit_breaker,omitempty"`
	System    *services.SystemSnapshot      `json:"system,omitempty"`
	Version   string                        `json:"version"`
	Uptime    string                        `json:"uptime"`
}

func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps, timeout: 5 * time.Second}
}

// HealthCheck reports dependency status; any unhealthy dependency makes the
// response 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	statuses := map[string]string{
		"database":  probe(ctx, h.deps.Database),
		"redis":     probe(ctx, h.deps.Redis),
		"ephemeris": h.probeEphemeris(ctx),
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  statuses,
		Version:   h.deps.Version,
		Uptime:    time.Since(startTime).String(),
	}
	for _, status := range statuses {
		if status != "healthy" && status != "disabled" {
			response.Status = "unhealthy"
			break
		}
	}
	if h.deps.Breaker != nil {
		stats := h.deps.Breaker.GetStats()
		response.Breaker = &stats
		if stats.State == services.Open.String() {
			response.Status = "degraded"
		}
	}
	if h.deps.System != nil {
		system := h.deps.System.Snapshot()
		response.System = &system
	}

	code := http.StatusOK
	if response.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

// LivenessCheck only reports that the process is serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func probe(ctx context.Context, checker HealthChecker) string {
	if checker == nil {
		return "disabled"
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

func (h *HealthHandler) probeEphemeris(ctx context.Context) string {
	if h.deps.Ephemeris == nil {
		return "disabled"
	}
	if _, err := h.deps.Ephemeris.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
