package ephemeris

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/config"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// HTTPClient talks to the ephemeris sidecar service.
type HTTPClient struct {
	HTTPClient *http.Client
	baseURL    string
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewHTTPClient creates a client for cfg.ServiceURL. cfg.Timeout is the
// transport timeout in seconds; per-call deadlines come from the caller's
// context.
func NewHTTPClient(cfg *config.EphemerisConfig, logger *logrus.Logger) *HTTPClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}

	client := &HTTPClient{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout:    timeout,
		logger:     logger,
	}
	logger.WithField("base_url", client.baseURL).Info("Ephemeris client initialized")
	return client
}

func (c *HTTPClient) Name() string {
	return "http"
}

// BaseURL returns the sidecar base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Longitude fetches the raw tropical longitude of body at the instant.
func (c *HTTPClient) Longitude(ctx context.Context, body models.Body, at Instant) (float64, error) {
	if !body.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedBody, body)
	}
	params := url.Values{}
	params.Set("body", string(body))
	params.Set("jd", formatJD(at))

	var response LongitudeResponse
	if err := c.makeRequest(ctx, "/api/v1/longitude?"+params.Encode(), &response); err != nil {
		return 0, fmt.Errorf("longitude %s at jd %s: %w", body, formatJD(at), err)
	}
	if math.IsNaN(response.Longitude) || math.IsInf(response.Longitude, 0) {
		return 0, fmt.Errorf("longitude %s at jd %s: non-finite value", body, formatJD(at))
	}
	return response.Longitude, nil
}

// Illumination fetches the Moon's illuminated fraction at the instant.
func (c *HTTPClient) Illumination(ctx context.Context, at Instant) (float64, error) {
	params := url.Values{}
	params.Set("jd", formatJD(at))

	var response IlluminationResponse
	if err := c.makeRequest(ctx, "/api/v1/illumination?"+params.Encode(), &response); err != nil {
		return 0, fmt.Errorf("illumination at jd %s: %w", formatJD(at), err)
	}
	if math.IsNaN(response.Illumination) || response.Illumination < 0 || response.Illumination > 1 {
		return 0, fmt.Errorf("illumination at jd %s: value %v outside [0,1]", formatJD(at), response.Illumination)
	}
	return response.Illumination, nil
}

// HealthCheck checks if the ephemeris service is healthy.
func (c *HTTPClient) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	if err := c.makeRequest(ctx, "/health", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *HTTPClient) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Astro-Snapshot-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("ephemeris service error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("ephemeris service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func formatJD(at Instant) string {
	return strconv.FormatFloat(float64(at), 'f', 6, 64)
}
