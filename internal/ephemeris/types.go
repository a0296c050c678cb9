package ephemeris

// LongitudeResponse is returned by GET /api/v1/longitude.
type LongitudeResponse struct {
	Body      string  `json:"body,omitempty"`
	JulianDay float64 `json:"jd,omitempty"`
	Longitude float64 `json:"longitude"`
}

// IlluminationResponse is returned by GET /api/v1/illumination.
type IlluminationResponse struct {
	JulianDay    float64 `json:"jd,omitempty"`
	Illumination float64 `json:"illumination"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Status indicates service health (e.g., "ok").
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}

// ErrorResponse represents an error response from the ephemeris service.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
