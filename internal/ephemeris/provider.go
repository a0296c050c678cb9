// Package ephemeris supplies raw geocentric ecliptic longitudes and lunar
// illumination for the tracked bodies.
package ephemeris

import (
	"context"
	"errors"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/models"
)

// ErrUnsupportedBody is returned when a provider cannot compute a body.
var ErrUnsupportedBody = errors.New("ephemeris: unsupported body")

// J2000 is the Julian day of the J2000.0 epoch.
const J2000 Instant = 2451545.0

const unixEpochJD = 2440587.5

// Instant is a point in time expressed as a Julian day number.
type Instant float64

// InstantFromDate returns the instant at 0h UT of the calendar date of t.
func InstantFromDate(t time.Time) Instant {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Instant(float64(midnight.Unix())/86400.0 + unixEpochJD)
}

// PreviousDay returns the instant exactly one day earlier.
func (i Instant) PreviousDay() Instant {
	return i - 1.0
}

// DaysSinceJ2000 returns the signed number of days since J2000.0.
func (i Instant) DaysSinceJ2000() float64 {
	return float64(i - J2000)
}

// Provider defines the interface for ephemeris data sources.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// Longitude returns the raw, unnormalized tropical ecliptic longitude in
	// degrees of body at the instant.
	Longitude(ctx context.Context, body models.Body, at Instant) (float64, error)

	// Illumination returns the illuminated fraction of the Moon in [0,1].
	Illumination(ctx context.Context, at Instant) (float64, error)
}
