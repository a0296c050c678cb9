package services

import (
	"context"

	"github.com/irfndi/astro-snapshot-go/internal/ephemeris"
	"github.com/irfndi/astro-snapshot-go/internal/models"
)

// BreakerProvider guards an ephemeris provider with a circuit breaker so a
// failing backend is rejected immediately instead of timing out per body.
type BreakerProvider struct {
	next    ephemeris.Provider
	breaker *CircuitBreaker
}

// NewBreakerProvider wraps next with breaker.
func NewBreakerProvider(next ephemeris.Provider, breaker *CircuitBreaker) *BreakerProvider {
	return &BreakerProvider{next: next, breaker: breaker}
}

func (p *BreakerProvider) Name() string {
	return p.next.Name()
}

// Breaker exposes the underlying breaker for health reporting.
func (p *BreakerProvider) Breaker() *CircuitBreaker {
	return p.breaker
}

func (p *BreakerProvider) Longitude(ctx context.Context, body models.Body, at ephemeris.Instant) (float64, error) {
	var lon float64
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		lon, err = p.next.Longitude(ctx, body, at)
		return err
	})
	return lon, err
}

func (p *BreakerProvider) Illumination(ctx context.Context, at ephemeris.Instant) (float64, error) {
	var illum float64
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		illum, err = p.next.Illumination(ctx, at)
		return err
	})
	return illum, err
}
