package ephemeris

import (
	"context"
	"fmt"
	"math"

	"github.com/irfndi/astro-snapshot-go/internal/models"
)

// orbit holds circular-orbit elements referred to J2000.0.
type orbit struct {
	meanLongitude float64 // degrees at J2000
	dailyMotion   float64 // degrees per day
	radius        float64 // AU
}

var (
	earthOrbit = orbit{100.466457, 0.985609114, 1.000001}

	planetOrbits = map[models.Body]orbit{
		models.Mercury: {252.250906, 4.092338796, 0.387098},
		models.Venus:   {181.979801, 1.602130474, 0.723330},
		models.Mars:    {355.433000, 0.524032952, 1.523679},
		models.Jupiter: {34.351519, 0.083091189, 5.202603},
		models.Saturn:  {50.077444, 0.033459652, 9.554909},
		models.Uranus:  {314.055005, 0.011731102, 19.218446},
		models.Neptune: {304.348665, 0.005981028, 30.110387},
		models.Pluto:   {238.928810, 0.003968789, 39.482117},
	}
)

const (
	moonMeanLongitude = 218.3164477
	moonDailyMotion   = 13.17639648
)

// CircularOrbitProvider is a low-precision built-in ephemeris. Planets move
// on circular coplanar heliocentric orbits and are projected onto the Earth,
// which is enough to reproduce retrograde loops. The Moon moves at its mean
// rate. Results are accurate to a few degrees and depend only on the inputs.
type CircularOrbitProvider struct{}

// NewCircularOrbitProvider creates the built-in provider.
func NewCircularOrbitProvider() *CircularOrbitProvider {
	return &CircularOrbitProvider{}
}

func (p *CircularOrbitProvider) Name() string {
	return "circular"
}

func (p *CircularOrbitProvider) Longitude(ctx context.Context, body models.Body, at Instant) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d := at.DaysSinceJ2000()

	switch body {
	case models.Sun:
		return earthOrbit.longitude(d) + 180, nil
	case models.Moon:
		return moonMeanLongitude + moonDailyMotion*d, nil
	}

	o, ok := planetOrbits[body]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedBody, body)
	}
	px, py := o.position(d)
	ex, ey := earthOrbit.position(d)
	return degrees(math.Atan2(py-ey, px-ex)), nil
}

// Illumination uses the Sun-Moon elongation: (1 - cos e) / 2.
func (p *CircularOrbitProvider) Illumination(ctx context.Context, at Instant) (float64, error) {
	sun, err := p.Longitude(ctx, models.Sun, at)
	if err != nil {
		return 0, err
	}
	moon, err := p.Longitude(ctx, models.Moon, at)
	if err != nil {
		return 0, err
	}
	return (1 - math.Cos(radians(moon-sun))) / 2, nil
}

func (o orbit) longitude(days float64) float64 {
	return o.meanLongitude + o.dailyMotion*days
}

func (o orbit) position(days float64) (x, y float64) {
	l := radians(o.longitude(days))
	return o.radius * math.Cos(l), o.radius * math.Sin(l)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
