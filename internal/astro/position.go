// Package astro holds the pure, deterministic computations behind a transit
// snapshot: longitude normalization, motion classification, aspect matching,
// element/modality tallies and lunar phase resolution.
package astro

import (
	"math"

	"github.com/irfndi/astro-snapshot-go/internal/models"
)

// DefaultAyanamsa is the tropical-to-sidereal offset in degrees.
const DefaultAyanamsa = 24.1

const (
	fullCircle = 360.0
	signWidth  = 30.0
)

// NormalizeLongitude maps any finite longitude into [0,360).
func NormalizeLongitude(raw float64) float64 {
	lon := math.Mod(raw, fullCircle)
	if lon < 0 {
		lon += fullCircle
	}
	// A tiny negative input can round up to exactly 360 after the re-add.
	if lon >= fullCircle {
		lon = 0
	}
	return lon
}

// ApplyZodiacMode converts a raw tropical longitude for the given mode and
// normalizes it. Sidereal mode subtracts the ayanamsa first.
func ApplyZodiacMode(raw float64, mode models.ZodiacMode, ayanamsa float64) float64 {
	if mode == models.Sidereal {
		raw -= ayanamsa
	}
	return NormalizeLongitude(raw)
}

// SplitLongitude decomposes a normalized longitude into its sign index and
// the degree within that sign, so that sign*30 + degree == lon.
func SplitLongitude(lon float64) (models.ZodiacSign, float64) {
	degree := math.Mod(lon, signWidth)
	if degree < 0 {
		degree += signWidth
	}
	// lon-degree is an exact multiple of 30, so the division is exact too.
	index := int(math.Round((lon - degree) / signWidth))
	if index < 0 {
		index = 0
	}
	if index >= models.SignCount {
		index = models.SignCount - 1
	}
	return models.ZodiacSign(index), degree
}

// Place builds the positional part of a BodyPosition from a raw longitude.
func Place(body models.Body, raw float64, mode models.ZodiacMode, ayanamsa float64) models.BodyPosition {
	lon := ApplyZodiacMode(raw, mode, ayanamsa)
	sign, degree := SplitLongitude(lon)
	return models.BodyPosition{
		Body:         body,
		Longitude:    lon,
		Sign:         sign,
		SignIndex:    int(sign),
		DegreeInSign: degree,
	}
}
