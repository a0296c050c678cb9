package astro

import (
	"math"

	"github.com/irfndi/astro-snapshot-go/internal/models"
)

// AspectDefinition is one row of the aspect table.
type AspectDefinition struct {
	Kind      string
	Angle     float64
	Orb       float64
	Influence string
}

// Matches reports whether the separation falls inside the orb window,
// inclusive at both edges.
func (d AspectDefinition) Matches(separation float64) bool {
	return math.Abs(separation-d.Angle) <= d.Orb
}

// AspectTable is ordered; the first matching row wins. Major aspects come
// first, so a separation inside two windows resolves to the earlier row.
var AspectTable = []AspectDefinition{
	{Kind: "conjunction", Angle: 0, Orb: 8, Influence: "intensifying"},
	{Kind: "opposition", Angle: 180, Orb: 8, Influence: "challenging"},
	{Kind: "trine", Angle: 120, Orb: 8, Influence: "harmonious"},
	{Kind: "square", Angle: 90, Orb: 8, Influence: "tense"},
	{Kind: "sextile", Angle: 60, Orb: 6, Influence: "supportive"},
	{Kind: "semisextile", Angle: 30, Orb: 3, Influence: "mildly supportive"},
	{Kind: "quincunx", Angle: 150, Orb: 3, Influence: "adjusting"},
	{Kind: "semisquare", Angle: 45, Orb: 3, Influence: "mildly tense"},
	{Kind: "sesquiquadrate", Angle: 135, Orb: 3, Influence: "mildly tense"},
}

// Separation returns the minimum angular distance between two longitudes,
// always in [0,180].
func Separation(a, b float64) float64 {
	delta := math.Abs(a - b)
	if delta > 180 {
		delta = fullCircle - delta
	}
	return delta
}

// MatchAspect walks the table in order and returns the first definition
// whose window contains the separation.
func MatchAspect(separation float64) (AspectDefinition, bool) {
	for _, def := range AspectTable {
		if def.Matches(separation) {
			return def, true
		}
	}
	return AspectDefinition{}, false
}

// DetectAspects enumerates every unordered body pair in canonical order and
// returns at most one aspect per pair. Positions must contain every body.
func DetectAspects(positions map[models.Body]models.BodyPosition) []models.Aspect {
	aspects := make([]models.Aspect, 0)
	for i := 0; i < len(models.Bodies); i++ {
		a := mustPosition(positions, models.Bodies[i])
		for j := i + 1; j < len(models.Bodies); j++ {
			b := mustPosition(positions, models.Bodies[j])

			sep := Separation(a.Longitude, b.Longitude)
			def, ok := MatchAspect(sep)
			if !ok {
				continue
			}
			aspects = append(aspects, models.Aspect{
				BodyA:          a.Body,
				BodyB:          b.Body,
				SeparationDeg:  sep,
				Kind:           def.Kind,
				AngleDeg:       def.Angle,
				OrbDeg:         def.Orb,
				DeviationDeg:   math.Abs(sep - def.Angle),
				InfluenceLabel: def.Influence,
			})
		}
	}
	return aspects
}

func mustPosition(positions map[models.Body]models.BodyPosition, body models.Body) models.BodyPosition {
	pos, ok := positions[body]
	if !ok {
		panic("astro: position missing for body " + string(body))
	}
	return pos
}
