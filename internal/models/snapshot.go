package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used for snapshot keys.
const DateLayout = "2006-01-02"

// BodyPosition represents a body's placement at the snapshot instant.
type BodyPosition struct {
	Body Body `json:"body"`
	// Longitude is the normalized ecliptic longitude in [0,360).
	Longitude float64 `json:"longitude"`
	Sign      ZodiacSign `json:"sign"`
	SignIndex int        `json:"sign_index"`
	// DegreeInSign is the longitude within the sign, in [0,30).
	DegreeInSign   float64 `json:"degree_in_sign"`
	Retrograde     bool    `json:"retrograde"`
	SpeedDegPerDay float64 `json:"speed_deg_per_day"`
	// Degraded is set when the ephemeris provider failed for this body and
	// some or all fields hold documented defaults.
	Degraded bool `json:"degraded"`
}

// DefaultPosition is substituted when no longitude is available for a body.
func DefaultPosition(body Body) BodyPosition {
	return BodyPosition{
		Body:      body,
		Sign:      Aries,
		SignIndex: int(Aries),
		Degraded:  true,
	}
}

// Aspect is a matched geometric relationship between two bodies.
type Aspect struct {
	BodyA          Body    `json:"body_a"`
	BodyB          Body    `json:"body_b"`
	SeparationDeg  float64 `json:"separation_deg"`
	Kind           string  `json:"aspect"`
	AngleDeg       float64 `json:"angle_deg"`
	OrbDeg         float64 `json:"orb_deg"`
	DeviationDeg   float64 `json:"deviation_deg"`
	InfluenceLabel string  `json:"influence"`
}

// Involves reports whether the aspect links the given body.
func (a Aspect) Involves(b Body) bool {
	return a.BodyA == b || a.BodyB == b
}

// Tally holds weighted counts and rounded percentages per category.
// Percentages are rounded independently and may sum to 99-101.
type Tally struct {
	Counts      map[string]int `json:"counts"`
	Percentages map[string]int `json:"percentages"`
	Total       int            `json:"total"`
}

// LunarPhase describes the Moon's phase at the snapshot instant.
type LunarPhase struct {
	Illumination  float64 `json:"illumination"`
	PhaseAngleDeg float64 `json:"phase_angle_deg"`
	// PhaseFraction is PhaseAngleDeg/360: 0 new, 0.5 full.
	PhaseFraction float64 `json:"phase_fraction"`
	Name          string  `json:"phase_name"`
}

// Highlights is the compact daily summary consumed by scoring layers.
type Highlights struct {
	SunSign           ZodiacSign `json:"sun_sign"`
	MoonSign          ZodiacSign `json:"moon_sign"`
	MercuryRetrograde bool       `json:"mercury_retrograde"`
	// HeadlineAspects are Sun aspects to Mars, Jupiter and Saturn.
	HeadlineAspects []Aspect `json:"headline_aspects"`
}

// Snapshot is the immutable result of one computation for a (date, mode)
// key. It is shared read-only by all cache readers and never mutated after
// assembly.
type Snapshot struct {
	Date            string                `json:"date"`
	ZodiacMode      ZodiacMode            `json:"zodiac_mode"`
	AyanamsaApplied float64               `json:"ayanamsa_applied"`
	Positions       map[Body]BodyPosition `json:"positions"`
	Aspects         []Aspect              `json:"aspects"`
	ElementTally    Tally                 `json:"element_tally"`
	ModalityTally   Tally                 `json:"modality_tally"`
	LunarPhase      LunarPhase            `json:"lunar_phase"`
	Highlights      Highlights            `json:"highlights"`
	DegradedBodies  []Body                `json:"degraded_bodies"`
	Provider        string                `json:"provider"`
	ComputedAt      time.Time             `json:"computed_at"`
}

// Degraded reports whether any body fell back to defaults.
func (s *Snapshot) Degraded() bool {
	return len(s.DegradedBodies) > 0
}

// Validate checks the structural invariants of a snapshot.
func (s *Snapshot) Validate() error {
	if len(s.Positions) != len(Bodies) {
		return fmt.Errorf("snapshot has %d positions, want %d", len(s.Positions), len(Bodies))
	}
	for _, b := range Bodies {
		if _, ok := s.Positions[b]; !ok {
			return fmt.Errorf("snapshot is missing body %s", b)
		}
	}
	if s.ElementTally.Total != TotalWeight() || s.ModalityTally.Total != TotalWeight() {
		return fmt.Errorf("snapshot tallies do not sum to %d", TotalWeight())
	}
	return nil
}

// SnapshotKey identifies a cached snapshot.
type SnapshotKey struct {
	Date string
	Mode ZodiacMode
}

// NewSnapshotKey builds a key from a calendar date and mode.
func NewSnapshotKey(date time.Time, mode ZodiacMode) SnapshotKey {
	return SnapshotKey{Date: date.Format(DateLayout), Mode: mode}
}

// String returns the storage form "snapshot:<date>:<mode>".
func (k SnapshotKey) String() string {
	return "snapshot:" + k.Date + ":" + string(k.Mode)
}
