package astro

import "github.com/irfndi/astro-snapshot-go/internal/models"

// Lunar phase names.
const (
	PhaseNewMoon        = "New Moon"
	PhaseWaxingCrescent = "Waxing Crescent"
	PhaseFirstQuarter   = "First Quarter"
	PhaseWaxingGibbous  = "Waxing Gibbous"
	PhaseFullMoon       = "Full Moon"
	PhaseWaningGibbous  = "Waning Gibbous"
	PhaseLastQuarter    = "Last Quarter"
	PhaseWaningCrescent = "Waning Crescent"
	PhaseUnknown        = "Unknown"
)

// PhaseAngle returns (moon - sun) folded into [0,360).
func PhaseAngle(sunLon, moonLon float64) float64 {
	return NormalizeLongitude(moonLon - sunLon)
}

// ClassifyPhase names the phase for a Moon-Sun angle in [0,360).
//
// The rules are evaluated in order. The four exact phases are checked
// first and win over the general waxing/waning ranges they overlap: 175
// degrees is "Full Moon", not "Waxing Gibbous", and 85 degrees is "First
// Quarter", not "Waxing Crescent".
func ClassifyPhase(angle float64) string {
	switch {
	case angle < 10 || angle > 350:
		return PhaseNewMoon
	case angle > 80 && angle < 100:
		return PhaseFirstQuarter
	case angle > 170 && angle < 190:
		return PhaseFullMoon
	case angle > 260 && angle < 280:
		return PhaseLastQuarter
	case angle < 90:
		return PhaseWaxingCrescent
	case angle < 180:
		return PhaseWaxingGibbous
	case angle < 270:
		return PhaseWaningGibbous
	default:
		return PhaseWaningCrescent
	}
}

// ResolveLunarPhase builds the lunar phase from Sun and Moon longitudes and
// the Moon's illuminated fraction.
func ResolveLunarPhase(sunLon, moonLon, illumination float64) models.LunarPhase {
	angle := PhaseAngle(sunLon, moonLon)
	return models.LunarPhase{
		Illumination:  clamp01(illumination),
		PhaseAngleDeg: angle,
		PhaseFraction: angle / fullCircle,
		Name:          ClassifyPhase(angle),
	}
}

// UnknownLunarPhase is returned when an input is unavailable.
func UnknownLunarPhase() models.LunarPhase {
	return models.LunarPhase{
		Illumination:  0.5,
		PhaseAngleDeg: 0,
		PhaseFraction: 0,
		Name:          PhaseUnknown,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
