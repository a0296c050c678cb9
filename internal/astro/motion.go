package astro

// Motion is the finite-difference speed of a body over one day.
type Motion struct {
	SpeedDegPerDay float64
	Retrograde     bool
}

// ClassifyMotion compares raw longitudes at T-1 day and T. The speed is the
// plain signed difference, which misreads a crossing of the 0/360 boundary
// as a large retrograde (or direct) jump. With wrapAware set the difference
// is folded into (-180,180] instead.
func ClassifyMotion(prevRaw, currRaw float64, wrapAware bool) Motion {
	speed := currRaw - prevRaw
	if wrapAware {
		speed = foldDelta(speed)
	}
	return Motion{
		SpeedDegPerDay: speed,
		Retrograde:     speed < 0,
	}
}

func foldDelta(d float64) float64 {
	d = NormalizeLongitude(d)
	if d > 180 {
		d -= fullCircle
	}
	return d
}
