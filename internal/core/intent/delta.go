package intent

import "math"

// Directionality classifies the overall movement of a delta
type Directionality string

const (
	Improving Directionality = "improving"
	Degrading Directionality = "degrading"
	Stable    Directionality = "stable"
	Volatile  Directionality = "volatile"
)

const (
	// StableFloor is the magnitude below which a delta is stable
	StableFloor = 0.1
	// VolatileVariance is the cross-dimension variance marking mixed movement
	VolatileVariance = 0.04
)

// Delta is the signed per-dimension change between two vectors
type Delta struct {
	Changes        map[Dimension]float64 `json:"changes"`
	Primary        Dimension             `json:"primary_shift,omitempty"`
	Magnitude      float64               `json:"shift_magnitude"`
	Directionality Directionality        `json:"directionality"`
}

// Change returns the signed change for d
func (d Delta) Change(dim Dimension) float64 {
	if d.Changes == nil {
		return 0
	}
	return d.Changes[dim]
}

// Compare computes to minus from over the schema
func Compare(s Schema, from, to Vector) Delta {
	changes := make(map[Dimension]float64, s.Len())
	var (
		primary Dimension
		mag     float64
	)
	for _, sp := range s.specs {
		c := to.Score(sp.Dimension) - from.Score(sp.Dimension)
		changes[sp.Dimension] = c
		if a := math.Abs(c); a > mag {
			mag = a
			primary = sp.Dimension
		}
	}
	if mag <= NoiseFloor {
		primary = ""
	}
	d := Delta{Changes: changes, Primary: primary, Magnitude: mag}
	d.Directionality = direction(s, changes, mag)
	return d
}

func direction(s Schema, changes map[Dimension]float64, mag float64) Directionality {
	if mag < StableFloor {
		return Stable
	}
	vals := make([]float64, 0, s.Len())
	var better, worse bool
	var net float64
	for _, sp := range s.specs {
		c := changes[sp.Dimension]
		vals = append(vals, c)
		pc := float64(sp.Polarity) * c
		if pc > NoiseFloor {
			better = true
		}
		if pc < -NoiseFloor {
			worse = true
		}
		net += pc
	}
	// volatile only when movements pull in opposite directions
	if better && worse && Variance(vals) > VolatileVariance {
		return Volatile
	}
	switch {
	case net > 0:
		return Improving
	case net < 0:
		return Degrading
	}
	return Stable
}

// Variance is the population variance of xs
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := MeanOf(xs)
	var acc float64
	for _, x := range xs {
		acc += (x - m) * (x - m)
	}
	return acc / float64(len(xs))
}

// MeanOf is the arithmetic mean of xs, 0 when empty
func MeanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
