package evolution

import (
	"math"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

func (e *Engine) trends(segs []model.Segment) map[intent.Dimension]model.Trend {
	out := make(map[intent.Dimension]model.Trend, e.schema.Len())
	for _, d := range e.schema.Dimensions() {
		series := make([]float64, len(segs))
		for i, s := range segs {
			series[i] = s.Aggregate.Score(d)
		}
		out[d] = e.classify(series)
	}
	return out
}

// classify compares the mean of the second half of xs with the first half,
// skipping the middle element of odd series. A jumpy step series that keeps
// changing sign overrides the result as volatile
func (e *Engine) classify(xs []float64) model.Trend {
	if len(xs) < 2 {
		return model.TrendStable
	}
	steps := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		steps[i-1] = xs[i] - xs[i-1]
	}
	if math.Sqrt(intent.Variance(steps)) > e.cfg.VolatileStdDev && flips(steps) >= max(1, (len(steps)-1)/2) {
		return model.TrendVolatile
	}

	half := len(xs) / 2
	diff := intent.MeanOf(xs[len(xs)-half:]) - intent.MeanOf(xs[:half])
	switch {
	case diff > e.cfg.TrendThreshold:
		return model.TrendIncreasing
	case diff < -e.cfg.TrendThreshold:
		return model.TrendDecreasing
	}
	return model.TrendStable
}

// flips counts sign changes between consecutive non-negligible steps
func flips(steps []float64) int {
	n, last := 0, 0
	for _, s := range steps {
		sign := 0
		switch {
		case s > intent.NoiseFloor:
			sign = 1
		case s < -intent.NoiseFloor:
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if last != 0 && sign != last {
			n++
		}
		last = sign
	}
	return n
}
