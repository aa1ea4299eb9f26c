// Package evolution tracks how intent moves across segments: consecutive
// deltas, critical moments, per-dimension trends and an overall health
// verdict. It is a pure function of the segment list.
package evolution

import (
	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

// Config holds the moment, trend and health thresholds
type Config struct {
	// Spike is the single-dimension rise that marks escalation or breakthrough
	Spike float64
	// ResolutionClosure is the segment closure score that counts as resolved
	ResolutionClosure float64
	// ResolutionDrop is how far uncertainty and resistance must both fall
	ResolutionDrop float64

	// TrendThreshold is the half-over-half mean change that counts as a trend
	TrendThreshold float64
	// VolatileStdDev is the step std-dev above which a series may be volatile
	VolatileStdDev float64

	Excellent  float64
	Healthy    float64
	Concerning float64
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		Spike:             0.25,
		ResolutionClosure: 0.4,
		ResolutionDrop:    0.2,
		TrendThreshold:    0.05,
		VolatileStdDev:    0.15,
		Excellent:         0.7,
		Healthy:           0.55,
		Concerning:        0.4,
	}
}

// Normalize fills unset values and keeps health cut points ordered
func (c Config) Normalize() Config {
	d := DefaultConfig()
	unit := func(v *float64, def float64) {
		if *v <= 0 || *v > 1 {
			*v = def
		}
	}
	unit(&c.Spike, d.Spike)
	unit(&c.ResolutionClosure, d.ResolutionClosure)
	unit(&c.ResolutionDrop, d.ResolutionDrop)
	unit(&c.TrendThreshold, d.TrendThreshold)
	unit(&c.VolatileStdDev, d.VolatileStdDev)
	unit(&c.Excellent, d.Excellent)
	unit(&c.Healthy, d.Healthy)
	unit(&c.Concerning, d.Concerning)
	if !(c.Concerning < c.Healthy && c.Healthy < c.Excellent) {
		c.Excellent, c.Healthy, c.Concerning = d.Excellent, d.Healthy, d.Concerning
	}
	return c
}

// Engine computes timelines for one schema
type Engine struct {
	schema intent.Schema
	cfg    Config
}

// New returns an Engine; cfg is normalized
func New(schema intent.Schema, cfg Config) *Engine {
	return &Engine{schema: schema, cfg: cfg.Normalize()}
}

// Evolve builds the timeline for segs, which must be in conversation order
func (e *Engine) Evolve(chatID string, segs []model.Segment) model.Timeline {
	tl := model.Timeline{
		ChatID: chatID,
		Deltas: make([]model.SegmentDelta, 0, max(0, len(segs)-1)),
	}
	for i := 1; i < len(segs); i++ {
		tl.Deltas = append(tl.Deltas, model.SegmentDelta{
			FromSegment: segs[i-1].ID,
			ToSegment:   segs[i].ID,
			Delta:       intent.Compare(e.schema, segs[i-1].Aggregate, segs[i].Aggregate),
		})
	}

	tl.Moments = e.moments(segs, tl.Deltas)
	for _, m := range tl.Moments {
		switch m.Type {
		case model.MomentEscalation:
			tl.Escalations++
		case model.MomentBreakthrough:
			tl.Breakthroughs++
		case model.MomentResolution:
			tl.Resolutions++
		}
	}

	tl.Trends = e.trends(segs)
	tl.Directionality = overall(tl.Deltas)
	tl.HealthScore = e.healthScore(segs, tl)
	tl.Health = e.verdict(tl.HealthScore)
	return tl
}

// overall is a majority vote over delta directionalities. More than half
// volatile makes the whole conversation volatile; ties settle as stable
func overall(deltas []model.SegmentDelta) intent.Directionality {
	if len(deltas) == 0 {
		return intent.Stable
	}
	counts := map[intent.Directionality]int{}
	for _, d := range deltas {
		counts[d.Directionality]++
	}
	if counts[intent.Volatile]*2 > len(deltas) {
		return intent.Volatile
	}
	imp, deg, st := counts[intent.Improving], counts[intent.Degrading], counts[intent.Stable]
	switch {
	case imp > deg && imp > st:
		return intent.Improving
	case deg > imp && deg > st:
		return intent.Degrading
	}
	return intent.Stable
}
