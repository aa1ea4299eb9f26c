package evolution

import (
	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

// healthScore weighs mean alignment, mean resistance, how the polar
// dimensions trend and the breakthrough share of escalation events
//
//	0.35*alignment + 0.35*(1-resistance) + 0.2*trend + 0.1*ratio
func (e *Engine) healthScore(segs []model.Segment, tl model.Timeline) float64 {
	var align, resist float64
	for _, s := range segs {
		align += intent.RoleScore(e.schema, s.Aggregate, intent.RoleAlignment)
		resist += intent.RoleScore(e.schema, s.Aggregate, intent.RoleResistance)
	}
	if n := float64(len(segs)); n > 0 {
		align /= n
		resist /= n
	}

	score := 0.35*align + 0.35*(1-resist) + 0.2*e.trendScore(tl.Trends) + 0.1*ratioScore(tl.Escalations, tl.Breakthroughs)
	return intent.Clamp01(score)
}

// trendScore maps net favourable trends of polar dimensions onto [0,1];
// 0.5 means no net movement
func (e *Engine) trendScore(trends map[intent.Dimension]model.Trend) float64 {
	var net, polar float64
	for _, sp := range e.schema.Specs() {
		if sp.Polarity == intent.Neutral {
			continue
		}
		polar++
		p := float64(sp.Polarity)
		switch trends[sp.Dimension] {
		case model.TrendIncreasing:
			net += p
		case model.TrendDecreasing:
			net -= p
		case model.TrendVolatile:
			net -= 0.5
		}
	}
	if polar == 0 {
		return 0.5
	}
	return intent.Clamp01(0.5 + 0.5*net/polar)
}

// ratioScore is the breakthrough share of escalation and breakthrough
// moments, 0.5 when there are none
func ratioScore(escalations, breakthroughs int) float64 {
	total := escalations + breakthroughs
	if total == 0 {
		return 0.5
	}
	return float64(breakthroughs) / float64(total)
}

func (e *Engine) verdict(score float64) model.Health {
	switch {
	case score >= e.cfg.Excellent:
		return model.HealthExcellent
	case score >= e.cfg.Healthy:
		return model.HealthHealthy
	case score >= e.cfg.Concerning:
		return model.HealthConcerning
	}
	return model.HealthCritical
}
