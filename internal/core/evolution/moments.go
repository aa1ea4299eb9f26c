package evolution

import (
	"fmt"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

// moments scans every segment. Segment i>0 is judged on the delta that led
// into it; segment 0 can only resolve on its own closure score
func (e *Engine) moments(segs []model.Segment, deltas []model.SegmentDelta) []model.CriticalMoment {
	var out []model.CriticalMoment
	for i, seg := range segs {
		var d intent.Delta
		if i > 0 {
			d = deltas[i-1].Delta
			if m, ok := e.escalation(i, seg, d); ok {
				out = append(out, m)
			}
			if m, ok := e.breakthrough(i, seg, d); ok {
				out = append(out, m)
			}
		} else {
			d = intent.Compare(e.schema, seg.Aggregate, seg.Aggregate)
		}
		if m, ok := e.resolution(i, seg, d); ok {
			out = append(out, m)
		}
	}
	return out
}

// spike returns the role dimension with the largest rise above cfg.Spike
func (e *Engine) spike(d intent.Delta, roles ...intent.Role) (intent.Dimension, float64, bool) {
	var (
		best intent.Dimension
		rise float64
	)
	for _, r := range roles {
		dim, ok := e.schema.ByRole(r)
		if !ok {
			continue
		}
		if c := d.Change(dim); c > e.cfg.Spike && c > rise {
			best, rise = dim, c
		}
	}
	return best, rise, best != ""
}

func (e *Engine) escalation(i int, seg model.Segment, d intent.Delta) (model.CriticalMoment, bool) {
	if dim, rise, ok := e.spike(d, intent.RoleResistance, intent.RoleUrgency); ok {
		reason := fmt.Sprintf("%s rose by %.2f to %.2f entering segment %d", dim, rise, seg.Aggregate.Score(dim), i)
		return e.moment(model.MomentEscalation, i, seg, d, rise, reason), true
	}
	if d.Directionality == intent.Degrading {
		reason := fmt.Sprintf("intent degraded entering segment %d (shift %.2f on %s)", i, d.Magnitude, primary(d))
		return e.moment(model.MomentEscalation, i, seg, d, d.Magnitude, reason), true
	}
	return model.CriticalMoment{}, false
}

func (e *Engine) breakthrough(i int, seg model.Segment, d intent.Delta) (model.CriticalMoment, bool) {
	if dim, rise, ok := e.spike(d, intent.RoleAlignment, intent.RoleClosure); ok {
		reason := fmt.Sprintf("%s rose by %.2f to %.2f entering segment %d", dim, rise, seg.Aggregate.Score(dim), i)
		return e.moment(model.MomentBreakthrough, i, seg, d, rise, reason), true
	}
	if d.Directionality == intent.Improving {
		reason := fmt.Sprintf("intent improved entering segment %d (shift %.2f on %s)", i, d.Magnitude, primary(d))
		return e.moment(model.MomentBreakthrough, i, seg, d, d.Magnitude, reason), true
	}
	return model.CriticalMoment{}, false
}

func (e *Engine) resolution(i int, seg model.Segment, d intent.Delta) (model.CriticalMoment, bool) {
	if closure, ok := e.schema.ByRole(intent.RoleClosure); ok {
		if c := seg.Aggregate.Score(closure); c >= e.cfg.ResolutionClosure {
			reason := fmt.Sprintf("%s reached %.2f in segment %d", closure, c, i)
			return e.moment(model.MomentResolution, i, seg, d, c, reason), true
		}
	}
	unc, okU := e.schema.ByRole(intent.RoleUncertainty)
	res, okR := e.schema.ByRole(intent.RoleResistance)
	if !okU || !okR || i == 0 {
		return model.CriticalMoment{}, false
	}
	du, dr := -d.Change(unc), -d.Change(res)
	if du > e.cfg.ResolutionDrop && dr > e.cfg.ResolutionDrop {
		reason := fmt.Sprintf("%s fell by %.2f and %s by %.2f entering segment %d", unc, du, res, dr, i)
		return e.moment(model.MomentResolution, i, seg, d, max(du, dr), reason), true
	}
	return model.CriticalMoment{}, false
}

func (e *Engine) moment(typ model.MomentType, i int, seg model.Segment, d intent.Delta, mag float64, reason string) model.CriticalMoment {
	return model.CriticalMoment{
		Type:         typ,
		SegmentID:    seg.ID,
		SegmentIndex: i,
		Timestamp:    seg.Start,
		Severity:     severity(mag),
		Reason:       reason,
		Snapshot:     seg.Aggregate,
		Delta:        d,
	}
}

func severity(mag float64) model.MomentSeverity {
	switch {
	case mag < 0.3:
		return model.MomentLow
	case mag < 0.5:
		return model.MomentMedium
	case mag < 0.7:
		return model.MomentHigh
	}
	return model.MomentCritical
}

func primary(d intent.Delta) string {
	if d.Primary == "" {
		return "no single dimension"
	}
	return string(d.Primary)
}
