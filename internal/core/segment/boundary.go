package segment

import (
	"math"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

// span is a half-open message range [lo, hi) with the boundaries that
// opened and closed it
type span struct {
	lo, hi  int
	start   model.BoundaryType
	end     model.BoundaryType
	endConf float64
	merged  int
}

func (s span) size() int { return s.hi - s.lo }

type trigger struct {
	kind model.BoundaryType
	conf float64
}

// boundary evaluates msgs[i] against the open segment msgs[lo:i]. Triggers
// are checked in priority order and the first one wins
func (s *Segmenter) boundary(msgs []model.Message, lo, i int, group bool) (trigger, bool) {
	open := msgs[lo:i]
	in := msgs[i]

	thr := s.cfg.inactivity(group)
	if gap := in.Timestamp.Sub(msgs[i-1].Timestamp); gap >= thr {
		over := float64(gap)/float64(thr) - 1
		return trigger{model.BoundaryInactivity, intent.Clamp01(0.5 + 0.5*over)}, true
	}
	if t, ok := s.topicShift(open, in); ok {
		return t, true
	}
	if t, ok := s.reversal(open, in); ok {
		return t, true
	}
	if t, ok := s.dominanceFlip(open, in); ok {
		return t, true
	}
	if len(open) >= s.cfg.MaxSize {
		return trigger{model.BoundarySizeCap, 1}, true
	}
	return trigger{}, false
}

func (s *Segmenter) topicShift(open []model.Message, in model.Message) (trigger, bool) {
	if len(open) < s.cfg.TopicMinMessages {
		return trigger{}, false
	}
	incoming := tokenSet(in.Tokens)
	if len(incoming) < s.cfg.TopicMinTokens {
		return trigger{}, false
	}
	window := tokenSet(nil)
	for _, m := range open[max(0, len(open)-s.cfg.TopicWindow):] {
		for _, t := range m.Tokens {
			window[t] = struct{}{}
		}
	}
	if len(window) == 0 {
		return trigger{}, false
	}
	j := jaccard(incoming, window)
	if j >= s.cfg.TopicShift {
		return trigger{}, false
	}
	return trigger{model.BoundaryTopicShift, intent.Clamp01(1 - j/s.cfg.TopicShift)}, true
}

// reversal fires when the incoming message leans the opposite way from the
// open segment and moves some dimension far enough
func (s *Segmenter) reversal(open []model.Message, in model.Message) (trigger, bool) {
	agg := s.aggregate(open)
	v := in.Intent(s.schema)
	d := intent.Compare(s.schema, agg, v)
	if d.Magnitude <= s.cfg.ReversalMagnitude {
		return trigger{}, false
	}
	from, to := intent.Leaning(s.schema, agg), intent.Leaning(s.schema, v)
	if math.Abs(from) <= s.cfg.ReversalLeaning || math.Abs(to) <= s.cfg.ReversalLeaning {
		return trigger{}, false
	}
	if (from > 0) == (to > 0) {
		return trigger{}, false
	}
	return trigger{model.BoundaryIntentReversal, intent.Clamp01(d.Magnitude)}, true
}

// dominanceFlip fires when a weak majority speaker loses the floor: the
// incoming sender already owns the trailing DominanceRun messages
func (s *Segmenter) dominanceFlip(open []model.Message, in model.Message) (trigger, bool) {
	if len(open) < max(s.cfg.DominanceMinMessages, s.cfg.DominanceRun) {
		return trigger{}, false
	}
	dom, share := dominantSpeaker(open)
	if in.Sender == dom || share <= 0.5 || share >= s.cfg.DominanceThreshold {
		return trigger{}, false
	}
	for _, m := range open[len(open)-s.cfg.DominanceRun:] {
		if m.Sender != in.Sender {
			return trigger{}, false
		}
	}
	conf := (s.cfg.DominanceThreshold - share) / (s.cfg.DominanceThreshold - 0.5)
	return trigger{model.BoundaryDominanceFlip, intent.Clamp01(conf)}, true
}

// split is pass one: raw boundary-delimited spans
func (s *Segmenter) split(msgs []model.Message, group bool, check func(i int) error) ([]span, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	var out []span
	cur := span{lo: 0, start: model.BoundaryStart, merged: 1}
	for i := 1; i < len(msgs); i++ {
		if err := check(i); err != nil {
			return nil, err
		}
		t, ok := s.boundary(msgs, cur.lo, i, group)
		if !ok {
			continue
		}
		cur.hi, cur.end, cur.endConf = i, t.kind, t.conf
		out = append(out, cur)
		cur = span{lo: i, start: t.kind, merged: 1}
	}
	cur.hi, cur.end, cur.endConf = len(msgs), model.BoundaryEnd, 1
	return append(out, cur), nil
}

// merge is pass two. Undersized spans fold forward into their successor and
// an undersized tail folds back into its predecessor. A join that would pass
// maxSize is cut again at a size cap boundary. raw is not modified
func merge(raw []span, minSize, maxSize int) []span {
	out := make([]span, 0, len(raw))
	var (
		pending span
		has     bool
	)
	for _, g := range raw {
		if has {
			g = join(pending, g)
			has = false
			if g.size() > maxSize {
				var head span
				head, g = cut(g)
				out = append(out, head)
			}
		}
		if g.size() < minSize {
			pending, has = g, true
			continue
		}
		out = append(out, g)
	}
	if has {
		if len(out) == 0 {
			return append(out, pending)
		}
		last := join(out[len(out)-1], pending)
		if last.size() <= maxSize {
			out[len(out)-1] = last
			return out
		}
		head, tail := cut(last)
		out[len(out)-1] = head
		out = append(out, tail)
	}
	return out
}

// cut splits an oversized joined span into halves that differ by at most one
// message. With MaxSize below 2*MinSize a half can fall under the floor; the
// cap wins
func cut(sp span) (span, span) {
	at := sp.lo + (sp.size()+1)/2
	head := span{lo: sp.lo, hi: at, start: sp.start, end: model.BoundarySizeCap, endConf: 1, merged: sp.merged}
	tail := span{lo: at, hi: sp.hi, start: model.BoundarySizeCap, end: sp.end, endConf: sp.endConf, merged: 1}
	return head, tail
}

func join(a, b span) span {
	return span{
		lo:      a.lo,
		hi:      b.hi,
		start:   a.start,
		end:     b.end,
		endConf: b.endConf,
		merged:  a.merged + b.merged,
	}
}

func tokenSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

// jaccard is |a ∩ b| / |a ∪ b|; two empty sets are identical
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
