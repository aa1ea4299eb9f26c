// Package segment partitions an enriched message stream into contiguous,
// non-overlapping conversation segments and summarizes each one.
//
// Segmentation runs in two passes. The first walks the stream and cuts a
// boundary wherever a trigger fires against the open segment. The second
// merges undersized spans into their neighbours and returns a new list.
// Finalization then builds one model.Segment per span.
package segment

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

// Segmenter is stateless between runs and safe for concurrent use
type Segmenter struct {
	schema intent.Schema
	cfg    Config
}

// New builds a Segmenter for vectors of the given schema
func New(schema intent.Schema, cfg Config) *Segmenter {
	return &Segmenter{schema: schema, cfg: cfg.Normalize()}
}

// Config returns the normalized configuration
func (s *Segmenter) Config() Config { return s.cfg }

// Output is the segmenter result: the segments and the message copies
// stamped with their segment id
type Output struct {
	Segments []model.Segment
	Messages []model.Message
	Group    bool
}

// IsGroup reports whether msgs come from a group chat (3+ senders)
func IsGroup(msgs []model.Message) bool {
	seen := map[string]struct{}{}
	for _, m := range msgs {
		seen[m.Sender] = struct{}{}
		if len(seen) >= 3 {
			return true
		}
	}
	return false
}

// Segment partitions msgs, which must already be in timestamp order
func (s *Segmenter) Segment(ctx context.Context, msgs []model.Message) (Output, error) {
	group := s.cfg.Group || IsGroup(msgs)
	check := func(i int) error {
		if i%s.cfg.BatchSize == 0 {
			return ctx.Err()
		}
		return nil
	}
	raw, err := s.split(msgs, group, check)
	if err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	spans := merge(raw, s.cfg.MinSize, s.cfg.MaxSize)
	out := Output{
		Segments: make([]model.Segment, len(spans)),
		Messages: make([]model.Message, len(msgs)),
		Group:    group,
	}
	for i, sp := range spans {
		seg := s.finalize(i, sp, msgs[sp.lo:sp.hi])
		out.Segments[i] = seg
		for j := sp.lo; j < sp.hi; j++ {
			out.Messages[j] = msgs[j].WithSegment(seg.ID)
		}
	}
	return out, nil
}

func (s *Segmenter) aggregate(msgs []model.Message) intent.Vector {
	vs := make([]intent.Vector, len(msgs))
	for i, m := range msgs {
		vs[i] = m.Intent(s.schema)
	}
	return intent.Mean(s.schema, vs)
}

// finalize summarizes one span. An empty span is a bug in the passes above
func (s *Segmenter) finalize(index int, sp span, msgs []model.Message) model.Segment {
	if len(msgs) == 0 {
		panic(fmt.Sprintf("segment: finalize empty span %d [%d,%d)", index, sp.lo, sp.hi))
	}
	first, last := msgs[0], msgs[len(msgs)-1]
	seg := model.Segment{
		ID:                 fmt.Sprintf("seg_%d_%s", index, first.ID),
		Index:              index,
		Start:              first.Timestamp,
		End:                last.Timestamp,
		DurationMs:         last.Timestamp.Sub(first.Timestamp).Milliseconds(),
		MessageIDs:         make([]string, len(msgs)),
		MessageCount:       len(msgs),
		StartBoundary:      sp.start,
		BoundaryType:       sp.end,
		BoundaryConfidence: sp.endConf,
		Merged:             sp.merged - 1,
	}
	for i, m := range msgs {
		seg.MessageIDs[i] = m.ID
	}

	seg.Participants = map[string]int{}
	for _, m := range msgs {
		seg.Participants[m.Sender]++
	}
	seg.DominantSpeaker, seg.DominantShare = dominantSpeaker(msgs)
	seg.ParticipationBalance = balance(seg.Participants)

	seg.Aggregate = s.aggregate(msgs)
	half := len(msgs) / 2
	if half == 0 {
		seg.IntraDelta = intent.Compare(s.schema, seg.Aggregate, seg.Aggregate)
	} else {
		seg.IntraDelta = intent.Compare(s.schema, s.aggregate(msgs[:half]), s.aggregate(msgs[half:]))
	}
	seg.TopicCoherence = coherence(msgs)
	seg.Keywords = keywords(msgs, s.cfg.TopKeywords)

	seg.HasResolution = s.resolved(msgs)
	role := func(r intent.Role) float64 { return intent.RoleScore(s.schema, seg.Aggregate, r) }
	seg.HasEscalation = role(intent.RoleResistance) > s.cfg.EscalationThreshold ||
		role(intent.RoleUrgency) > s.cfg.EscalationThreshold
	seg.HasBreakthrough = role(intent.RoleAlignment) > s.cfg.BreakthroughThreshold ||
		role(intent.RoleClosure) > s.cfg.BreakthroughThreshold
	return seg
}

// resolved reports closure concentrated in the last third of the segment
func (s *Segmenter) resolved(msgs []model.Message) bool {
	closure, ok := s.schema.ByRole(intent.RoleClosure)
	if !ok {
		return false
	}
	tail := len(msgs) - (len(msgs)+2)/3
	var total, late, peak float64
	for i, m := range msgs {
		c := m.Intent(s.schema).Score(closure)
		total += c
		if i >= tail {
			late += c
			peak = max(peak, c)
		}
	}
	if total == 0 {
		return false
	}
	return late/total >= s.cfg.ResolutionShare && peak >= s.cfg.ResolutionPeak
}

// dominantSpeaker returns the most frequent sender and their share; ties go
// to whoever spoke first
func dominantSpeaker(msgs []model.Message) (string, float64) {
	counts := map[string]int{}
	var order []string
	for _, m := range msgs {
		if _, ok := counts[m.Sender]; !ok {
			order = append(order, m.Sender)
		}
		counts[m.Sender]++
	}
	var (
		best string
		n    int
	)
	for _, name := range order {
		if counts[name] > n {
			best, n = name, counts[name]
		}
	}
	if len(msgs) == 0 {
		return "", 0
	}
	return best, float64(n) / float64(len(msgs))
}

// balance is 1 minus the coefficient of variation of per-sender counts,
// normalized by its maximum sqrt(k-1)
func balance(counts map[string]int) float64 {
	k := len(counts)
	if k <= 1 {
		return 1
	}
	xs := make([]float64, 0, k)
	for _, c := range counts {
		xs = append(xs, float64(c))
	}
	slices.Sort(xs)
	mean := intent.MeanOf(xs)
	cv := math.Sqrt(intent.Variance(xs)) / mean
	return intent.Clamp01(1 - cv/math.Sqrt(float64(k-1)))
}

// coherence is the mean Jaccard similarity of adjacent messages
func coherence(msgs []model.Message) float64 {
	if len(msgs) < 2 {
		return 1
	}
	var sum float64
	prev := tokenSet(msgs[0].Tokens)
	for _, m := range msgs[1:] {
		cur := tokenSet(m.Tokens)
		sum += jaccard(prev, cur)
		prev = cur
	}
	return sum / float64(len(msgs)-1)
}

// keywords ranks tokens by frequency, then alphabetically
func keywords(msgs []model.Message, n int) []string {
	counts := map[string]int{}
	for _, m := range msgs {
		for _, t := range m.Tokens {
			counts[t]++
		}
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	slices.SortFunc(terms, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return terms[:min(n, len(terms))]
}
