package segment

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"strconv"
	"testing"
	"time"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
	"chatlens/internal/platform/testkit"
)

var (
	schema = intent.Business()
	t0     = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	shared = []string{"plan", "ship", "date"}
)

type mb struct {
	msgs []model.Message
	at   time.Time
}

func newMB() *mb { return &mb{at: t0} }

// add appends a message after gap with the given tokens and intent scores
func (b *mb) add(gap time.Duration, sender string, tokens []string, scores map[intent.Dimension]float64) *mb {
	b.at = b.at.Add(gap)
	i := len(b.msgs)
	m := model.Message{
		ID:        "m" + strconv.Itoa(i),
		Timestamp: b.at,
		Sender:    sender,
		Tokens:    tokens,
		Position:  i,
	}
	if scores != nil {
		m.Lexical = &model.LexicalAnalysis{Intent: intent.Finalize(schema, scores)}
	}
	b.msgs = append(b.msgs, m)
	return b
}

func (b *mb) repeat(n int, gap time.Duration, senders []string, tokens []string, scores map[intent.Dimension]float64) *mb {
	for i := 0; i < n; i++ {
		b.add(gap, senders[i%len(senders)], tokens, scores)
	}
	return b
}

func run(t *testing.T, cfg Config, msgs []model.Message) Output {
	t.Helper()
	out, err := New(schema, cfg).Segment(context.Background(), msgs)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	assertPartition(t, msgs, out)
	return out
}

func assertPartition(t *testing.T, msgs []model.Message, out Output) {
	t.Helper()
	var ids []string
	for _, s := range out.Segments {
		ids = append(ids, s.MessageIDs...)
		if s.MessageCount != len(s.MessageIDs) {
			t.Fatalf("segment %s count mismatch", s.ID)
		}
	}
	want := make([]string, len(msgs))
	for i, m := range msgs {
		want[i] = m.ID
	}
	if len(msgs) == 0 {
		want = nil
	}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("partition = %v, want %v", ids, want)
	}
	for i, m := range out.Messages {
		if m.SegmentID == "" || msgs[i].SegmentID != "" {
			t.Fatalf("message %d segment stamp = %q (input %q)", i, m.SegmentID, msgs[i].SegmentID)
		}
	}
}

func kinds(segs []model.Segment) []model.BoundaryType {
	out := make([]model.BoundaryType, len(segs))
	for i, s := range segs {
		out[i] = s.BoundaryType
	}
	return out
}

func TestScenario_SingleSpeaker(t *testing.T) {
	msgs := newMB().
		add(0, "Ana", []string{"lunch"}, nil).
		add(time.Minute, "Ana", []string{"later"}, nil).
		add(time.Minute, "Ana", []string{"maybe"}, nil).msgs

	out := run(t, Config{}, msgs)
	if len(out.Segments) != 1 {
		t.Fatalf("segments = %d", len(out.Segments))
	}
	s := out.Segments[0]
	if s.DominantSpeaker != "Ana" || s.ParticipationBalance != 1 || s.DominantShare != 1 {
		t.Fatalf("participation = %q %v %v", s.DominantSpeaker, s.ParticipationBalance, s.DominantShare)
	}
	if s.ID != "seg_0_m0" || s.StartBoundary != model.BoundaryStart || s.BoundaryType != model.BoundaryEnd {
		t.Fatalf("segment = %s %s %s", s.ID, s.StartBoundary, s.BoundaryType)
	}
	if s.DurationMs != 120000 || s.Aggregate.HasDominant() {
		t.Fatalf("segment = %+v", s)
	}
}

func TestScenario_ClosingResolution(t *testing.T) {
	b := newMB().repeat(8, 12*time.Second, []string{"Ana", "Ben"}, shared, nil)
	b.add(12*time.Second, "Ana", []string{"done"}, map[intent.Dimension]float64{intent.Closure: 0.2})
	b.add(12*time.Second, "Ben", []string{"thank", "much"}, map[intent.Dimension]float64{intent.Closure: 0.4})

	out := run(t, Config{}, b.msgs)
	if len(out.Segments) != 1 {
		t.Fatalf("segments = %v", kinds(out.Segments))
	}
	s := out.Segments[0]
	if !s.HasResolution {
		t.Fatalf("expected resolution")
	}
	if got := s.Aggregate.Score(intent.Closure); math.Abs(got-0.06) > 1e-9 {
		t.Fatalf("aggregate closure = %v", got)
	}
	if s.IntraDelta.Change(intent.Closure) <= 0 {
		t.Fatalf("closure did not rise: %+v", s.IntraDelta)
	}
	if s.ParticipationBalance != 1 {
		t.Fatalf("balance = %v", s.ParticipationBalance)
	}
}

func TestScenario_InactivityGap(t *testing.T) {
	b := newMB().repeat(4, time.Minute, []string{"Ana", "Ben"}, shared, nil)
	b.add(6*time.Hour, "Ana", shared, nil)
	b.repeat(3, time.Minute, []string{"Ben", "Ana"}, shared, nil)

	out := run(t, Config{}, b.msgs)
	if got := kinds(out.Segments); !reflect.DeepEqual(got, []model.BoundaryType{model.BoundaryInactivity, model.BoundaryEnd}) {
		t.Fatalf("boundaries = %v", got)
	}
	if out.Segments[1].StartBoundary != model.BoundaryInactivity || out.Segments[0].BoundaryConfidence != 1 {
		t.Fatalf("second segment = %+v", out.Segments[1])
	}
	if out.Segments[1].ID != "seg_1_m4" {
		t.Fatalf("id = %s", out.Segments[1].ID)
	}
}

func TestInactivity_GroupHalvesThreshold(t *testing.T) {
	build := func(senders []string) []model.Message {
		b := newMB().repeat(3, time.Minute, senders, shared, nil)
		b.add(2*time.Hour, senders[0], shared, nil)
		return b.repeat(3, time.Minute, senders, shared, nil).msgs
	}
	if n := len(run(t, Config{}, build([]string{"Ana", "Ben"})).Segments); n != 1 {
		t.Fatalf("1:1 segments = %d", n)
	}
	out := run(t, Config{}, build([]string{"Ana", "Ben", "Cy"}))
	if !out.Group || len(out.Segments) != 2 || out.Segments[0].BoundaryType != model.BoundaryInactivity {
		t.Fatalf("group = %v boundaries = %v", out.Group, kinds(out.Segments))
	}
}

func TestTopicShift(t *testing.T) {
	b := newMB().repeat(4, time.Minute, []string{"Ana", "Ben"}, []string{"report", "budget", "numbers"}, nil)
	b.repeat(3, time.Minute, []string{"Ana", "Ben"}, []string{"dinner", "tonight", "pasta"}, nil)

	out := run(t, Config{}, b.msgs)
	if got := kinds(out.Segments); !reflect.DeepEqual(got, []model.BoundaryType{model.BoundaryTopicShift, model.BoundaryEnd}) {
		t.Fatalf("boundaries = %v", got)
	}
	if out.Segments[0].TopicCoherence != 1 {
		t.Fatalf("coherence = %v", out.Segments[0].TopicCoherence)
	}

	// short replies never trigger a shift
	b = newMB().repeat(4, time.Minute, []string{"Ana", "Ben"}, []string{"report", "budget", "numbers"}, nil)
	b.repeat(3, time.Minute, []string{"Ana", "Ben"}, []string{"lol"}, nil)
	if n := len(run(t, Config{}, b.msgs).Segments); n != 1 {
		t.Fatalf("short replies split into %d segments", n)
	}
}

func TestIntentReversal(t *testing.T) {
	b := newMB().repeat(4, time.Minute, []string{"Ana", "Ben"}, shared, map[intent.Dimension]float64{intent.Alignment: 0.6})
	b.repeat(3, time.Minute, []string{"Ana", "Ben"}, shared, map[intent.Dimension]float64{intent.Resistance: 0.8})

	out := run(t, Config{}, b.msgs)
	if got := kinds(out.Segments); !reflect.DeepEqual(got, []model.BoundaryType{model.BoundaryIntentReversal, model.BoundaryEnd}) {
		t.Fatalf("boundaries = %v", got)
	}
	if c := out.Segments[0].BoundaryConfidence; math.Abs(c-0.8) > 1e-9 {
		t.Fatalf("confidence = %v", c)
	}
	if !out.Segments[0].HasBreakthrough || !out.Segments[1].HasEscalation {
		t.Fatalf("flags = %+v / %+v", out.Segments[0], out.Segments[1])
	}
}

func TestDominanceFlip(t *testing.T) {
	b := newMB()
	for _, s := range []string{"Ana", "Ana", "Ben", "Ana", "Ana", "Ana", "Ben", "Ben", "Ben", "Ben", "Ana", "Ben"} {
		b.add(time.Minute, s, shared, nil)
	}
	out := run(t, Config{}, b.msgs)
	if got := kinds(out.Segments); !reflect.DeepEqual(got, []model.BoundaryType{model.BoundaryDominanceFlip, model.BoundaryEnd}) {
		t.Fatalf("boundaries = %v", got)
	}
	if out.Segments[0].MessageCount != 9 || out.Segments[0].DominantSpeaker != "Ana" {
		t.Fatalf("first segment = %+v", out.Segments[0])
	}

	// strict alternation never flips
	b = newMB().repeat(20, time.Minute, []string{"Ana", "Ben"}, shared, nil)
	if n := len(run(t, Config{}, b.msgs).Segments); n != 1 {
		t.Fatalf("alternating chat split into %d segments", n)
	}
}

func TestSizeCap(t *testing.T) {
	b := newMB().repeat(120, time.Minute, []string{"Ana"}, shared, nil)
	out := run(t, Config{}, b.msgs)
	var sizes []int
	for _, s := range out.Segments {
		sizes = append(sizes, s.MessageCount)
	}
	if !reflect.DeepEqual(sizes, []int{50, 50, 20}) {
		t.Fatalf("sizes = %v", sizes)
	}
	if out.Segments[0].BoundaryType != model.BoundarySizeCap {
		t.Fatalf("boundary = %s", out.Segments[0].BoundaryType)
	}
}

func TestSizeCapRemainder(t *testing.T) {
	b := newMB().repeat(101, time.Minute, []string{"Ana"}, shared, nil)
	out := run(t, Config{}, b.msgs)
	var sizes []int
	for _, s := range out.Segments {
		sizes = append(sizes, s.MessageCount)
		if s.MessageCount > 50 || s.MessageCount < 3 {
			t.Fatalf("segment %s has %d messages", s.ID, s.MessageCount)
		}
	}
	if !reflect.DeepEqual(sizes, []int{50, 26, 25}) {
		t.Fatalf("sizes = %v", sizes)
	}
	if out.Segments[1].BoundaryType != model.BoundarySizeCap || out.Segments[2].StartBoundary != model.BoundarySizeCap {
		t.Fatalf("cut boundary = %s/%s", out.Segments[1].BoundaryType, out.Segments[2].StartBoundary)
	}
	if out.Segments[2].BoundaryType != model.BoundaryEnd {
		t.Fatalf("last boundary = %s", out.Segments[2].BoundaryType)
	}
}

func TestMerge(t *testing.T) {
	mk := func(sizes ...int) []span {
		var out []span
		lo := 0
		for _, n := range sizes {
			out = append(out, span{lo: lo, hi: lo + n, start: model.BoundaryInactivity, end: model.BoundaryInactivity, merged: 1})
			lo += n
		}
		out[0].start = model.BoundaryStart
		out[len(out)-1].end = model.BoundaryEnd
		return out
	}
	tests := []struct {
		sizes []int
		want  []int
	}{
		{[]int{1, 2, 5, 1}, []int{3, 6}},
		{[]int{1, 1, 1, 4}, []int{3, 4}},
		{[]int{5, 1}, []int{6}},
		{[]int{2}, []int{2}},
		{[]int{3, 3}, []int{3, 3}},
		{[]int{10, 1}, []int{6, 5}},
		{[]int{1, 10, 4}, []int{6, 5, 4}},
		{[]int{2, 9, 10, 2}, []int{6, 5, 6, 6}},
	}
	for _, tt := range tests {
		raw := mk(tt.sizes...)
		before := append([]span(nil), raw...)
		got := merge(raw, 3, 10)
		var sizes []int
		for _, g := range got {
			sizes = append(sizes, g.size())
		}
		if !reflect.DeepEqual(sizes, tt.want) {
			t.Fatalf("%v: sizes = %v, want %v", tt.sizes, sizes, tt.want)
		}
		if got[0].start != model.BoundaryStart || got[len(got)-1].end != model.BoundaryEnd {
			t.Fatalf("%v: outer boundaries lost: %+v", tt.sizes, got)
		}
		if !reflect.DeepEqual(raw, before) {
			t.Fatalf("%v: raw spans modified", tt.sizes)
		}
	}
}

func TestPartitionAndSizeFloor(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	senders := []string{"Ana", "Ben", "Cy"}
	vocab := []string{"plan", "ship", "date", "lunch", "budget", "bug", "deploy", "call", "weekend", "movie"}
	for round := 0; round < 25; round++ {
		b := newMB()
		n := 1 + r.IntN(200)
		for i := 0; i < n; i++ {
			gap := time.Duration(r.IntN(30)) * time.Minute
			if r.IntN(15) == 0 {
				gap = time.Duration(4+r.IntN(20)) * time.Hour
			}
			toks := make([]string, 1+r.IntN(4))
			for j := range toks {
				toks[j] = vocab[r.IntN(len(vocab))]
			}
			scores := map[intent.Dimension]float64{}
			for _, d := range schema.Dimensions() {
				if r.IntN(4) == 0 {
					scores[d] = r.Float64()
				}
			}
			b.add(gap, senders[r.IntN(2+round%2)], toks, scores)
		}
		cfg := Config{}
		out := run(t, cfg, b.msgs)
		eff := New(schema, cfg).Config()
		for _, s := range out.Segments {
			if s.MessageCount < eff.MinSize && len(out.Segments) > 1 {
				t.Fatalf("round %d: segment %s has %d messages", round, s.ID, s.MessageCount)
			}
			if s.MessageCount > eff.MaxSize {
				t.Fatalf("round %d: segment %s has %d messages, cap %d", round, s.ID, s.MessageCount, eff.MaxSize)
			}
			for _, d := range schema.Dimensions() {
				if v := s.Aggregate.Score(d); v < 0 || v > 1 {
					t.Fatalf("round %d: aggregate %s = %v", round, d, v)
				}
			}
		}
		again := run(t, cfg, b.msgs)
		if !reflect.DeepEqual(out, again) {
			t.Fatalf("round %d: segmentation not deterministic", round)
		}
	}
}

func TestFinalizeHelpers(t *testing.T) {
	if got := balance(map[string]int{"a": 3, "b": 1}); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("balance = %v", got)
	}
	if got := balance(map[string]int{"a": 2, "b": 2}); got != 1 {
		t.Fatalf("even balance = %v", got)
	}

	msgs := newMB().
		add(0, "a", []string{"x", "y"}, nil).
		add(time.Minute, "b", []string{"x", "y"}, nil).
		add(time.Minute, "a", []string{"z"}, nil).
		add(time.Minute, "b", nil, nil).
		add(time.Minute, "a", nil, nil).msgs
	// 1, 0, 0, then empty/empty 1
	if got := coherence(msgs); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("coherence = %v", got)
	}
	if got := keywords(msgs, 2); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("keywords = %v", got)
	}
	if got := keywords(msgs, 5); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("keywords = %v", got)
	}

	dom, share := dominantSpeaker(msgs[:4])
	if dom != "a" || share != 0.5 {
		t.Fatalf("tie should go to first speaker: %s %v", dom, share)
	}

	s := New(schema, Config{})
	testkit.MustPanic(t, func() { s.finalize(0, span{}, nil) })
}

func TestSegment_EmptyAndCancelled(t *testing.T) {
	out := run(t, Config{}, nil)
	if len(out.Segments) != 0 {
		t.Fatalf("segments = %d", len(out.Segments))
	}

	b := newMB().repeat(10, time.Minute, []string{"Ana"}, shared, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(schema, Config{BatchSize: 1}).Segment(ctx, b.msgs); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigNormalize(t *testing.T) {
	if got := (Config{}).Normalize(); !reflect.DeepEqual(got, DefaultConfig()) {
		t.Fatalf("zero config = %+v", got)
	}
	c := Config{MinSize: 10, MaxSize: 4, DominanceThreshold: 0.4}.Normalize()
	if c.MaxSize != 10 || c.DominanceThreshold != 0.6 {
		t.Fatalf("clamp = %+v", c)
	}
}
