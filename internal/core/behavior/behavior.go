// Package behavior derives interaction metrics from who sent what when.
// It reads sender, timestamp, id and length only, never message text.
package behavior

import (
	"context"
	"time"

	"chatlens/internal/core/model"
)

type senderStats struct {
	messages    int
	chars       int
	responses   int
	responseMs  int64
	bursts      int
	initiations int

	// recent holds this sender's timestamps inside the burst window
	recent     []time.Time
	burstStart time.Time
	burstSize  int
}

// State is the explicit fold state threaded through one conversation
type State struct {
	cfg Config

	started   bool
	first     time.Time
	prevID    string
	prevFrom  string
	prevAt    time.Time
	runLength int

	// window is a ring of the last Lookback senders
	window []string
	head   int

	senders map[string]*senderStats
}

// NewState starts a fold with cfg normalized
func NewState(cfg Config) *State {
	cfg = cfg.Normalize()
	return &State{
		cfg:     cfg,
		window:  make([]string, 0, cfg.Lookback),
		senders: map[string]*senderStats{},
	}
}

// Step folds one message into the state and returns its profile. Messages
// must arrive in timestamp order
func (s *State) Step(m model.Message) model.BehavioralProfile {
	var p model.BehavioralProfile
	st := s.senders[m.Sender]
	if st == nil {
		st = &senderStats{}
		s.senders[m.Sender] = st
	}

	var gap time.Duration
	if s.started {
		gap = max(0, m.Timestamp.Sub(s.prevAt))
		switched := m.Sender != s.prevFrom
		p.Response = s.response(gap, switched)
		if p.Response.IsResponse {
			p.Response.RespondsTo = s.prevID
		}
		p.Turn.IsTurnSwitch = switched
		if switched {
			s.runLength = 1
		} else {
			s.runLength++
		}
		p.Silence = s.silence(gap)
		p.IsInitiation = gap >= s.cfg.InitiationGap
	} else {
		s.first = m.Timestamp
		s.runLength = 1
		p.Silence = model.Silence{Severity: model.SilenceNone}
		p.IsInitiation = true
	}

	p.Turn.RunLength = s.runLength
	s.push(m.Sender)
	p.Turn.Lookback = len(s.window)
	p.Turn.RecentTurns, p.Turn.RecentMessages = s.recent(m.Sender)
	p.Turn.RecentShare = float64(p.Turn.RecentMessages) / float64(p.Turn.Lookback)

	p.Burst = s.burst(st, m.Timestamp)
	p.Temporal = s.temporal(m.Timestamp)

	st.messages++
	st.chars += m.CharCount
	if p.Response.IsResponse {
		st.responses++
		st.responseMs += p.Response.LatencyMs
	}
	if p.Burst.InBurst {
		st.bursts++
	}
	if p.IsInitiation {
		st.initiations++
	}
	p.Sender = s.fingerprint(st, m.Timestamp)

	s.started = true
	s.prevID, s.prevFrom, s.prevAt = m.ID, m.Sender, m.Timestamp
	return p
}

func (s *State) response(gap time.Duration, switched bool) model.ResponseDynamics {
	r := model.ResponseDynamics{LatencyMs: gap.Milliseconds()}
	switch {
	case gap < s.cfg.Immediate:
		r.Bucket = model.LatencyImmediate
	case gap < s.cfg.Quick:
		r.Bucket = model.LatencyQuick
	case gap < s.cfg.Normal:
		r.Bucket = model.LatencyNormal
	case gap < s.cfg.Delayed:
		r.Bucket = model.LatencyDelayed
	default:
		r.Bucket = model.LatencyVeryDelayed
	}
	r.IsResponse = switched && gap < s.cfg.Normal
	return r
}

func (s *State) silence(gap time.Duration) model.Silence {
	out := model.Silence{GapMs: gap.Milliseconds(), Severity: model.SilenceNone}
	if gap < s.cfg.SilenceThreshold {
		return out
	}
	out.HasSilence = true
	switch {
	case gap < s.cfg.BriefSilence:
		out.Severity = model.SilenceBrief
	case gap < s.cfg.ModerateSilence:
		out.Severity = model.SilenceModerate
	case gap < s.cfg.LongSilence:
		out.Severity = model.SilenceLong
	default:
		out.Severity = model.SilenceVeryLong
	}
	out.ResetsContext = gap >= s.cfg.ContextReset
	return out
}

func (s *State) push(sender string) {
	if len(s.window) < s.cfg.Lookback {
		s.window = append(s.window, sender)
		return
	}
	s.window[s.head] = sender
	s.head = (s.head + 1) % s.cfg.Lookback
}

// recent walks the window oldest first
func (s *State) recent(sender string) (turns, msgs int) {
	n := len(s.window)
	prev := ""
	for k := 0; k < n; k++ {
		from := s.window[(s.head+k)%n]
		if from == sender {
			msgs++
			if k == 0 || prev != sender {
				turns++
			}
		}
		prev = from
	}
	return turns, msgs
}

// burst counts prior same-sender messages inside the sliding window. Size is
// the running size of the current burst; the fold never looks ahead
func (s *State) burst(st *senderStats, ts time.Time) model.Burst {
	keep := st.recent[:0]
	for _, t := range st.recent {
		if ts.Sub(t) <= s.cfg.BurstWindow {
			keep = append(keep, t)
		}
	}
	st.recent = keep

	var b model.Burst
	if len(st.recent) >= s.cfg.BurstMinMessages-1 {
		if st.burstSize > 0 {
			st.burstSize++
		} else {
			st.burstStart = st.recent[0]
			st.burstSize = len(st.recent) + 1
		}
		b = model.Burst{
			InBurst:    true,
			Position:   st.burstSize,
			Size:       st.burstSize,
			DurationMs: ts.Sub(st.burstStart).Milliseconds(),
		}
	} else {
		st.burstSize = 0
	}
	st.recent = append(st.recent, ts)
	return b
}

func (s *State) temporal(ts time.Time) model.Temporal {
	local := ts.In(s.cfg.Location)
	wd := local.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday
	h := local.Hour()
	return model.Temporal{
		Hour:            h,
		Weekday:         int(wd),
		IsWeekend:       weekend,
		IsBusinessHours: !weekend && h >= s.cfg.BusinessStart && h < s.cfg.BusinessEnd,
	}
}

func (s *State) fingerprint(st *senderStats, ts time.Time) model.Fingerprint {
	days := max(1, ts.Sub(s.first).Hours()/24)
	n := float64(st.messages)
	f := model.Fingerprint{
		Messages:       st.messages,
		MessagesPerDay: n / days,
		AvgLength:      float64(st.chars) / n,
		BurstTendency:  float64(st.bursts) / n,
		InitiationRate: float64(st.initiations) / n,
	}
	if st.responses > 0 {
		f.AvgResponseMs = float64(st.responseMs) / float64(st.responses)
	}
	return f
}

// Analyzer runs the fold over whole conversations
type Analyzer struct {
	cfg Config
}

// New returns an Analyzer; cfg is normalized
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.Normalize()}
}

// Config returns the normalized configuration
func (a *Analyzer) Config() Config { return a.cfg }

// AnalyzeAll returns copies of msgs carrying their behavioral profiles
func (a *Analyzer) AnalyzeAll(ctx context.Context, msgs []model.Message, progress func(done, total int)) ([]model.Message, error) {
	st := NewState(a.cfg)
	out := make([]model.Message, len(msgs))
	for start := 0; start < len(msgs); start += a.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+a.cfg.BatchSize, len(msgs))
		for i := start; i < end; i++ {
			p := st.Step(msgs[i])
			out[i] = msgs[i].WithBehavior(&p)
		}
		if progress != nil {
			progress(end, len(msgs))
		}
	}
	return out, nil
}
