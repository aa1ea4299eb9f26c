// Package narrative produces an optional prose summary of an analysis.
// Generators only ever see segment summaries and critical moments, never
// message text, and a failing generator never fails the analysis
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

// SegmentSummary is the per-segment view handed to a generator
type SegmentSummary struct {
	Index           int       `json:"index"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	MessageCount    int       `json:"message_count"`
	DominantSpeaker string    `json:"dominant_speaker"`
	TopIntent       string    `json:"top_intent,omitempty"`
	TopScore        float64   `json:"top_score"`
	Keywords        []string  `json:"keywords"`
	Boundary        string    `json:"boundary"`
	Resolved        bool      `json:"resolved"`
	Escalated       bool      `json:"escalated"`
}

// MomentSummary is one critical moment without its intent snapshot
type MomentSummary struct {
	Type         string `json:"type"`
	SegmentIndex int    `json:"segment_index"`
	Severity     string `json:"severity"`
	Reason       string `json:"reason"`
}

// Brief is everything a generator is allowed to know about a conversation
type Brief struct {
	ChatID         string           `json:"chat_id"`
	Taxonomy       string           `json:"taxonomy"`
	Participants   []string         `json:"participants"`
	Directionality string           `json:"directionality"`
	Health         string           `json:"health"`
	HealthScore    float64          `json:"health_score"`
	Segments       []SegmentSummary `json:"segments"`
	Moments        []MomentSummary  `json:"moments"`
}

// BriefOf reduces a result to its brief
func BriefOf(res model.Result) Brief {
	b := Brief{
		ChatID:         res.Metadata.ChatID,
		Taxonomy:       res.Metadata.Taxonomy,
		Participants:   res.Metadata.Participants,
		Directionality: string(res.Evolution.Directionality),
		Health:         string(res.Evolution.Health),
		HealthScore:    res.Evolution.HealthScore,
		Segments:       make([]SegmentSummary, len(res.Segments)),
		Moments:        make([]MomentSummary, len(res.Evolution.Moments)),
	}
	for i, s := range res.Segments {
		top, score := topIntent(s.Aggregate)
		b.Segments[i] = SegmentSummary{
			Index:           s.Index,
			Start:           s.Start,
			End:             s.End,
			MessageCount:    s.MessageCount,
			DominantSpeaker: s.DominantSpeaker,
			TopIntent:       top,
			TopScore:        score,
			Keywords:        s.Keywords,
			Boundary:        string(s.BoundaryType),
			Resolved:        s.HasResolution,
			Escalated:       s.HasEscalation,
		}
	}
	for i, m := range res.Evolution.Moments {
		b.Moments[i] = MomentSummary{
			Type:         string(m.Type),
			SegmentIndex: m.SegmentIndex,
			Severity:     string(m.Severity),
			Reason:       m.Reason,
		}
	}
	return b
}

func topIntent(v intent.Vector) (string, float64) {
	if v.Dominant == "" {
		return "", 0
	}
	return string(v.Dominant), v.Score(v.Dominant)
}

// Draft is what a generator returns
type Draft struct {
	Summary string   `json:"summary" jsonschema:"description=Three to six sentences describing how the conversation developed"`
	Themes  []string `json:"themes" jsonschema:"description=Up to five short theme labels"`
}

// Generator writes a draft from a brief
type Generator interface {
	Generate(ctx context.Context, b Brief) (Draft, error)
	Model() string
}

// ErrEmpty is returned for drafts without a summary
var ErrEmpty = errors.New("narrative: empty summary")

// Synthesizer wraps a Generator with a deadline and failure containment
type Synthesizer struct {
	gen     Generator
	timeout time.Duration
}

// NewSynthesizer returns a Synthesizer; gen may be nil to disable narration
func NewSynthesizer(gen Generator, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Synthesizer{gen: gen, timeout: timeout}
}

// Enabled reports whether a generator is configured
func (s *Synthesizer) Enabled() bool { return s != nil && s.gen != nil }

// Model names the generator model, or "" when disabled
func (s *Synthesizer) Model() string {
	if !s.Enabled() {
		return ""
	}
	return s.gen.Model()
}

// Synthesize never fails: any problem is reported as Generated=false with
// a reason
func (s *Synthesizer) Synthesize(ctx context.Context, res model.Result) (n model.Narrative) {
	if !s.Enabled() {
		return model.Narrative{Reason: "disabled"}
	}
	if len(res.Segments) == 0 {
		return model.Narrative{Reason: "no segments"}
	}
	defer func() {
		if r := recover(); r != nil {
			n = model.Narrative{Reason: fmt.Sprintf("generator panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d, err := s.gen.Generate(ctx, BriefOf(res))
	if err == nil && strings.TrimSpace(d.Summary) == "" {
		err = ErrEmpty
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.Narrative{Reason: "timed out after " + s.timeout.String()}
	case err != nil:
		return model.Narrative{Reason: err.Error()}
	}

	themes := make([]string, 0, len(d.Themes))
	for _, t := range d.Themes {
		if t = strings.TrimSpace(t); t != "" && len(themes) < 5 {
			themes = append(themes, t)
		}
	}
	return model.Narrative{
		Generated: true,
		Model:     s.gen.Model(),
		Summary:   strings.TrimSpace(d.Summary),
		Themes:    themes,
	}
}
