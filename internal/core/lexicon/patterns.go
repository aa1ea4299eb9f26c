package lexicon

import (
	"slices"

	"chatlens/internal/core/model"
)

// PatternKind names one linguistic pattern lexicon
type PatternKind string

const (
	PatternGreeting        PatternKind = "greeting"
	PatternAcknowledgment  PatternKind = "acknowledgment"
	PatternTimeSensitivity PatternKind = "time_sensitivity"
	PatternNegation        PatternKind = "negation"
	PatternHedging         PatternKind = "hedging"
	PatternConditional     PatternKind = "conditional"
	PatternEndearment      PatternKind = "endearment"
	PatternQuestionStarter PatternKind = "question_starters"
)

var patternKinds = []PatternKind{
	PatternGreeting, PatternAcknowledgment, PatternTimeSensitivity,
	PatternNegation, PatternHedging, PatternConditional,
	PatternEndearment, PatternQuestionStarter,
}

// toxicityOrder is the canonical category order used in outputs
var toxicityOrder = []model.ToxicityCategory{
	model.ToxInsults,
	model.ToxAggression,
	model.ToxDismissiveness,
	model.ToxManipulation,
	model.ToxBlame,
	model.ToxEmotionalAbuse,
	model.ToxSexualPressure,
	model.ToxFinancialAbuse,
	model.ToxIsolation,
}

// Patterns bundles the pattern, toxicity and stop word lexicons
type Patterns struct {
	stop     map[string]struct{}
	kinds    map[PatternKind]*Lexicon
	toxicity map[model.ToxicityCategory]*Lexicon
	critical map[model.ToxicityCategory]bool
}

// Pattern returns the lexicon for k, or an empty one
func (p *Patterns) Pattern(k PatternKind) *Lexicon {
	if l, ok := p.kinds[k]; ok {
		return l
	}
	return New()
}

// IsStopword reports whether w is dropped during tokenization
func (p *Patterns) IsStopword(w string) bool {
	_, ok := p.stop[w]
	return ok
}

// Stopwords returns the stop word list, sorted
func (p *Patterns) Stopwords() []string {
	out := make([]string, 0, len(p.stop))
	for w := range p.stop {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// ToxicityCategories returns the categories in canonical order
func (p *Patterns) ToxicityCategories() []model.ToxicityCategory {
	return slices.Clone(toxicityOrder)
}

// Toxicity returns the lexicon for c, or an empty one
func (p *Patterns) Toxicity(c model.ToxicityCategory) *Lexicon {
	if l, ok := p.toxicity[c]; ok {
		return l
	}
	return New()
}

// IsCritical reports whether c forces the critical severity tier
func (p *Patterns) IsCritical(c model.ToxicityCategory) bool { return p.critical[c] }
