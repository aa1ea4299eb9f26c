package model

import "chatlens/internal/core/intent"

// LinguisticPatterns are boolean surface features of one message
type LinguisticPatterns struct {
	IsQuestion         bool `json:"is_question"`
	IsGreeting         bool `json:"is_greeting"`
	IsAcknowledgment   bool `json:"is_acknowledgment"`
	HasTimeSensitivity bool `json:"has_time_sensitivity"`
	HasNegation        bool `json:"has_negation"`
	HasHedging         bool `json:"has_hedging"`
	HasConditional     bool `json:"has_conditional"`
	HasEmphasis        bool `json:"has_emphasis"`
	HasEndearment      bool `json:"has_endearment"`
}

// ToxicityCategory is one toxicity family
type ToxicityCategory string

const (
	ToxInsults        ToxicityCategory = "insults"
	ToxAggression     ToxicityCategory = "aggression"
	ToxDismissiveness ToxicityCategory = "dismissiveness"
	ToxManipulation   ToxicityCategory = "manipulation"
	ToxBlame          ToxicityCategory = "blame"
	ToxEmotionalAbuse ToxicityCategory = "emotional_abuse"
	ToxSexualPressure ToxicityCategory = "sexual_pressure"
	ToxFinancialAbuse ToxicityCategory = "financial_abuse"
	ToxIsolation      ToxicityCategory = "isolation"
)

// Severity is a toxicity tier
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ToxicityFlags records the categories that matched and the derived tier
type ToxicityFlags struct {
	Categories []ToxicityCategory `json:"categories,omitempty"`
	Terms      []string           `json:"terms,omitempty"`
	Severity   Severity           `json:"severity"`
}

// Has reports whether c was flagged
func (t ToxicityFlags) Has(c ToxicityCategory) bool {
	for _, x := range t.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// MatchKind tells how a keyword contributed to a score
type MatchKind string

const (
	MatchToken   MatchKind = "token"
	MatchPhrase  MatchKind = "phrase"
	MatchSynonym MatchKind = "synonym"
)

// KeywordMatch explains one contribution to an intent score
type KeywordMatch struct {
	Dimension intent.Dimension `json:"dimension"`
	Term      string           `json:"term"`
	Kind      MatchKind        `json:"kind"`
	Count     int              `json:"count"`
	Weight    float64          `json:"weight"`
}

// Provenance records whether an optional collaborator contributed
type Provenance struct {
	Used   bool   `json:"used"`
	Reason string `json:"reason,omitempty"`
}

// LexicalAnalysis is the lexical layer output for one message
type LexicalAnalysis struct {
	Intent     intent.Vector      `json:"intent"`
	Patterns   LinguisticPatterns `json:"patterns"`
	Toxicity   ToxicityFlags      `json:"toxicity"`
	Matches    []KeywordMatch     `json:"matches,omitempty"`
	Dictionary Provenance         `json:"dictionary"`
}
