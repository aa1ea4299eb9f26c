// Package model holds the data types that flow through the analysis pipeline
package model

import (
	"slices"
	"time"

	"chatlens/internal/core/intent"
)

// RawMessage is one record as read from an export before any cleanup.
// Timestamp accepts anything the canonical transformer can parse
type RawMessage struct {
	Timestamp any    `json:"timestamp"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
}

// Metadata describes the conversation a batch of raw messages came from
type Metadata struct {
	ChatID       string     `json:"chat_id"`
	Source       string     `json:"source,omitempty"`
	Participants []string   `json:"participants,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// Message is the canonical, immutable form of a chat message. Enrichment
// never edits a Message in place: the With* helpers return copies
type Message struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Source         string    `json:"source,omitempty"`
	NormalizedText string    `json:"normalized_text"`
	Tokens         []string  `json:"tokens"`
	CharCount      int       `json:"char_count"`
	WordCount      int       `json:"word_count"`
	Position       int       `json:"position"`
	Script         string    `json:"script,omitempty"`

	SegmentID string             `json:"segment_id,omitempty"`
	Lexical   *LexicalAnalysis   `json:"lexical,omitempty"`
	Behavior  *BehavioralProfile `json:"behavior,omitempty"`
}

// WithLexical returns a copy carrying the lexical analysis
func (m Message) WithLexical(a *LexicalAnalysis) Message {
	m.Tokens = slices.Clone(m.Tokens)
	m.Lexical = a
	return m
}

// WithBehavior returns a copy carrying the behavioral profile
func (m Message) WithBehavior(p *BehavioralProfile) Message {
	m.Tokens = slices.Clone(m.Tokens)
	m.Behavior = p
	return m
}

// WithSegment returns a copy stamped with its segment id
func (m Message) WithSegment(id string) Message {
	m.Tokens = slices.Clone(m.Tokens)
	m.SegmentID = id
	return m
}

// Intent is the lexical intent vector, or the zero vector when the lexical
// layer did not run for this message
func (m Message) Intent(s intent.Schema) intent.Vector {
	if m.Lexical == nil {
		return intent.Zero(s)
	}
	return m.Lexical.Intent
}
