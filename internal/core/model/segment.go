package model

import (
	"time"

	"chatlens/internal/core/intent"
)

// BoundaryType names what opened or closed a segment
type BoundaryType string

const (
	BoundaryStart          BoundaryType = "conversation_start"
	BoundaryEnd            BoundaryType = "conversation_end"
	BoundaryInactivity     BoundaryType = "inactivity"
	BoundaryTopicShift     BoundaryType = "topic_shift"
	BoundaryIntentReversal BoundaryType = "intent_reversal"
	BoundaryDominanceFlip  BoundaryType = "dominance_flip"
	BoundarySizeCap        BoundaryType = "size_cap"
)

// Segment is a contiguous run of messages treated as one exchange
type Segment struct {
	ID           string    `json:"id"`
	Index        int       `json:"index"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	DurationMs   int64     `json:"duration_ms"`
	MessageIDs   []string  `json:"message_ids"`
	MessageCount int       `json:"message_count"`

	Participants         map[string]int `json:"participants"`
	DominantSpeaker      string         `json:"dominant_speaker"`
	DominantShare        float64        `json:"dominant_share"`
	ParticipationBalance float64        `json:"participation_balance"`

	Aggregate      intent.Vector `json:"aggregate_intent"`
	IntraDelta     intent.Delta  `json:"intra_delta"`
	TopicCoherence float64       `json:"topic_coherence"`
	Keywords       []string      `json:"keywords"`

	HasResolution   bool `json:"has_resolution"`
	HasEscalation   bool `json:"has_escalation"`
	HasBreakthrough bool `json:"has_breakthrough"`

	StartBoundary      BoundaryType `json:"start_boundary"`
	BoundaryType       BoundaryType `json:"boundary_type"`
	BoundaryConfidence float64      `json:"boundary_confidence"`
	Merged             int          `json:"merged_groups,omitempty"`
}
