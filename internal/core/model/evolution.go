package model

import (
	"time"

	"chatlens/internal/core/intent"
)

// MomentType classifies a critical moment
type MomentType string

const (
	MomentEscalation   MomentType = "escalation"
	MomentBreakthrough MomentType = "breakthrough"
	MomentResolution   MomentType = "resolution"
)

// MomentSeverity tiers a critical moment by shift magnitude
type MomentSeverity string

const (
	MomentLow      MomentSeverity = "low"
	MomentMedium   MomentSeverity = "medium"
	MomentHigh     MomentSeverity = "high"
	MomentCritical MomentSeverity = "critical"
)

// Trend is the long run direction of one dimension
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendVolatile   Trend = "volatile"
)

// Health is the overall verdict for a conversation
type Health string

const (
	HealthExcellent  Health = "excellent"
	HealthHealthy    Health = "healthy"
	HealthConcerning Health = "concerning"
	HealthCritical   Health = "critical"
)

// SegmentDelta is the intent change between two consecutive segments
type SegmentDelta struct {
	FromSegment string `json:"from_segment"`
	ToSegment   string `json:"to_segment"`
	intent.Delta
}

// CriticalMoment is a point where intent shifted enough to call out
type CriticalMoment struct {
	Type         MomentType     `json:"type"`
	SegmentID    string         `json:"segment_id"`
	SegmentIndex int            `json:"segment_index"`
	Timestamp    time.Time      `json:"timestamp"`
	Severity     MomentSeverity `json:"severity"`
	Reason       string         `json:"reason"`
	Snapshot     intent.Vector  `json:"intent_snapshot"`
	Delta        intent.Delta   `json:"delta"`
}

// Timeline is the evolution layer output
type Timeline struct {
	ChatID         string                     `json:"chat_id,omitempty"`
	Deltas         []SegmentDelta             `json:"deltas"`
	Moments        []CriticalMoment           `json:"critical_moments"`
	Trends         map[intent.Dimension]Trend `json:"trends"`
	Directionality intent.Directionality      `json:"directionality"`
	HealthScore    float64                    `json:"health_score"`
	Health         Health                     `json:"health"`
	Escalations    int                        `json:"escalations"`
	Breakthroughs  int                        `json:"breakthroughs"`
	Resolutions    int                        `json:"resolutions"`
}

// MomentsOf returns the moments of one type in timeline order
func (t Timeline) MomentsOf(typ MomentType) []CriticalMoment {
	var out []CriticalMoment
	for _, m := range t.Moments {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}
