// Package domain defines the types and interfaces for stored analyses
package domain

import (
	"time"

	"chatlens/internal/core/model"
)

// Record is one stored analysis run
type Record struct {
	ID            string    `json:"id"`
	ChatID        string    `json:"chat_id"`
	Source        string    `json:"source,omitempty"`
	Taxonomy      string    `json:"taxonomy"`
	EngineVersion string    `json:"engine_version"`
	MessageCount  int       `json:"message_count"`
	SegmentCount  int       `json:"segment_count"`
	Health        string    `json:"health"`
	HealthScore   float64   `json:"health_score"`
	CreatedAt     time.Time `json:"created_at"`

	// Result is only populated by Latest
	Result *model.Result `json:"result,omitempty"`
}

// RecordOf summarizes res for storage
func RecordOf(res model.Result) Record {
	md := res.Metadata
	return Record{
		ChatID:        md.ChatID,
		Source:        md.Source,
		Taxonomy:      md.Taxonomy,
		EngineVersion: md.EngineVersion,
		MessageCount:  md.MessageCount,
		SegmentCount:  md.SegmentCount,
		Health:        string(res.Evolution.Health),
		HealthScore:   res.Evolution.HealthScore,
		Result:        &res,
	}
}

// Moment is one critical moment row in the analytics store
type Moment struct {
	AnalysisID     string    `json:"analysis_id"`
	ChatID         string    `json:"chat_id"`
	SegmentID      string    `json:"segment_id"`
	SegmentIndex   int       `json:"segment_index"`
	Type           string    `json:"type"`
	Severity       string    `json:"severity"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Magnitude      float64   `json:"magnitude"`
	Primary        string    `json:"primary_shift,omitempty"`
	Directionality string    `json:"directionality,omitempty"`
	Dominant       string    `json:"dominant,omitempty"`
}

// MomentsOf flattens the timeline moments of res
func MomentsOf(analysisID string, res model.Result) []Moment {
	out := make([]Moment, 0, len(res.Evolution.Moments))
	for _, m := range res.Evolution.Moments {
		out = append(out, Moment{
			AnalysisID:     analysisID,
			ChatID:         res.Metadata.ChatID,
			SegmentID:      m.SegmentID,
			SegmentIndex:   m.SegmentIndex,
			Type:           string(m.Type),
			Severity:       string(m.Severity),
			Reason:         m.Reason,
			Timestamp:      m.Timestamp.UTC(),
			Magnitude:      m.Delta.Magnitude,
			Primary:        string(m.Delta.Primary),
			Directionality: string(m.Delta.Directionality),
			Dominant:       string(m.Snapshot.Dominant),
		})
	}
	return out
}

// MomentFilter narrows a moments query. Empty fields match everything
type MomentFilter struct {
	ChatID   string
	Type     string
	Severity string
	Limit    int
}

// Match reports whether m passes the filter, ignoring Limit
func (f MomentFilter) Match(m Moment) bool {
	return (f.ChatID == "" || m.ChatID == f.ChatID) &&
		(f.Type == "" || m.Type == f.Type) &&
		(f.Severity == "" || m.Severity == f.Severity)
}
