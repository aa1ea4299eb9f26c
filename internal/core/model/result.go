package model

import "time"

// LayerStatus records whether an optional pipeline layer succeeded
type LayerStatus struct {
	Layer  string `json:"layer"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Narrative is the optional free-text summary; Generated=false carries the
// reason it is missing
type Narrative struct {
	Generated bool     `json:"generated"`
	Reason    string   `json:"reason,omitempty"`
	Model     string   `json:"model,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Themes    []string `json:"themes,omitempty"`
}

// ResultMetadata describes one analysis run
type ResultMetadata struct {
	ChatID        string        `json:"chat_id"`
	Source        string        `json:"source,omitempty"`
	Participants  []string      `json:"participants"`
	StartDate     *time.Time    `json:"start_date,omitempty"`
	EndDate       *time.Time    `json:"end_date,omitempty"`
	MessageCount  int           `json:"message_count"`
	SegmentCount  int           `json:"segment_count"`
	IsGroup       bool          `json:"is_group"`
	Taxonomy      string        `json:"taxonomy"`
	Culture       string        `json:"culture,omitempty"`
	Script        string        `json:"script,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Layers        []LayerStatus `json:"layers"`
	EngineVersion string        `json:"engine_version"`
	Narrative     *Narrative    `json:"narrative,omitempty"`
}

// Result is the full output of one pipeline run
type Result struct {
	Messages  []Message      `json:"messages"`
	Segments  []Segment      `json:"segments"`
	Evolution Timeline       `json:"evolution"`
	Metadata  ResultMetadata `json:"metadata"`
}
