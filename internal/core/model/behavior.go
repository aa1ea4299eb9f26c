package model

// LatencyBucket classifies a reply latency
type LatencyBucket string

const (
	LatencyNone        LatencyBucket = ""
	LatencyImmediate   LatencyBucket = "immediate"
	LatencyQuick       LatencyBucket = "quick"
	LatencyNormal      LatencyBucket = "normal"
	LatencyDelayed     LatencyBucket = "delayed"
	LatencyVeryDelayed LatencyBucket = "very_delayed"
)

// SilenceSeverity grades a gap before a message
type SilenceSeverity string

const (
	SilenceNone     SilenceSeverity = "none"
	SilenceBrief    SilenceSeverity = "brief"
	SilenceModerate SilenceSeverity = "moderate"
	SilenceLong     SilenceSeverity = "long"
	SilenceVeryLong SilenceSeverity = "very_long"
)

// ResponseDynamics relates a message to its predecessor
type ResponseDynamics struct {
	LatencyMs  int64         `json:"latency_ms"`
	Bucket     LatencyBucket `json:"bucket,omitempty"`
	IsResponse bool          `json:"is_response"`
	RespondsTo string        `json:"responds_to,omitempty"`
}

// TurnTaking describes the floor at this message. RecentTurns counts the
// sender's runs inside the lookback window, a run crossing the window edge
// once; RecentMessages counts their messages there
type TurnTaking struct {
	IsTurnSwitch   bool    `json:"is_turn_switch"`
	RunLength      int     `json:"run_length"`
	RecentTurns    int     `json:"recent_turns"`
	RecentMessages int     `json:"recent_messages"`
	Lookback       int     `json:"lookback"`
	RecentShare    float64 `json:"recent_share"`
}

// Burst marks rapid same-sender sequences
type Burst struct {
	InBurst    bool  `json:"in_burst"`
	Position   int   `json:"position"`
	Size       int   `json:"size"`
	DurationMs int64 `json:"duration_ms"`
}

// Temporal is the wall clock context of a message
type Temporal struct {
	Hour            int  `json:"hour"`
	Weekday         int  `json:"weekday"`
	IsWeekend       bool `json:"is_weekend"`
	IsBusinessHours bool `json:"is_business_hours"`
}

// Silence describes the gap that preceded a message
type Silence struct {
	GapMs         int64           `json:"gap_ms"`
	HasSilence    bool            `json:"has_silence"`
	Severity      SilenceSeverity `json:"severity"`
	ResetsContext bool            `json:"resets_context"`
}

// Fingerprint is the running per-sender summary at this message
type Fingerprint struct {
	Messages       int     `json:"messages"`
	MessagesPerDay float64 `json:"messages_per_day"`
	AvgLength      float64 `json:"avg_length"`
	AvgResponseMs  float64 `json:"avg_response_ms"`
	BurstTendency  float64 `json:"burst_tendency"`
	InitiationRate float64 `json:"initiation_rate"`
}

// BehavioralProfile is the behavioral layer output for one message
type BehavioralProfile struct {
	Response     ResponseDynamics `json:"response"`
	Turn         TurnTaking       `json:"turn"`
	Burst        Burst            `json:"burst"`
	Temporal     Temporal         `json:"temporal"`
	Silence      Silence          `json:"silence"`
	IsInitiation bool             `json:"is_initiation"`
	Sender       Fingerprint      `json:"sender"`
}
