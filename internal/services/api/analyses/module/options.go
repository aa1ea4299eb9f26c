package module

import (
	"time"

	"chatlens/internal/platform/config"
)

// Options for the analyses API
type Options struct {
	MaxBody   int64
	Timeout   time.Duration
	SyncLimit int

	// MaxInFlight bounds concurrent synchronous analyses; 0 disables.
	// Requests past the backlog, or waiting longer than BacklogWait, get 429
	MaxInFlight int
	Backlog     int
	BacklogWait time.Duration
}

// FromConfig reads with CHATLENS_API_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CHATLENS_API_")
	return Options{
		MaxBody:   int64(c.MayInt("MAX_BODY_MB", 16)) << 20,
		Timeout:   c.MayDuration("ANALYZE_TIMEOUT", 2*time.Minute),
		SyncLimit: c.MayInt("SYNC_LIMIT", 20000),

		MaxInFlight: c.MayInt("MAX_INFLIGHT", 8),
		Backlog:     c.MayInt("BACKLOG", 32),
		BacklogWait: c.MayDuration("BACKLOG_WAIT", 30*time.Second),
	}
}
