package module

import (
	"time"

	"chatlens/internal/platform/config"
)

// Options holds configuration settings for the analyses module
type Options struct {
	HardLimit   int
	KeepPerChat int
	// StatementTimeout applies to every write transaction; 0 disables
	StatementTimeout time.Duration
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	ac := cfg.Prefix("CHATLENS_ANALYSES_")
	return Options{
		HardLimit:   ac.MayInt("HARD_LIMIT", 100),
		KeepPerChat: ac.MayInt("KEEP_PER_CHAT", 10),

		StatementTimeout: ac.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
	}
}
