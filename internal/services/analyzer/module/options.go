package module

import (
	"time"

	"chatlens/internal/platform/config"
)

// Options controls the analyzer worker
type Options struct {
	Concurrency    int
	QueueTakeBatch int
	RetryBaseMs    int
	MaxAttempts    int
	LeaseFor       time.Duration
	HeartbeatEvery time.Duration
	PollEvery      time.Duration
	MaxMessages    int
	WorkerID       string
}

// FromConfig reads with CHATLENS_WORKER_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CHATLENS_WORKER_")
	return Options{
		Concurrency:    c.MayInt("CONCURRENCY", 4),
		QueueTakeBatch: c.MayInt("QUEUE_TAKE_BATCH", 8),
		RetryBaseMs:    int(c.MayDuration("RETRY_BASE", 500*time.Millisecond).Milliseconds()),
		MaxAttempts:    c.MayInt("MAX_ATTEMPTS", 5),
		LeaseFor:       c.MayDuration("LEASE", 5*time.Minute),
		HeartbeatEvery: c.MayDuration("HEARTBEAT", 0),
		PollEvery:      c.MayDuration("POLL", 500*time.Millisecond),
		MaxMessages:    c.MayInt("MAX_MESSAGES", 100000),
		WorkerID:       c.MayString("ID", ""),
	}
}
