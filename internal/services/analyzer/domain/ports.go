// Package domain defines the analyzer worker ports and job types
package domain

import (
	"context"
	"time"

	"chatlens/internal/core/model"
)

// Job states
const (
	StateQueued = "queued"
	StateDone   = "done"
	StateFailed = "failed"
)

// EnqueueArgs is one conversation submitted for background analysis
type EnqueueArgs struct {
	Meta     model.Metadata
	Messages []model.RawMessage
	Narrate  bool
}

// Payload is the stored job body
type Payload struct {
	Meta     model.Metadata     `json:"metadata"`
	Messages []model.RawMessage `json:"messages"`
	Narrate  bool               `json:"narrate,omitempty"`
}

// Job is a leased unit of work
type Job struct {
	JobID        string
	ChatID       string
	Payload      []byte
	Attempts     int
	LeasedBy     string
	LeaseExpires time.Time
	CreatedAt    time.Time
}

// Status reports a job to callers
type Status struct {
	JobID      string    `json:"job_id"`
	ChatID     string    `json:"chat_id"`
	State      string    `json:"state" example:"queued"`
	Running    bool      `json:"running"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EnqueuePort enqueues analyses and reports their progress
type EnqueuePort interface {
	Enqueue(ctx context.Context, args EnqueueArgs) (Status, error)
	Status(ctx context.Context, jobID string) (Status, error)
}

// WorkerPort (run loop) is separate
type WorkerPort interface {
	Run(ctx context.Context) error
}
