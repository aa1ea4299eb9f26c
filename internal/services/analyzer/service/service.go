// Package service implements the analyzer worker and enqueue service
package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"chatlens/internal/core/model"
	"chatlens/internal/core/pipeline"
	"chatlens/internal/modkit/repokit"
	perr "chatlens/internal/platform/errors"
	adom "chatlens/internal/services/analyses/domain"
	dom "chatlens/internal/services/analyzer/domain"
	arepo "chatlens/internal/services/analyzer/repo"

	"github.com/google/uuid"
)

// Analyzer runs the engine over one conversation
type Analyzer interface {
	Analyze(ctx context.Context, raws []model.RawMessage, meta model.Metadata, narrate bool, progress pipeline.Progress) (model.Result, error)
}

// Service implements both worker+enqueue ports
type Service interface {
	dom.WorkerPort
	dom.EnqueuePort
}

// Config controls the worker
type Config struct {
	Concurrency    int
	QueueTakeBatch int
	RetryBaseMs    int
	MaxAttempts    int
	LeaseFor       time.Duration
	// HeartbeatEvery renews the lease of a running job; defaults to LeaseFor/3
	HeartbeatEvery time.Duration
	PollEvery      time.Duration
	// MaxMessages rejects oversized submissions at enqueue time; 0 disables
	MaxMessages int
	WorkerID    string
}

// Svc implements the analyzer worker and enqueue service
type Svc struct {
	repo     arepo.Queue
	engine   Analyzer
	analyses adom.WriterPort
	cfg      Config
}

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[arepo.Queue], engine Analyzer, analyses adom.WriterPort, cfg Config) *Svc {
	if db == nil || binder == nil {
		panic("analyzer.Service requires a TxRunner and a queue binder")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueTakeBatch <= 0 {
		cfg.QueueTakeBatch = cfg.Concurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LeaseFor <= 0 {
		cfg.LeaseFor = 5 * time.Minute
	}
	if cfg.HeartbeatEvery <= 0 || cfg.HeartbeatEvery >= cfg.LeaseFor {
		cfg.HeartbeatEvery = cfg.LeaseFor / 3
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 500 * time.Millisecond
	}
	if cfg.WorkerID == "" {
		host, _ := os.Hostname()
		cfg.WorkerID = host + "-" + uuid.NewString()[:8]
	}
	return &Svc{
		repo:     binder.Bind(db),
		engine:   engine,
		analyses: analyses,
		cfg:      cfg,
	}
}

// Enqueue implements domain.EnqueuePort
func (s *Svc) Enqueue(ctx context.Context, in dom.EnqueueArgs) (dom.Status, error) {
	if len(in.Messages) == 0 {
		return dom.Status{}, perr.InvalidArgf("no messages to analyze")
	}
	if s.cfg.MaxMessages > 0 && len(in.Messages) > s.cfg.MaxMessages {
		return dom.Status{}, perr.TooLargef("%d messages exceeds the limit of %d", len(in.Messages), s.cfg.MaxMessages)
	}
	body, err := json.Marshal(dom.Payload{Meta: in.Meta, Messages: in.Messages, Narrate: in.Narrate})
	if err != nil {
		return dom.Status{}, perr.Wrap(err, perr.ErrorCodeJSON, "encode job payload")
	}
	st, err := s.repo.Enqueue(ctx, strings.TrimSpace(in.Meta.ChatID), body)
	if err != nil {
		return dom.Status{}, perr.FromPostgres(err, "enqueue analysis")
	}
	return st, nil
}

// Status implements domain.EnqueuePort
func (s *Svc) Status(ctx context.Context, jobID string) (dom.Status, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return dom.Status{}, perr.InvalidArgf("malformed job id %q", jobID)
	}
	st, err := s.repo.Status(ctx, jobID)
	if errors.Is(err, perr.ErrNotFound) {
		return dom.Status{}, perr.NotFoundf("job %s not found", jobID)
	}
	if err != nil {
		return dom.Status{}, perr.FromPostgres(err, "job status")
	}
	return st, nil
}

func durationMs(ms int) time.Duration {
	if ms <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
