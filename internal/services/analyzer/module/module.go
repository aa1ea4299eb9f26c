// Package module wires the analyzer worker service and exposes its ports
package module

import (
	"chatlens/internal/modkit"
	"chatlens/internal/modkit/httpkit"
	adom "chatlens/internal/services/analyses/domain"
	"chatlens/internal/services/analyzer/repo"
	"chatlens/internal/services/analyzer/service"
)

// Module defines the analyzer worker module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the analyzer module. engine may be nil for processes that
// only enqueue; Run then must not be called
func New(deps modkit.Deps, engine service.Analyzer, analyses adom.WriterPort, overrides Options) *Module {
	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.Concurrency != 0 {
		opts.Concurrency = overrides.Concurrency
	}
	if overrides.QueueTakeBatch != 0 {
		opts.QueueTakeBatch = overrides.QueueTakeBatch
	}
	if overrides.RetryBaseMs != 0 {
		opts.RetryBaseMs = overrides.RetryBaseMs
	}
	if overrides.MaxAttempts != 0 {
		opts.MaxAttempts = overrides.MaxAttempts
	}
	if overrides.LeaseFor != 0 {
		opts.LeaseFor = overrides.LeaseFor
	}
	if overrides.PollEvery != 0 {
		opts.PollEvery = overrides.PollEvery
	}
	if overrides.MaxMessages != 0 {
		opts.MaxMessages = overrides.MaxMessages
	}
	if overrides.WorkerID != "" {
		opts.WorkerID = overrides.WorkerID
	}

	svc := service.New(deps.PG, repo.NewPG(), engine, analyses, service.Config{
		Concurrency:    opts.Concurrency,
		QueueTakeBatch: opts.QueueTakeBatch,
		RetryBaseMs:    opts.RetryBaseMs,
		MaxAttempts:    opts.MaxAttempts,
		LeaseFor:       opts.LeaseFor,
		HeartbeatEvery: opts.HeartbeatEvery,
		PollEvery:      opts.PollEvery,
		MaxMessages:    opts.MaxMessages,
		WorkerID:       opts.WorkerID,
	})

	return &Module{deps: deps, ports: Ports{Worker: svc, Enqueuer: svc}}
}

// Ports returns the module ports (Worker, Enqueuer)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "analyzer" }


// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
