// Package module wires the analyses API using modkit
package module

import (
	"net/http"

	modkit "chatlens/internal/modkit"
	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/platform/net/middleware"
	adom "chatlens/internal/services/analyses/domain"
	ahttp "chatlens/internal/services/api/analyses/http"
	asvc "chatlens/internal/services/api/analyses/service"
	wdom "chatlens/internal/services/analyzer/domain"
)

// Module serves the analyses API; its ports are the service itself
type Module struct {
	spec   modkit.Spec
	svc    asvc.Service
	syncMw []func(http.Handler) http.Handler
	body   int64
}

// Ports declares the ports this module needs from the engine, storage and
// worker modules. Enqueuer may be nil when background jobs are disabled
type Ports struct {
	Engine   asvc.Analyzer
	Writer   adom.WriterPort
	Query    adom.QueryPort
	Enqueuer wdom.EnqueuePort
}

// New constructs the analyses module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	spec := modkit.Build(append([]modkit.Option{
		modkit.WithName("analyses-api"),
		modkit.WithPrefix("/analyses"),
	}, opts...)...)

	cfg := FromConfig(deps.Cfg)

	injected, _ := spec.Ports.(Ports)
	if injected.Engine == nil || injected.Writer == nil || injected.Query == nil {
		panic("analyses API module requires Engine, Writer and Query ports")
	}

	m := &Module{
		spec: spec,
		body: cfg.MaxBody,
		svc: asvc.New(asvc.Options{
			Engine:    injected.Engine,
			Writer:    injected.Writer,
			Query:     injected.Query,
			Enqueuer:  injected.Enqueuer,
			Timeout:   cfg.Timeout,
			SyncLimit: cfg.SyncLimit,
		}),
	}
	if cfg.MaxInFlight > 0 {
		m.syncMw = append(m.syncMw, middleware.ThrottleBacklog(cfg.MaxInFlight, cfg.Backlog, cfg.BacklogWait))
	}
	return m
}

func (m *Module) Name() string { return m.spec.Name }

func (m *Module) Ports() any { return m.svc }

func (m *Module) MountRoutes(r httpkit.Router) {
	m.spec.Mount(r, func(rr httpkit.Router) { ahttp.Register(rr, m.svc, m.body, m.syncMw...) })
}
