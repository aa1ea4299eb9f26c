// Package module mounts the meta endpoints
package module

import (
	"time"

	modkit "chatlens/internal/modkit"
	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/platform/store"

	metahttp "chatlens/internal/services/api/meta/http"
)

// Ports optionally injects the engine for /meta/engine
type Ports struct {
	Engine metahttp.EngineInfo
}

// Module serves health, readiness and build info. It stays outside auth
type Module struct {
	spec modkit.Spec
	deps metahttp.Deps
}

// New builds the meta module for service, e.g. chatlens-api
func New(service string, deps modkit.Deps, opts ...modkit.Option) *Module {
	spec := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	d := metahttp.Deps{
		ServiceName: service,
		StartedAt:   time.Now(),
		Checks:      store.Checks(deps.PG, deps.CH),
	}
	if p, ok := spec.Ports.(Ports); ok {
		d.Engine = p.Engine
	}
	return &Module{spec: spec, deps: d}
}

func (m *Module) Name() string { return m.spec.Name }

func (m *Module) Ports() any { return nil }

func (m *Module) MountRoutes(r httpkit.Router) {
	m.spec.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}
