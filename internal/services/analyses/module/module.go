// Package module implements the stored analyses module
package module

import (
	"chatlens/internal/modkit"
	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/modkit/repokit"
	"chatlens/internal/services/analyses/domain"
	"chatlens/internal/services/analyses/repo"
	"chatlens/internal/services/analyses/service"
)

// Ports exposed by the analyses module
type Ports struct {
	Writer domain.WriterPort
	Query  domain.QueryPort
}

// Module implements the analyses service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new analyses module. Moments are mirrored to clickhouse
// only when deps.CH is set
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	var moments repo.Moments
	if deps.CH != nil {
		moments = repo.NewCH(deps.CH)
	}
	// every save runs insert and prune in one tx; bound it
	var db repokit.TxRunner
	if deps.PG != nil {
		db = repokit.WithBeginHooks(deps.PG, repokit.StatementTimeout(opts.StatementTimeout))
	}
	svc := service.New(db, repo.NewPG(), moments, service.Config{
		HardLimit:   opts.HardLimit,
		KeepPerChat: opts.KeepPerChat,
	})

	m := &Module{deps: deps}
	m.ports = Ports{
		Writer: svc,
		Query:  svc,
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "analyses" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }


// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
