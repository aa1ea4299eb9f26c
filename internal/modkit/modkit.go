// Package modkit wires chatlens modules: the deps they share, their name
// and mount prefix, and the ports they hand each other
package modkit

import (
	"fmt"

	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/modkit/repokit"
	"chatlens/internal/platform/config"
	"chatlens/internal/platform/logger"
	"chatlens/internal/platform/store"
	pstrings "chatlens/internal/platform/strings"
)

// Module is a unit of the API or worker. Storage and worker modules mount
// no routes and only expose ports
type Module interface {
	Name() string
	MountRoutes(r httpkit.Router)
	// Ports returns the module's port struct, see MustPorts
	Ports() any
}

// Deps are what every module is built from. CH is nil when clickhouse is
// not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Spec is a module's resolved options
type Spec struct {
	Name   string
	Prefix string
	// Ports are injected from other modules; the type is owned by the
	// receiving module
	Ports any
}

type Option func(*Spec)

func WithName(name string) Option { return func(s *Spec) { s.Name = name } }

func WithPrefix(prefix string) Option { return func(s *Spec) { s.Prefix = prefix } }

// WithPorts hands p to the module being built
func WithPorts[T any](p T) Option { return func(s *Spec) { s.Ports = p } }

// Build applies opts in order. A module needs a name; a non empty prefix is
// normalized to /segment
func Build(opts ...Option) Spec {
	var s Spec
	for _, o := range opts {
		o(&s)
	}
	pstrings.MustString(s.Name, "module name")
	if s.Prefix != "" {
		s.Prefix = pstrings.MustPrefix(s.Prefix)
	}
	return s
}

// Mount registers routes under the spec's prefix
func (s Spec) Mount(r httpkit.Router, routes func(httpkit.Router)) {
	if s.Prefix == "" {
		routes(r)
		return
	}
	r.Route(s.Prefix, routes)
}

// MustPorts returns m's ports as T. Wiring the wrong modules together is a
// startup bug, so it panics
func MustPorts[T any](m Module) T {
	p, ok := m.Ports().(T)
	if !ok {
		panic(fmt.Sprintf("modkit: module %s exposes %T, not %T", m.Name(), m.Ports(), p))
	}
	return p
}
