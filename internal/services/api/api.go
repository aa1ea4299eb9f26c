// Package api provides the HTTP API for the application
package api

import (
	"chatlens/internal/platform/config"
	"chatlens/internal/platform/logger"
	phttp "chatlens/internal/platform/net/http"
	"chatlens/internal/platform/store"

	"chatlens/internal/modkit"
	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/modkit/swaggerkit"

	analysesapi "chatlens/internal/services/api/analyses/module"
	metamod "chatlens/internal/services/api/meta/module"

	analysesmod "chatlens/internal/services/analyses/module"
	analyzermod "chatlens/internal/services/analyzer/module"
	"chatlens/internal/services/engine"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Engine         *engine.Engine
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	if opt.Engine == nil {
		panic("api.Mount requires an engine")
	}
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// storage first; the worker and the API both write through it
	analyses := analysesmod.New(deps)
	stored := modkit.MustPorts[analysesmod.Ports](analyses)

	// the API only enqueues; chatlens-worker runs the loop
	worker := analyzermod.New(deps, opt.Engine, stored.Writer, analyzermod.Options{})
	enq := modkit.MustPorts[analyzermod.Ports](worker).Enqueuer

	api := analysesapi.New(deps, modkit.WithPorts(analysesapi.Ports{
		Engine:   opt.Engine,
		Writer:   stored.Writer,
		Query:    stored.Query,
		Enqueuer: enq,
	}))

	meta := metamod.New("chatlens-api", deps, modkit.WithPorts(metamod.Ports{Engine: opt.Engine}))
	// storage and worker modules mount no routes of their own
	mods := []modkit.Module{analyses, worker, api}

	auth, err := TokenPort(opt.Config)
	if err != nil {
		panic(err)
	}

	// Swagger + profiler
	swaggerkit.Mount(r, opt.EnableSwagger, auth != nil)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.Config.Prefix("CORE_API_")), func(v1 httpkit.Router) {
		// meta stays open for probes
		meta.MountRoutes(v1)
		mount := func(rr httpkit.Router) {
			for _, m := range mods {
				m.MountRoutes(rr)
			}
		}
		if auth == nil {
			mount(v1)
			return
		}
		httpkit.Protected(v1, auth, mount)
	})
}
