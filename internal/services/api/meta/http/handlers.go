// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"chatlens/internal/core/version"
	"chatlens/internal/modkit/httpkit"
	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/store"
	"chatlens/internal/services/engine"

	"golang.org/x/sync/errgroup"
)

// readyTimeout bounds all backend pings of one /ready call
const readyTimeout = 2 * time.Second

// EngineInfo is satisfied by the analysis engine
type EngineInfo interface {
	Info() engine.Info
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Checks      []store.Check
	// Engine may be nil in processes that do not analyze
	Engine EngineInfo
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/engine", h.engineInfo)
}

//
// Swagger DTOs and route docs
//

// HealthResponse is the health payload
// swagger:model
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"chatlens-api"`
	Started string `json:"started"  example:"2025-09-03T13:00:00Z"`
	Now     string `json:"now"      example:"2025-09-03T13:05:00Z"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"` // ok fail skipped
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432 connect: connection refused"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok degraded fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2025-09-03T13:05:00Z"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string `json:"name"    example:"chatlens-api"`
	Started string `json:"started" example:"2025-09-03T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// EngineResponse reports the engine configuration and build info
type EngineResponse struct {
	Engine engine.Info       `json:"engine"`
	Build  version.BuildInfo `json:"build"`
}

// swagger:route GET /meta/health Meta metaHealth
// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 type HealthResponse "login success"
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// swagger:route GET /meta/ready Meta metaReady
// @Summary Backend readiness, degraded when postgres is off
// @Description fail when any configured backend does not answer its ping
// @Tags Meta
// @Produce json
// @Success 200 type ReadyResponse ok
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make([]ReadyCheck, len(h.deps.Checks))
	var g errgroup.Group
	for i, c := range h.deps.Checks {
		checks[i] = ReadyCheck{Name: c.Name, Status: "skipped"}
		if c.Ping == nil {
			continue
		}
		g.Go(func() error {
			if err := c.Ping(ctx); err != nil {
				checks[i].Status, checks[i].Error = "fail", err.Error()
				return nil
			}
			checks[i].Status = "ok"
			return nil
		})
	}
	_ = g.Wait()

	return ReadyResponse{
		Status: overall(h.deps.Checks, checks),
		Checks: checks,
		Now:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func overall(defs []store.Check, got []ReadyCheck) string {
	status := "ok"
	for i, c := range got {
		switch {
		case c.Status == "fail":
			return "fail"
		case c.Status == "skipped" && !defs[i].Optional:
			status = "degraded"
		}
	}
	return status
}

// swagger:route GET /meta/version Meta metaVersion
// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 type version.BuildInfo ok
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}

// swagger:route GET /meta/service Meta metaService
// @Summary Service info and uptime
// @Tags Meta
// @Produce json
// @Success 200 type ServiceResponse ok
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := time.Since(h.deps.StartedAt)
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(uptime / time.Second),
	}, nil
}

// swagger:route GET /meta/engine Meta metaEngine
// @Summary Engine taxonomy, dictionary and narrative settings
// @Tags Meta
// @Produce json
// @Success 200 type EngineResponse ok
// @Failure 503 {object} httpkit.Envelope "no engine in this process"
// @Router /meta/engine [get]
func (h *handlers) engineInfo(_ *http.Request) (any, error) {
	if h.deps.Engine == nil {
		return nil, perr.Unavailablef("engine not configured")
	}
	return EngineResponse{
		Engine: h.deps.Engine.Info(),
		Build:  version.Info(h.deps.ServiceName),
	}, nil
}
