// Package http provides http transport for analyses
package http

import (
	stdhttp "net/http"

	"chatlens/internal/modkit/httpkit"
	"chatlens/internal/platform/net/http/bind"
	"chatlens/internal/services/api/analyses/domain"
	svc "chatlens/internal/services/api/analyses/service"

	"github.com/go-chi/chi/v5"
)

// Register mounts analyses endpoints on the given router. maxBody caps
// submitted conversations in bytes; syncMw wraps only the synchronous
// analyze route
func Register(r httpkit.Router, s svc.Service, maxBody int64, syncMw ...func(stdhttp.Handler) stdhttp.Handler) {
	h := &handlers{svc: s, body: bind.JSONOptions{MaxBytes: maxBody, DisallowUnknown: true}}
	r.Group(func(g httpkit.Router) {
		if len(syncMw) > 0 {
			g.Use(syncMw...)
		}
		httpkit.Post(g, "/", h.analyze)
	})
	httpkit.Post(r, "/jobs", h.enqueue)
	httpkit.Get(r, "/jobs/{jobID}", h.job)
	httpkit.Get(r, "/", h.recent)
	httpkit.Get(r, "/{chatID}", h.latest)
	httpkit.Get(r, "/{chatID}/moments", h.moments)
}

type handlers struct {
	svc  svc.Service
	body bind.JSONOptions
}

// swagger:route POST /analyses Analyses analysesRun
// @Summary Analyze a conversation synchronously
// @Tags Analyses
// @Accept json
// @Produce json
// @Param payload body domain.AnalyzeInput true "Conversation"
// @Success 200 {object} domain.AnalyzeOutput "ok"
// @Failure 400 {object} httpkit.Envelope "invalid input"
// @Failure 413 {object} httpkit.Envelope "above the synchronous message limit"
// @Failure 429 {object} httpkit.Envelope "analysis backlog full"
// @Failure 504 {object} httpkit.Envelope "analysis timed out"
// @Router /analyses [post]
func (h *handlers) analyze(r *stdhttp.Request) (any, error) {
	in, err := bind.ParseJSON[domain.AnalyzeInput](r, h.body)
	if err != nil {
		return nil, err
	}
	return h.svc.Analyze(r.Context(), in)
}

// swagger:route POST /analyses/jobs Analyses analysesEnqueue
// @Summary Queue a conversation for background analysis
// @Tags Analyses
// @Accept json
// @Produce json
// @Param payload body domain.AnalyzeInput true "Conversation"
// @Success 201 {object} wdom.Status "queued"
// @Router /analyses/jobs [post]
func (h *handlers) enqueue(r *stdhttp.Request) (any, error) {
	in, err := bind.ParseJSON[domain.AnalyzeInput](r, h.body)
	if err != nil {
		return nil, err
	}
	st, err := h.svc.Enqueue(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(st), nil
}

// swagger:route GET /analyses/jobs/{jobID} Analyses analysesJob
// @Summary Background job status
// @Tags Analyses
// @Produce json
// @Param jobID path string true "Job id"
// @Success 200 {object} wdom.Status "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /analyses/jobs/{jobID} [get]
func (h *handlers) job(r *stdhttp.Request) (any, error) {
	return h.svc.Job(r.Context(), chi.URLParam(r, "jobID"))
}

// swagger:route GET /analyses Analyses analysesRecent
// @Summary Recent stored analyses across chats
// @Tags Analyses
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} httpkit.Envelope{data=[]adom.Record} "ok"
// @Failure 400 {object} httpkit.Envelope "limit out of range"
// @Router /analyses [get]
func (h *handlers) recent(r *stdhttp.Request) (any, error) {
	q, err := bind.Query[domain.RecentQuery](r)
	if err != nil {
		return nil, err
	}
	recs, err := h.svc.Recent(r.Context(), q.Limit)
	if err != nil {
		return nil, err
	}
	return httpkit.List(recs, len(recs), q.Limit), nil
}

// swagger:route GET /analyses/{chatID} Analyses analysesLatest
// @Summary Latest stored analysis of a chat
// @Tags Analyses
// @Produce json
// @Param chatID path string true "Chat id"
// @Success 200 {object} adom.Record "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /analyses/{chatID} [get]
func (h *handlers) latest(r *stdhttp.Request) (any, error) {
	return h.svc.Latest(r.Context(), chi.URLParam(r, "chatID"))
}

// swagger:route GET /analyses/{chatID}/moments Analyses analysesMoments
// @Summary Critical moments of a chat, newest first
// @Tags Analyses
// @Produce json
// @Param chatID path string true "Chat id"
// @Param type query string false "escalation, breakthrough or resolution"
// @Param severity query string false "low, medium, high or critical"
// @Param limit query int false "Max rows"
// @Success 200 {array} adom.Moment "ok"
// @Router /analyses/{chatID}/moments [get]
func (h *handlers) moments(r *stdhttp.Request) (any, error) {
	q, err := bind.Query[domain.MomentQuery](r)
	if err != nil {
		return nil, err
	}
	q.ChatID = chi.URLParam(r, "chatID")
	return h.svc.Moments(r.Context(), q)
}
