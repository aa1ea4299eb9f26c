// Package service implements the analyses API service
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatlens/internal/core/model"
	"chatlens/internal/core/pipeline"
	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/logger"
	pnet "chatlens/internal/platform/net"
	"chatlens/internal/platform/net/http/bind"
	adom "chatlens/internal/services/analyses/domain"
	"chatlens/internal/services/api/analyses/domain"
	wdom "chatlens/internal/services/analyzer/domain"
)

// Service is the analyses API surface
type Service interface {
	domain.ServicePort
}

// Analyzer runs the engine synchronously
type Analyzer interface {
	Analyze(ctx context.Context, raws []model.RawMessage, meta model.Metadata, narrate bool, progress pipeline.Progress) (model.Result, error)
}

// Options wires the service
type Options struct {
	Engine   Analyzer
	Writer   adom.WriterPort
	Query    adom.QueryPort
	Enqueuer wdom.EnqueuePort
	// Timeout bounds one synchronous run; 0 means no bound
	Timeout time.Duration
	// SyncLimit routes larger conversations to the queue; 0 disables
	SyncLimit int
}

type svc struct {
	opt Options
}

// New constructs the service
func New(opt Options) Service {
	if opt.Engine == nil || opt.Query == nil || opt.Writer == nil {
		panic("analyses API requires an engine and the analyses ports")
	}
	return &svc{opt: opt}
}

// scope resolves the chat a request may touch. Tokens bound to a chat can
// only read and write that chat
func scope(ctx context.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	bound := pnet.ChatID(ctx)
	switch {
	case bound == "":
		return requested, nil
	case requested == "" || requested == bound:
		return bound, nil
	}
	return "", perr.Forbiddenf("token is scoped to another chat")
}

func (s *svc) Analyze(ctx context.Context, in domain.AnalyzeInput) (domain.AnalyzeOutput, error) {
	chatID, err := scope(ctx, in.ChatID)
	if err != nil {
		return domain.AnalyzeOutput{}, err
	}
	in.ChatID = chatID
	if s.opt.SyncLimit > 0 && len(in.Messages) > s.opt.SyncLimit {
		return domain.AnalyzeOutput{}, perr.TooLargef(
			"%d messages exceeds the synchronous limit of %d; submit a job instead", len(in.Messages), s.opt.SyncLimit)
	}

	if s.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opt.Timeout)
		defer cancel()
	}
	res, err := s.opt.Engine.Analyze(ctx, in.Messages, in.Meta(), in.Narrate, nil)
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.AnalyzeOutput{}, perr.Timeoutf("analysis did not finish within %s", s.opt.Timeout)
	}
	if err != nil {
		return domain.AnalyzeOutput{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "analyze")
	}

	out := domain.AnalyzeOutput{Result: res}
	if in.Persist == nil || *in.Persist {
		rec, err := s.opt.Writer.Save(ctx, res)
		if err != nil {
			return domain.AnalyzeOutput{}, err
		}
		out.AnalysisID = rec.ID
	}
	logger.C(ctx).Info().
		Str("chat_id", res.Metadata.ChatID).
		Int("messages", res.Metadata.MessageCount).
		Int("segments", res.Metadata.SegmentCount).
		Str("analysis_id", out.AnalysisID).
		Msg("analysis complete")
	return out, nil
}

func (s *svc) Enqueue(ctx context.Context, in domain.AnalyzeInput) (wdom.Status, error) {
	if s.opt.Enqueuer == nil {
		return wdom.Status{}, perr.Unavailablef("background analysis is not enabled")
	}
	chatID, err := scope(ctx, in.ChatID)
	if err != nil {
		return wdom.Status{}, err
	}
	in.ChatID = chatID
	return s.opt.Enqueuer.Enqueue(ctx, wdom.EnqueueArgs{Meta: in.Meta(), Messages: in.Messages, Narrate: in.Narrate})
}

func (s *svc) Job(ctx context.Context, jobID string) (wdom.Status, error) {
	if s.opt.Enqueuer == nil {
		return wdom.Status{}, perr.Unavailablef("background analysis is not enabled")
	}
	st, err := s.opt.Enqueuer.Status(ctx, jobID)
	if err != nil {
		return wdom.Status{}, err
	}
	// jobs of other chats are invisible to scoped tokens
	if bound := pnet.ChatID(ctx); bound != "" && st.ChatID != bound {
		return wdom.Status{}, perr.NotFoundf("job %s not found", jobID)
	}
	return st, nil
}

func (s *svc) Latest(ctx context.Context, chatID string) (adom.Record, error) {
	chatID, err := scope(ctx, chatID)
	if err != nil {
		return adom.Record{}, err
	}
	return s.opt.Query.Latest(ctx, chatID)
}

func (s *svc) Recent(ctx context.Context, limit int) ([]adom.Record, error) {
	if pnet.ChatID(ctx) != "" {
		return nil, perr.Forbiddenf("listing across chats needs an unscoped token")
	}
	return s.opt.Query.Recent(ctx, limit)
}

func (s *svc) Moments(ctx context.Context, q domain.MomentQuery) ([]adom.Moment, error) {
	if err := bind.Validate(q); err != nil {
		return nil, err
	}
	chatID, err := scope(ctx, q.ChatID)
	if err != nil {
		return nil, err
	}
	q.ChatID = chatID
	return s.opt.Query.Moments(ctx, q.Filter())
}
