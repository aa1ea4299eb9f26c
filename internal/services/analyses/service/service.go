// Package service provides the stored analyses service implementation
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"chatlens/internal/core/model"
	"chatlens/internal/modkit/repokit"
	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/logger"
	"chatlens/internal/platform/store"
	dom "chatlens/internal/services/analyses/domain"
	"chatlens/internal/services/analyses/repo"
)

// Config for the analyses service
type Config struct {
	HardLimit int
	// KeepPerChat bounds stored runs per chat; 0 keeps everything
	KeepPerChat int
}

// Service implements domain.WriterPort and domain.QueryPort. Postgres holds
// the results; moments go to clickhouse when it is configured
type Service struct {
	db      repokit.TxRunner
	binder  repokit.Binder[repo.Storage]
	moments repo.Moments
	cfg     Config
}

// New constructs the service; moments may be nil
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], moments repo.Moments, cfg Config) *Service {
	if db == nil {
		panic("analyses.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("analyses.Service requires a non nil Repo binder")
	}
	if cfg.HardLimit <= 0 {
		cfg.HardLimit = 100
	}
	return &Service{db: db, binder: binder, moments: moments, cfg: cfg}
}

// Save implements domain.WriterPort
func (s *Service) Save(ctx context.Context, res model.Result) (dom.Record, error) {
	if strings.TrimSpace(res.Metadata.ChatID) == "" {
		return dom.Record{}, perr.InvalidArgf("result has no chat id")
	}
	body, err := json.Marshal(res)
	if err != nil {
		return dom.Record{}, perr.Wrap(err, perr.ErrorCodeJSON, "encode result")
	}

	var rec dom.Record
	err = store.InTx(ctx, s.db, func(ctx context.Context, q store.RowQuerier) error {
		st := s.binder.Bind(q)
		var err error
		if rec, err = st.Insert(ctx, dom.RecordOf(res), body); err != nil {
			return err
		}
		_, err = st.Prune(ctx, rec.ChatID, s.cfg.KeepPerChat)
		return err
	})
	if err != nil {
		return dom.Record{}, perr.FromPostgres(err, "save analysis")
	}

	if s.moments != nil {
		// moments are a best-effort mirror of the stored result
		if err := s.moments.Write(ctx, dom.MomentsOf(rec.ID, res)); err != nil {
			logger.C(ctx).Warn().Err(err).Str("analysis_id", rec.ID).Msg("moments mirror failed")
		}
	}
	return rec, nil
}

// Latest implements domain.QueryPort
func (s *Service) Latest(ctx context.Context, chatID string) (dom.Record, error) {
	if strings.TrimSpace(chatID) == "" {
		return dom.Record{}, perr.InvalidArgf("chat id is required")
	}
	rec, body, err := s.binder.Bind(s.db).Latest(ctx, chatID)
	if errors.Is(err, perr.ErrNotFound) {
		return dom.Record{}, perr.NotFoundf("no analysis for chat %q", chatID)
	}
	if err != nil {
		return dom.Record{}, perr.FromPostgres(err, "load analysis")
	}
	var res model.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return dom.Record{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode stored result")
	}
	rec.Result = &res
	return rec, nil
}

// Recent implements domain.QueryPort
func (s *Service) Recent(ctx context.Context, limit int) ([]dom.Record, error) {
	recs, err := s.binder.Bind(s.db).Recent(ctx, s.clamp(limit))
	if err != nil {
		return nil, perr.FromPostgres(err, "list analyses")
	}
	return recs, nil
}

// Moments implements domain.QueryPort. Without clickhouse the latest stored
// result of f.ChatID is used
func (s *Service) Moments(ctx context.Context, f dom.MomentFilter) ([]dom.Moment, error) {
	f.Limit = s.clamp(f.Limit)
	if s.moments != nil {
		out, err := s.moments.List(ctx, f)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "list moments")
		}
		return out, nil
	}

	if f.ChatID == "" {
		return nil, perr.InvalidArgf("chat id is required without an analytics store")
	}
	rec, err := s.Latest(ctx, f.ChatID)
	if err != nil {
		return nil, err
	}
	all := dom.MomentsOf(rec.ID, *rec.Result)
	out := make([]dom.Moment, 0, len(all))
	// newest first, matching the clickhouse ordering
	for i := len(all) - 1; i >= 0 && len(out) < f.Limit; i-- {
		if f.Match(all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 || limit > s.cfg.HardLimit {
		return s.cfg.HardLimit
	}
	return limit
}
