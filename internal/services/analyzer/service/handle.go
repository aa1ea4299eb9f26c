package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	perr "chatlens/internal/platform/errors"
	"chatlens/internal/platform/logger"
	dom "chatlens/internal/services/analyzer/domain"

	"github.com/rs/zerolog"
)

// errLeaseLost cancels an analysis whose job was handed to another worker
var errLeaseLost = perr.New(perr.ErrorCodeLeaseLost, "job lease lost")

// handleJob analyzes one leased job and stores the result. Bad payloads and
// exhausted retries park the job as failed; anything else is retried with
// backoff. The lease is renewed while the engine runs and once more before
// the save, so a job that changed hands is dropped instead of stored twice.
// The returned error is only about updating the queue itself
func (s *Svc) handleJob(ctx context.Context, j dom.Job) error {
	ctx = logger.With(logger.With(ctx, "job_id", j.JobID), "chat_id", j.ChatID)
	log := logger.C(ctx).With().Int("attempt", j.Attempts+1).Logger()
	// queue updates and the save outlive shutdown once the analysis is done
	qctx := context.WithoutCancel(ctx)

	var p dom.Payload
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		log.Error().Err(err).Msg("undecodable payload")
		return s.settle(log, s.repo.Fail(qctx, j.JobID, s.cfg.WorkerID, fmt.Sprintf("payload: %v", err)))
	}

	actx, cancel := context.WithCancelCause(ctx)
	beat := s.heartbeat(actx, cancel, j.JobID)
	start := time.Now()
	res, err := s.engine.Analyze(actx, p.Messages, p.Meta, p.Narrate, nil)
	lost := errors.Is(context.Cause(actx), errLeaseLost)
	cancel(nil)
	<-beat

	switch {
	case lost:
		log.Warn().Msg("lease lost during analysis, dropping result")
		return nil
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		// shutdown: let the lease lapse without burning an attempt
		return nil
	case err != nil:
		return s.retry(qctx, log, j, err, fmt.Sprintf("analyze: %v", err))
	}

	if err := s.repo.Extend(qctx, j.JobID, s.cfg.WorkerID, s.cfg.LeaseFor); err != nil {
		return s.settle(log, err)
	}
	rec, err := s.analyses.Save(qctx, res)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			return s.settle(log, s.repo.Fail(qctx, j.JobID, s.cfg.WorkerID, fmt.Sprintf("save: %v", err)))
		}
		return s.retry(qctx, log, j, err, fmt.Sprintf("save: %v", err))
	}

	log.Info().
		Str("analysis_id", rec.ID).
		Int("messages", rec.MessageCount).
		Dur("took", time.Since(start)).
		Msg("job done")
	return s.settle(log, s.repo.Complete(qctx, j.JobID, s.cfg.WorkerID, rec.ID))
}

// heartbeat extends the lease every HeartbeatEvery until ctx ends. A lost
// lease cancels ctx with errLeaseLost; other failures are retried on the
// next tick. The returned channel closes when the loop exits
func (s *Svc) heartbeat(ctx context.Context, cancel context.CancelCauseFunc, jobID string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(s.cfg.HeartbeatEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				err := s.repo.Extend(ctx, jobID, s.cfg.WorkerID, s.cfg.LeaseFor)
				if errors.Is(err, perr.ErrNotFound) {
					cancel(errLeaseLost)
					return
				}
				if err != nil && ctx.Err() == nil {
					logger.C(ctx).Warn().Err(err).Msg("lease renewal failed")
				}
			}
		}
	}()
	return done
}

// settle turns a lost lease into a log line; the new holder owns the job
func (s *Svc) settle(log zerolog.Logger, err error) error {
	if errors.Is(err, perr.ErrNotFound) {
		log.Warn().Err(perr.Wrap(err, perr.ErrorCodeLeaseLost, "queue transition")).Msg("lease lost, leaving job to its new holder")
		return nil
	}
	return err
}

// retry requeues j with backoff. Transient contention in postgres retries
// right away
func (s *Svc) retry(ctx context.Context, log zerolog.Logger, j dom.Job, cause error, msg string) error {
	if j.Attempts+1 >= s.cfg.MaxAttempts {
		log.Warn().Str("error", msg).Msg("job failed for good")
		return s.settle(log, s.repo.Fail(ctx, j.JobID, s.cfg.WorkerID, msg))
	}
	next := nextAfter(j.Attempts, s.cfg.RetryBaseMs)
	if perr.IsRetryable(cause) {
		next = time.Now().UTC()
	}
	return s.settle(log, s.repo.Requeue(ctx, j.JobID, s.cfg.WorkerID, msg, next))
}

func nextAfter(attempt int, baseMs int) time.Time {
	back := durationMs(baseMs)
	// simple exponential w/ cap ~30s
	ms := int64(back/time.Millisecond) << uint(min(attempt, 16))
	if ms > int64(30*time.Second/time.Millisecond) {
		ms = int64(30 * time.Second / time.Millisecond)
	}
	return time.Now().UTC().Add(time.Duration(ms) * time.Millisecond)
}
