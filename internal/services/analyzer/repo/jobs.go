// Package repo provides the analysis job queue on postgres
package repo

import (
	"context"
	"time"

	"chatlens/internal/modkit/repokit"
	"chatlens/internal/platform/store"
	"chatlens/internal/services/analyzer/domain"
)

// Queue is the job queue persistence surface
type Queue interface {
	Enqueue(ctx context.Context, chatID string, payload []byte) (domain.Status, error)
	Status(ctx context.Context, jobID string) (domain.Status, error)
	Lease(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Job, error)
	Extend(ctx context.Context, jobID, workerID string, leaseFor time.Duration) error
	Complete(ctx context.Context, jobID, workerID, analysisID string) error
	Requeue(ctx context.Context, jobID, workerID, lastErr string, next time.Time) error
	Fail(ctx context.Context, jobID, workerID, lastErr string) error
}

type (
	// PG is the postgres queue binder
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the postgres queue
func NewPG() repokit.Binder[Queue] { return PG{} }

// Bind attaches a Queryer
func (PG) Bind(q repokit.Queryer) Queue { return &queries{q: q} }

const statusCols = `job_id::text, chat_id, state, leased_by IS NOT NULL AND lease_expires_at > now(),
	attempts, COALESCE(last_error, ''), COALESCE(analysis_id::text, ''), created_at, updated_at`

func scanStatus(r store.Row) (domain.Status, error) {
	var s domain.Status
	err := r.Scan(&s.JobID, &s.ChatID, &s.State, &s.Running,
		&s.Attempts, &s.LastError, &s.AnalysisID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Enqueue inserts a queued job
func (r *queries) Enqueue(ctx context.Context, chatID string, payload []byte) (domain.Status, error) {
	sql := `
		INSERT INTO analysis_jobs (chat_id, payload)
		VALUES ($1, $2::jsonb)
		RETURNING ` + statusCols
	return store.One(ctx, r.q, scanStatus, sql, chatID, string(payload))
}

// Status reads one job; unknown ids yield errors.ErrNotFound
func (r *queries) Status(ctx context.Context, jobID string) (domain.Status, error) {
	sql := `SELECT ` + statusCols + ` FROM analysis_jobs WHERE job_id = $1::uuid`
	return store.One(ctx, r.q, scanStatus, sql, jobID)
}

// Lease takes up to limit ready jobs. Jobs whose lease expired are ready again
func (r *queries) Lease(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Job, error) {
	const sqlq = `
		WITH ready AS (
			SELECT job_id
			  FROM analysis_jobs
			 WHERE state = 'queued'
			   AND next_attempt_at <= now()
			   AND (leased_by IS NULL OR lease_expires_at <= now())
			 ORDER BY next_attempt_at ASC
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED
		), upd AS (
			UPDATE analysis_jobs j
			   SET leased_by = $2,
			       lease_expires_at = now() + $3::interval,
			       updated_at = now()
			 WHERE j.job_id IN (SELECT job_id FROM ready)
			RETURNING j.*
		)
		SELECT job_id::text, chat_id, payload, attempts, leased_by, lease_expires_at, created_at
		  FROM upd
		 ORDER BY created_at`
	return store.Many(ctx, r.q, func(row store.Row) (domain.Job, error) {
		var j domain.Job
		err := row.Scan(&j.JobID, &j.ChatID, &j.Payload, &j.Attempts, &j.LeasedBy, &j.LeaseExpires, &j.CreatedAt)
		return j, err
	}, sqlq, limit, workerID, leaseFor.String())
}

// Transitions below only touch a queued job still leased by workerID. They
// return errors.ErrNotFound when the job is gone or the lease moved on
const owned = `job_id = $1::uuid AND leased_by = $2 AND state = 'queued'`

// Extend pushes the lease deadline out by leaseFor
func (r *queries) Extend(ctx context.Context, jobID, workerID string, leaseFor time.Duration) error {
	const sqlq = `
		UPDATE analysis_jobs
		   SET lease_expires_at = now() + $3::interval,
		       updated_at       = now()
		 WHERE ` + owned
	return store.ExecOne(ctx, r.q, sqlq, jobID, workerID, leaseFor.String())
}

// Complete marks a job done and links the stored analysis. The payload is
// dropped since the result now lives in analyses
func (r *queries) Complete(ctx context.Context, jobID, workerID, analysisID string) error {
	const sqlq = `
		UPDATE analysis_jobs
		   SET state            = 'done',
		       analysis_id      = NULLIF($3, '')::uuid,
		       payload          = '{}'::jsonb,
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       last_error       = NULL,
		       updated_at       = now()
		 WHERE ` + owned
	return store.ExecOne(ctx, r.q, sqlq, jobID, workerID, analysisID)
}

// Requeue schedules a retry and clears the lease
func (r *queries) Requeue(ctx context.Context, jobID, workerID, lastErr string, next time.Time) error {
	const sqlq = `
		UPDATE analysis_jobs
		   SET attempts         = attempts + 1,
		       last_error       = NULLIF($3, ''),
		       next_attempt_at  = $4,
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       updated_at       = now()
		 WHERE ` + owned
	return store.ExecOne(ctx, r.q, sqlq, jobID, workerID, lastErr, next)
}

// Fail parks a job for good
func (r *queries) Fail(ctx context.Context, jobID, workerID, lastErr string) error {
	const sqlq = `
		UPDATE analysis_jobs
		   SET state            = 'failed',
		       attempts         = attempts + 1,
		       last_error       = NULLIF($3, ''),
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       updated_at       = now()
		 WHERE ` + owned
	return store.ExecOne(ctx, r.q, sqlq, jobID, workerID, lastErr)
}
