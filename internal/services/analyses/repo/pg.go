// Package repo provides storage for analyses: full results in postgres,
// critical moments in clickhouse
package repo

import (
	"context"
	"time"

	"chatlens/internal/modkit/repokit"
	"chatlens/internal/platform/store"
	"chatlens/internal/services/analyses/domain"

	"github.com/google/uuid"
)

// Storage is the postgres side of stored analyses
type Storage interface {
	Insert(ctx context.Context, r domain.Record, result []byte) (domain.Record, error)
	Prune(ctx context.Context, chatID string, keep int) (int64, error)
	Latest(ctx context.Context, chatID string) (domain.Record, []byte, error)
	Recent(ctx context.Context, limit int) ([]domain.Record, error)
}

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

const recordCols = `id::text, chat_id, source, taxonomy, engine_version,
	message_count, segment_count, health, health_score, created_at`

// Insert stores one run and returns it with id and created_at set
func (s *pg) Insert(ctx context.Context, r domain.Record, result []byte) (domain.Record, error) {
	r.ID = uuid.NewString()
	const sql = `
		INSERT INTO analyses
			(id, chat_id, source, taxonomy, engine_version,
			 message_count, segment_count, health, health_score, result)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		RETURNING created_at`
	var created time.Time
	err := s.q.QueryRow(ctx, sql,
		r.ID, r.ChatID, r.Source, r.Taxonomy, r.EngineVersion,
		r.MessageCount, r.SegmentCount, r.Health, r.HealthScore, string(result),
	).Scan(&created)
	if err != nil {
		return domain.Record{}, err
	}
	r.CreatedAt = created.UTC()
	return r, nil
}

// Prune keeps the newest keep runs of chatID and deletes the rest
func (s *pg) Prune(ctx context.Context, chatID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	const sql = `
		DELETE FROM analyses
		WHERE chat_id = $1
		  AND id NOT IN (
			SELECT id FROM analyses
			WHERE chat_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		  )`
	tag, err := s.q.Exec(ctx, sql, chatID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Latest returns the newest run of chatID with its raw result document.
// Missing chats yield errors.ErrNotFound
func (s *pg) Latest(ctx context.Context, chatID string) (domain.Record, []byte, error) {
	type withBody struct {
		rec  domain.Record
		body []byte
	}
	sql := `SELECT ` + recordCols + `, result
		FROM analyses
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	got, err := store.One(ctx, s.q, func(r store.Row) (withBody, error) {
		var w withBody
		err := r.Scan(append(recordDest(&w.rec), &w.body)...)
		return w, err
	}, sql, chatID)
	if err != nil {
		return domain.Record{}, nil, err
	}
	return got.rec, got.body, nil
}

// Recent lists the newest runs across chats without their result bodies
func (s *pg) Recent(ctx context.Context, limit int) ([]domain.Record, error) {
	sql := `SELECT ` + recordCols + `
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1`
	return store.Many(ctx, s.q, func(r store.Row) (domain.Record, error) {
		var rec domain.Record
		err := r.Scan(recordDest(&rec)...)
		return rec, err
	}, sql, limit)
}

func recordDest(r *domain.Record) []any {
	return []any{
		&r.ID, &r.ChatID, &r.Source, &r.Taxonomy, &r.EngineVersion,
		&r.MessageCount, &r.SegmentCount, &r.Health, &r.HealthScore, &r.CreatedAt,
	}
}
