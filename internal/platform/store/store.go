// Package store opens the postgres and clickhouse backends chatlens runs
// on and exposes them as small seams the repos and migrations can fake
package store

import (
	"context"
	"errors"
	"fmt"

	"chatlens/internal/platform/logger"
)

// Store holds the opened backends. PG carries analyses and the job queue,
// CH mirrors moments for the timeline reads; either is nil when off
type Store struct {
	Log logger.Logger
	PG  TxRunner
	CH  Clickhouse
}

// Row is a single result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set. Close is idempotent
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports how many rows a statement touched; the job queue
// reads it to detect lost leases
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is what repos run statements on, inside or outside a tx
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn in one transaction, rolled back when fn fails
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the moments mirror: batch inserts and timeline queries
type Clickhouse interface {
	Insert(ctx context.Context, table string, data any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Execer is implemented by clickhouse seams that can run DDL
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// Check is one backend's readiness. Ping is nil when the backend is off.
// Optional backends can be off without the process being degraded
type Check struct {
	Name     string
	Optional bool
	Ping     func(context.Context) error
}

// Checks lists the readiness checks for pg and ch in that order. Seams that
// cannot ping report as always up
func Checks(pg TxRunner, ch Clickhouse) []Check {
	out := []Check{{Name: "pg"}, {Name: "ch", Optional: true}}
	for i, seam := range []any{pg, ch} {
		switch v := seam.(type) {
		case nil:
		case interface{ Ping(context.Context) error }:
			out[i].Ping = v.Ping
		default:
			out[i].Ping = func(context.Context) error { return nil }
		}
	}
	return out
}

// Open dials the backends enabled in cfg. A failed clickhouse open closes
// the pool already opened for postgres
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("app", cfg.AppName).Logger()

	var err error
	if cfg.PG.Enabled {
		if s.PG, err = openPG(ctx, cfg, s); err != nil {
			return nil, err
		}
	}
	if cfg.CH.Enabled {
		if s.CH, err = openCH(ctx, cfg, s); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
	}
	return s, nil
}

// Guard pings every configured backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, c := range Checks(s.PG, s.CH) {
		if c.Ping == nil {
			continue
		}
		if err := c.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases clickhouse first so in flight mirror writes fail before
// the postgres pool goes away
func (s *Store) Close(_ context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
