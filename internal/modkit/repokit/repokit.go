// Package repokit is the glue between services and their sql repos: the
// querier types, binding a repo to a transaction, per transaction setup
// and the startup guard
package repokit

import (
	"context"
	"fmt"
	"time"

	"chatlens/internal/platform/store"
)

type (
	Queryer  = store.RowQuerier
	TxRunner = store.TxRunner
)

// Binder binds a repo to a Queryer, the pool or an open transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc is a Binder from a function; tests use it to hand in fakes
type BindFunc[T any] func(Queryer) T

func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// BeginHook runs first in every transaction of a WithBeginHooks runner
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks runs hooks at the start of each Tx on inner. Statements
// outside Tx go straight to inner
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	return hookedTx{TxRunner: inner, hooks: hooks}
}

type hookedTx struct {
	TxRunner
	hooks []BeginHook
}

func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

// StatementTimeout bounds every statement of the transaction. d <= 0
// keeps the server default
func StatementTimeout(d time.Duration) BeginHook {
	return func(ctx context.Context, q Queryer) error {
		if d <= 0 {
			return nil
		}
		// SET LOCAL takes no bind parameters; set_config does
		_, err := q.Exec(ctx, `SELECT set_config('statement_timeout', $1, true)`, fmt.Sprintf("%dms", d.Milliseconds()))
		return err
	}
}

type guarder interface {
	Guard(context.Context) error
}

// MustGuard pings every backend of st and panics when one does not answer.
// Without a deadline on ctx it waits 5s
func MustGuard(ctx context.Context, name string, st guarder) {
	if st == nil {
		panic(fmt.Sprintf("%s: nil store", name))
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("%s: dependency guard failed: %w", name, err))
	}
}
