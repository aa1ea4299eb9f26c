package store

import "context"

// InTx runs fn inside one transaction of tx. fn gets ctx back so logging and
// deadlines carry into the statements
func InTx(ctx context.Context, tx TxRunner, fn func(ctx context.Context, q RowQuerier) error) error {
	return tx.Tx(ctx, func(q RowQuerier) error {
		return fn(ctx, q)
	})
}
