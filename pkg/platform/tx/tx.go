// Package tx carries an open SQL transaction through context so stores
// outside the transactional closure (e.g. the audit outbox) can join it.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}
