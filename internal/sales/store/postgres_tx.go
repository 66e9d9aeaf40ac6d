package store

import (
	"context"
	"database/sql"
	"time"

	"immo/internal/sales/service"
	dErrors "immo/pkg/domain-errors"
	txcontext "immo/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs service closures inside a READ COMMITTED transaction. Row
// locks taken by the bound store serialize concurrent mutations of the same
// reservation.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTxRunner(db *sql.DB, timeout time.Duration) *PostgresTx {
	return &PostgresTx{db: db, timeout: timeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), NewPostgresTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
