package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "acceso/pkg/domain-errors"
	"acceso/pkg/platform/tx"
)

const defaultSeedTxTimeout = 10 * time.Second

// seedPostgresTx runs the seeder inside one SQL transaction. The transaction
// is injected into the context so the user and role stores join it.
type seedPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newSeedPostgresTx(db *sql.DB) *seedPostgresTx {
	return &seedPostgresTx{db: db}
}

func (t *seedPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultSeedTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return err
	}
	return nil
}
