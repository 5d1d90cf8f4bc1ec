package main

import (
	"context"
	"database/sql"
	"time"

	providerservice "provdir/internal/provider/service"
	providerstore "provdir/internal/provider/store"
	dErrors "provdir/pkg/domain-errors"
)

const defaultProviderTxTimeout = 5 * time.Second

type providerPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newProviderPostgresTx(db *sql.DB) *providerPostgresTx {
	return &providerPostgresTx{db: db}
}

func (t *providerPostgresTx) RunInTx(ctx context.Context, fn func(store providerservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultProviderTxTimeout
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

	if err := fn(providerstore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
