// Package tx carries a SQL transaction through context so stores can join
// an enclosing unit of work without changing their signatures.
package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "carreg/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a transaction when the caller has no deadline.
const DefaultTimeout = 5 * time.Second

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Run executes fn inside a SQL transaction. If ctx already carries a
// transaction, fn joins it and commit is left to the outer owner.
func Run(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}
