// Package dbx holds the transaction plumbing for the SQL document store.
package dbx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is what the store needs from *sql.DB or *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner is satisfied by *sql.DB and *sql.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DefaultAttempts bounds RetryTx when the caller passes zero.
const DefaultAttempts = 3

// WithTx runs fn in one transaction. It commits when fn returns nil and
// rolls back otherwise. A panic in fn rolls back and is re-raised.
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	return tx.Commit()
}

// RetryTx is WithTx repeated while the database reports a deadlock or a
// serialization failure. Batches that lock an owner copy and a replica can
// meet in opposite order, and the loser is safe to replay from scratch.
func RetryTx(ctx context.Context, db TxBeginner, attempts int, fn func(ctx context.Context, tx DBTX) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = WithTx(ctx, db, nil, fn)
		if !Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// Retryable reports whether err is a Postgres deadlock (40P01) or
// serialization failure (40001).
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
