package dbx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deleteDoc = `DELETE FROM documents WHERE path = $1`

func newMock(t *testing.T) (TxBeginner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func deletePath(p string) func(ctx context.Context, tx DBTX) error {
	return func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, deleteDoc, p)
		return err
	}
}

func TestWithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM documents`).WithArgs("users/u1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, WithTx(context.Background(), db, nil, deletePath("users/u1")))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fn error rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			return errors.New("boom")
		})
		require.EqualError(t, err, "boom")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin error skips fn", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

		called := false
		err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			called = true
			return nil
		})
		require.EqualError(t, err, "conn refused")
		assert.False(t, called)
	})

	t.Run("commit error surfaces", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { return nil })
		require.EqualError(t, err, "connection reset")
	})
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			panic("kaput")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryTx_ReplaysDeadlock(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents`).WillReturnError(&pgconn.PgError{Code: "40P01"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, RetryTx(context.Background(), db, 0, deletePath("users/u1")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryTx_GivesUp(t *testing.T) {
	db, mock := newMock(t)
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM documents`).WillReturnError(&pgconn.PgError{Code: "40001"})
		mock.ExpectRollback()
	}

	err := RetryTx(context.Background(), db, 2, deletePath("users/u1"))
	require.True(t, Retryable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryTx_OtherErrorsAreFinal(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents`).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := RetryTx(context.Background(), db, 3, deletePath("users/u1"))
	require.Error(t, err)
	assert.False(t, Retryable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("db error: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, Retryable(errors.New("40001")))
	assert.False(t, Retryable(nil))
}
