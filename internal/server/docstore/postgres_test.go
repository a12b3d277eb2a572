package docstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT data FROM documents WHERE path = \$1`).
		WithArgs("users/u1/collections/c1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"name":"Paris","isOwner":true}`)))

	doc, err := s.Get(context.Background(), CollectionDoc("u1", "c1"))
	require.NoError(t, err)
	assert.Equal(t, "Paris", doc.String("name"))
	assert.True(t, doc.Bool("isOwner"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT data FROM documents`).
		WithArgs("users/u1").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), UserDoc("u1"))
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresStore_GetMalformed(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT data FROM documents`).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`[1,2`)))

	_, err := s.Get(context.Background(), UserDoc("u1"))
	assert.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT path, data FROM documents WHERE parent = \$1 ORDER BY path`).
		WithArgs("users/u1/friends").
		WillReturnRows(sqlmock.NewRows([]string{"path", "data"}).
			AddRow("users/u1/friends/a", []byte(`{}`)).
			AddRow("users/u1/friends/b", []byte(`{"since":"x"}`)))

	snaps, err := s.List(context.Background(), Friends("u1"))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].ID())
	assert.Equal(t, "x", snaps[1].Data.String("since"))
}

func TestPostgresStore_BatchCommits(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents WHERE path = \$1 FOR UPDATE`).
		WithArgs("users/o/collections/c").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"iconName":"star"}`)))
	mock.ExpectExec(`INSERT INTO documents .* ON CONFLICT \(path\) DO UPDATE`).
		WithArgs("users/o/collections/c", "users/o/collections", `{"iconUrl":"https://img"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM documents WHERE path = \$1`).
		WithArgs("users/m/collections/c").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Batch(context.Background(),
		Update(CollectionDoc("o", "c"), Field("iconUrl", "https://img"), Field("iconName", DeleteField)),
		Delete(CollectionDoc("m", "c")),
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BatchUpdateMissingRollsBack(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.Batch(context.Background(), Update(CollectionDoc("o", "c"), Field("status", "inactive")))
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BatchExecErrorRollsBack(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Batch(context.Background(), Set(UserDoc("u1"), map[string]any{"name": "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EmptyBatchIsNoop(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	require.NoError(t, s.Batch(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunMigrations(t *testing.T) {
	s, _ := newPostgresWithMock(t)

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	require.NoError(t, s.RunMigrations(context.Background()))

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	err := s.RunMigrations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPostgresStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewPostgresStore(db)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("conn refused"))
	require.Error(t, s.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
