package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/dbx"
	"github.com/dmitrijs2005/placeshare/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	selectDocumentSQL = `SELECT data FROM documents WHERE path = $1`
	lockDocumentSQL   = `SELECT data FROM documents WHERE path = $1 FOR UPDATE`
	listDocumentsSQL  = `SELECT path, data FROM documents WHERE parent = $1 ORDER BY path`
	upsertDocumentSQL = `INSERT INTO documents (path, parent, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	deleteDocumentSQL = `DELETE FROM documents WHERE path = $1`
)

// PostgresStore keeps documents in the documents table, one row per path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx stdlib driver and pings the server.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Ping reports whether the database answers.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, p Path) (Document, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx, selectDocumentSQL, string(p)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decodeDocument(raw)
}

func (s *PostgresStore) List(ctx context.Context, parent Path) ([]Snapshot, error) {
	if err := parent.ValidateCollection(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, listDocumentsSQL, string(parent))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var path string
		var raw []byte
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, Snapshot{Path: Path(path), Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Batch(ctx context.Context, writes ...Write) error {
	if len(writes) == 0 {
		return nil
	}
	return dbx.RetryTx(ctx, s.db, 0, func(ctx context.Context, tx dbx.DBTX) error {
		return runBatch(ctx, pgTxn{tx: tx}, writes)
	})
}

func (s *PostgresStore) SetMerge(ctx context.Context, p Path, fields ...FieldUpdate) error {
	return s.Batch(ctx, Merge(p, fields...))
}

func (s *PostgresStore) Delete(ctx context.Context, p Path) error {
	return s.Batch(ctx, Delete(p))
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type pgTxn struct {
	tx dbx.DBTX
}

func (t pgTxn) load(ctx context.Context, p Path) (Document, bool, error) {
	var raw []byte
	err := t.tx.QueryRowContext(ctx, lockDocumentSQL, string(p)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", p, err)
	}
	return doc, true, nil
}

func (t pgTxn) put(ctx context.Context, p Path, doc Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, upsertDocumentSQL, string(p), string(p.Parent()), string(b)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (t pgTxn) remove(ctx context.Context, p Path) error {
	if _, err := t.tx.ExecContext(ctx, deleteDocumentSQL, string(p)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
