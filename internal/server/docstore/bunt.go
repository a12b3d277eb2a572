package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/tidwall/buntdb"
)

// BuntStore stores each document as a JSON string under its path.
type BuntStore struct {
	db *buntdb.DB
}

// OpenBunt opens (or creates) a buntdb file. Use ":memory:" for a
// throwaway store.
func OpenBunt(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb %s: %w", path, err)
	}
	return &BuntStore{db: db}, nil
}

func (s *BuntStore) Get(ctx context.Context, p Path) (Document, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(string(p))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return decodeDocument([]byte(raw))
}

func (s *BuntStore) List(ctx context.Context, parent Path) ([]Snapshot, error) {
	if err := parent.ValidateCollection(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := string(parent) + "/"
	var out []Snapshot
	var decodeErr error

	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			// skip documents of nested collections
			if strings.Contains(key[len(prefix):], "/") {
				return true
			}
			doc, err := decodeDocument([]byte(value))
			if err != nil {
				decodeErr = fmt.Errorf("%s: %w", key, err)
				return false
			}
			out = append(out, Snapshot{Path: Path(key), Data: doc})
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

func (s *BuntStore) Batch(ctx context.Context, writes ...Write) error {
	if len(writes) == 0 {
		return nil
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		return runBatch(ctx, buntTxn{tx: tx}, writes)
	})
}

func (s *BuntStore) SetMerge(ctx context.Context, p Path, fields ...FieldUpdate) error {
	return s.Batch(ctx, Merge(p, fields...))
}

func (s *BuntStore) Delete(ctx context.Context, p Path) error {
	return s.Batch(ctx, Delete(p))
}

func (s *BuntStore) Close() error {
	return s.db.Close()
}

type buntTxn struct {
	tx *buntdb.Tx
}

func (t buntTxn) load(_ context.Context, p Path) (Document, bool, error) {
	v, err := t.tx.Get(string(p))
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := decodeDocument([]byte(v))
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", p, err)
	}
	return doc, true, nil
}

func (t buntTxn) put(_ context.Context, p Path, doc Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, _, err = t.tx.Set(string(p), string(b), nil)
	return err
}

func (t buntTxn) remove(_ context.Context, p Path) error {
	_, err := t.tx.Delete(string(p))
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

func decodeDocument(b []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedRecord, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
