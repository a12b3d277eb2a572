// Package docstore is the record store adapter: key-addressed JSON documents
// with single reads, child listing and atomic multi-document batches that
// support field-level merge.
//
// Two backends are provided. BuntStore keeps documents in an embedded
// tidwall/buntdb file (or in memory) and is the default. PostgresStore keeps
// them in a JSONB table and runs each batch in one SQL transaction.
package docstore

import (
	"context"
)

// Store is what the services depend on.
type Store interface {
	// Get returns the document at p or common.ErrorNotFound.
	Get(ctx context.Context, p Path) (Document, error)
	// List returns the direct child documents of the collection path parent,
	// ordered by path.
	List(ctx context.Context, parent Path) ([]Snapshot, error)
	// Batch applies writes atomically: either all of them or none.
	Batch(ctx context.Context, writes ...Write) error
	// SetMerge merges fields into p, creating the document when absent.
	SetMerge(ctx context.Context, p Path, fields ...FieldUpdate) error
	// Delete removes p. Deleting a missing document is not an error.
	Delete(ctx context.Context, p Path) error
	Close() error
}
