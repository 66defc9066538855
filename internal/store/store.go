// Package store persists processed-document records.
package store

import (
	"context"
	"time"

	"docsearch/internal/document"
)

// DocumentRow is one persisted document as the store reports it.
type DocumentRow struct {
	ID        int64
	Name      string
	Path      string
	Title     string
	CreatedAt time.Time
	NumNodes  int
	Processed bool
	Error     string
}

// DocumentStore is the write/read surface for processed documents.
type DocumentStore interface {
	// Save persists a record and returns its assigned identity.
	Save(ctx context.Context, doc *document.Processed) (string, error)

	// ListAll returns every persisted document, newest first.
	ListAll(ctx context.Context) ([]DocumentRow, error)

	// DeleteAll removes every persisted document. Vector cleanup is the
	// caller's responsibility.
	DeleteAll(ctx context.Context) error

	// SetNodeCount records how many chunks were indexed for a document.
	SetNodeCount(ctx context.Context, id string, count int) error

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close()
}
