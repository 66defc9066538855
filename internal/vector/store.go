// Package vector owns chunking, embedding, and the similarity-searchable
// index the retrieval engine reads from.
package vector

import "context"

// Document is one indexed chunk with its provenance metadata.
type Document struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Source     string `json:"source"`
	Filename   string `json:"filename"`
	Title      string `json:"title"`
	DocID      string `json:"doc_id"`
	ChunkIndex int    `json:"chunk_index"`
	CreatedAt  string `json:"created_at"`
}

// SearchResult pairs an indexed chunk with a query-time similarity score.
// Higher scores are more similar.
type SearchResult struct {
	Document Document
	Score    float32
}

// Index is the similarity-search surface the rest of the system uses.
type Index interface {
	// AddBatch embeds and stores documents in a single operation.
	AddBatch(ctx context.Context, docs []Document) error

	// Search returns up to topK chunks ordered by the index's native
	// similarity metric.
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)

	// DeleteBySource removes every chunk indexed from one source file.
	DeleteBySource(ctx context.Context, source string) error

	// DeleteAll wipes the whole index.
	DeleteAll(ctx context.Context) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying connection.
	Close() error
}
