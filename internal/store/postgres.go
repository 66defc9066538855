package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"docsearch/internal/config"
	"docsearch/internal/document"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id           BIGSERIAL PRIMARY KEY,
	name         TEXT NOT NULL,
	path         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	num_of_nodes INTEGER NOT NULL DEFAULT 0,
	content_text TEXT NOT NULL DEFAULT '',
	content_md   TEXT NOT NULL DEFAULT '',
	processed_ok BOOLEAN NOT NULL DEFAULT true,
	error        TEXT NOT NULL DEFAULT ''
)`

// PostgresStore implements DocumentStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the documents table
// exists.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save inserts the document and returns the assigned id.
func (s *PostgresStore) Save(ctx context.Context, doc *document.Processed) (string, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (name, path, title, created_at, content_text, content_md, processed_ok, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		doc.FileName,
		doc.FilePath,
		doc.Title,
		doc.Metadata.CreatedAt,
		doc.TextContent,
		doc.MarkdownContent,
		doc.Metadata.ProcessedSuccessfully,
		doc.Metadata.Error,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// ListAll returns every persisted document, newest first, without content
// bodies.
func (s *PostgresStore) ListAll(ctx context.Context) ([]DocumentRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, path, title, created_at, num_of_nodes, processed_ok, error
		 FROM documents
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.ID, &d.Name, &d.Path, &d.Title, &d.CreatedAt, &d.NumNodes, &d.Processed, &d.Error); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteAll truncates the documents table.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// SetNodeCount records how many chunks were indexed for a document.
func (s *PostgresStore) SetNodeCount(ctx context.Context, id string, count int) error {
	docID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", id, err)
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE documents SET num_of_nodes = $1 WHERE id = $2`, count, docID); err != nil {
		return fmt.Errorf("updating node count: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
