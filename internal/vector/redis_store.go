package vector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"docsearch/internal/config"
)

const (
	fieldContent    = "content"
	fieldVector     = "vector"
	fieldSource     = "source"
	fieldFilename   = "filename"
	fieldTitle      = "title"
	fieldDocID      = "doc_id"
	fieldChunkIndex = "chunk_index"
	fieldCreatedAt  = "created_at"
	fieldScore      = "score"
)

// RedisStore implements Index on Redis with a RediSearch HNSW vector index.
type RedisStore struct {
	client         *redis.Client
	embeddingSvc   *EmbeddingService
	indexName      string
	keyPrefix      string
	dim            int
	efConstruction int
	m              int
	mu             sync.Mutex
	indexCreated   bool
}

// NewRedisStore connects to Redis and ensures the vector index exists.
func NewRedisStore(ctx context.Context, embeddingSvc *EmbeddingService, cfg config.RedisConfig) (*RedisStore, error) {
	if embeddingSvc == nil {
		return nil, fmt.Errorf("embedding service is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &RedisStore{
		client:         client,
		embeddingSvc:   embeddingSvc,
		indexName:      cfg.IndexName,
		keyPrefix:      "chunk:",
		dim:            embeddingSvc.Dimension(),
		efConstruction: cfg.EFConstruction,
		m:              cfg.M,
	}
	if err := store.ensureIndex(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	return store, nil
}

// ensureIndex creates the HNSW vector index if it doesn't exist.
func (s *RedisStore) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.client.Do(ctx, "FT.INFO", s.indexName).Result(); err == nil {
		s.indexCreated = true
		return nil
	}

	// FT.CREATE <index> ON HASH PREFIX 1 "chunk:"
	//   SCHEMA vector VECTOR HNSW 6 TYPE FLOAT32 DIM <dim> DISTANCE_METRIC COSINE
	//          EF_CONSTRUCTION <ef> M <m>
	//          content TEXT  source TAG  filename TAG  title TEXT
	//          doc_id TAG  chunk_index NUMERIC  created_at NUMERIC
	_, err := s.client.Do(ctx, "FT.CREATE", s.indexName,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.efConstruction),
		"M", strconv.Itoa(s.m),
		fieldContent, "TEXT",
		fieldSource, "TAG",
		fieldFilename, "TAG",
		fieldTitle, "TEXT",
		fieldDocID, "TAG",
		fieldChunkIndex, "NUMERIC",
		fieldCreatedAt, "NUMERIC",
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	s.indexCreated = true
	return nil
}

func (s *RedisStore) generateID(source string, chunkIndex int) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte(strconv.Itoa(chunkIndex)))
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// AddBatch embeds all documents and writes them in one pipeline.
func (s *RedisStore) AddBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embeddingSvc.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	pipe := s.client.Pipeline()
	now := time.Now().Unix()
	for i, doc := range docs {
		if vectors[i] == nil {
			continue
		}
		if doc.ID == "" {
			doc.ID = s.generateID(doc.Source, doc.ChunkIndex)
		}
		if doc.CreatedAt == "" {
			doc.CreatedAt = time.Now().Format(time.RFC3339)
		}

		pipe.HSet(ctx, s.keyPrefix+doc.ID,
			fieldContent, doc.Content,
			fieldVector, encodeVector(vectors[i]),
			fieldSource, escapeTag(doc.Source),
			fieldFilename, escapeTag(doc.Filename),
			fieldTitle, doc.Title,
			fieldDocID, doc.DocID,
			fieldChunkIndex, doc.ChunkIndex,
			fieldCreatedAt, now,
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

// encodeVector packs a float32 vector as little-endian bytes, the layout
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// escapeTag escapes TAG separator characters in field values.
func escapeTag(s string) string {
	replacer := strings.NewReplacer(",", "\\,", " ", "\\ ")
	return replacer.Replace(s)
}

// Search embeds the query and runs a KNN search against the index. Results
// carry similarity scores derived from the index's cosine distance.
func (s *RedisStore) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	if topK > 100 {
		topK = 100
	}

	queryVector, err := s.embeddingSvc.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	// FT.SEARCH <index> "*=>[KNN k @vector $query_vector AS score]"
	//   PARAMS 2 query_vector <bytes> SORTBY score RETURN ... DIALECT 2
	queryStr := fmt.Sprintf("*=>[KNN %d @vector $query_vector AS %s]", topK, fieldScore)
	result, err := s.client.Do(ctx, "FT.SEARCH", s.indexName, queryStr,
		"PARAMS", "2", "query_vector", encodeVector(queryVector),
		"SORTBY", fieldScore,
		"RETURN", "7", fieldContent, fieldSource, fieldFilename, fieldTitle, fieldDocID, fieldChunkIndex, fieldScore,
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return s.parseSearchResults(result)
}

// parseSearchResults parses the FT.SEARCH reply: a count followed by
// alternating key / field-value-list entries.
func (s *RedisStore) parseSearchResults(result interface{}) ([]SearchResult, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search result format")
	}
	if len(values) < 2 {
		return []SearchResult{}, nil
	}

	var results []SearchResult
	for i := 1; i < len(values)-1; i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}

		doc, score := s.parseDocumentFields(strings.TrimPrefix(key, s.keyPrefix), fields)
		results = append(results, SearchResult{Document: doc, Score: score})
	}
	return results, nil
}

func (s *RedisStore) parseDocumentFields(id string, fields []interface{}) (Document, float32) {
	doc := Document{ID: id}
	var score float32

	for i := 0; i+1 < len(fields); i += 2 {
		name, ok := fields[i].(string)
		if !ok {
			continue
		}
		value, ok := fields[i+1].(string)
		if !ok {
			continue
		}

		switch name {
		case fieldContent:
			doc.Content = value
		case fieldSource:
			doc.Source = unescapeTag(value)
		case fieldFilename:
			doc.Filename = unescapeTag(value)
		case fieldTitle:
			doc.Title = value
		case fieldDocID:
			doc.DocID = value
		case fieldChunkIndex:
			if n, err := strconv.Atoi(value); err == nil {
				doc.ChunkIndex = n
			}
		case fieldScore:
			// RediSearch reports cosine distance; flip to similarity.
			if dist, err := strconv.ParseFloat(value, 32); err == nil {
				score = 1 - float32(dist)
			}
		}
	}
	return doc, score
}

func unescapeTag(s string) string {
	replacer := strings.NewReplacer("\\,", ",", "\\ ", " ")
	return replacer.Replace(s)
}

// DeleteBySource removes all chunks indexed from one source file.
func (s *RedisStore) DeleteBySource(ctx context.Context, source string) error {
	if source == "" {
		return fmt.Errorf("source cannot be empty")
	}

	result, err := s.client.Do(ctx, "FT.SEARCH", s.indexName,
		fmt.Sprintf("@%s:{%s}", fieldSource, escapeTag(source)),
		"NOCONTENT",
		"LIMIT", "0", "1000",
	).Result()
	if err != nil {
		// No index or no matches: nothing to delete.
		return nil
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return nil
	}

	var keys []string
	for i := 1; i < len(values); i++ {
		if key, ok := values[i].(string); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		return s.client.Del(ctx, keys...).Err()
	}
	return nil
}

// DeleteAll removes every indexed chunk.
func (s *RedisStore) DeleteAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("scanning chunk keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting chunk keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Count returns the number of documents the index reports.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	info, err := s.client.Do(ctx, "FT.INFO", s.indexName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get index info: %w", err)
	}

	values, ok := info.([]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected info format")
	}
	for i := 0; i < len(values)-1; i += 2 {
		if key, ok := values[i].(string); ok && key == "num_docs" {
			switch v := values[i+1].(type) {
			case int64:
				return v, nil
			case string:
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					return n, nil
				}
			}
		}
	}
	return 0, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
