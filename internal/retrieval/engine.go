// Package retrieval fetches candidate chunks from the vector index and
// reranks them with an exact cosine score before handing them to the agents.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"docsearch/internal/config"
	"docsearch/internal/trace"
	"docsearch/internal/vector"
)

// Embedder is the embedding surface the engine needs for reranking.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Source attributes one reranked chunk for citation.
type Source struct {
	FileName string  `json:"file_name"`
	Section  string  `json:"section"`
	Score    float32 `json:"score"`
	Text     string  `json:"text"`
}

// Result is the full output of one retrieval call.
type Result struct {
	Context    string
	Sources    []Source
	Texts      []string
	Candidates []vector.SearchResult
}

// Engine retrieves an over-fetched candidate set and reranks it. The index
// orders candidates by its approximate native metric; the engine re-embeds
// query and candidates and replaces those scores with exact cosine
// similarity over the small candidate set.
type Engine struct {
	index      vector.Index
	embeddings Embedder
	defaults   config.IndexConfig
	logger     *logrus.Logger
}

// NewEngine builds a retrieval engine over the given index and embedder.
func NewEngine(index vector.Index, embeddings Embedder, defaults config.IndexConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		index:      index,
		embeddings: embeddings,
		defaults:   defaults,
		logger:     logger,
	}
}

// Retrieve runs search + rerank for one query. A retrieveK or rerankK of
// zero (or less) falls back to the configured defaults. An empty candidate
// set yields an empty context and no sources, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, retrieveK, rerankK int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if retrieveK <= 0 {
		retrieveK = e.defaults.TopKRetrieval
	}
	if rerankK <= 0 {
		rerankK = e.defaults.TopKRerank
	}

	candidates, err := e.index.Search(ctx, query, retrieveK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(candidates) == 0 {
		return &Result{Sources: []Source{}, Texts: []string{}}, nil
	}

	reranked, err := e.rerank(ctx, query, candidates, rerankK)
	if err != nil {
		return nil, fmt.Errorf("reranking candidates: %w", err)
	}

	result := format(reranked, candidates)
	trace.FromContext(ctx).AddContexts(result.Texts)

	e.logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"reranked":   len(reranked),
	}).Debug("retrieval completed")

	return result, nil
}

// rerank re-embeds the query and all candidate texts and sorts by exact
// cosine similarity, keeping the top k. Ties keep the original candidate
// order.
func (e *Engine) rerank(ctx context.Context, query string, candidates []vector.SearchResult, k int) ([]vector.SearchResult, error) {
	queryVec, err := e.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Document.Content
	}
	candidateVecs, err := e.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding candidates: %w", err)
	}

	scored := make([]vector.SearchResult, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		scored[i].Score = cosineSimilarity(queryVec, candidateVecs[i])
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// A nil or zero vector scores 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// format assembles the numbered-source context block the agents consume:
//
//	[Source 1 - policy.pdf]
//	Section: Refund Policy
//	<chunk text>
func format(reranked, candidates []vector.SearchResult) *Result {
	var parts []string
	sources := make([]Source, 0, len(reranked))
	texts := make([]string, 0, len(reranked))

	for i, r := range reranked {
		filename := r.Document.Filename
		if filename == "" {
			filename = "Unknown"
		}
		section := r.Document.Title
		if section == "" {
			section = "N/A"
		}

		parts = append(parts,
			fmt.Sprintf("[Source %d - %s]", i+1, filename),
			fmt.Sprintf("Section: %s", section),
			r.Document.Content,
			"",
		)
		sources = append(sources, Source{
			FileName: r.Document.Filename,
			Section:  r.Document.Title,
			Score:    r.Score,
			Text:     r.Document.Content,
		})
		texts = append(texts, r.Document.Content)
	}

	return &Result{
		Context:    strings.Join(parts, "\n"),
		Sources:    sources,
		Texts:      texts,
		Candidates: candidates,
	}
}
