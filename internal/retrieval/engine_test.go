package retrieval

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/config"
	"docsearch/internal/trace"
	"docsearch/internal/vector"
)

type stubIndex struct {
	results []vector.SearchResult
	err     error
	lastK   int
}

func (s *stubIndex) Search(_ context.Context, _ string, topK int) ([]vector.SearchResult, error) {
	s.lastK = topK
	return s.results, s.err
}

func (s *stubIndex) AddBatch(context.Context, []vector.Document) error { return nil }
func (s *stubIndex) DeleteBySource(context.Context, string) error      { return nil }
func (s *stubIndex) DeleteAll(context.Context) error                   { return nil }
func (s *stubIndex) Count(context.Context) (int64, error)              { return 0, nil }
func (s *stubIndex) Close() error                                      { return nil }

// stubEmbedder maps known texts to fixed vectors so cosine ordering in the
// tests is fully determined.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func candidate(content, filename, title string, score float32) vector.SearchResult {
	return vector.SearchResult{
		Document: vector.Document{
			Content:  content,
			Filename: filename,
			Title:    title,
		},
		Score: score,
	}
}

func defaultCfg() config.IndexConfig {
	return config.IndexConfig{ChunkSize: 1000, ChunkOverlap: 200, TopKRetrieval: 10, TopKRerank: 3}
}

func TestRetrieveRerankOrdering(t *testing.T) {
	// The index returns candidates in the "wrong" order; exact cosine against
	// the query vector must reorder them.
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("far", "a.pdf", "A", 0.9),
		candidate("near", "b.pdf", "B", 0.5),
		candidate("middle", "c.pdf", "C", 0.7),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query":  {1, 0},
		"near":   {1, 0},
		"middle": {1, 1},
		"far":    {0, 1},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 0, 0)
	require.NoError(t, err)
	require.Len(t, res.Sources, 3)
	assert.Equal(t, "near", res.Sources[0].Text)
	assert.Equal(t, "middle", res.Sources[1].Text)
	assert.Equal(t, "far", res.Sources[2].Text)
	assert.InDelta(t, 1.0, float64(res.Sources[0].Score), 1e-6)
	assert.Equal(t, 10, idx.lastK)
}

func TestRetrieveStableOnTies(t *testing.T) {
	// Identical vectors score identically; the index order must survive.
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("first", "a.pdf", "A", 0.9),
		candidate("second", "b.pdf", "B", 0.8),
		candidate("third", "c.pdf", "C", 0.7),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query":  {1, 0},
		"first":  {1, 1},
		"second": {1, 1},
		"third":  {1, 1},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 3, 3)
	require.NoError(t, err)
	require.Len(t, res.Sources, 3)
	assert.Equal(t, "first", res.Sources[0].Text)
	assert.Equal(t, "second", res.Sources[1].Text)
	assert.Equal(t, "third", res.Sources[2].Text)
}

func TestRetrieveTruncatesToRerankK(t *testing.T) {
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("a", "a.pdf", "A", 0.9),
		candidate("b", "b.pdf", "B", 0.8),
		candidate("c", "c.pdf", "C", 0.7),
		candidate("d", "d.pdf", "D", 0.6),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"a":     {1, 0},
		"b":     {1, 0.5},
		"c":     {1, 1},
		"d":     {0, 1},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 4, 2)
	require.NoError(t, err)
	assert.Len(t, res.Sources, 2)
	assert.Len(t, res.Candidates, 4)
}

func TestRetrieveRerankKLargerThanCandidates(t *testing.T) {
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("only", "a.pdf", "A", 0.9),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"only":  {1, 0},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 5, 10)
	require.NoError(t, err)
	assert.Len(t, res.Sources, 1)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx := &stubIndex{}
	eng := NewEngine(idx, &stubEmbedder{}, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Context)
	assert.Empty(t, res.Sources)
	assert.Empty(t, res.Texts)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	eng := NewEngine(&stubIndex{}, &stubEmbedder{}, defaultCfg(), testLogger())
	_, err := eng.Retrieve(context.Background(), "   ", 0, 0)
	assert.Error(t, err)
}

func TestContextFormat(t *testing.T) {
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("chunk text", "guide.pdf", "Getting Started", 0.9),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query":      {1, 0},
		"chunk text": {1, 0},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 1, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Context, "[Source 1 - guide.pdf]\nSection: Getting Started\nchunk text\n"))
}

func TestContextFormatMissingFields(t *testing.T) {
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("text", "", "", 0.9),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"text":  {1, 0},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	res, err := eng.Retrieve(context.Background(), "query", 1, 1)
	require.NoError(t, err)
	assert.Contains(t, res.Context, "[Source 1 - Unknown]")
	assert.Contains(t, res.Context, "Section: N/A")
	// Source attribution keeps the raw values.
	assert.Equal(t, "", res.Sources[0].FileName)
}

func TestRetrieveRecordsTrace(t *testing.T) {
	idx := &stubIndex{results: []vector.SearchResult{
		candidate("traced", "a.pdf", "A", 0.9),
	}}
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query":  {1, 0},
		"traced": {1, 0},
	}}
	eng := NewEngine(idx, emb, defaultCfg(), testLogger())

	ctx, tr := trace.WithTrace(context.Background())
	_, err := eng.Retrieve(ctx, "query", 1, 1)
	require.NoError(t, err)

	_, contexts, _ := tr.Snapshot()
	assert.Equal(t, []string{"traced"}, contexts)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, float64(cosineSimilarity([]float32{1, 2}, []float32{2, 4})), 1e-6)
	assert.InDelta(t, 0.0, float64(cosineSimilarity([]float32{1, 0}, []float32{0, 1})), 1e-6)
	assert.InDelta(t, -1.0, float64(cosineSimilarity([]float32{1, 0}, []float32{-1, 0})), 1e-6)
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
