package indexing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/config"
	"docsearch/internal/document"
	"docsearch/internal/store"
	"docsearch/internal/vector"
)

type fakeConverter struct {
	text     string
	markdown string
	err      error
	calls    int
}

func (f *fakeConverter) Convert(_ context.Context, _ string) (string, string, error) {
	f.calls++
	return f.text, f.markdown, f.err
}

type fakeStore struct {
	saved      []*document.Processed
	nodeCounts map[string]int
	nextID     int
	saveErr    error
}

func (f *fakeStore) Save(_ context.Context, doc *document.Processed) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, doc)
	f.nextID++
	return string(rune('0' + f.nextID)), nil
}

func (f *fakeStore) ListAll(context.Context) ([]store.DocumentRow, error) { return nil, nil }
func (f *fakeStore) DeleteAll(context.Context) error                      { return nil }

func (f *fakeStore) SetNodeCount(_ context.Context, id string, count int) error {
	if f.nodeCounts == nil {
		f.nodeCounts = map[string]int{}
	}
	f.nodeCounts[id] = count
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close()                     {}

type fakeIndex struct {
	added  []vector.Document
	addErr error
}

func (f *fakeIndex) AddBatch(_ context.Context, docs []vector.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, docs...)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]vector.SearchResult, error) {
	return nil, nil
}
func (f *fakeIndex) DeleteBySource(context.Context, string) error { return nil }
func (f *fakeIndex) DeleteAll(context.Context) error              { return nil }
func (f *fakeIndex) Count(context.Context) (int64, error)         { return 0, nil }
func (f *fakeIndex) Close() error                                 { return nil }

func testPipeline(t *testing.T, conv document.Converter, st store.DocumentStore, idx vector.Index) (*Pipeline, config.DataConfig) {
	t.Helper()
	data := config.DataConfig{
		FolderRaw:       filepath.Join(t.TempDir(), "raw"),
		FolderProcessed: filepath.Join(t.TempDir(), "processed"),
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	chunkCfg := vector.ChunkConfig{ChunkSize: 100, ChunkOverlap: 20, MinChunkSize: 5, SplitByParagraph: true}
	return NewPipeline(data, chunkCfg, conv, st, idx, logger), data
}

func writeRawFile(t *testing.T, data config.DataConfig, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(data.FolderRaw, 0o755))
	path := filepath.Join(data.FolderRaw, name)
	require.NoError(t, os.WriteFile(path, []byte("raw bytes"), 0o644))
	return path
}

func TestRunSkipsUnsupportedTypes(t *testing.T) {
	conv := &fakeConverter{}
	p, data := testPipeline(t, conv, &fakeStore{}, &fakeIndex{})
	writeRawFile(t, data, "notes.docx")
	writeRawFile(t, data, "image.png")

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StateSkipped, r.State)
	}
	assert.Zero(t, conv.calls)
}

func TestRunProcessesPDF(t *testing.T) {
	conv := &fakeConverter{
		text:     "Quarterly Report\nSome text body here.",
		markdown: "# Quarterly Report\n\nSome text body here with enough detail to chunk.",
	}
	st := &fakeStore{}
	idx := &fakeIndex{}
	p, data := testPipeline(t, conv, st, idx)
	writeRawFile(t, data, "report.pdf")

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateProcessed, results[0].State)

	// Artifacts written to the processed folder.
	assert.FileExists(t, filepath.Join(data.FolderProcessed, "report_processed.json"))
	assert.FileExists(t, filepath.Join(data.FolderProcessed, "report.md"))

	// Saved with an assigned id and chunked into the index.
	require.Len(t, st.saved, 1)
	assert.NotEmpty(t, st.saved[0].DocID)
	require.NotEmpty(t, idx.added)
	assert.Equal(t, "report.pdf", idx.added[0].Filename)
	assert.Equal(t, st.saved[0].DocID, idx.added[0].DocID)

	// Chunk sequence numbers start at 1.
	assert.Equal(t, 1, idx.added[0].ChunkIndex)

	assert.Equal(t, len(idx.added), st.nodeCounts[st.saved[0].DocID])
}

func TestRunReusesCache(t *testing.T) {
	conv := &fakeConverter{}
	st := &fakeStore{}
	idx := &fakeIndex{}
	p, data := testPipeline(t, conv, st, idx)
	path := writeRawFile(t, data, "cached.pdf")

	cached := document.Process(path, "Cached Title\ntext", "# Cached Title\n\nbody text for chunks")
	require.NoError(t, os.MkdirAll(data.FolderProcessed, 0o755))
	require.NoError(t, cached.WriteJSON(filepath.Join(data.FolderProcessed, "cached_processed.json")))
	require.NoError(t, os.WriteFile(filepath.Join(data.FolderProcessed, "cached.md"), []byte(cached.MarkdownContent), 0o644))

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateCached, results[0].State)
	assert.Zero(t, conv.calls)

	// Cached documents still get saved and indexed.
	require.Len(t, st.saved, 1)
	assert.NotEmpty(t, idx.added)
}

func TestRunCacheRequiresBothArtifacts(t *testing.T) {
	conv := &fakeConverter{text: "t", markdown: "m"}
	p, data := testPipeline(t, conv, &fakeStore{}, &fakeIndex{})
	path := writeRawFile(t, data, "partial.pdf")

	// JSON present but markdown missing: the cache does not apply.
	cached := document.Process(path, "t", "m")
	require.NoError(t, os.MkdirAll(data.FolderProcessed, 0o755))
	require.NoError(t, cached.WriteJSON(filepath.Join(data.FolderProcessed, "partial_processed.json")))

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, results[0].State)
	assert.Equal(t, 1, conv.calls)
}

func TestRunConversionFailure(t *testing.T) {
	conv := &fakeConverter{err: errors.New("converter unreachable")}
	st := &fakeStore{}
	idx := &fakeIndex{}
	p, data := testPipeline(t, conv, st, idx)
	writeRawFile(t, data, "broken.pdf")

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateFailed, results[0].State)
	assert.Error(t, results[0].Err)

	// The failure record still reaches the document store but is never
	// indexed.
	require.Len(t, st.saved, 1)
	assert.False(t, st.saved[0].Metadata.ProcessedSuccessfully)
	assert.Empty(t, idx.added)
}

func TestRunEmptyDirectory(t *testing.T) {
	p, _ := testPipeline(t, &fakeConverter{}, &fakeStore{}, &fakeIndex{})

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "report", fileStem("/data/raw/report.pdf"))
	assert.Equal(t, "report", fileStem("report.v2.pdf"))
}
