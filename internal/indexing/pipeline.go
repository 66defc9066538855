// Package indexing drives the ingestion pipeline: discover raw files,
// convert them, persist processed artifacts, and submit chunks to the
// vector index.
package indexing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"docsearch/internal/config"
	"docsearch/internal/document"
	"docsearch/internal/store"
	"docsearch/internal/vector"
)

// FileState is the terminal state of one discovered file.
type FileState string

const (
	// StateSkipped: no conversion path exists for the file type.
	StateSkipped FileState = "skipped"
	// StateCached: processed artifacts already existed and were reused.
	StateCached FileState = "cached"
	// StateProcessed: converted and indexed in this run.
	StateProcessed FileState = "processed"
	// StateFailed: conversion failed; a failure record was still persisted.
	StateFailed FileState = "failed"
)

// FileResult reports what happened to one discovered file.
type FileResult struct {
	Path  string
	State FileState
	Err   error
}

// Pipeline runs document ingestion end to end.
type Pipeline struct {
	data      config.DataConfig
	chunkCfg  vector.ChunkConfig
	converter document.Converter
	docs      store.DocumentStore
	index     vector.Index
	logger    *logrus.Logger
}

// NewPipeline wires the ingestion pipeline.
func NewPipeline(data config.DataConfig, chunkCfg vector.ChunkConfig, converter document.Converter, docs store.DocumentStore, index vector.Index, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		data:      data,
		chunkCfg:  chunkCfg,
		converter: converter,
		docs:      docs,
		index:     index,
		logger:    logger,
	}
}

// Run indexes everything under the raw data folder. Per-file failures do
// not abort the run; the returned results carry each file's terminal state.
func (p *Pipeline) Run(ctx context.Context) ([]FileResult, error) {
	if err := p.ensureDirectories(); err != nil {
		return nil, err
	}

	files, err := doublestar.FilepathGlob(filepath.Join(p.data.FolderRaw, "*.*"))
	if err != nil {
		return nil, fmt.Errorf("discovering input files: %w", err)
	}
	p.logger.WithField("count", len(files)).Infof("found input files in %s", p.data.FolderRaw)

	var results []FileResult
	var processed []*document.Processed

	for _, file := range files {
		result := FileResult{Path: file}

		// Only PDFs have a conversion path. DOCX conversion is not
		// implemented, so those files are skipped like everything else.
		if strings.ToLower(filepath.Ext(file)) != ".pdf" {
			result.State = StateSkipped
			p.logger.WithField("file", filepath.Base(file)).Info("skipping unsupported file type")
			results = append(results, result)
			continue
		}

		if doc := p.loadCached(file); doc != nil {
			result.State = StateCached
			p.logger.WithField("file", filepath.Base(file)).Info("reusing cached processed document")
			processed = append(processed, doc)
			results = append(results, result)
			continue
		}

		doc, convErr := p.convert(ctx, file)
		if convErr != nil {
			result.State = StateFailed
			result.Err = convErr
			p.logger.WithError(convErr).Errorf("failed to process %s", filepath.Base(file))
		} else {
			result.State = StateProcessed
		}
		processed = append(processed, doc)
		results = append(results, result)
	}

	p.saveToStore(ctx, processed)
	p.submitToIndex(ctx, processed)

	return results, nil
}

func (p *Pipeline) ensureDirectories() error {
	for _, dir := range []string{p.data.FolderRaw, p.data.FolderProcessed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// fileStem cuts the name at the first dot, matching the cache file naming.
func fileStem(path string) string {
	stem, _, _ := strings.Cut(filepath.Base(path), ".")
	return stem
}

func (p *Pipeline) cachePaths(file string) (jsonPath, mdPath string) {
	stem := fileStem(file)
	jsonPath = filepath.Join(p.data.FolderProcessed, stem+"_processed.json")
	mdPath = filepath.Join(p.data.FolderProcessed, stem+".md")
	return jsonPath, mdPath
}

// loadCached returns the cached processed document when both artifacts
// exist, nil otherwise.
func (p *Pipeline) loadCached(file string) *document.Processed {
	jsonPath, mdPath := p.cachePaths(file)
	if _, err := os.Stat(mdPath); err != nil {
		return nil
	}
	doc, err := document.ReadJSON(jsonPath)
	if err != nil {
		return nil
	}
	return doc
}

// convert runs the external converter and persists the processed artifacts.
// On conversion failure it returns a failure record and the error; the
// record still flows to the document store.
func (p *Pipeline) convert(ctx context.Context, file string) (*document.Processed, error) {
	p.logger.WithField("file", filepath.Base(file)).Info("converting document")

	text, markdown, err := p.converter.Convert(ctx, file)
	if err != nil {
		return document.ProcessFailure(file, err), err
	}

	doc := document.Process(file, text, markdown)

	jsonPath, mdPath := p.cachePaths(file)
	if err := doc.WriteJSON(jsonPath); err != nil {
		p.logger.WithError(err).Warnf("failed to write %s", jsonPath)
	}
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		p.logger.WithError(err).Warnf("failed to write %s", mdPath)
	}

	return doc, nil
}

// saveToStore persists each record and assigns its document id. Store
// failures are logged, not fatal; the document just stays without an id.
func (p *Pipeline) saveToStore(ctx context.Context, docs []*document.Processed) {
	for _, doc := range docs {
		id, err := p.docs.Save(ctx, doc)
		if err != nil {
			p.logger.WithError(err).Errorf("failed to save %s to document store", doc.FileName)
			continue
		}
		doc.DocID = id
	}
}

// submitToIndex chunks every successfully processed document and submits
// all chunks in one batch. Chunk sequence numbers are 1-based per document.
func (p *Pipeline) submitToIndex(ctx context.Context, docs []*document.Processed) {
	now := time.Now().UTC().Format(time.RFC3339)

	var batch []vector.Document
	counts := map[string]int{}

	for _, doc := range docs {
		if !doc.Metadata.ProcessedSuccessfully || strings.TrimSpace(doc.MarkdownContent) == "" {
			continue
		}

		chunks := vector.ChunkDocument(doc.MarkdownContent, p.chunkCfg)
		for _, c := range chunks {
			batch = append(batch, vector.Document{
				Content:    c.Content,
				Source:     doc.FilePath,
				Filename:   doc.FileName,
				Title:      doc.Title,
				DocID:      doc.DocID,
				ChunkIndex: c.ChunkIndex + 1,
				CreatedAt:  now,
			})
		}
		if doc.DocID != "" {
			counts[doc.DocID] = len(chunks)
		}
	}

	if len(batch) == 0 {
		p.logger.Info("no chunks to index")
		return
	}

	if err := p.index.AddBatch(ctx, batch); err != nil {
		p.logger.WithError(err).Error("failed to submit chunks to vector index")
		return
	}
	p.logger.WithField("chunks", len(batch)).Info("submitted chunks to vector index")

	for docID, count := range counts {
		if err := p.docs.SetNodeCount(ctx, docID, count); err != nil {
			p.logger.WithError(err).Warnf("failed to record node count for document %s", docID)
		}
	}
}
