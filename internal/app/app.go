// Package app wires configuration, stores, models, and services into the
// running application.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"docsearch/internal/admin"
	"docsearch/internal/agents"
	"docsearch/internal/chat"
	"docsearch/internal/config"
	"docsearch/internal/document"
	"docsearch/internal/indexing"
	"docsearch/internal/llm"
	"docsearch/internal/logging"
	"docsearch/internal/preprocess"
	"docsearch/internal/retrieval"
	"docsearch/internal/server"
	"docsearch/internal/store"
	"docsearch/internal/vector"
)

// App owns every long-lived component. Construct with New, release with
// Close.
type App struct {
	Config       *config.Config
	Logger       *logrus.Logger
	Docs         store.DocumentStore
	Index        vector.Index
	Engine       *retrieval.Engine
	Orchestrator *chat.Orchestrator
	Indexing     *indexing.Pipeline
	Server       *server.Server

	converter   *document.HTTPConverter
	stopTracing func()
}

// New loads configuration from the given path and builds the full
// application graph.
func New(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log)

	stopTracing, err := llm.SetupTracing(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	app := &App{
		Config:      cfg,
		Logger:      logger,
		stopTracing: stopTracing,
	}
	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}
	embeddings := vector.NewEmbeddingService(embedder, cfg.Embedding.Dim)

	index, err := vector.NewRedisStore(ctx, embeddings, cfg.Redis)
	if err != nil {
		return fmt.Errorf("building vector index: %w", err)
	}
	a.Index = index

	docs, err := store.NewPostgresStore(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("building document store: %w", err)
	}
	a.Docs = docs

	a.Engine = retrieval.NewEngine(index, embeddings, cfg.Index, a.Logger)

	chatModel, err := llm.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("building chat model: %w", err)
	}

	preprocessor := preprocess.New(llm.NewCompleter(chatModel), cfg.BusinessDomain, a.Logger)
	pipeline := agents.NewPipeline(chatModel, a.Engine, cfg.Agent, chat.DefaultModelID, a.Logger)
	a.Orchestrator = chat.NewOrchestrator(preprocessor, pipeline, a.Logger)

	a.converter = document.NewHTTPConverter(cfg.Converter)
	a.Indexing = indexing.NewPipeline(cfg.Data, vector.ChunkConfigFrom(cfg.Index), a.converter, docs, index, a.Logger)

	a.Server = server.New(cfg.Server, a.Orchestrator, cfg, a.Logger)
	return nil
}

// Admin builds the terminal console over the app's components.
func (a *App) Admin() *admin.Console {
	return admin.NewConsole(a.Config, a.Docs, a.Index, a.converter, a.Indexing, a.Orchestrator)
}

// Reset wipes both stores.
func (a *App) Reset(ctx context.Context) error {
	if err := a.Docs.DeleteAll(ctx); err != nil {
		return fmt.Errorf("resetting document store: %w", err)
	}
	if err := a.Index.DeleteAll(ctx); err != nil {
		return fmt.Errorf("resetting vector index: %w", err)
	}
	a.Logger.Info("document store and vector index reset")
	return nil
}

// Close releases connections and flushes tracing.
func (a *App) Close() {
	if a.Docs != nil {
		a.Docs.Close()
	}
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			a.Logger.WithError(err).Warn("closing vector index")
		}
	}
	if a.stopTracing != nil {
		a.stopTracing()
	}
}
