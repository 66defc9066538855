// Package tools exposes retrieval to the agents as callable tools.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"docsearch/internal/retrieval"
)

// DocumentSearchToolName is the tool name the retriever agent is instructed
// to call.
const DocumentSearchToolName = "document_search"

const documentSearchDescription = "Search the document knowledge base for information relevant to the query. " +
	"Returns numbered source excerpts with file names and section titles."

// Searcher is the retrieval surface the tool invokes. Zero values for the
// two k parameters select the configured defaults.
type Searcher interface {
	Retrieve(ctx context.Context, query string, retrieveK, rerankK int) (*retrieval.Result, error)
}

// SearchParams is the tool's argument schema.
type SearchParams struct {
	Query string `json:"query" jsonschema:"description=The question or phrase to search the document knowledge base for"`
}

// Collector accumulates the sources every tool call produced during one
// pipeline run, so the final response can cite them.
type Collector struct {
	mu      sync.Mutex
	sources []retrieval.Source
}

// Add appends sources from one tool invocation.
func (c *Collector) Add(sources []retrieval.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, sources...)
}

// Sources returns everything collected so far.
func (c *Collector) Sources() []retrieval.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]retrieval.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// SearchFunc returns the tool's implementation. Every failure, blank query
// and engine error alike, is reported back to the model as result text so
// the agent run continues instead of aborting.
func SearchFunc(engine Searcher, collector *Collector) func(ctx context.Context, params *SearchParams) (string, error) {
	return func(ctx context.Context, params *SearchParams) (string, error) {
		if params == nil || params.Query == "" {
			return "Error: Query cannot be empty", nil
		}

		res, err := engine.Retrieve(ctx, params.Query, 0, 0)
		if err != nil {
			return fmt.Sprintf("Error in document search tool. Exception occurred: %v", err), nil
		}
		if len(res.Sources) == 0 {
			return "No relevant documents found for this query.", nil
		}

		if collector != nil {
			collector.Add(res.Sources)
		}
		return res.Context, nil
	}
}

// NewDocumentSearchTool builds the document_search tool over the retrieval
// engine. Each pipeline run gets its own collector.
func NewDocumentSearchTool(engine Searcher, collector *Collector) (tool.BaseTool, error) {
	t, err := utils.InferTool(DocumentSearchToolName, documentSearchDescription, SearchFunc(engine, collector))
	if err != nil {
		return nil, fmt.Errorf("creating document search tool: %w", err)
	}
	return t, nil
}
