// Package agents runs the two-stage answer pipeline: a retriever agent that
// must ground its answer in document_search results, followed by a validator
// agent that checks the answer for hallucination, grounding, and relevance.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/sirupsen/logrus"

	"docsearch/internal/config"
	"docsearch/internal/retrieval"
	"docsearch/internal/tools"
)

// Agent names, also reported in response metadata.
const (
	RetrieverAgentName = "DocumentRetriever"
	ValidatorAgentName = "AnswerValidator"
)

const retrieverInstruction = `You are an expert document analyst who excels at using the document_search tool to find relevant context from document collections and then synthesizing that context into clear, comprehensive answers. You always base your responses strictly on the context returned by the document_search tool and cite sources clearly.

You MUST use the 'document_search' tool to get relevant context for the user's question.

REQUIRED STEPS:
1. FIRST: Call the 'document_search' tool with the question as input
2. The tool will return relevant context from documents with sources and sections formatted like:
   [Source 1 - filename.pdf]
   Section: section_name
   content text...
3. THEN: Carefully analyze the context returned by the tool
4. Generate a comprehensive answer based ONLY on the context provided by the tool
5. Include specific citations referencing the sources from the context
6. If the context is insufficient, clearly state what's missing

IMPORTANT:
- You must use the document_search tool to get context first
- Base your answer ONLY on the context returned by the tool
- Do not add information that isn't in the provided context
- Include proper citations from the sources mentioned in the context`

const validatorInstruction = `You are a meticulous quality checker who reviews the previous agent's answer to the user's question. You may optionally use the 'document_search' tool to get context and verify information if needed.

Perform these validation checks:

HALLUCINATION CHECK:
- Verify claims in the previous answer are reasonable and could come from document context
- Flag any information that seems to be added without supporting context

GROUNDING CHECK:
- Check that the answer references specific sources and citations
- Verify the reasoning is based on provided context
- Ensure citations match actual sources mentioned

RELEVANCE CHECK:
- Ensure the answer actually addresses the specific question asked
- Verify no important aspects of the question are ignored
- Check that the response is focused and not overly broad

OUTPUT FORMAT:
If the answer passes all checks, respond with:
"VALIDATION PASSED: The answer is well-grounded, relevant, and based on provided context."

If there are issues, provide specific feedback and suggestions for improvement.`

// Result is the full output of one pipeline run. FinalAnswer is the
// retriever's answer; the validator's verdict rides along as metadata.
type Result struct {
	Question         string
	FinalAnswer      string
	RetrievalOutput  string
	ValidationOutput string
	Sources          []retrieval.Source
	AgentsUsed       []string
	ModelID          string
}

// Pipeline builds and runs the retriever/validator sequence. Agents are
// constructed per run so each run gets its own source collector.
type Pipeline struct {
	chatModel model.ToolCallingChatModel
	engine    tools.Searcher
	timeout   time.Duration
	maxIter   int
	modelID   string
	logger    *logrus.Logger
}

// NewPipeline wires the pipeline over the given chat model and retrieval
// engine.
func NewPipeline(chatModel model.ToolCallingChatModel, engine tools.Searcher, cfg config.AgentConfig, modelID string, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		chatModel: chatModel,
		engine:    engine,
		timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		maxIter:   cfg.MaxIterations,
		modelID:   modelID,
		logger:    logger,
	}
}

func (p *Pipeline) buildAgent(ctx context.Context, searchTool tool.BaseTool) (adk.Agent, error) {
	toolsConfig := adk.ToolsConfig{
		ToolsNodeConfig: compose.ToolsNodeConfig{
			Tools: []tool.BaseTool{searchTool},
		},
	}

	retriever, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:          RetrieverAgentName,
		Description:   "Retrieves document context and generates a grounded, cited answer.",
		Instruction:   retrieverInstruction,
		Model:         p.chatModel,
		ToolsConfig:   toolsConfig,
		MaxIterations: p.maxIter,
	})
	if err != nil {
		return nil, fmt.Errorf("creating retriever agent: %w", err)
	}

	validator, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:          ValidatorAgentName,
		Description:   "Validates the generated answer for hallucination, grounding, and relevance.",
		Instruction:   validatorInstruction,
		Model:         p.chatModel,
		ToolsConfig:   toolsConfig,
		MaxIterations: p.maxIter,
	})
	if err != nil {
		return nil, fmt.Errorf("creating validator agent: %w", err)
	}

	return adk.NewSequentialAgent(ctx, &adk.SequentialAgentConfig{
		Name:        "AnswerPipeline",
		Description: "Answers a question from the document collection, then validates the answer.",
		SubAgents:   []adk.Agent{retriever, validator},
	})
}

// Run executes the pipeline for one question under the configured wall-clock
// timeout. The retriever must finish before the validator starts. Any agent
// error or a timeout fails the whole run.
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	collector := &tools.Collector{}
	searchTool, err := tools.NewDocumentSearchTool(p.engine, collector)
	if err != nil {
		return nil, err
	}

	agent, err := p.buildAgent(ctx, searchTool)
	if err != nil {
		return nil, err
	}

	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent:           agent,
		EnableStreaming: false,
	})

	p.logger.WithField("question", question).Info("starting agent pipeline")

	// The last assistant message per agent is that agent's task output.
	outputs := map[string]string{}

	iter := runner.Query(ctx, question)
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			p.logger.WithError(event.Err).Error("agent pipeline failed")
			return nil, fmt.Errorf("agent pipeline: %w", event.Err)
		}
		if event.Output == nil || event.Output.MessageOutput == nil {
			continue
		}
		msg, err := event.Output.MessageOutput.GetMessage()
		if err != nil {
			return nil, fmt.Errorf("reading agent message: %w", err)
		}
		if msg.Content != "" && len(msg.ToolCalls) == 0 {
			outputs[event.AgentName] = msg.Content
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("agent pipeline: %w", err)
	}

	retrievalOutput := outputs[RetrieverAgentName]
	if retrievalOutput == "" {
		return nil, fmt.Errorf("retriever agent produced no answer")
	}

	return &Result{
		Question:         question,
		FinalAnswer:      retrievalOutput,
		RetrievalOutput:  retrievalOutput,
		ValidationOutput: outputs[ValidatorAgentName],
		Sources:          collector.Sources(),
		AgentsUsed:       []string{RetrieverAgentName, ValidatorAgentName},
		ModelID:          p.modelID,
	}, nil
}
