package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docsearch/internal/agents"
	"docsearch/internal/preprocess"
	"docsearch/internal/trace"
)

const historyPairs = 3

// Canned response texts.
const (
	skippedTaskContent = "System task skipped by API"
	noAnswerContent    = "Unable to find the answer."
)

// Fallback replies when the preprocessor classified the message but offered
// no response text of its own.
var categoryFallbacks = map[string]string{
	preprocess.TypeGreeting:      "Hello! How can I help you with your documents today?",
	preprocess.TypeInappropriate: "I'm sorry, but I can't help with that request.",
	preprocess.TypeOther:         "I can only help with questions about the document collection.",
}

// Evaluator classifies and rewrites the incoming message.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, history []preprocess.ConversationPair) *preprocess.Result
}

// AnswerPipeline produces a grounded answer for a question.
type AnswerPipeline interface {
	Run(ctx context.Context, question string) (*agents.Result, error)
}

// Orchestrator routes one chat request through preprocessing and, for
// questions, the agent pipeline. Every branch returns the same envelope
// shape.
type Orchestrator struct {
	evaluator Evaluator
	pipeline  AnswerPipeline
	logger    *logrus.Logger
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(evaluator Evaluator, pipeline AnswerPipeline, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		evaluator: evaluator,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// Completion handles one chat request. It returns *HTTPError for client
// errors; the transport maps any other error to a 500 carrying the error
// text.
func (o *Orchestrator) Completion(ctx context.Context, req *Request) (*Response, error) {
	lastUser := lastUserMessage(req.Messages)
	if lastUser == nil {
		return nil, &HTTPError{Status: http.StatusBadRequest, Detail: "No user message provided."}
	}

	// Frontend housekeeping prompts (titles, tags, follow-ups) are not
	// routed through the pipeline.
	if strings.Contains(lastUser.Content, "### Task:") {
		return skippedEnvelope(), nil
	}

	question := lastUser.Content
	modelID := ValidateModelID(req.Model)
	if modelID != req.Model {
		o.logger.WithField("requested", req.Model).Debug("unknown model id, using default")
	}

	history := LastNPairs(req.Messages, historyPairs)

	ctx, tr := trace.WithTrace(ctx)
	tr.SetQuestion(question)

	eval := o.evaluator.Evaluate(ctx, question, history)

	if eval.Type != preprocess.TypeQuestion {
		return o.directResponse(tr, question, modelID, eval), nil
	}

	query := strings.TrimSpace(eval.GeneratedQuery)
	if query == "" {
		query = question
	}

	result, err := o.pipeline.Run(ctx, query)
	if err != nil {
		o.logger.WithError(err).Error("answer pipeline failed")
	}
	if err != nil || result == nil {
		return o.noAnswerResponse(tr, question, query, modelID, eval), nil
	}

	tr.SetAnswer(result.FinalAnswer)

	metadata := map[string]any{
		"evaluation":        eval,
		"flow_type":         "crew_agents",
		"original_question": question,
		"optimized_query":   query,
		"model_id":          modelID,
		"inference_model":   result.ModelID,
		"agents_used":       result.AgentsUsed,
		"validation_output": result.ValidationOutput,
	}

	sources := make([]any, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, s)
	}

	return envelope(result.FinalAnswer, metadata, sources), nil
}

// directResponse answers greetings, inappropriate messages, and other
// non-questions without touching retrieval or the agents.
func (o *Orchestrator) directResponse(tr *trace.Trace, question, modelID string, eval *preprocess.Result) *Response {
	content := strings.TrimSpace(eval.GeneratedQuery)
	if content == "" {
		content = categoryFallbacks[eval.Type]
	}
	if content == "" {
		content = categoryFallbacks[preprocess.TypeOther]
	}
	tr.SetAnswer(content)

	return envelope(content, map[string]any{
		"evaluation":        eval,
		"flow_type":         eval.Type,
		"original_question": question,
		"model_id":          modelID,
	}, []any{})
}

// noAnswerResponse covers pipeline failure and timeout. The preprocessing
// metadata is preserved for traceability.
func (o *Orchestrator) noAnswerResponse(tr *trace.Trace, question, query, modelID string, eval *preprocess.Result) *Response {
	tr.SetAnswer(noAnswerContent)

	return envelope(noAnswerContent, map[string]any{
		"evaluation":        eval,
		"flow_type":         "crew_agents",
		"original_question": question,
		"optimized_query":   query,
		"model_id":          modelID,
	}, []any{})
}

func lastUserMessage(messages []Message) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return &messages[i]
		}
	}
	return nil
}

func envelope(content string, metadata map[string]any, sources []any) *Response {
	return &Response{
		ID:     fmt.Sprintf("chatcmpl-%s", uuid.NewString()),
		Object: "chat.completion",
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: Usage{Metadata: metadata, Sources: sources},
	}
}

func skippedEnvelope() *Response {
	return &Response{
		ID:     "skipped",
		Object: "chat.completion",
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: skippedTaskContent},
			FinishReason: "stop",
		}},
		Usage: Usage{Metadata: map[string]any{}, Sources: []any{}},
	}
}
