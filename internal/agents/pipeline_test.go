package agents

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/config"
	"docsearch/internal/retrieval"
	"docsearch/internal/tools"
)

// scriptedModel replays a fixed sequence of assistant messages, one per
// Generate call, so an agent run is fully deterministic.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return nil, errors.New("scripted model exhausted")
	}
	msg := m.responses[0]
	m.responses = m.responses[1:]
	return msg, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type stubSearcher struct {
	mu        sync.Mutex
	result    *retrieval.Result
	err       error
	lastQuery string
}

func (s *stubSearcher) Retrieve(_ context.Context, query string, _, _ int) (*retrieval.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = query
	return s.result, s.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func searchToolCall(query string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tools.DocumentSearchToolName,
				Arguments: `{"query": "` + query + `"}`,
			},
		}},
	}
}

func assistantText(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func TestRunCollectsBothAgentOutputs(t *testing.T) {
	searcher := &stubSearcher{result: &retrieval.Result{
		Context: "[Source 1 - refunds.pdf]\nSection: Policy\nRefunds take 30 days.\n",
		Sources: []retrieval.Source{{FileName: "refunds.pdf", Section: "Policy", Score: 0.92, Text: "Refunds take 30 days."}},
	}}
	chatModel := &scriptedModel{responses: []*schema.Message{
		searchToolCall("refund policy"),
		assistantText("Refunds take 30 days [Source 1 - refunds.pdf]."),
		assistantText("VALIDATION PASSED: The answer is well-grounded, relevant, and based on provided context."),
	}}

	p := NewPipeline(chatModel, searcher, config.AgentConfig{TimeoutSecs: 10, MaxIterations: 3}, "DocSearch", testLogger())
	res, err := p.Run(context.Background(), "How long do refunds take?")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "How long do refunds take?", res.Question)
	assert.Equal(t, "Refunds take 30 days [Source 1 - refunds.pdf].", res.RetrievalOutput)
	assert.Equal(t, res.RetrievalOutput, res.FinalAnswer)
	assert.Equal(t, "VALIDATION PASSED: The answer is well-grounded, relevant, and based on provided context.", res.ValidationOutput)
	assert.Equal(t, []string{RetrieverAgentName, ValidatorAgentName}, res.AgentsUsed)
	assert.Equal(t, "DocSearch", res.ModelID)

	assert.Equal(t, "refund policy", searcher.lastQuery)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "refunds.pdf", res.Sources[0].FileName)
}

func TestRunSearchFailureStillAnswers(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("index unavailable")}
	chatModel := &scriptedModel{responses: []*schema.Message{
		searchToolCall("refund policy"),
		assistantText("The document search reported an error, so no grounded answer is available."),
		assistantText("The answer correctly reports the missing context."),
	}}

	p := NewPipeline(chatModel, searcher, config.AgentConfig{TimeoutSecs: 10, MaxIterations: 3}, "DocSearch", testLogger())
	res, err := p.Run(context.Background(), "How long do refunds take?")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "The document search reported an error, so no grounded answer is available.", res.FinalAnswer)
	assert.Empty(t, res.Sources)
}

func TestRunEmptyRetrieverOutput(t *testing.T) {
	chatModel := &scriptedModel{responses: []*schema.Message{
		assistantText(""),
		assistantText("Nothing to validate."),
	}}

	p := NewPipeline(chatModel, &stubSearcher{}, config.AgentConfig{TimeoutSecs: 10, MaxIterations: 3}, "DocSearch", testLogger())
	res, err := p.Run(context.Background(), "anything?")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "no answer")
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&scriptedModel{}, &stubSearcher{}, config.AgentConfig{TimeoutSecs: 10, MaxIterations: 3}, "DocSearch", testLogger())
	res, err := p.Run(ctx, "anything?")
	require.Error(t, err)
	assert.Nil(t, res)
}
