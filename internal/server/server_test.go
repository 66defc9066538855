package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/agents"
	"docsearch/internal/chat"
	"docsearch/internal/config"
	"docsearch/internal/preprocess"
)

type stubEvaluator struct {
	result *preprocess.Result
}

func (s *stubEvaluator) Evaluate(context.Context, string, []preprocess.ConversationPair) *preprocess.Result {
	return s.result
}

type stubPipeline struct {
	result *agents.Result
	err    error
}

func (s *stubPipeline) Run(context.Context, string) (*agents.Result, error) {
	return s.result, s.err
}

func newTestServer(ev chat.Evaluator, pl chat.AnswerPipeline) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.Default()
	orch := chat.NewOrchestrator(ev, pl, logger)
	return New(cfg.Server, orch, cfg, logger)
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["status"])
}

func TestModelsRoute(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Object string       `json:"object"`
		Data   []chat.Model `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	require.NotEmpty(t, body.Data)
	assert.Equal(t, chat.DefaultModelID, body.Data[0].ID)
}

func TestConfigRouteMasksCredentials(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.Default()
	cfg.Postgres.Password = "pg-s3cret"
	cfg.Redis.Password = "redis-s3cret"
	cfg.Embedding.APIKey = "embed-key"
	cfg.LLM.APIKey = "llm-key"
	cfg.LLM.GeminiKey = "gemini-key"
	orch := chat.NewOrchestrator(&stubEvaluator{}, &stubPipeline{}, logger)
	s := New(cfg.Server, orch, cfg, logger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, secret := range []string{"pg-s3cret", "redis-s3cret", "embed-key", "llm-key", "gemini-key"} {
		assert.NotContains(t, body, secret)
	}
	assert.Contains(t, body, "***")
	// The route still serves the rest of the config.
	assert.Contains(t, body, cfg.Server.RESTAPIPrefix)
	// The passed-in config keeps its credentials for the rest of the app.
	assert.Equal(t, "pg-s3cret", cfg.Postgres.Password)
}

func TestChatCompletionRoute(t *testing.T) {
	ev := &stubEvaluator{result: &preprocess.Result{
		Type: preprocess.TypeQuestion, Reason: "r", GeneratedQuery: "rewritten",
	}}
	pl := &stubPipeline{result: &agents.Result{FinalAnswer: "the answer", RetrievalOutput: "the answer"}}
	s := newTestServer(ev, pl)

	body := `{"model": "DocSearch", "messages": [{"role": "user", "content": "question?"}]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chat.completion", resp.Object)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "the answer", resp.Choices[0].Message.Content)
}

func TestChatCompletionNoUserMessage(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &stubPipeline{})

	body := `{"model": "DocSearch", "messages": [{"role": "system", "content": "x"}]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No user message provided.")
}

func TestChatCompletionMalformedBody(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &stubPipeline{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat/completions", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
