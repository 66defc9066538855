// Package llm constructs the chat and embedding model clients used by the
// preprocessor and the agent pipeline.
package llm

import (
	"context"
	"fmt"
	"strings"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"docsearch/internal/config"
)

// NewChatModel builds the configured chat model. The provider selects the
// backend: "gemini" talks to Google, anything else goes through the
// OpenAI-compatible API at cfg.BaseURL.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if strings.EqualFold(cfg.Provider, "gemini") {
		return newGeminiModel(ctx, cfg)
	}
	return newOpenAIModel(ctx, cfg)
}

func newOpenAIModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return cm, nil
}

func newGeminiModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini api key is required when provider is gemini")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	cm, err := geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini chat model: %w", err)
	}
	return cm, nil
}

// NewEmbedder builds the OpenAI-compatible embedding client.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}
	emb, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return emb, nil
}

// Completer is a minimal single-prompt completion surface. The preprocessor
// depends on this rather than the full chat model interface so tests can
// substitute a canned implementation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type modelCompleter struct {
	cm model.ToolCallingChatModel
}

// NewCompleter wraps a chat model as a Completer.
func NewCompleter(cm model.ToolCallingChatModel) Completer {
	return &modelCompleter{cm: cm}
}

func (c *modelCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.cm.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	return msg.Content, nil
}
