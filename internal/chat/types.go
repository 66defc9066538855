// Package chat implements the chat-completion API surface: request/response
// types, the model registry, and the orchestrator that routes a message
// through preprocessing and the agent pipeline.
package chat

// Message is one turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of POST /chat/completions.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Choice is one completion alternative. Exactly one is ever produced.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage carries provenance instead of token counts: the evaluation result,
// flow type, query rewrites, and the sources behind the answer.
type Usage struct {
	Metadata map[string]any `json:"metadata"`
	Sources  []any          `json:"sources"`
}

// Response is the completion envelope returned by every branch.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// HTTPError signals a specific HTTP status from the orchestrator. Anything
// else the transport maps to 500.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return e.Detail
}
