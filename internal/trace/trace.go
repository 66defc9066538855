// Package trace carries a per-request observability snapshot through the
// pipeline: the question being answered, the contexts retrieval produced for
// it, and the final answer. Each chat turn gets a fresh Trace in its context,
// so concurrent requests never see each other's values.
package trace

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Trace records what one request asked, retrieved, and answered.
type Trace struct {
	mu       sync.Mutex
	question string
	contexts []string
	answer   string
}

// WithTrace returns a context carrying a fresh Trace.
func WithTrace(ctx context.Context) (context.Context, *Trace) {
	t := &Trace{}
	return context.WithValue(ctx, ctxKey{}, t), t
}

// FromContext returns the request's Trace, or nil when the context carries
// none (e.g. in unit tests or background indexing).
func FromContext(ctx context.Context) *Trace {
	t, _ := ctx.Value(ctxKey{}).(*Trace)
	return t
}

// SetQuestion records the question under evaluation.
func (t *Trace) SetQuestion(q string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.question = q
}

// AddContexts appends texts that retrieval supplied to the agents.
func (t *Trace) AddContexts(texts []string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contexts = append(t.contexts, texts...)
}

// SetAnswer records the final answer text.
func (t *Trace) SetAnswer(a string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answer = a
}

// Snapshot returns a copy of the recorded values.
func (t *Trace) Snapshot() (question string, contexts []string, answer string) {
	if t == nil {
		return "", nil, ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	contexts = make([]string, len(t.contexts))
	copy(contexts, t.contexts)
	return t.question, contexts, t.answer
}
