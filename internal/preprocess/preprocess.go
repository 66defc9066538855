// Package preprocess classifies incoming chat messages and rewrites
// questions with conversation context before they reach the agent pipeline.
package preprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"docsearch/internal/llm"
	"docsearch/internal/llmjson"
)

// Message categories produced by evaluation.
const (
	TypeQuestion      = "question"
	TypeGreeting      = "greeting"
	TypeInappropriate = "inappropriate"
	TypeOther         = "other"
)

// ConversationPair is one prior question/answer exchange.
type ConversationPair struct {
	Question string
	Answer   string
}

// Result is the outcome of evaluating one user message.
type Result struct {
	Type           string `json:"type"`
	Reason         string `json:"reason"`
	GeneratedQuery string `json:"generated_query"`
}

// Preprocessor evaluates user messages with a single LLM call.
type Preprocessor struct {
	completer      llm.Completer
	businessDomain string
	logger         *logrus.Logger
}

// New builds a Preprocessor for the given business domain.
func New(completer llm.Completer, businessDomain string, logger *logrus.Logger) *Preprocessor {
	return &Preprocessor{
		completer:      completer,
		businessDomain: businessDomain,
		logger:         logger,
	}
}

// Evaluate classifies the query and, for questions, produces a rewritten
// query that folds in the conversation history. Evaluation never fails the
// request: any model, parsing, or schema problem degrades to treating the
// input as a question with the original query.
func (p *Preprocessor) Evaluate(ctx context.Context, query string, history []ConversationPair) *Result {
	prompt := p.buildPrompt(query, history)

	raw, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		p.logger.WithError(err).Warn("query evaluation call failed")
		return fallback(query, fmt.Sprintf("LLM call failed: %v", err))
	}

	var res Result
	if err := llmjson.Unmarshal(raw, &res); err != nil {
		p.logger.WithError(err).Warn("query evaluation returned unparseable output")
		return fallback(query, "Failed to convert response to JSON.")
	}
	if res.Type == "" {
		return fallback(query, "Missing required field: type")
	}
	if res.Reason == "" {
		return fallback(query, "Missing required field: reason")
	}

	p.logger.WithFields(logrus.Fields{
		"type":   res.Type,
		"reason": res.Reason,
	}).Debug("query evaluated")
	return &res
}

func fallback(query, detail string) *Result {
	return &Result{
		Type:           TypeQuestion,
		Reason:         strings.TrimSpace("Evaluation failed. " + detail),
		GeneratedQuery: query,
	}
}

func formatHistory(history []ConversationPair) string {
	parts := make([]string, 0, len(history))
	for _, pair := range history {
		parts = append(parts, fmt.Sprintf("<conversation>\n<question>%s</question>\n<answer>%s</answer>\n</conversation>", pair.Question, pair.Answer))
	}
	return strings.Join(parts, "\n")
}

func (p *Preprocessor) buildPrompt(query string, history []ConversationPair) string {
	var b strings.Builder
	b.WriteString(`You are a highly intelligent assistant trained to evaluate user messages in a business context.
You will be given:
1. A **user question**
2. **Conversation history** as context
3. A **business domain** in which the conversation takes place

Your task is to:

1. **Classify** the nature of the input - whether it's a:
   - "question" (e.g., a request for information or clarification),
   - "greeting" (e.g., "hello", "good morning"),
   - "inappropriate" (e.g., "I want to know your private information", "You are a bad person"),
   - "other" (anything that doesn't fit the above).
2. **Justify your decisions** for both appropriateness and classification.
3. Based on the classification,
    - If it is a **question**, generate an **optimized version** of the query that incorporates the context from the conversation history for better clarity and relevance.
    - Otherwise, give me an adequate response to the user. Also greet back if the user greets earlier.

---

**Input Format:**
Question:
`)
	b.WriteString(query)
	b.WriteString("\n\nConversation History:\n")
	b.WriteString(formatHistory(history))
	b.WriteString("\n\nBusiness Domain:\n")
	b.WriteString(p.businessDomain)
	b.WriteString(`

---

**Output Format (strict JSON):**
{
  "type": "question",
  "reason": "The question builds upon the previous conversation about invoice generation and fits within the domain of enterprise finance tools.",
  "generated_query": "How can we automate invoice generation for recurring clients using our current enterprise finance tool?"
}

---

Instructions:
- Be concise but precise in your classifications.
- Use the business domain and conversation history as critical context for evaluation.
- If no query optimization is needed, repeat the question in "generated_query".
- If input type is not "question", set "generated_query" to a short response text for the user.
`)
	return b.String()
}
