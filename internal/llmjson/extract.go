// Package llmjson decodes JSON payloads out of language-model output, which
// routinely arrives wrapped in code fences or surrounded by narrative text.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON reports that no decodable JSON object was found in the text.
var ErrNoJSON = errors.New("no JSON object found in model output")

// Unmarshal decodes a JSON object from model output in two stages: first a
// strict decode of the whole text (after stripping a surrounding code fence),
// then a best-effort decode of the span between the first '{' and the last
// '}'. Returns ErrNoJSON when neither stage yields valid JSON.
func Unmarshal(text string, v any) error {
	stripped := StripFence(text)
	if err := json.Unmarshal([]byte(stripped), v); err == nil {
		return nil
	}

	span, ok := braceSpan(text)
	if !ok {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return ErrNoJSON
	}
	return nil
}

// StripFence removes a wrapping ``` or ```json code fence, if present.
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop a language tag on the fence line ("json", "yaml", ...).
		first := strings.TrimSpace(s[:nl])
		if len(first) <= 12 && !strings.ContainsAny(first, "{}") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
