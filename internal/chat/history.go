package chat

import "docsearch/internal/preprocess"

// LastNPairs extracts up to n of the most recent completed user/assistant
// exchanges. A user message is paired with the next assistant message; a
// trailing unanswered user message (usually the one being processed now) is
// not a pair.
func LastNPairs(messages []Message, n int) []preprocess.ConversationPair {
	var pairs []preprocess.ConversationPair
	pending := ""
	havePending := false

	for _, m := range messages {
		switch m.Role {
		case "user":
			pending = m.Content
			havePending = true
		case "assistant":
			if havePending {
				pairs = append(pairs, preprocess.ConversationPair{Question: pending, Answer: m.Content})
				havePending = false
			}
		}
	}

	if n > 0 && len(pairs) > n {
		pairs = pairs[len(pairs)-n:]
	}
	return pairs
}
