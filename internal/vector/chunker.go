package vector

import (
	"strings"
	"unicode"

	"docsearch/internal/config"
)

// ChunkConfig configures how documents are split into chunks.
type ChunkConfig struct {
	ChunkSize        int  // Maximum chunk size in characters
	ChunkOverlap     int  // Overlap between chunks
	MinChunkSize     int  // Minimum chunk size to keep
	SplitByParagraph bool // Whether to prioritize paragraph splitting
}

// ChunkConfigFrom derives chunking settings from application configuration.
func ChunkConfigFrom(cfg config.IndexConfig) ChunkConfig {
	return ChunkConfig{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		MinChunkSize:     100,
		SplitByParagraph: true,
	}
}

// Chunk represents a text chunk with its position in the source document.
type Chunk struct {
	Content    string
	ChunkIndex int
}

// ChunkDocument splits a document into chunks based on the configuration.
func ChunkDocument(content string, config ChunkConfig) []Chunk {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.MinChunkSize <= 0 {
		config.MinChunkSize = 100
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return []Chunk{}
	}

	var chunks []Chunk
	if config.SplitByParagraph {
		chunks = splitByParagraph(content, config)
	}

	// Fall back to sentence splitting when paragraphs gave nothing usable.
	if len(chunks) == 0 {
		chunks = splitBySentence(content, config)
	}

	var filtered []Chunk
	for _, chunk := range chunks {
		if len(chunk.Content) >= config.MinChunkSize {
			filtered = append(filtered, chunk)
		}
	}
	for i := range filtered {
		filtered[i].ChunkIndex = i
	}
	return filtered
}

// splitByParagraph splits content by paragraph boundaries first.
func splitByParagraph(content string, config ChunkConfig) []Chunk {
	var chunks []Chunk

	paragraphs := strings.Split(content, "\n\n")

	var current strings.Builder
	index := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if current.Len()+len(paragraph) > config.ChunkSize && current.Len() > 0 {
			content := current.String()
			if len(content) >= config.MinChunkSize {
				chunks = append(chunks, Chunk{Content: content, ChunkIndex: index})
				index++
			}

			current.Reset()
			if config.ChunkOverlap > 0 && len(content) > 0 {
				current.WriteString(tailOverlap(content, config.ChunkOverlap))
				current.WriteString("\n\n")
			}
		}

		current.WriteString(paragraph)
		current.WriteString("\n\n")
	}

	if current.Len() > 0 {
		content := strings.TrimSpace(current.String())
		if len(content) >= config.MinChunkSize {
			chunks = append(chunks, Chunk{Content: content, ChunkIndex: index})
		}
	}

	return splitOversized(chunks, config)
}

// splitBySentence splits content by sentence boundaries.
func splitBySentence(content string, config ChunkConfig) []Chunk {
	var chunks []Chunk

	var current strings.Builder
	index := 0

	for _, sentence := range splitIntoSentences(content) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if current.Len()+len(sentence) > config.ChunkSize && current.Len() > 0 {
			content := current.String()
			if len(content) >= config.MinChunkSize {
				chunks = append(chunks, Chunk{Content: content, ChunkIndex: index})
				index++
			}

			current.Reset()
			if config.ChunkOverlap > 0 && len(content) > 0 {
				current.WriteString(tailOverlap(content, config.ChunkOverlap))
				current.WriteString(" ")
			}
		}

		current.WriteString(sentence)
		current.WriteString(" ")
	}

	if current.Len() > 0 {
		content := strings.TrimSpace(current.String())
		if len(content) >= config.MinChunkSize {
			chunks = append(chunks, Chunk{Content: content, ChunkIndex: index})
		}
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if isSentenceEnd(runes[i]) {
			next := runeAt(runes, i+1)
			if next == 0 || unicode.IsSpace(next) || next == '"' || next == '\'' || next == ')' || next == ']' {
				sentence := strings.TrimSpace(current.String())
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
}

func runeAt(runes []rune, i int) rune {
	if i < 0 || i >= len(runes) {
		return 0
	}
	return runes[i]
}

// tailOverlap takes the last N characters of text, preferring a word boundary.
func tailOverlap(text string, size int) string {
	if size <= 0 || len(text) == 0 {
		return ""
	}
	if size >= len(text) {
		return text
	}

	tail := text[len(text)-size:]
	if firstSpace := strings.Index(tail, " "); firstSpace > 0 {
		return tail[firstSpace+1:]
	}
	return tail
}

// splitOversized force-splits any chunk still exceeding the size limit.
func splitOversized(chunks []Chunk, config ChunkConfig) []Chunk {
	var result []Chunk
	for _, chunk := range chunks {
		if len(chunk.Content) <= config.ChunkSize {
			result = append(result, chunk)
			continue
		}
		for i, sc := range forceSplit(chunk.Content, config.ChunkSize, config.ChunkOverlap) {
			result = append(result, Chunk{Content: sc, ChunkIndex: chunk.ChunkIndex + i})
		}
	}
	return result
}

func forceSplit(text string, size, overlap int) []string {
	var chunks []string

	runes := []rune(text)
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
