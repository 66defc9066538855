// Package document defines the processed-document model and the processor
// that extracts titles and sections from converted markdown.
package document

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Section is one heading-delimited region of a document's markdown body.
type Section struct {
	Title   string   `json:"title"`
	Level   int      `json:"level"`
	Content []string `json:"content"`
}

// Metadata records how a document's processing went.
type Metadata struct {
	OriginalFile          string    `json:"original_file"`
	ProcessedSuccessfully bool      `json:"processed_successfully"`
	HasContent            bool      `json:"has_content"`
	CreatedAt             time.Time `json:"created_at"`
	Error                 string    `json:"error,omitempty"`
}

// Processed is the normalized record produced for one source file. DocID is
// empty until the document store assigns an identity; everything else is
// immutable once written.
type Processed struct {
	DocID           string    `json:"doc_id"`
	FileName        string    `json:"file_name"`
	FilePath        string    `json:"file_path"`
	Title           string    `json:"title"`
	MarkdownContent string    `json:"markdown_content"`
	TextContent     string    `json:"text_content"`
	Sections        []Section `json:"sections"`
	Metadata        Metadata  `json:"metadata"`
}

// WriteJSON serializes the record to the given path.
func (p *Processed) WriteJSON(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling processed document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing processed document: %w", err)
	}
	return nil
}

// ReadJSON loads a previously persisted record.
func ReadJSON(path string) (*Processed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading processed document: %w", err)
	}
	var p Processed
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing processed document: %w", err)
	}
	return &p, nil
}
