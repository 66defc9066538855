package document

import (
	"path/filepath"
	"strings"
	"time"
)

// titleScanLines bounds how far into the text the title scan looks.
const titleScanLines = 10

// Process builds a Processed record from converter output for one file.
// HasContent reflects whether the plain text is non-empty after trimming.
func Process(filePath, text, markdown string) *Processed {
	name := filepath.Base(filePath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	return &Processed{
		FileName:        name,
		FilePath:        filePath,
		Title:           ExtractTitle(text, stem),
		MarkdownContent: markdown,
		TextContent:     text,
		Sections:        ExtractSections(markdown),
		Metadata: Metadata{
			OriginalFile:          name,
			ProcessedSuccessfully: true,
			HasContent:            len(strings.TrimSpace(text)) > 0,
			CreatedAt:             time.Now(),
		},
	}
}

// ProcessFailure builds the record persisted when conversion fails. The
// failure still flows through the store so it stays visible.
func ProcessFailure(filePath string, convErr error) *Processed {
	name := filepath.Base(filePath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	return &Processed{
		FileName: name,
		FilePath: filePath,
		Title:    stem,
		Sections: []Section{},
		Metadata: Metadata{
			OriginalFile:          name,
			ProcessedSuccessfully: false,
			HasContent:            false,
			CreatedAt:             time.Now(),
			Error:                 convErr.Error(),
		},
	}
}

// ExtractTitle scans the first non-empty lines of the plain text for the
// first line longer than 3 characters. Falls back to the file stem.
func ExtractTitle(text, fallback string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > titleScanLines {
		lines = lines[:titleScanLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 3 {
			return line
		}
	}
	return fallback
}

// ExtractSections splits markdown on heading markers. Each heading line
// starts a new section whose level is the count of leading '#' runes;
// non-heading lines accumulate into the current section. Markdown without
// any heading but with content yields a single "Main Content" section
// holding every line.
func ExtractSections(markdown string) []Section {
	var sections []Section
	var current *Section

	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "#") {
			if current != nil {
				sections = append(sections, *current)
			}
			trimmed := strings.TrimLeft(line, "#")
			current = &Section{
				Title:   strings.TrimSpace(trimmed),
				Level:   len(line) - len(trimmed),
				Content: []string{},
			}
		} else if current != nil && strings.TrimSpace(line) != "" {
			current.Content = append(current.Content, line)
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}

	if len(sections) == 0 && strings.TrimSpace(markdown) != "" {
		sections = append(sections, Section{
			Title:   "Main Content",
			Level:   1,
			Content: strings.Split(markdown, "\n"),
		})
	}

	return sections
}
