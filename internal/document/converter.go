package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"docsearch/internal/config"
)

// Converter turns a raw file into plain text plus structured markdown.
// Conversion fidelity is the converter's problem, not this package's.
type Converter interface {
	Convert(ctx context.Context, path string) (text, markdown string, err error)
}

// HTTPConverter calls an external conversion service over HTTP.
type HTTPConverter struct {
	serviceURL string
	client     *http.Client
}

// NewHTTPConverter builds a converter client for the configured service.
func NewHTTPConverter(cfg config.ConverterConfig) *HTTPConverter {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPConverter{
		serviceURL: cfg.ServiceURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type convertResponse struct {
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	Error    string `json:"error,omitempty"`
}

// Convert posts the file bytes to the service and returns its extraction.
func (c *HTTPConverter) Convert(ctx context.Context, path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading input file: %w", err)
	}

	url := fmt.Sprintf("%s/convert?filename=%s", c.serviceURL, filepath.Base(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("creating convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("calling converter service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading converter response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("converter service returned %d: %s", resp.StatusCode, body)
	}

	var result convertResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", "", fmt.Errorf("decoding converter response: %w", err)
	}
	if result.Error != "" {
		return "", "", fmt.Errorf("converter error: %s", result.Error)
	}

	return result.Text, result.Markdown, nil
}

// Healthy reports whether the conversion service answers its health probe.
func (c *HTTPConverter) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
