// internal/renderer/client.go

// Package renderer implements the document-rendering collaborator: an HTTP
// service that fills a named cover sheet template and returns PDF bytes.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"transaction-intake/internal/common/config"
	"transaction-intake/internal/common/httpclient"
	"transaction-intake/internal/intake/template"
)

type Client struct {
	baseURL    string
	httpClient *httpclient.Client
}

type renderRequest struct {
	TemplateID string            `json:"templateId"`
	Fields     map[string]string `json:"fields"`
}

func NewClient(cfg config.RendererConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpclient.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
	}
}

// Render posts the placeholder map to the fill service and returns the PDF.
func (c *Client) Render(ctx context.Context, templateID template.TemplateID, fields map[string]string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/render", c.baseURL)

	payload := renderRequest{
		TemplateID: string(templateID),
		Fields:     fields,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("render failed (status %d): %s", resp.StatusCode, string(body))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document bytes: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("render service returned an empty document")
	}
	return pdf, nil
}
