// internal/airtable/client.go

// Package airtable implements the persistence collaborator against the
// Airtable records API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"transaction-intake/internal/common/config"
	"transaction-intake/internal/common/httpclient"
	"transaction-intake/internal/intake/record"
)

type Client struct {
	baseURL    string
	baseID     string
	table      string
	apiKey     string
	httpClient *httpclient.Client
}

type createRecordRequest struct {
	Fields   map[string]interface{} `json:"fields"`
	Typecast bool                   `json:"typecast"`
}

type createRecordResponse struct {
	ID          string                 `json:"id"`
	CreatedTime string                 `json:"createdTime"`
	Fields      map[string]interface{} `json:"fields"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.AirtableConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		baseID:     cfg.BaseID,
		table:      cfg.Table,
		apiKey:     cfg.APIKey,
		httpClient: httpclient.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
	}
}

// CreateRecord creates one row in the transactions table and returns its
// record id. Fields are keyed by field id; typecast lets the API coerce
// select-option strings server side.
func (c *Client) CreateRecord(ctx context.Context, rec record.ExternalRecord) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.table))

	payload := createRecordRequest{
		Fields:   map[string]interface{}(rec),
		Typecast: true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("record create failed (status %d): %s: %s",
				resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return "", fmt.Errorf("record create failed (status %d): %s", resp.StatusCode, string(body))
	}

	var createResp createRecordResponse
	if err := json.Unmarshal(body, &createResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if createResp.ID == "" {
		return "", fmt.Errorf("no record id in response")
	}

	return createResp.ID, nil
}

// GetRecord fetches one record by id, serving the verification endpoint staff
// use to confirm a submission landed.
func (c *Client) GetRecord(ctx context.Context, recordID string) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.table), recordID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("record fetch failed (status %d): %s", resp.StatusCode, string(body))
	}

	var rec createRecordResponse
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rec.Fields, nil
}
