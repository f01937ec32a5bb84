// Package remote is the HTTP client for the backup server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dealercrm/internal/backup"
	"dealercrm/internal/models"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote backup server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL. A nil httpClient gets a 30s
// timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) List(ctx context.Context) ([]models.BackupRecord, error) {
	var resp models.BackupListResponse
	if err := c.do(ctx, http.MethodGet, "/api/backups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Backups, nil
}

// Save uploads env. The hash covers the canonical data member only, so an
// export of unchanged storage is skipped server side even though its
// createdAt differs.
func (c *Client) Save(ctx context.Context, env *models.Envelope, skipIfSame bool) (models.BackupSaveResponse, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return models.BackupSaveResponse{}, fmt.Errorf("failed to encode backup: %w", err)
	}
	canonical, err := backup.Canonicalize(raw)
	if err != nil {
		return models.BackupSaveResponse{}, err
	}

	req := models.BackupSaveRequest{
		Data:       json.RawMessage(canonical),
		DataHash:   backup.ContentHash(canonical),
		SkipIfSame: skipIfSame,
	}
	var resp models.BackupSaveResponse
	if err := c.do(ctx, http.MethodPost, "/api/backups", req, &resp); err != nil {
		return models.BackupSaveResponse{}, err
	}
	return resp, nil
}

// Get downloads one backup and decodes its envelope.
func (c *Client) Get(ctx context.Context, id string) (*models.Envelope, error) {
	var resp models.BackupGetResponse
	if err := c.do(ctx, http.MethodGet, "/api/backups/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return backup.ReadEnvelope(bytes.NewReader(resp.Data))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to backup server failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
