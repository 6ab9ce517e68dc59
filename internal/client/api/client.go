// Package api implements the HTTP client the sync engine drains the
// queue through.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	clientsync "github.com/offsync/offsync/internal/client/sync"
	"github.com/offsync/offsync/internal/models"
	"github.com/offsync/offsync/pkg/api"
)

// Client is the HTTP client for the sync server.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.RWMutex
	token string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Keep the Authorization header across redirects.
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetToken installs the bearer token used on authenticated endpoints.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Token exchanges the operator password for an access token.
func (c *Client) Token(ctx context.Context, req api.TokenRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/token", req, &resp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	return &resp, nil
}

// Health checks server reachability. It satisfies netmon.Probe.
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	return nil
}

// Apply sends one queued mutation to the server. Errors are mapped to
// the sync engine's taxonomy: transport failures become NetworkError,
// 409 becomes ConflictError carrying the server record, other 4xx
// become RemoteRejectedError, and 5xx come back as plain errors so the
// engine retries the item with backoff.
func (c *Client) Apply(ctx context.Context, item *models.QueuedItem) (*clientsync.ApplyResult, error) {
	req := api.ApplyRequest{
		ItemID:      item.ID,
		Kind:        item.Payload.Kind,
		TargetID:    item.Payload.TargetID,
		BaseVersion: item.Payload.BaseVersion,
		Timestamp:   item.Timestamp,
		Fields:      item.Payload.Fields,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal apply request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/records/apply", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := c.bearer(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &clientsync.NetworkError{Op: "apply", Err: err}
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &clientsync.NetworkError{Op: "apply", Err: err}
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
		var resp api.ApplyResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode apply response: %w", err)
		}
		return &clientsync.ApplyResult{NewVersion: resp.NewVersion}, nil

	case httpResp.StatusCode == http.StatusConflict:
		var resp api.ConflictResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode conflict response: %w", err)
		}
		return nil, &clientsync.ConflictError{
			ServerFields:  resp.Record.Fields,
			ServerVersion: resp.Record.Version,
		}

	case httpResp.StatusCode >= 400 && httpResp.StatusCode < 500:
		return nil, &clientsync.RemoteRejectedError{
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(respBody, httpResp.StatusCode),
		}

	default:
		// Server-side trouble is transient. The item stays queued and is
		// charged a retry, so backoff spreads out further attempts.
		return nil, fmt.Errorf("server error (%d): %s",
			httpResp.StatusCode, errorMessage(respBody, httpResp.StatusCode))
	}
}

// doRequest performs an HTTP request with the standard envelope handling.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, errorMessage(respBody, resp.StatusCode))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func errorMessage(body []byte, statusCode int) string {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if errResp.Message != "" {
			return errResp.Message
		}
		return errResp.Error
	}
	return http.StatusText(statusCode)
}
