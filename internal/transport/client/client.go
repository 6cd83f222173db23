package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// RequestIDHeader carries a per-request id the server echoes in its logs
const RequestIDHeader = "X-Request-ID"

// ErrNotFound is returned when the server has no live entry for a short code
var ErrNotFound = errors.New("short code not found")

// APIError is a non-200 answer from POST /shorten
type APIError struct {
	StatusCode int
	Response   domain.ShortenErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Response.Error)
}

// ErrorResponse returns the decoded error body
func (e *APIError) ErrorResponse() domain.ShortenErrorResponse {
	return e.Response
}

// Client represents an HTTP client for the shortening backend
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new client for the backend at serverURL
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Shorten submits a URL for shortening
func (c *Client) Shorten(ctx context.Context, reqBody domain.ShortenRequest) (*domain.ShortenResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/shorten", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Response); err != nil {
			apiErr.Response = domain.ShortenErrorResponse{}
		}
		if apiErr.Response.Error == "" {
			apiErr.Response.Error = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var result domain.ShortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetURL retrieves information about a short URL
func (c *Client) GetURL(ctx context.Context, shortCode string) (*domain.URLEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/urls/"+shortCode, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("short code '%s': %w", shortCode, ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var entry domain.URLEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &entry, nil
}

// DeleteURL deletes a short URL
func (c *Client) DeleteURL(ctx context.Context, shortCode string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/urls/"+shortCode, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("short code '%s': %w", shortCode, ErrNotFound)
	}

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}

// ListURLs retrieves all live short URLs
func (c *Client) ListURLs(ctx context.Context) ([]*domain.URLEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/urls", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var entries []*domain.URLEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return entries, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Buffer) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, c.serverURL+path, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}
