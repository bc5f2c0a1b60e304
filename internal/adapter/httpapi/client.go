package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"regbot/internal/domain"
)

// DefaultClientTimeout bounds one round-trip to the query endpoint.
const DefaultClientTimeout = 120 * time.Second

// Client calls a running query endpoint.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a client for the endpoint at url, e.g.
// http://localhost:8000/query.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Query(ctx context.Context, question string) (domain.Response, error) {
	body, err := json.Marshal(domain.QueryRequest{Question: question})
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Response{}, fmt.Errorf("query endpoint returned status %d: %s", resp.StatusCode, string(data))
	}

	var out domain.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}
