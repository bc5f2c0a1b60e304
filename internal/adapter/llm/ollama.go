package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// OllamaClient calls Ollama's /api/generate endpoint without streaming.
type OllamaClient struct {
	url    string
	model  string
	client *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error,omitempty"`
}

// NewOllamaClient creates a client for the full generate URL,
// e.g. http://localhost:11434/api/generate.
func NewOllamaClient(url, model string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		url:   url,
		model: model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate sends a single prompt and returns the trimmed completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := doRequest(c.client, req)
	if err != nil {
		return "", err
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("API error: %s", genResp.Error)
	}
	if genResp.Response == nil {
		return "", fmt.Errorf("response field missing from payload")
	}

	text := strings.TrimSpace(*genResp.Response)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *OllamaClient) ModelName() string {
	return c.model
}

// doRequest executes req and returns the body of a 2xx response.
func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview)
	}

	return body, nil
}
