package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrQuota marks quota, rate-limit and overload failures of the generation service.
var ErrQuota = errors.New("generation quota exhausted")

type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type GenerateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type Client struct {
	baseURL string
	httpCli *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpCli: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate sends a prompt and returns the generated text. 429 and 503 responses wrap ErrQuota.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	bs, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(bs))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return "", fmt.Errorf("generate: status %d: %w", resp.StatusCode, ErrQuota)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generate: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var gr GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("generate: decode response: %w", err)
	}
	if gr.Error != "" {
		return "", fmt.Errorf("generate: %s", gr.Error)
	}
	return gr.Text, nil
}
