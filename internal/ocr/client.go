package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls an HTTP text-detection service. The service accepts raw image
// bytes and returns detected lines with per-line confidence scores.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type detectResponse struct {
	Lines []Line `json:"lines"`
	Error string `json:"error,omitempty"`
}

// DetectText submits one page image and returns the detected lines.
func (c *Client) DetectText(ctx context.Context, image []byte) ([]Line, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ocr service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var detected detectResponse
	if err := json.Unmarshal(respBody, &detected); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if detected.Error != "" {
		return nil, fmt.Errorf("ocr service error: %s", detected.Error)
	}
	return detected.Lines, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
