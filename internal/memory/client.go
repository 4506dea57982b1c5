package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one conversation record in the shape the memory service
// ingests for fact extraction.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config for the memory service client.
type Config struct {
	Endpoint string
	APIKey   string
	UserID   string
	Timeout  time.Duration
}

// Client talks to a mem0-style long-term memory API. Fact extraction and
// deduplication happen service-side; this client only delivers batches.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client. httpClient may carry a SOCKS transport; nil
// means a plain client with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type addRequest struct {
	Messages []Message `json:"messages"`
	UserID   string    `json:"user_id"`
	Version  string    `json:"version"`
}

// AddBatch submits one batch of messages for the configured user. A single
// attempt; the caller decides whether a failure matters.
func (c *Client) AddBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	body, err := json.Marshal(addRequest{
		Messages: msgs,
		UserID:   c.cfg.UserID,
		Version:  "v2",
	})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("memory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("memory service returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
