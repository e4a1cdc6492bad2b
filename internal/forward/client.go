// Package forward delivers normalized messages to the Camunda webhook
// start event. One attempt per message; retries are left to Meta, which
// resends webhooks it considers undelivered.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mattjoyce/warelay/internal/whatsapp"
)

const maxResponseBody = 4096 // cap on error body kept for logging

// HeaderForwardID carries a per-forward id so downstream logs can be correlated.
const HeaderForwardID = "X-Forward-Id"

// Config holds the downstream endpoint and credentials.
type Config struct {
	URL       string
	Username  string
	Password  string
	Timeout   time.Duration
	UserAgent string
}

// Client posts messages to the downstream webhook.
type Client struct {
	config Config
	client *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The configured
// timeout is not applied to a supplied client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// New creates a downstream client.
func New(config Config, opts ...Option) *Client {
	if config.UserAgent == "" {
		config.UserAgent = "warelay"
	}
	c := &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes a completed forward.
type Result struct {
	ForwardID  string
	StatusCode int
	Latency    time.Duration
}

// StatusError is returned when downstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned status %d", e.StatusCode)
}

// Forward sends msg as JSON with Basic authentication. A non-2xx status
// yields a *StatusError carrying the (truncated) response body; transport
// failures are wrapped. Nothing is retried.
func (c *Client) Forward(ctx context.Context, msg whatsapp.Message) (Result, error) {
	result := Result{ForwardID: uuid.NewString()}

	body, err := json.Marshal(msg)
	if err != nil {
		return result, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(HeaderForwardID, result.ForwardID)
	req.SetBasicAuth(c.config.Username, c.config.Password)

	start := time.Now()
	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("post to downstream: %w", err)
	}
	defer resp.Body.Close()
	result.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Best effort: a failed read still reports the status.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return result, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	return result, nil
}
