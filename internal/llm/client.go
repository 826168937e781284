// Package llm provides the exclusive-access client for the one inference
// backend the daemon owns.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/callmeout/callmeout/internal/config"
	"github.com/callmeout/callmeout/internal/loggy"
)

// Backend is the narrow surface the client needs from the native binding.
// Implementations are not required to be goroutine-safe; the client
// serializes every call.
type Backend interface {
	Complete(messagesJSON, optionsJSON string, bufSize int) (string, error)
	Close()
}

// Message is one entry of the chat exchange sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// envelope is the backend's outer response wrapper.
type envelope struct {
	Success  bool    `json:"success"`
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

// Client owns one inference backend for its whole lifetime and hands out
// mutually exclusive, synchronous access to it. Concurrent callers block on
// the internal mutex until the holder finishes.
type Client struct {
	backend Backend
	cfg     config.CactusConfig
	logger  *loggy.Logger

	mu        sync.Mutex
	limiter   *rate.Limiter
	closeOnce sync.Once
}

// NewClient wraps an initialized backend. The client becomes the backend's
// sole owner; nothing else may touch it afterwards.
func NewClient(backend Backend, cfg config.CactusConfig, logger *loggy.Logger) *Client {
	return &Client{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		limiter: newLimiter(cfg.RequestsPerMinute, cfg.BurstLimit),
	}
}

// newLimiter builds a rate limiter from RPM and burst; zero or negative RPM
// means unlimited.
func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// Complete sends a system+user exchange through the backend and returns the
// model's text. The blocking native call runs under the exclusive lock; the
// context gates only admission (rate limit), not the call itself, which has
// no abort path once started.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages, err := json.Marshal([]Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userMessage},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling messages: %w", err)
	}

	opts := map[string]any{
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}
	if c.cfg.ContextSize > 0 {
		opts["context_size"] = c.cfg.ContextSize
	}
	options, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshaling options: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	c.mu.Lock()
	raw, err := c.backend.Complete(string(messages), string(options), c.cfg.ResponseBufferSize)
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	c.logger.Debug("backend raw response", "length", len(raw))
	return parseEnvelope(raw)
}

// parseEnvelope unwraps the backend's {success, response, error} contract.
func parseEnvelope(raw string) (string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", fmt.Errorf("parsing backend response: %w: %s", err, raw)
	}

	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("backend returned failure: %s", msg)
	}

	if env.Response == nil {
		return "", fmt.Errorf("backend response missing 'response' field: %s", raw)
	}
	return *env.Response, nil
}

// Close releases the backend exactly once. Safe to call multiple times and
// on a client whose backend never fully initialized.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.backend != nil {
			c.backend.Close()
		}
	})
}
