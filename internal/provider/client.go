package provider

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrorPrefix marks sentinel failure text returned by Generate.
const ErrorPrefix = "Error:"

// Client is the generation port the cognitive pipeline consumes: a
// synchronous Generate that never returns a Go error. Transport failures
// are retried with exponential backoff; after the retry budget is spent the
// failure is surfaced as sentinel text (or a JSON envelope when the prompt
// asked for JSON), so stage code branches on content instead of handling
// exceptions.
type Client struct {
	router     *Router
	agentKey   string
	model      string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewClient builds a generation client bound to one agent's routing.
func NewClient(router *Router, agentKey, model string, logger *zap.Logger) *Client {
	return &Client{
		router:     router,
		agentKey:   agentKey,
		model:      model,
		maxRetries: 3,
		baseDelay:  time.Second,
		logger:     logger,
	}
}

// WithRetries overrides the retry budget and base backoff delay.
func (c *Client) WithRetries(maxRetries int, baseDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.baseDelay = baseDelay
	return c
}

// Generate produces text for a prompt. meta is opaque caller metadata that
// only shows up in logs. The returned string is either model output or
// sentinel failure text; check with IsSentinel.
func (c *Client) Generate(ctx context.Context, prompt string, meta map[string]string) string {
	req := &ChatRequest{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}

	var lastErr error
	delay := c.baseDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return c.failure(ctx.Err().Error(), prompt)
			case <-time.After(delay):
			}
			delay = delay * 3 / 2
		}

		start := time.Now()
		resp, err := c.router.Route(ctx, c.agentKey, req)
		if err == nil {
			c.logger.Debug("generation succeeded",
				zap.String("agent", c.agentKey),
				zap.Duration("elapsed", time.Since(start)),
				zap.Any("meta", meta))
			return resp.Content
		}
		lastErr = err
		c.logger.Warn("generation attempt failed",
			zap.String("agent", c.agentKey),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	msg := "maximum retries reached"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return c.failure(msg, prompt)
}

func (c *Client) failure(msg, prompt string) string {
	if wantsJSON(prompt) {
		envelope, err := json.Marshal(map[string]string{
			"error":  ErrorPrefix + " " + msg,
			"prompt": prompt,
		})
		if err == nil {
			return string(envelope)
		}
	}
	return ErrorPrefix + " " + msg + "\nFailed prompt: " + prompt
}

func wantsJSON(prompt string) bool {
	return strings.Contains(strings.ToUpper(prompt), "JSON")
}

// IsSentinel reports whether generated text is a failure sentinel rather
// than model output. Both the plain-text and JSON-envelope forms count.
func IsSentinel(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, ErrorPrefix) {
		return true
	}
	if strings.HasPrefix(trimmed, "{") {
		var envelope struct {
			Error  string `json:"error"`
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil &&
			strings.HasPrefix(envelope.Error, ErrorPrefix) {
			return true
		}
	}
	return false
}
