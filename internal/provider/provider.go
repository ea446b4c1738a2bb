// Package provider holds the shared OpenAI-compatible client plumbing used by
// the embedding and completion adapters: client construction, transient-error
// classification, backoff, and reachability checks.
package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// NewClient builds the process-wide OpenAI-compatible client. It is created
// once at startup and injected into every component that talks to the
// provider; components never construct their own.
func NewClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

// Ping reports whether the provider answers at all. Used by the health surface.
func Ping(ctx context.Context, client *openai.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := client.ListModels(ctx)
	return err == nil
}

// RetryDelay returns the exponential backoff delay for the given attempt,
// starting at 200ms and capped at 5s.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// SleepBackoff waits out the backoff for attempt or returns early when ctx is done.
func SleepBackoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(RetryDelay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retryable classifies provider errors. Rate limits, server errors, and
// network timeouts are transient; authentication and malformed-request
// errors are permanent and must not be retried.
func Retryable(err error) bool {
	// Context sentinels first: context.DeadlineExceeded also satisfies
	// net.Error, and a dead context must never be retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Errors without a provider status (connection refused, EOF) are
	// treated as transient.
	return true
}
