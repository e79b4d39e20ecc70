// Package provider sends natural-language commands to generative model
// backends and returns their raw text output.
//
// A Classifier tries a primary provider (OpenAI) and, only when that attempt
// fails, a fallback provider (Gemini). Attempts are sequential and each is
// bounded by its own timeout.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/jarvis/internal/command"
)

const instrumentationName = "github.com/fyrsmithlabs/jarvis/internal/provider"

var (
	// ErrProviderUnavailable is returned when every configured provider failed
	// or none is configured.
	ErrProviderUnavailable = errors.New("no provider available")

	// ErrEmptyResponse is returned by a provider that answered without text.
	ErrEmptyResponse = errors.New("provider returned empty response")

	// ErrNotConfigured is returned when constructing a provider without an API key.
	ErrNotConfigured = errors.New("provider not configured")
)

// Prompt is a provider-agnostic request.
type Prompt struct {
	// Instruction is the system instruction.
	Instruction string
	// Text is the user's text. For image requests it describes the task.
	Text string
	// Image is set for image requests.
	Image *command.Image
}

// Provider is a generative model backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Attempt records the result of calling one provider.
type Attempt struct {
	Provider string
	Text     string
	Err      error
	Duration time.Duration
}

// OK reports whether the attempt produced usable text.
func (a Attempt) OK() bool {
	return a.Err == nil && a.Text != ""
}

// RawOutput is the text returned by the first successful provider.
type RawOutput struct {
	Text     string
	Provider string
	Attempts []Attempt
}

// retryableError marks transient failures: transport errors, 429 and 5xx.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

const defaultBaseBackoff = 500 * time.Millisecond

// withRetries calls fn once plus up to maxRetries more times while it fails
// with a retryable error, backing off exponentially between calls.
func withRetries(ctx context.Context, maxRetries int, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}
	if maxRetries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
