// Package oracle is the boundary to the text-generation providers. The
// pipeline sees only Gateway; providers, retries, rate limiting and usage
// accounting are layered around it here.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Request is one generation call.
type Request struct {
	Prompt    string
	MaxTokens int
	// Task tags the call for usage accounting, e.g. "extracting_main_topics".
	Task string
}

// Gateway turns a prompt into text or an explicit failure.
type Gateway interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Gateway.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Completion is what a provider returns before middleware strips it to text.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is implemented by the concrete SDK clients.
type Provider interface {
	Complete(ctx context.Context, req Request) (Completion, error)
	Name() string
	Model() string
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// retryableStatus reports whether an HTTP status from a provider is transient.
func retryableStatus(code int) bool {
	return code == 408 || code == 409 || code == 429 || code >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
