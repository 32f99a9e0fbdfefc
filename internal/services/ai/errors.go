package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned when no API key is available
var ErrNotConfigured = errors.New("ai: api key not configured")

// RateLimitError reports an upstream 429
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ai: rate limited, retry after %s", e.RetryAfter)
}

// StatusError reports a non-200 response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai: request failed with status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt may succeed
func retryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return !errors.Is(err, ErrNotConfigured)
}
