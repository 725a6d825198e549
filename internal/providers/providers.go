package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Request is a single completion request
type Request struct {
	Model       string
	Prompt      string
	Images      [][]byte
	Temperature float64
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is returned when the upstream service answered with a non-success status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether a failed call is worth a second attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}

	var ne net.Error
	return errors.As(err, &ne)
}
