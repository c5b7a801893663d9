package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind separates retryable from terminal provider failures
type ErrorKind string

const (
	ErrTransient ErrorKind = "transient"
	ErrFatal     ErrorKind = "fatal"
)

// CallError is a classified provider failure
type CallError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (%d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *CallError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying may succeed
func (e *CallError) Transient() bool {
	return e.Kind == ErrTransient
}

// IsTransient reports whether err is a transient *CallError or a timeout
func IsTransient(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Transient()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// StatusKind classifies an HTTP status: rate limits, timeouts and server
// errors are transient, everything else is fatal
func StatusKind(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return ErrTransient
	case code >= 500 && code < 600:
		return ErrTransient
	default:
		return ErrFatal
	}
}

// statusError builds a CallError from an HTTP status
func statusError(provider string, code int, err error) *CallError {
	return &CallError{Provider: provider, Kind: StatusKind(code), StatusCode: code, Err: err}
}

// classify wraps a transport or SDK error
func classify(provider string, err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusError(provider, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusError(provider, reqErr.HTTPStatusCode, err)
	}

	if isNetworkError(err) {
		return &CallError{Provider: provider, Kind: ErrTransient, Err: err}
	}
	return &CallError{Provider: provider, Kind: ErrFatal, Err: err}
}

// isNetworkError detects timeouts and dropped connections
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "eof")
}
