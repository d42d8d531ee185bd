// Package errors provides outbound call error classification and handling utilities.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// CallErrorType represents the type of outbound call error.
type CallErrorType int

const (
	// CallErrorUnknown represents an unclassified call error.
	CallErrorUnknown CallErrorType = iota
	// CallErrorTimeout represents a call that exceeded its deadline.
	CallErrorTimeout
	// CallErrorConnection represents a network-level connection error.
	CallErrorConnection
	// CallErrorRateLimit represents an upstream rate limit rejection (HTTP 429).
	CallErrorRateLimit
	// CallErrorServer represents an upstream server error (HTTP 5xx).
	CallErrorServer
	// CallErrorClient represents a request-side error (HTTP 4xx other than auth/rate limit).
	CallErrorClient
	// CallErrorAuth represents an authentication or authorization failure (HTTP 401, 403).
	CallErrorAuth
	// CallErrorCanceled represents a call abandoned by its caller.
	CallErrorCanceled
)

// String returns the short label recorded in breaker failure history.
func (t CallErrorType) String() string {
	switch t {
	case CallErrorTimeout:
		return "timeout"
	case CallErrorConnection:
		return "connection"
	case CallErrorRateLimit:
		return "rate_limit"
	case CallErrorServer:
		return "server_error"
	case CallErrorClient:
		return "client_error"
	case CallErrorAuth:
		return "auth"
	case CallErrorCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// CallError wraps an outbound call error with classification information.
type CallError struct {
	Type        CallErrorType
	OriginalErr error
	StatusCode  int // HTTP status code when the upstream reported one (e.g., 429, 503)
	Message     string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Message, e.StatusCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *CallError) Unwrap() error {
	return e.OriginalErr
}

// HTTPError is a status-carrying error for upstream HTTP responses. Dependency
// adapters return it so classification can branch on the status code instead
// of parsing response text.
type HTTPError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream returned HTTP %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("upstream returned HTTP %d", e.Code)
}

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// statusCoder matches any error that carries an HTTP status code, including
// client-library error types outside this package.
type statusCoder interface {
	StatusCode() int
}

// ClassifyCallError classifies an outbound call error into a specific error type.
//
// It handles context errors, net errors and status-carrying HTTP errors:
//   - context.DeadlineExceeded → CallErrorTimeout
//   - context.Canceled → CallErrorCanceled
//   - net.Error with Timeout() → CallErrorTimeout
//   - HTTP 401/403 → CallErrorAuth
//   - HTTP 408 → CallErrorTimeout
//   - HTTP 429 → CallErrorRateLimit
//   - HTTP 4xx → CallErrorClient
//   - HTTP 5xx → CallErrorServer
//   - Connection errors → CallErrorConnection
//
// Example:
//
//	_, err := guard.Do(ctx, "payment-processor", charge)
//	if err != nil {
//	    callErr := errors.ClassifyCallError(err)
//	    switch callErr.Type {
//	    case errors.CallErrorRateLimit:
//	        return retryLater(ctx, order)
//	    case errors.CallErrorAuth:
//	        return alertOncall(ctx, err)
//	    default:
//	        return err
//	    }
//	}
func ClassifyCallError(err error) *CallError {
	if err == nil {
		return nil
	}

	// Handle context errors first: DeadlineExceeded also satisfies net.Error.
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{
			Type:        CallErrorTimeout,
			OriginalErr: err,
			Message:     "call timed out",
		}
	}
	if errors.Is(err, context.Canceled) {
		return &CallError{
			Type:        CallErrorCanceled,
			OriginalErr: err,
			Message:     "call canceled",
		}
	}

	// Try to extract an HTTP status code
	var coder statusCoder
	if errors.As(err, &coder) {
		return classifyHTTPStatus(coder.StatusCode(), err)
	}

	// Network-level errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &CallError{
				Type:        CallErrorTimeout,
				OriginalErr: err,
				Message:     "call timed out",
			}
		}
		return &CallError{
			Type:        CallErrorConnection,
			OriginalErr: err,
			Message:     "connection error",
		}
	}

	// Check for common patterns in the message text
	errMsg := err.Error()
	if isTimeoutError(errMsg) {
		return &CallError{
			Type:        CallErrorTimeout,
			OriginalErr: err,
			Message:     "call timed out",
		}
	}
	if isConnectionError(errMsg) {
		return &CallError{
			Type:        CallErrorConnection,
			OriginalErr: err,
			Message:     "connection error",
		}
	}
	if isRateLimitError(errMsg) {
		return &CallError{
			Type:        CallErrorRateLimit,
			OriginalErr: err,
			Message:     "upstream rate limited",
		}
	}

	// Unknown error type
	return &CallError{
		Type:        CallErrorUnknown,
		OriginalErr: err,
		Message:     "unknown call error",
	}
}

// classifyHTTPStatus classifies a status-carrying HTTP error.
func classifyHTTPStatus(code int, err error) *CallError {
	switch {
	case code == 401 || code == 403:
		return &CallError{
			Type:        CallErrorAuth,
			OriginalErr: err,
			StatusCode:  code,
			Message:     "authentication failed",
		}

	case code == 408:
		return &CallError{
			Type:        CallErrorTimeout,
			OriginalErr: err,
			StatusCode:  code,
			Message:     "call timed out",
		}

	case code == 429:
		return &CallError{
			Type:        CallErrorRateLimit,
			OriginalErr: err,
			StatusCode:  code,
			Message:     "upstream rate limited",
		}

	case code >= 400 && code < 500:
		return &CallError{
			Type:        CallErrorClient,
			OriginalErr: err,
			StatusCode:  code,
			Message:     "client error",
		}

	case code >= 500:
		return &CallError{
			Type:        CallErrorServer,
			OriginalErr: err,
			StatusCode:  code,
			Message:     "upstream server error",
		}

	default:
		return &CallError{
			Type:        CallErrorUnknown,
			OriginalErr: err,
			StatusCode:  code,
			Message:     "unknown call error",
		}
	}
}

// KindOf returns the short classification label for an error, for failure
// records and structured logs.
func KindOf(err error) string {
	callErr := ClassifyCallError(err)
	if callErr == nil {
		return CallErrorUnknown.String()
	}
	return callErr.Type.String()
}

// isTimeoutError checks if the error message indicates an elapsed deadline.
func isTimeoutError(errMsg string) bool {
	timeoutKeywords := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
	}

	for _, keyword := range timeoutKeywords {
		if len(errMsg) > 0 && contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// isConnectionError checks if the error message indicates a connection problem.
func isConnectionError(errMsg string) bool {
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"connection lost",
		"can't connect",
		"dial tcp",
	}

	for _, keyword := range connectionKeywords {
		if len(errMsg) > 0 && contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// isRateLimitError checks if the error message indicates upstream throttling.
func isRateLimitError(errMsg string) bool {
	rateLimitKeywords := []string{
		"rate limit",
		"too many requests",
		"quota exceeded",
	}

	for _, keyword := range rateLimitKeywords {
		if len(errMsg) > 0 && contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// contains checks if a string contains a substring (case-insensitive).
func contains(str, substr string) bool {
	// Simple case-insensitive check
	for i := 0; i <= len(str)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c1 := str[i+j]
			c2 := substr[j]
			// Convert to lowercase
			if c1 >= 'A' && c1 <= 'Z' {
				c1 += 'a' - 'A'
			}
			if c2 >= 'A' && c2 <= 'Z' {
				c2 += 'a' - 'A'
			}
			if c1 != c2 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// IsTimeoutError checks if the error is a timeout.
func IsTimeoutError(err error) bool {
	callErr := ClassifyCallError(err)
	return callErr != nil && callErr.Type == CallErrorTimeout
}

// IsConnectionError checks if the error is a connection problem.
func IsConnectionError(err error) bool {
	callErr := ClassifyCallError(err)
	return callErr != nil && callErr.Type == CallErrorConnection
}

// IsRateLimitError checks if the error is an upstream rate limit rejection.
func IsRateLimitError(err error) bool {
	callErr := ClassifyCallError(err)
	return callErr != nil && callErr.Type == CallErrorRateLimit
}

// IsServerError checks if the error is an upstream server error.
func IsServerError(err error) bool {
	callErr := ClassifyCallError(err)
	return callErr != nil && callErr.Type == CallErrorServer
}

// IsAuthError checks if the error is an authentication failure.
func IsAuthError(err error) bool {
	callErr := ClassifyCallError(err)
	return callErr != nil && callErr.Type == CallErrorAuth
}

// IsCanceledError checks if the error is a caller cancellation.
func IsCanceledError(err error) bool {
	callErr := ClassifyCallError(err)
	return callErr != nil && callErr.Type == CallErrorCanceled
}
