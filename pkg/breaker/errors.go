package breaker

import (
	"errors"
	"fmt"
)

// CircuitOpenError is returned when a call is rejected without being
// attempted: the dependency's breaker is open, or half-open with no probe
// budget left. Callers should not retry immediately.
type CircuitOpenError struct {
	Name string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open: failing fast", e.Name)
}

// ServiceUnavailableError wraps an underlying call failure when a guard is
// configured to normalize errors for upstream consumers.
type ServiceUnavailableError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("dependency %q unavailable: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by the registry when a name has never been
// created.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("circuit breaker %q not found", e.Name)
}

// IsCircuitOpen checks if the error is a fast-fail rejection.
func IsCircuitOpen(err error) bool {
	var target *CircuitOpenError
	return errors.As(err, &target)
}

// IsServiceUnavailable checks if the error is a wrapped dependency failure.
func IsServiceUnavailable(err error) bool {
	var target *ServiceUnavailableError
	return errors.As(err, &target)
}

// IsNotFound checks if the error is an unknown-breaker lookup.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
