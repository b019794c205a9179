// Package apperror defines the error taxonomy shared by the practice
// session and explanation components.
package apperror

import (
	"fmt"
	"time"
)

// DependencyError means a required collaborator was not configured or could
// not be reached. Fatal to the current request.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dependency %s unavailable: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("dependency %s unavailable", e.Dependency)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// RateLimitError means a quota was exceeded. Remaining is always <= 0.
type RateLimitError struct {
	Remaining  int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (remaining %d, retry after %s)", e.Remaining, e.RetryAfter)
}

// NotFoundError means a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError means the input was malformed or violates a precondition.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid request: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError for the named collaborator.
func Dependency(name string, err error) error {
	return &DependencyError{Dependency: name, Err: err}
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Invalid builds a ValidationError for a field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
