// Package apperr defines the error taxonomy shared by the runtime components.
//
// Two error kinds cross package boundaries:
//
//   - ValidationError — malformed registrations, unknown commands, failed
//     command validators. Callers can inspect Detail for the validator's
//     verdict and Available for the names that would have worked.
//   - ApplicationError — an unexpected failure during command execution,
//     wrapping the original error with the command name and payload.
//
// Everything else (unknown service, unknown mutation, history boundaries)
// stays a plain error owned by the package that raises it.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a rejected registration or dispatch.
type ValidationError struct {
	// Message is the human-readable failure description.
	Message string

	// Detail carries the validator's return value when a command
	// validator rejected the payload. Nil otherwise.
	Detail any

	// Available lists the names that are registered, for "unknown name"
	// failures. Nil otherwise.
	Available []string
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches the validator verdict and returns the error.
func (e *ValidationError) WithDetail(detail any) *ValidationError {
	e.Detail = detail
	return e
}

// WithAvailable attaches the known-name list and returns the error.
func (e *ValidationError) WithAvailable(names []string) *ValidationError {
	e.Available = names
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Available) > 0 {
		return fmt.Sprintf("%s (available: %s)", e.Message, strings.Join(e.Available, ", "))
	}
	return e.Message
}

// Is matches any *ValidationError so callers can use
// errors.Is(err, &apperr.ValidationError{}).
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ApplicationError wraps an unexpected failure raised while executing a
// command, preserving the original error and the dispatch context.
type ApplicationError struct {
	Message string
	Command string
	Payload any
	Err     error
}

// Wrap builds an ApplicationError around err for the given dispatch.
func Wrap(err error, command string, payload any) *ApplicationError {
	return &ApplicationError{
		Message: fmt.Sprintf("command %q failed", command),
		Command: command,
		Payload: payload,
		Err:     err,
	}
}

func (e *ApplicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// Is matches any *ApplicationError or the wrapped error.
func (e *ApplicationError) Is(target error) bool {
	if _, ok := target.(*ApplicationError); ok {
		return true
	}
	return errors.Is(e.Err, target)
}

// IsFramework reports whether err is already one of the runtime's own
// error types. The command bus rethrows these unchanged instead of
// double-wrapping.
func IsFramework(err error) bool {
	var ve *ValidationError
	var ae *ApplicationError
	return errors.As(err, &ve) || errors.As(err, &ae)
}
