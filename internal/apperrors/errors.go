// Package apperrors provides structured application errors for the tool surface.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrTimeout    = errors.New("timeout")
	ErrDisabled   = errors.New("disabled")
	ErrNoPayloads = errors.New("no payloads generated")
	ErrInternal   = errors.New("internal error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "command", "timeout")
	Resource string // For not found/conflict (e.g., "job", "interactsh")
	Op       string // Operation that failed (e.g., "command.start")
	Cause    error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s `%s` not found", resource, id),
		Resource: resource,
	}
}

// Conflict creates a conflict error for a resource.
func Conflict(resource, id, reason string) error {
	return &Error{
		Sentinel: ErrConflict,
		Message:  reason,
		Resource: resource,
	}
}

// Timeout creates a timeout error for an operation that exceeded its bound.
func Timeout(op string, seconds int) error {
	return &Error{
		Sentinel: ErrTimeout,
		Message:  fmt.Sprintf("%s timed out after %d seconds", op, seconds),
		Op:       op,
	}
}

// Disabled creates an error for a capability turned off in configuration.
func Disabled(capability string) error {
	return &Error{
		Sentinel: ErrDisabled,
		Message:  fmt.Sprintf("%s is disabled in configuration", capability),
		Resource: capability,
	}
}

// NoPayloads creates an error for a listener that produced no payloads.
func NoPayloads(message string) error {
	return &Error{
		Sentinel: ErrNoPayloads,
		Message:  message,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}
