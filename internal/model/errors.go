package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the integrator error taxonomy.
// Typed errors below unwrap to one of these so callers can use errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrFormat     = errors.New("invalid format")
	ErrImmutable  = errors.New("operation not allowed on immutable record")
	ErrNotFound   = errors.New("record not found")
)

// ValidationError reports a malformed or missing required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FormatError reports string input that does not match an expected wire format.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ImmutabilityError is returned for every update or remove attempted on an
// append-only or singleton record. It is never retryable.
type ImmutabilityError struct {
	Kind string // record kind, e.g. "event_log"
	Op   string // "update" or "remove"
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("%s is not allowed for %s", e.Op, e.Kind)
}

func (e *ImmutabilityError) Unwrap() error { return ErrImmutable }

// NotFoundError reports a lookup that matched no record.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsValidation returns true if err wraps ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsFormat returns true if err wraps ErrFormat.
func IsFormat(err error) bool { return errors.Is(err, ErrFormat) }

// IsImmutable returns true if err wraps ErrImmutable.
func IsImmutable(err error) bool { return errors.Is(err, ErrImmutable) }

// IsNotFound returns true if err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
