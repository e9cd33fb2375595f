package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually wrapped in a *ValidationError naming the field.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidGrade is returned when a rating grade falls outside [MinGrade, MaxGrade].
	ErrInvalidGrade = errors.New("invalid grade")

	// ErrUnauthenticated is returned when an operation requires an acting user
	// and none was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized is returned when the actor does not own the resource it
	// is trying to mutate.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrBookNotFound is returned when an operation targets a book that does not exist.
	ErrBookNotFound = errors.New("book not found")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError. A nil err defaults to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", e.Err, e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports ErrValidation for every ValidationError so callers can match the
// whole class regardless of the specific sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
