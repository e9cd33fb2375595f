package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrRatingConflict indicates a rating could not be saved because the book
	// kept changing underneath it until the retry budget ran out.
	// API layer should map this to HTTP 409 Conflict.
	ErrRatingConflict = errors.New("book was modified concurrently, please retry")

	// ErrBookConflict indicates an owner's update or delete lost every retry
	// against concurrent writes. API layer should map this to HTTP 409 Conflict.
	ErrBookConflict = errors.New("book was modified concurrently")

	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	// The two cases are deliberately indistinguishable to clients.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoRatedBooks indicates no book has a positive average rating yet.
	ErrNoRatedBooks = errors.New("no rated books")

	// ErrImageRequired indicates a book was created without a cover image.
	ErrImageRequired = errors.New("image is required")
)

// BookServiceError wraps errors from the book service with context.
type BookServiceError struct {
	// Operation is the operation that failed (e.g., "create_book", "rate_book")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for BookServiceError.
func (e *BookServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("book service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("book service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BookServiceError) Unwrap() error {
	return e.Err
}

// NewBookServiceError creates a new BookServiceError.
// It returns known sentinel errors directly without wrapping.
func NewBookServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{domain.ErrUnauthorized, ErrRatingConflict, ErrBookConflict, ErrNoRatedBooks, ErrImageRequired, store.ErrBookNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return &BookServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// UserServiceError wraps errors from the user service with context.
type UserServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for UserServiceError.
func (e *UserServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("user service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("user service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *UserServiceError) Unwrap() error {
	return e.Err
}

// NewUserServiceError creates a new UserServiceError, passing credential and
// duplicate-email sentinels through unwrapped.
func NewUserServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrInvalidCredentials, store.ErrEmailExists} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return &UserServiceError{Operation: operation, Message: message, Err: err}
}
