package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/bookshelf-api/internal/api/shared"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/platform/imagestore"
	"github.com/phrazzld/bookshelf-api/internal/service"
	"github.com/phrazzld/bookshelf-api/internal/service/auth"
	"github.com/phrazzld/bookshelf-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var maxBytesErr *http.MaxBytesError
	var validationErrs validator.ValidationErrors

	switch {
	case err == nil:
		return http.StatusInternalServerError

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, service.ErrNoRatedBooks):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrRatingConflict),
		errors.Is(err, service.ErrBookConflict),
		errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict

	// Oversized bodies
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge

	// Bad request errors. A taken email is reported as a bad request.
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrImageRequired),
		errors.Is(err, imagestore.ErrUnsupportedType),
		errors.Is(err, imagestore.ErrInvalidImage),
		errors.Is(err, imagestore.ErrEmptyImage),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var maxBytesErr *http.MaxBytesError
	var validationErrs validator.ValidationErrors
	var domainErr *domain.ValidationError

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthenticated):
		return "Authentication required"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password"

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return "You do not own this book"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrBookNotFound),
		errors.Is(err, domain.ErrBookNotFound):
		return "Book not found"

	case errors.Is(err, service.ErrNoRatedBooks):
		return "No rated books found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors
	case errors.Is(err, service.ErrRatingConflict),
		errors.Is(err, service.ErrBookConflict),
		errors.Is(err, store.ErrVersionConflict):
		return "Book was modified concurrently, please retry"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already in use"

	// Bad request errors
	case errors.As(err, &maxBytesErr):
		return fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit)

	case errors.Is(err, domain.ErrInvalidGrade):
		return fmt.Sprintf("Invalid rating: must be between %d and %d", domain.MinGrade, domain.MaxGrade)

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, service.ErrImageRequired),
		errors.Is(err, imagestore.ErrEmptyImage):
		return "Image is required"

	case errors.Is(err, imagestore.ErrUnsupportedType):
		return "Image must be a JPEG, PNG or WebP file"

	case errors.Is(err, imagestore.ErrInvalidImage):
		return "Invalid image data"

	case errors.As(err, &validationErrs):
		return shared.ValidationMessage(validationErrs)

	case errors.As(err, &domainErr):
		if domainErr.Field == "" {
			return "Invalid input: " + domainErr.Message
		}
		return fmt.Sprintf("Invalid %s: %s", domainErr.Field, domainErr.Message)

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid input"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted detail. A non-empty userMessage replaces the derived message for
// server errors, where the derived one is generic.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && userMessage != "" {
		message = userMessage
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
