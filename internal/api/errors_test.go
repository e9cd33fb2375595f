package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/platform/imagestore"
	"github.com/phrazzld/bookshelf-api/internal/service"
	"github.com/phrazzld/bookshelf-api/internal/service/auth"
	"github.com/phrazzld/bookshelf-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"book not found", store.ErrBookNotFound, http.StatusNotFound, "Book not found"},
		{"domain book not found", domain.ErrBookNotFound, http.StatusNotFound, "Book not found"},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"no rated books", service.ErrNoRatedBooks, http.StatusNotFound, "No rated books found"},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, "Authentication required"},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"bad refresh", auth.ErrWrongTokenType, http.StatusUnauthorized, "Invalid refresh token"},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"not owner", domain.ErrUnauthorized, http.StatusForbidden, "You do not own this book"},
		{"rating conflict", service.ErrRatingConflict, http.StatusConflict, "Book was modified concurrently, please retry"},
		{"book conflict", service.ErrBookConflict, http.StatusConflict, "Book was modified concurrently, please retry"},
		{"email taken", store.ErrEmailExists, http.StatusBadRequest, "Email already in use"},
		{"grade", domain.ErrInvalidGrade, http.StatusBadRequest, "Invalid rating: must be between 0 and 5"},
		{"field", domain.NewValidationError("title", "is required", nil), http.StatusBadRequest, "Invalid title: is required"},
		{"bad id", domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID), http.StatusBadRequest, "Invalid ID"},
		{"image required", service.ErrImageRequired, http.StatusBadRequest, "Image is required"},
		{"image type", imagestore.ErrUnsupportedType, http.StatusBadRequest, "Image must be a JPEG, PNG or WebP file"},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "Request body exceeds 10 bytes"},
		{"wrapped not owned", service.NewBookServiceError("update_book", "x", fmt.Errorf("check: %w", domain.ErrUnauthorized)), http.StatusForbidden, "You do not own this book"},
		{"unknown", errors.New("connection refused to 10.0.0.1"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.msg, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestGetSafeErrorMessageNil(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatusCode(nil))
}
