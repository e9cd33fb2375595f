package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234"

func TestNewUser(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		user, err := NewUser("  Reader@Example.com ", testHash)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, "reader@example.com", user.Email)
		assert.Equal(t, testHash, user.HashedPassword)
		assert.False(t, user.CreatedAt.IsZero())
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		tests := []struct {
			name    string
			email   string
			hash    string
			wantErr error
		}{
			{"empty email", "", testHash, ErrEmptyEmail},
			{"malformed email", "not-an-email", testHash, ErrInvalidEmail},
			{"display name form", "Reader <reader@example.com>", testHash, ErrInvalidEmail},
			{"no tld", "reader@localhost", testHash, ErrInvalidEmail},
			{"missing hash", "reader@example.com", "", ErrEmptyHashedPassword},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				user, err := NewUser(tt.email, tt.hash)
				assert.Nil(t, user)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})
}

func TestUserValidate(t *testing.T) {
	user := User{ID: uuid.New(), Email: "reader@example.com", HashedPassword: testHash}
	assert.NoError(t, user.Validate())

	user.ID = uuid.Nil
	assert.ErrorIs(t, user.Validate(), ErrEmptyUserID)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"empty", "", ErrEmptyPassword},
		{"too short", "short", ErrPasswordTooShort},
		{"minimum length", strings.Repeat("a", MinPasswordLength), nil},
		{"maximum length", strings.Repeat("a", MaxPasswordLength), nil},
		{"too long", strings.Repeat("a", MaxPasswordLength+1), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
