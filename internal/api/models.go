package api

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bookshelf-api/internal/domain"
)

// SignupRequest defines the payload for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SigninRequest defines the payload for the signin endpoint.
type SigninRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupResponse is returned after a successful signup.
type SignupResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// AuthResponse defines the successful response for the signin endpoint.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"userId"`

	// AccessToken is the JWT used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT used to obtain new access tokens
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// BookRequest carries book metadata, either as a JSON body or as the "book"
// field of a multipart form.
type BookRequest struct {
	Title  string `json:"title"  validate:"required,max=255"`
	Author string `json:"author" validate:"required,max=255"`
	Year   *int   `json:"year"   validate:"required"`
	Genre  string `json:"genre"  validate:"required,max=100"`
}

// Details converts the request into domain metadata.
func (r BookRequest) Details() domain.BookDetails {
	d := domain.BookDetails{Title: r.Title, Author: r.Author, Genre: r.Genre}
	if r.Year != nil {
		d.Year = *r.Year
	}
	return d
}

// RateBookRequest defines the payload for rating a book.
// Rating is a pointer so that a missing field is distinguishable from 0.
type RateBookRequest struct {
	Rating *int `json:"rating" validate:"required,min=0,max=5"`
}

// RatingResponse is one user's grade in a book response.
type RatingResponse struct {
	UserID uuid.UUID `json:"userId"`
	Grade  int       `json:"grade"`
}

// BookResponse is the client representation of a book.
// OwnerID and UserID hold the same value; userId is kept for older clients.
type BookResponse struct {
	ID            uuid.UUID        `json:"id"`
	OwnerID       *uuid.UUID       `json:"ownerId"`
	UserID        *uuid.UUID       `json:"userId"`
	Title         string           `json:"title"`
	Author        string           `json:"author"`
	Year          int              `json:"year"`
	Genre         string           `json:"genre"`
	ImageURL      string           `json:"imageUrl"`
	Ratings       []RatingResponse `json:"ratings"`
	AverageRating float64          `json:"averageRating"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewBookResponse formats book for clients, turning its stored image path
// into an absolute URL under baseURL.
func NewBookResponse(book *domain.Book, baseURL string) BookResponse {
	resp := BookResponse{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		Year:          book.Year,
		Genre:         book.Genre,
		ImageURL:      imageURL(baseURL, book.ImageURL),
		Ratings:       make([]RatingResponse, 0, len(book.Ratings)),
		AverageRating: book.AverageRating,
		CreatedAt:     book.CreatedAt,
		UpdatedAt:     book.UpdatedAt,
	}
	if book.OwnerID.Valid {
		owner := book.OwnerID.UUID
		resp.OwnerID = &owner
		resp.UserID = &owner
	}
	for _, r := range book.Ratings {
		resp.Ratings = append(resp.Ratings, RatingResponse{UserID: r.UserID, Grade: r.Grade})
	}
	return resp
}

// NewBookResponses formats a list of books.
func NewBookResponses(books []*domain.Book, baseURL string) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, NewBookResponse(b, baseURL))
	}
	return out
}

func imageURL(baseURL, relPath string) string {
	if relPath == "" {
		return ""
	}
	if strings.HasPrefix(relPath, "http://") || strings.HasPrefix(relPath, "https://") {
		return relPath
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(relPath, "/")
}
