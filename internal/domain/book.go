package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Grade bounds for a single rating. The range is an integer star scale.
const (
	MinGrade = 0
	MaxGrade = 5
)

// Field limits for book metadata.
const (
	MaxTitleLength  = 255
	MaxAuthorLength = 255
	MaxGenreLength  = 100
	MinYear         = -3000
)

// Rating is one user's grade for a book. A book holds at most one Rating per UserID.
type Rating struct {
	UserID uuid.UUID `json:"userId"`
	Grade  int       `json:"grade"`
}

// BookDetails is the owner-editable metadata of a book.
type BookDetails struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

// Book is a catalogued book with its cover image and rating aggregate.
//
// AverageRating is derived from Ratings and is only written by the rating
// package. Version increases with every persisted mutation and backs the
// optimistic concurrency check in the store.
type Book struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       uuid.NullUUID `json:"ownerId"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Year          int           `json:"year"`
	Genre         string        `json:"genre"`
	ImageURL      string        `json:"imageUrl"`
	Ratings       []Rating      `json:"ratings"`
	AverageRating float64       `json:"averageRating"`
	Version       int           `json:"version"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// NewBook creates a book owned by ownerID with no ratings.
func NewBook(ownerID uuid.UUID, details BookDetails, imageURL string) (*Book, error) {
	if ownerID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	details = details.Normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, NewValidationError("imageUrl", "is required", nil)
	}

	now := time.Now().UTC()
	return &Book{
		ID:        uuid.New(),
		OwnerID:   uuid.NullUUID{UUID: ownerID, Valid: true},
		Title:     details.Title,
		Author:    details.Author,
		Year:      details.Year,
		Genre:     details.Genre,
		ImageURL:  imageURL,
		Ratings:   []Rating{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Normalize trims surrounding whitespace from the text fields.
func (d BookDetails) Normalize() BookDetails {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.Genre = strings.TrimSpace(d.Genre)
	return d
}

// Validate checks the metadata fields.
func (d BookDetails) Validate() error {
	switch {
	case d.Title == "":
		return NewValidationError("title", "is required", nil)
	case len(d.Title) > MaxTitleLength:
		return NewValidationError("title", "is too long", nil)
	case d.Author == "":
		return NewValidationError("author", "is required", nil)
	case len(d.Author) > MaxAuthorLength:
		return NewValidationError("author", "is too long", nil)
	case d.Genre == "":
		return NewValidationError("genre", "is required", nil)
	case len(d.Genre) > MaxGenreLength:
		return NewValidationError("genre", "is too long", nil)
	case d.Year < MinYear || d.Year > time.Now().UTC().Year()+1:
		return NewValidationError("year", "is out of range", nil)
	}
	return nil
}

// Details returns the owner-editable metadata of b.
func (b *Book) Details() BookDetails {
	return BookDetails{Title: b.Title, Author: b.Author, Year: b.Year, Genre: b.Genre}
}

// UpdateDetails replaces the metadata after validating it. Ratings, owner and
// image are untouched.
func (b *Book) UpdateDetails(details BookDetails) error {
	details = details.Normalize()
	if err := details.Validate(); err != nil {
		return err
	}
	b.Title = details.Title
	b.Author = details.Author
	b.Year = details.Year
	b.Genre = details.Genre
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// ReplaceImage points the book at a new stored image and returns the previous path.
func (b *Book) ReplaceImage(imageURL string) string {
	previous := b.ImageURL
	b.ImageURL = imageURL
	b.UpdatedAt = time.Now().UTC()
	return previous
}

// Validate checks the whole record before it is persisted.
func (b *Book) Validate() error {
	if b.ID == uuid.Nil {
		return NewValidationError("id", "is required", ErrInvalidID)
	}
	if err := b.Details().Validate(); err != nil {
		return err
	}
	if b.ImageURL == "" {
		return NewValidationError("imageUrl", "is required", nil)
	}
	seen := make(map[uuid.UUID]struct{}, len(b.Ratings))
	for _, r := range b.Ratings {
		if r.Grade < MinGrade || r.Grade > MaxGrade {
			return NewValidationError("ratings", "contain a grade out of range", ErrInvalidGrade)
		}
		if _, dup := seen[r.UserID]; dup {
			return NewValidationError("ratings", "contain more than one entry for a user", nil)
		}
		seen[r.UserID] = struct{}{}
	}
	return nil
}
