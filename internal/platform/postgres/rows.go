package postgres

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/domain/rating"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ratingsColumn is the JSONB representation of a book's ratings.
type ratingsColumn []domain.Rating

// Value implements driver.Valuer. A nil slice is stored as an empty array.
func (c ratingsColumn) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]domain.Rating(c))
	if err != nil {
		return nil, fmt.Errorf("failed to encode ratings: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *ratingsColumn) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = ratingsColumn{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported ratings column type %T", src)
	}

	var ratings []domain.Rating
	if err := json.Unmarshal(data, &ratings); err != nil {
		return fmt.Errorf("failed to decode ratings: %w", err)
	}
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	*c = ratings
	return nil
}

// bookRow mirrors the books table.
type bookRow struct {
	ID            uuid.UUID     `db:"id"`
	OwnerID       uuid.NullUUID `db:"owner_id"`
	Title         string        `db:"title"`
	Author        string        `db:"author"`
	Year          int           `db:"year"`
	Genre         string        `db:"genre"`
	ImageURL      string        `db:"image_url"`
	Ratings       ratingsColumn `db:"ratings"`
	AverageRating float64       `db:"average_rating"`
	Version       int           `db:"version"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

// bookColumns lists the selected columns in bookRow order.
var bookColumns = []interface{}{
	"id", "owner_id", "title", "author", "year", "genre", "image_url",
	"ratings", "average_rating", "version", "created_at", "updated_at",
}

// toDomain converts the row, recomputing the average so a row written before
// the stored column existed (or edited by hand) cannot disagree with its ratings.
func (r *bookRow) toDomain() *domain.Book {
	ratings := []domain.Rating(r.Ratings)
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	book := &domain.Book{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Title:         r.Title,
		Author:        r.Author,
		Year:          r.Year,
		Genre:         r.Genre,
		ImageURL:      r.ImageURL,
		Ratings:       ratings,
		AverageRating: r.AverageRating,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	rating.Recompute(book)
	return book
}

// userRow mirrors the users table.
type userRow struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

var userColumns = []interface{}{"id", "email", "hashed_password", "created_at", "updated_at"}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:             r.ID,
		Email:          r.Email,
		HashedPassword: r.HashedPassword,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
