package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/bookshelf-api/internal/domain"
)

// BookStore defines the interface for book data persistence.
type BookStore interface {
	// Create saves a new book, including its ratings and average.
	// Returns ErrInvalidEntity if the book fails validation or its owner does not exist.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by its unique ID.
	// Returns ErrBookNotFound if the book does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// List returns every book, newest first.
	List(ctx context.Context) ([]*domain.Book, error)

	// ListBestRated returns up to limit books with a positive average rating,
	// highest average first.
	ListBestRated(ctx context.Context, limit int) ([]*domain.Book, error)

	// Update persists the mutable fields of book (metadata, image, ratings,
	// average) if the stored version still equals book.Version. On success
	// book.Version is advanced to the stored value.
	// Returns ErrBookNotFound if the book is gone and ErrVersionConflict if it
	// was modified concurrently.
	Update(ctx context.Context, book *domain.Book) error

	// Delete removes the book if the stored version equals version.
	// Returns ErrBookNotFound or ErrVersionConflict like Update.
	Delete(ctx context.Context, id uuid.UUID, version int) error

	// WithTx returns a BookStore bound to the given transaction.
	WithTx(tx *sqlx.Tx) BookStore
}
