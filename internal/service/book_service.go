package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/domain/ownership"
	"github.com/phrazzld/bookshelf-api/internal/domain/rating"
	"github.com/phrazzld/bookshelf-api/internal/platform/logger"
	"github.com/phrazzld/bookshelf-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// BestRatedLimit is the number of books returned by BestRated.
const BestRatedLimit = 5

// defaultRetryBase is the first backoff delay between conflicting writes.
const defaultRetryBase = 10 * time.Millisecond

// ImageStore saves and removes cover images. It is satisfied by imagestore.Store.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, relPath string) error
}

// ImageUpload is a cover image received from a client.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// BookService provides book-related operations
type BookService interface {
	// Create stores the image and a new book owned by actor.
	Create(ctx context.Context, actor uuid.UUID, details domain.BookDetails, image *ImageUpload) (*domain.Book, error)

	// Get retrieves a book by its ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// List returns every book, newest first.
	List(ctx context.Context) ([]*domain.Book, error)

	// BestRated returns the top BestRatedLimit books with a positive average.
	// Returns ErrNoRatedBooks when there are none.
	BestRated(ctx context.Context) ([]*domain.Book, error)

	// Update replaces the metadata and optionally the image of a book owned by actor.
	Update(ctx context.Context, actor, id uuid.UUID, details domain.BookDetails, image *ImageUpload) (*domain.Book, error)

	// Delete removes a book owned by actor together with its image.
	Delete(ctx context.Context, actor, id uuid.UUID) error

	// Rate records actor's grade for a book, replacing any earlier grade by the same user.
	Rate(ctx context.Context, actor, id uuid.UUID, grade int) (*domain.Book, error)
}

// bookServiceImpl implements the BookService interface
type bookServiceImpl struct {
	books      store.BookStore
	images     ImageStore
	maxRetries uint64
	retryBase  time.Duration
	logger     *slog.Logger
}

// NewBookService creates a new BookService.
// maxRetries bounds how often a write is retried after a version conflict.
// It returns an error if any of the required dependencies are nil.
func NewBookService(
	books store.BookStore,
	images ImageStore,
	maxRetries int,
	logger *slog.Logger,
) (BookService, error) {
	if books == nil {
		return nil, domain.NewValidationError("books", "cannot be nil", domain.ErrValidation)
	}
	if images == nil {
		return nil, domain.NewValidationError("images", "cannot be nil", domain.ErrValidation)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &bookServiceImpl{
		books:      books,
		images:     images,
		maxRetries: uint64(maxRetries),
		retryBase:  defaultRetryBase,
		logger:     logger.With(slog.String("component", "book_service")),
	}, nil
}

// Create implements BookService.Create
func (s *bookServiceImpl) Create(
	ctx context.Context,
	actor uuid.UUID,
	details domain.BookDetails,
	image *ImageUpload,
) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actor == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	details = details.Normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}
	if image == nil || image.Content == nil {
		return nil, ErrImageRequired
	}

	imagePath, err := s.images.Save(ctx, image.Filename, image.Content)
	if err != nil {
		log.Warn("failed to store cover image", slog.String("error", err.Error()))
		return nil, NewBookServiceError("create_book", "failed to store image", err)
	}

	book, err := domain.NewBook(actor, details, imagePath)
	if err != nil {
		s.discardImage(ctx, imagePath)
		return nil, err
	}

	if err := s.books.Create(ctx, book); err != nil {
		s.discardImage(ctx, imagePath)
		log.Error("failed to save book",
			slog.String("error", err.Error()),
			slog.String("owner_id", actor.String()))
		return nil, NewBookServiceError("create_book", "failed to save book", err)
	}

	log.Info("book created",
		slog.String("book_id", book.ID.String()),
		slog.String("owner_id", actor.String()))
	return book, nil
}

// Get implements BookService.Get
func (s *bookServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, NewBookServiceError("get_book", "failed to retrieve book", err)
	}
	return book, nil
}

// List implements BookService.List
func (s *bookServiceImpl) List(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, NewBookServiceError("list_books", "failed to list books", err)
	}
	return books, nil
}

// BestRated implements BookService.BestRated
func (s *bookServiceImpl) BestRated(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.books.ListBestRated(ctx, BestRatedLimit)
	if err != nil {
		return nil, NewBookServiceError("best_rated", "failed to list books", err)
	}
	if len(books) == 0 {
		return nil, ErrNoRatedBooks
	}
	return books, nil
}

// Update implements BookService.Update
// A new image is stored before the record is touched. It is removed again if
// the update fails, and the previous image is removed once the update succeeds.
func (s *bookServiceImpl) Update(
	ctx context.Context,
	actor, id uuid.UUID,
	details domain.BookDetails,
	image *ImageUpload,
) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actor == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	details = details.Normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}

	// Fail fast on a missing or foreign book before storing anything.
	if _, err := s.ownedBook(ctx, actor, id); err != nil {
		return nil, NewBookServiceError("update_book", "failed to retrieve book", err)
	}

	var newImage string
	if image != nil && image.Content != nil {
		path, err := s.images.Save(ctx, image.Filename, image.Content)
		if err != nil {
			log.Warn("failed to store cover image", slog.String("error", err.Error()))
			return nil, NewBookServiceError("update_book", "failed to store image", err)
		}
		newImage = path
	}

	var updated *domain.Book
	var oldImage string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		book, err := s.ownedBook(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := book.UpdateDetails(details); err != nil {
			return err
		}
		oldImage = ""
		if newImage != "" {
			oldImage = book.ReplaceImage(newImage)
		}
		if err := s.books.Update(ctx, book); err != nil {
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		if newImage != "" {
			s.discardImage(ctx, newImage)
		}
		log.Warn("failed to update book",
			slog.String("error", err.Error()),
			slog.String("book_id", id.String()))
		return nil, NewBookServiceError("update_book", "failed to update book", conflictAs(err, ErrBookConflict))
	}

	if oldImage != "" && oldImage != newImage {
		s.discardImage(ctx, oldImage)
	}

	log.Info("book updated",
		slog.String("book_id", id.String()),
		slog.Bool("image_replaced", newImage != ""))
	return updated, nil
}

// Delete implements BookService.Delete
func (s *bookServiceImpl) Delete(ctx context.Context, actor, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actor == uuid.Nil {
		return domain.ErrUnauthenticated
	}

	var imagePath string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		book, err := s.ownedBook(ctx, actor, id)
		if err != nil {
			return err
		}
		imagePath = book.ImageURL
		return s.books.Delete(ctx, book.ID, book.Version)
	})
	if err != nil {
		log.Warn("failed to delete book",
			slog.String("error", err.Error()),
			slog.String("book_id", id.String()))
		return NewBookServiceError("delete_book", "failed to delete book", conflictAs(err, ErrBookConflict))
	}

	s.discardImage(ctx, imagePath)
	log.Info("book deleted", slog.String("book_id", id.String()))
	return nil
}

// Rate implements BookService.Rate
// Each attempt reloads the book, applies the grade and writes it back guarded
// by the loaded version. Conflicting attempts are retried with exponential
// backoff; when the budget is exhausted ErrRatingConflict is returned.
func (s *bookServiceImpl) Rate(ctx context.Context, actor, id uuid.UUID, grade int) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actor == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	if err := rating.ValidateGrade(grade); err != nil {
		return nil, err
	}

	var (
		rated    *domain.Book
		previous int
		replaced bool
	)
	attempts := 0
	err := s.withRetry(ctx, func(ctx context.Context) error {
		attempts++
		book, err := s.books.GetByID(ctx, id)
		if err != nil {
			return err
		}
		previous, replaced = rating.GradeOf(book, actor)
		if err := rating.Apply(book, actor, grade); err != nil {
			return err
		}
		if err := s.books.Update(ctx, book); err != nil {
			return err
		}
		rated = book
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidGrade) || errors.Is(err, domain.ErrUnauthenticated) {
			return nil, err
		}
		log.Warn("failed to rate book",
			slog.String("error", err.Error()),
			slog.String("book_id", id.String()),
			slog.Int("attempts", attempts))
		return nil, NewBookServiceError("rate_book", "failed to save rating", conflictAs(err, ErrRatingConflict))
	}

	log.Info("book rated",
		slog.String("book_id", id.String()),
		slog.String("user_id", actor.String()),
		slog.Int("grade", grade),
		slog.Bool("replaced", replaced),
		slog.Int("previous_grade", previous),
		slog.Int("attempts", attempts),
		slog.Float64("average_rating", rated.AverageRating))
	return rated, nil
}

// ownedBook loads a book and checks that actor may mutate it.
func (s *bookServiceImpl) ownedBook(ctx context.Context, actor, id uuid.UUID) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownership.CanMutate(book.OwnerID, actor) {
		logger.FromContextOrDefault(ctx, s.logger).Debug("mutation refused for non-owner",
			slog.String("book_id", id.String()),
			slog.String("user_id", actor.String()))
		return nil, domain.ErrUnauthorized
	}
	return book, nil
}

// withRetry runs fn, repeating it while it fails with store.ErrVersionConflict.
func (s *bookServiceImpl) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, store.ErrVersionConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// discardImage removes an image, logging instead of failing.
func (s *bookServiceImpl) discardImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.images.Delete(ctx, path); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to remove image",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// conflictAs replaces an exhausted version conflict with target.
func conflictAs(err, target error) error {
	if errors.Is(err, store.ErrVersionConflict) {
		return target
	}
	return err
}
