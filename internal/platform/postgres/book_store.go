package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/platform/logger"
	"github.com/phrazzld/bookshelf-api/internal/store"
)

const booksTable = "books"

// PostgresBookStore implements the store.BookStore interface
// using a PostgreSQL database as the storage backend.
type PostgresBookStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBookStore creates a new PostgreSQL implementation of the BookStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresBookStore(db store.DBTX, logger *slog.Logger) *PostgresBookStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBookStore{
		db:     db,
		logger: logger.With(slog.String("component", "book_store")),
	}
}

// Ensure PostgresBookStore implements store.BookStore interface
var _ store.BookStore = (*PostgresBookStore)(nil)

// WithTx implements store.BookStore.WithTx
func (s *PostgresBookStore) WithTx(tx *sqlx.Tx) store.BookStore {
	return &PostgresBookStore{db: tx, logger: s.logger}
}

// Create implements store.BookStore.Create
func (s *PostgresBookStore) Create(ctx context.Context, book *domain.Book) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := book.Validate(); err != nil {
		log.Warn("book validation failed during create",
			slog.String("error", err.Error()),
			slog.String("book_id", book.ID.String()))
		return store.NewStoreError("book", "create", "invalid book", errors.Join(store.ErrInvalidEntity, err))
	}

	query, args, err := dialect.Insert(booksTable).Prepared(true).Rows(goqu.Record{
		"id":             book.ID,
		"owner_id":       book.OwnerID,
		"title":          book.Title,
		"author":         book.Author,
		"year":           book.Year,
		"genre":          book.Genre,
		"image_url":      book.ImageURL,
		"ratings":        ratingsColumn(book.Ratings),
		"average_rating": book.AverageRating,
		"version":        book.Version,
		"created_at":     book.CreatedAt,
		"updated_at":     book.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return store.NewStoreError("book", "create", "failed to build query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("book owner does not exist",
				slog.String("constraint", booksOwnerConstraint),
				slog.String("book_id", book.ID.String()))
		} else {
			log.Error("failed to create book",
				slog.String("error", err.Error()),
				slog.String("book_id", book.ID.String()))
		}
		return store.NewStoreError("book", "create", "insert failed", MapError(err))
	}

	log.Info("book created successfully",
		slog.String("book_id", book.ID.String()),
		slog.String("owner_id", ownerString(book.OwnerID)))
	return nil
}

// GetByID implements store.BookStore.GetByID
func (s *PostgresBookStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := dialect.From(booksTable).Prepared(true).
		Select(bookColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, store.NewStoreError("book", "get", "failed to build query", err)
	}

	var row bookRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		mapped := mapEntityError(err, store.ErrBookNotFound)
		if errors.Is(mapped, store.ErrBookNotFound) {
			log.Debug("book not found", slog.String("book_id", id.String()))
			return nil, store.ErrBookNotFound
		}
		log.Error("failed to get book",
			slog.String("error", err.Error()),
			slog.String("book_id", id.String()))
		return nil, store.NewStoreError("book", "get", "query failed", mapped)
	}

	return row.toDomain(), nil
}

// List implements store.BookStore.List
func (s *PostgresBookStore) List(ctx context.Context) ([]*domain.Book, error) {
	ds := dialect.From(booksTable).Prepared(true).
		Select(bookColumns...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())
	return s.selectBooks(ctx, ds, "list")
}

// ListBestRated implements store.BookStore.ListBestRated
func (s *PostgresBookStore) ListBestRated(ctx context.Context, limit int) ([]*domain.Book, error) {
	if limit <= 0 {
		return []*domain.Book{}, nil
	}
	ds := dialect.From(booksTable).Prepared(true).
		Select(bookColumns...).
		Where(goqu.C("average_rating").Gt(0)).
		Order(goqu.C("average_rating").Desc(), goqu.C("created_at").Desc()).
		Limit(uint(limit))
	return s.selectBooks(ctx, ds, "list_best_rated")
}

func (s *PostgresBookStore) selectBooks(ctx context.Context, ds *goqu.SelectDataset, op string) ([]*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, store.NewStoreError("book", op, "failed to build query", err)
	}

	var rows []bookRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Error("failed to query books",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("book", op, "query failed", MapError(err))
	}

	books := make([]*domain.Book, 0, len(rows))
	for i := range rows {
		books = append(books, rows[i].toDomain())
	}

	log.Debug("books retrieved",
		slog.String("operation", op),
		slog.Int("count", len(books)))
	return books, nil
}

// Update implements store.BookStore.Update
func (s *PostgresBookStore) Update(ctx context.Context, book *domain.Book) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := book.Validate(); err != nil {
		log.Warn("book validation failed during update",
			slog.String("error", err.Error()),
			slog.String("book_id", book.ID.String()))
		return store.NewStoreError("book", "update", "invalid book", errors.Join(store.ErrInvalidEntity, err))
	}

	query, args, err := dialect.Update(booksTable).Prepared(true).
		Set(goqu.Record{
			"title":          book.Title,
			"author":         book.Author,
			"year":           book.Year,
			"genre":          book.Genre,
			"image_url":      book.ImageURL,
			"ratings":        ratingsColumn(book.Ratings),
			"average_rating": book.AverageRating,
			"updated_at":     book.UpdatedAt,
			"version":        goqu.L("version + 1"),
		}).
		Where(goqu.Ex{"id": book.ID, "version": book.Version}).
		Returning("version").
		ToSQL()
	if err != nil {
		return store.NewStoreError("book", "update", "failed to build query", err)
	}

	var newVersion int
	if err := s.db.GetContext(ctx, &newVersion, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.missOrConflict(ctx, book.ID, book.Version, "update")
		}
		log.Error("failed to update book",
			slog.String("error", err.Error()),
			slog.String("book_id", book.ID.String()))
		return store.NewStoreError("book", "update", "update failed", MapError(err))
	}

	book.Version = newVersion
	log.Debug("book updated",
		slog.String("book_id", book.ID.String()),
		slog.Int("version", newVersion))
	return nil
}

// Delete implements store.BookStore.Delete
func (s *PostgresBookStore) Delete(ctx context.Context, id uuid.UUID, version int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := dialect.Delete(booksTable).Prepared(true).
		Where(goqu.Ex{"id": id, "version": version}).
		ToSQL()
	if err != nil {
		return store.NewStoreError("book", "delete", "failed to build query", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to delete book",
			slog.String("error", err.Error()),
			slog.String("book_id", id.String()))
		return store.NewStoreError("book", "delete", "delete failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrBookNotFound); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return s.missOrConflict(ctx, id, version, "delete")
		}
		return store.NewStoreError("book", "delete", "failed to check result", err)
	}

	log.Info("book deleted", slog.String("book_id", id.String()))
	return nil
}

// missOrConflict decides why a version-guarded write touched no rows.
func (s *PostgresBookStore) missOrConflict(ctx context.Context, id uuid.UUID, version int, op string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := dialect.From(booksTable).Prepared(true).
		Select("version").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return store.NewStoreError("book", op, "failed to build query", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("book not found", slog.String("book_id", id.String()), slog.String("operation", op))
			return store.ErrBookNotFound
		}
		return store.NewStoreError("book", op, "failed to check existence", MapError(err))
	}

	log.Debug("book version conflict",
		slog.String("book_id", id.String()),
		slog.String("operation", op),
		slog.Int("expected_version", version),
		slog.Int("current_version", current))
	return store.ErrVersionConflict
}

func ownerString(owner uuid.NullUUID) string {
	if !owner.Valid {
		return ""
	}
	return owner.UUID.String()
}
