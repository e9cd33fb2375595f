package api

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/phrazzld/bookshelf-api/internal/api/shared"
	"github.com/phrazzld/bookshelf-api/internal/domain"
	"github.com/phrazzld/bookshelf-api/internal/platform/logger"
	"github.com/phrazzld/bookshelf-api/internal/service"
)

// Multipart field names used by book create and update.
const (
	bookFormField  = "book"
	imageFormField = "image"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 1 << 20

// BookHandler handles book-related API requests.
type BookHandler struct {
	books   service.BookService
	baseURL string
	logger  *slog.Logger
}

// NewBookHandler creates a new BookHandler. Image paths in responses are
// prefixed with baseURL.
func NewBookHandler(books service.BookService, baseURL string, logger *slog.Logger) *BookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookHandler{
		books:   books,
		baseURL: baseURL,
		logger:  logger.With(slog.String("component", "book_handler")),
	}
}

// ListBooks handles GET /api/books.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list books")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewBookResponses(books, h.baseURL))
}

// BestRatedBooks handles GET /api/books/bestrating.
func (h *BookHandler) BestRatedBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.BestRated(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list best rated books")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewBookResponses(books, h.baseURL))
}

// GetBook handles GET /api/books/{id}.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get book")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewBookResponse(book, h.baseURL))
}

// CreateBook handles POST /api/books. The body is a multipart form with the
// metadata as JSON in "book" and the cover in "image".
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthenticated, "")
		return
	}

	if !isMultipart(r) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}
	details, image, cleanup, ok := h.readBookForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	book, err := h.books.Create(r.Context(), userID, details, image)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create book")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("book created",
		slog.String("book_id", book.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, NewBookResponse(book, h.baseURL))
}

// UpdateBook handles PUT /api/books/{id}. It accepts either a JSON body with
// the metadata or a multipart form whose "image" part is optional.
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var (
		details domain.BookDetails
		image   *service.ImageUpload
	)
	if isMultipart(r) {
		var cleanup func()
		details, image, cleanup, ok = h.readBookForm(w, r)
		if !ok {
			return
		}
		defer cleanup()
	} else {
		var req BookRequest
		if err := shared.DecodeJSON(r, &req); err != nil {
			h.respondDecodeError(w, r, err)
			return
		}
		if err := shared.ValidateRequest(&req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
			return
		}
		details = req.Details()
	}

	book, err := h.books.Update(r.Context(), userID, bookID, details, image)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update book")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewBookResponse(book, h.baseURL))
}

// DeleteBook handles DELETE /api/books/{id}.
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.books.Delete(r.Context(), userID, bookID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete book")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("book deleted",
		slog.String("book_id", bookID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{Message: "Book deleted successfully"})
}

// RateBook handles POST /api/books/{id}/rating.
func (h *BookHandler) RateBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req RateBookRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return
	}

	book, err := h.books.Rate(r.Context(), userID, bookID, *req.Rating)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to rate book")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewBookResponse(book, h.baseURL))
}

// readBookForm parses a multipart book form. The returned cleanup closes the
// image and removes temporary files. On failure it writes the response and
// returns ok=false.
func (h *BookHandler) readBookForm(
	w http.ResponseWriter,
	r *http.Request,
) (domain.BookDetails, *service.ImageUpload, func(), bool) {
	noop := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.respondDecodeError(w, r, err)
		return domain.BookDetails{}, nil, noop, false
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	raw := r.FormValue(bookFormField)
	if strings.TrimSpace(raw) == "" {
		cleanup()
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid book: required field")
		return domain.BookDetails{}, nil, noop, false
	}

	var req BookRequest
	if err := shared.DecodeJSONReader(strings.NewReader(raw), &req); err != nil {
		cleanup()
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid book: malformed JSON")
		return domain.BookDetails{}, nil, noop, false
	}
	if err := shared.ValidateRequest(&req); err != nil {
		cleanup()
		shared.RespondWithError(w, r, http.StatusBadRequest, shared.ValidationMessage(err))
		return domain.BookDetails{}, nil, noop, false
	}

	file, header, err := r.FormFile(imageFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req.Details(), nil, cleanup, true
	case err != nil:
		cleanup()
		h.respondDecodeError(w, r, err)
		return domain.BookDetails{}, nil, noop, false
	}

	image := &service.ImageUpload{Filename: header.Filename, Content: file}
	return req.Details(), image, func() {
		_ = file.Close()
		cleanup()
	}, true
}

// respondDecodeError reports an unreadable body, distinguishing oversized uploads.
func (h *BookHandler) respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		HandleAPIError(w, r, err, "")
		return
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
