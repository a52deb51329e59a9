package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/book-tracker/middleware"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/utils"
	"go.uber.org/zap"
)

// LibraryService defines the catalogue and personal library operations.
// *services.LibraryService implements it.
type LibraryService interface {
	ListBooks(ctx context.Context) ([]*models.Book, error)
	SearchBooks(ctx context.Context, query string, authorID *uuid.UUID) ([]*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	CreateBook(ctx context.Context, input models.CreateBookInput) (*models.Book, error)

	ListAuthors(ctx context.Context) ([]*models.Author, error)
	SearchAuthors(ctx context.Context, query string) ([]*models.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error)
	CreateAuthor(ctx context.Context, input models.CreateAuthorInput) (*models.Author, error)

	ListUserBooks(ctx context.Context, userID uuid.UUID) ([]*models.UserBookWithDetails, error)
	UpsertUserBook(ctx context.Context, userID uuid.UUID, input models.UpsertUserBookInput) (*models.UserBook, bool, error)
	RemoveUserBook(ctx context.Context, userID, bookID uuid.UUID) error
}

// LibraryHandler handles the book, author and user library endpoints
type LibraryHandler struct {
	service LibraryService
	logger  *zap.Logger
}

// NewLibraryHandler creates a new LibraryHandler
func NewLibraryHandler(service LibraryService, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListBooks handles GET /api/books
func (h *LibraryHandler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, books)
}

// HandleSearchBooks handles GET /api/books/search?q=&authorId=
func (h *LibraryHandler) HandleSearchBooks(w http.ResponseWriter, r *http.Request) {
	var authorID *uuid.UUID
	if raw := r.URL.Query().Get("authorId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid authorId format", nil)
			return
		}
		authorID = &parsed
	}

	books, err := h.service.SearchBooks(r.Context(), r.URL.Query().Get("q"), authorID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, books)
}

// HandleGetBook handles GET /api/books/{id}
func (h *LibraryHandler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, book)
}

// HandleCreateBook handles POST /api/books
func (h *LibraryHandler) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	var input models.CreateBookInput
	if !DecodeAndValidate(w, r, &input, h.logger) {
		return
	}
	book, err := h.service.CreateBook(r.Context(), input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, book)
}

// HandleListAuthors handles GET /api/authors
func (h *LibraryHandler) HandleListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, authors)
}

// HandleSearchAuthors handles GET /api/authors/search?q=
func (h *LibraryHandler) HandleSearchAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.SearchAuthors(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, authors)
}

// HandleGetAuthor handles GET /api/authors/{id}
func (h *LibraryHandler) HandleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, author)
}

// HandleCreateAuthor handles POST /api/authors
func (h *LibraryHandler) HandleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var input models.CreateAuthorInput
	if !DecodeAndValidate(w, r, &input, h.logger) {
		return
	}
	author, err := h.service.CreateAuthor(r.Context(), input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, author)
}

// HandleListUserBooks handles GET /api/books/user/{userId}
func (h *LibraryHandler) HandleListUserBooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}
	entries, err := h.service.ListUserBooks(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, entries)
}

// HandleUpsertUserBook handles POST /api/books/user/{userId}.
// It answers 201 for a new entry and 200 for an update.
func (h *LibraryHandler) HandleUpsertUserBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}
	var input models.UpsertUserBookInput
	if !DecodeAndValidate(w, r, &input, h.logger) {
		return
	}

	entry, created, err := h.service.UpsertUserBook(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if created {
		_ = utils.WriteCreated(w, entry)
		return
	}
	_ = utils.WriteOK(w, entry)
}

// HandleRemoveUserBook handles DELETE /api/books/user/{userId}
func (h *LibraryHandler) HandleRemoveUserBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}
	var input models.RemoveUserBookInput
	if !DecodeAndValidate(w, r, &input, h.logger) {
		return
	}

	if err := h.service.RemoveUserBook(r.Context(), userID, input.BookID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteMessage(w, http.StatusOK, "Book removed from library")
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// HandleMe handles GET /api/users/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}
	_ = utils.WriteOK(w, MeResponse{
		ID:       claims.SubjectID,
		Email:    claims.Email,
		FullName: claims.DisplayName,
		Role:     claims.Role,
	})
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid "+name+" format", nil)
		return uuid.Nil, false
	}
	return id, true
}
