package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"go.uber.org/zap"
)

const (
	// MinSearchLength is the shortest accepted search query
	MinSearchLength = 2

	// SearchLimit caps search results
	SearchLimit = 20
)

// LibraryService serves the catalogue and the users' personal libraries
type LibraryService struct {
	books     repositories.BookRepository
	authors   repositories.AuthorRepository
	userBooks repositories.UserBookRepository
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewLibraryService creates a LibraryService
func NewLibraryService(repos *repositories.Repositories, txManager repositories.TransactionManager, logger *zap.Logger) *LibraryService {
	return &LibraryService{
		books:     repos.Books,
		authors:   repos.Authors,
		userBooks: repos.UserBooks,
		txManager: txManager,
		logger:    logger,
	}
}

// ListBooks returns the whole catalogue, newest first
func (s *LibraryService) ListBooks(ctx context.Context) ([]*models.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, WrapInternal("failed to list books", err)
	}
	return books, nil
}

// SearchBooks matches titles, optionally within one author's books
func (s *LibraryService) SearchBooks(ctx context.Context, query string, authorID *uuid.UUID) ([]*models.Book, error) {
	q, err := searchTerm(query)
	if err != nil {
		return nil, err
	}
	books, err := s.books.Search(ctx, q, authorID, SearchLimit)
	if err != nil {
		return nil, WrapInternal("failed to search books", err)
	}
	return books, nil
}

// GetBook returns a single book
func (s *LibraryService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, WrapInternal("failed to get book", err)
	}
	return book, nil
}

// CreateBook adds a book to the catalogue
func (s *LibraryService) CreateBook(ctx context.Context, input models.CreateBookInput) (*models.Book, error) {
	book := models.NewBook(strings.TrimSpace(input.Title), input.AuthorID)
	book.Pages = input.Pages
	book.Rating = input.Rating
	book.CategoryID = input.CategoryID
	book.CoverURL = input.CoverURL
	book.PublishDate = input.PublishDate
	book.Annotation = input.Annotation

	if err := s.books.Create(ctx, book); err != nil {
		if errors.Is(err, repositories.ErrReference) {
			return nil, ErrUnknownAuthor.Wrap(err)
		}
		return nil, WrapInternal("failed to create book", err)
	}

	s.logger.Info("book created", zap.String("book_id", book.ID.String()))
	return book, nil
}

// ListAuthors returns every author, newest first
func (s *LibraryService) ListAuthors(ctx context.Context) ([]*models.Author, error) {
	authors, err := s.authors.List(ctx)
	if err != nil {
		return nil, WrapInternal("failed to list authors", err)
	}
	return authors, nil
}

// SearchAuthors matches author names, ordered by name
func (s *LibraryService) SearchAuthors(ctx context.Context, query string) ([]*models.Author, error) {
	q, err := searchTerm(query)
	if err != nil {
		return nil, err
	}
	authors, err := s.authors.Search(ctx, q, SearchLimit)
	if err != nil {
		return nil, WrapInternal("failed to search authors", err)
	}
	return authors, nil
}

// GetAuthor returns a single author
func (s *LibraryService) GetAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, WrapInternal("failed to get author", err)
	}
	return author, nil
}

// CreateAuthor adds an author
func (s *LibraryService) CreateAuthor(ctx context.Context, input models.CreateAuthorInput) (*models.Author, error) {
	author := models.NewAuthor(
		strings.TrimSpace(input.FullName),
		input.DOB,
		strings.TrimSpace(input.Description),
	)
	if err := s.authors.Create(ctx, author); err != nil {
		return nil, WrapInternal("failed to create author", err)
	}
	return author, nil
}

// ListUserBooks returns a user's library with book details
func (s *LibraryService) ListUserBooks(ctx context.Context, userID uuid.UUID) ([]*models.UserBookWithDetails, error) {
	entries, err := s.userBooks.ListByUser(ctx, userID)
	if err != nil {
		return nil, WrapInternal("failed to list user books", err)
	}
	return entries, nil
}

// UpsertUserBook adds a book to a user's library or overwrites its entry.
// created reports which of the two happened.
func (s *LibraryService) UpsertUserBook(ctx context.Context, userID uuid.UUID, input models.UpsertUserBookInput) (entry *models.UserBook, created bool, err error) {
	type outcome struct {
		entry   *models.UserBook
		created bool
	}

	res, err := WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (outcome, error) {
		repo := s.userBooks.WithTx(tx)
		now := time.Now()

		existing, err := repo.Get(ctx, userID, input.BookID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			fresh := &models.UserBook{
				ID:        uuid.New(),
				UserID:    userID,
				BookID:    input.BookID,
				CreatedAt: now,
			}
			applyUserBookInput(fresh, input, now)
			if err := repo.Insert(ctx, fresh); err != nil {
				return outcome{}, err
			}
			return outcome{entry: fresh, created: true}, nil
		case err != nil:
			return outcome{}, err
		}

		applyUserBookInput(existing, input, now)
		if err := repo.Update(ctx, existing); err != nil {
			return outcome{}, err
		}
		return outcome{entry: existing}, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrReference) {
			return nil, false, ErrUnknownBook
		}
		return nil, false, WrapInternal("failed to save user book", err)
	}

	s.logger.Debug("user book saved",
		zap.String("user_id", userID.String()),
		zap.String("book_id", input.BookID.String()),
		zap.Bool("created", res.created))
	return res.entry, res.created, nil
}

// RemoveUserBook removes a book from a user's library
func (s *LibraryService) RemoveUserBook(ctx context.Context, userID, bookID uuid.UUID) error {
	if err := s.userBooks.Delete(ctx, userID, bookID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserBookNotFound
		}
		return WrapInternal("failed to remove user book", err)
	}
	return nil
}

func applyUserBookInput(entry *models.UserBook, input models.UpsertUserBookInput, now time.Time) {
	entry.Rating = input.Rating
	entry.Status = input.Status
	entry.Description = input.Description
	entry.StartedAt = input.StartedAt
	entry.FinishedAt = input.FinishedAt
	entry.UpdatedAt = now
}

func searchTerm(query string) (string, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinSearchLength {
		return "", NewDomainError(ErrorTypeValidation, ErrQueryTooShort.Message, nil).
			WithDetail("min_length", MinSearchLength)
	}
	return q, nil
}
