package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"go.uber.org/zap"
)

const bookSelect = `
	SELECT
		b.id, b.title, b.pages, b.rating, b.author_id, b.category_id,
		b.cover_url, to_char(b.publish_date, 'YYYY-MM-DD'), b.annotation,
		b.created_at, b.updated_at,
		COALESCE(a.full_name, ''), COALESCE(c.title, '')
	FROM books b
	LEFT JOIN authors a ON b.author_id = a.id
	LEFT JOIN categories c ON b.category_id = c.id
`

// BookRepository implements the repositories.BookRepository interface
type BookRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *DB, logger *zap.Logger) repositories.BookRepository {
	return &BookRepository{
		db:     db,
		logger: logger,
	}
}

// List retrieves all books, newest first
func (r *BookRepository) List(ctx context.Context) ([]*models.Book, error) {
	return r.query(ctx, bookSelect+` ORDER BY b.created_at DESC`)
}

// Search retrieves books whose title contains query
func (r *BookRepository) Search(ctx context.Context, query string, authorID *uuid.UUID, limit int) ([]*models.Book, error) {
	args := []interface{}{likePattern(query)}
	sqlQuery := bookSelect + ` WHERE LOWER(b.title) LIKE LOWER($1)`
	if authorID != nil {
		args = append(args, *authorID)
		sqlQuery += fmt.Sprintf(` AND b.author_id = $%d`, len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(` ORDER BY b.title ASC LIMIT $%d`, len(args))

	return r.query(ctx, sqlQuery, args...)
}

// GetByID retrieves a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	books, err := r.query(ctx, bookSelect+` WHERE b.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("failed to get book %s: %w", id, repositories.ErrNotFound)
	}
	return books[0], nil
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (
			id, title, pages, rating, author_id, category_id,
			cover_url, publish_date, annotation, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Pages,
		book.Rating,
		book.AuthorID,
		book.CategoryID,
		book.CoverURL,
		book.PublishDate,
		book.Annotation,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", translateError(err))
	}

	r.logger.Debug("book created", zap.String("id", book.ID.String()), zap.String("title", book.Title))
	return nil
}

func (r *BookRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Book, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []*models.Book{}
	for rows.Next() {
		book := &models.Book{}
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Pages,
			&book.Rating,
			&book.AuthorID,
			&book.CategoryID,
			&book.CoverURL,
			&book.PublishDate,
			&book.Annotation,
			&book.CreatedAt,
			&book.UpdatedAt,
			&book.AuthorName,
			&book.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}

	return books, nil
}

// likePattern wraps a search term for LIKE, escaping its wildcards
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}
