package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"go.uber.org/zap"
)

const userBookColumns = `id, user_id, book_id, rating, status, description, started_at, finished_at, created_at, updated_at`

// UserBookRepository implements the repositories.UserBookRepository interface
type UserBookRepository struct {
	db     *DB
	tx     *sql.Tx
	logger *zap.Logger
}

// NewUserBookRepository creates a new user library repository
func NewUserBookRepository(db *DB, logger *zap.Logger) repositories.UserBookRepository {
	return &UserBookRepository{
		db:     db,
		logger: logger,
	}
}

// ListByUser retrieves a user's library with book details, most recently touched first
func (r *UserBookRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserBookWithDetails, error) {
	query := `
		SELECT
			ub.id, ub.user_id, ub.book_id, ub.rating, ub.status, ub.description,
			ub.started_at, ub.finished_at, ub.created_at, ub.updated_at,
			b.title, b.pages, b.rating, b.author_id, b.category_id, b.cover_url,
			COALESCE(a.full_name, ''), COALESCE(c.title, '')
		FROM user_books ub
		JOIN books b ON ub.book_id = b.id
		LEFT JOIN authors a ON b.author_id = a.id
		LEFT JOIN categories c ON b.category_id = c.id
		WHERE ub.user_id = $1
		ORDER BY ub.updated_at DESC
	`

	rows, err := executor(ctx, r.db, r.tx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user books: %w", err)
	}
	defer rows.Close()

	entries := []*models.UserBookWithDetails{}
	for rows.Next() {
		e := &models.UserBookWithDetails{}
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.BookID,
			&e.Rating,
			&e.Status,
			&e.Description,
			&e.StartedAt,
			&e.FinishedAt,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.Title,
			&e.Pages,
			&e.BookRating,
			&e.AuthorID,
			&e.CategoryID,
			&e.CoverURL,
			&e.AuthorName,
			&e.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user book: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user book rows: %w", err)
	}

	return entries, nil
}

// Get retrieves the library entry of a user for a book
func (r *UserBookRepository) Get(ctx context.Context, userID, bookID uuid.UUID) (*models.UserBook, error) {
	query := `SELECT ` + userBookColumns + ` FROM user_books WHERE user_id = $1 AND book_id = $2`

	e := &models.UserBook{}
	err := executor(ctx, r.db, r.tx).QueryRowContext(ctx, query, userID, bookID).Scan(
		&e.ID,
		&e.UserID,
		&e.BookID,
		&e.Rating,
		&e.Status,
		&e.Description,
		&e.StartedAt,
		&e.FinishedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user book: %w", translateError(err))
	}
	return e, nil
}

// Insert adds a book to a user's library
func (r *UserBookRepository) Insert(ctx context.Context, entry *models.UserBook) error {
	query := `
		INSERT INTO user_books (` + userBookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := executor(ctx, r.db, r.tx).ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.BookID,
		entry.Rating,
		entry.Status,
		entry.Description,
		entry.StartedAt,
		entry.FinishedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user book: %w", translateError(err))
	}

	r.logger.Debug("user book inserted",
		zap.String("user_id", entry.UserID.String()),
		zap.String("book_id", entry.BookID.String()))
	return nil
}

// Update overwrites the mutable fields of a library entry
func (r *UserBookRepository) Update(ctx context.Context, entry *models.UserBook) error {
	query := `
		UPDATE user_books
		SET rating = $3,
		    status = $4,
		    description = $5,
		    started_at = $6,
		    finished_at = $7,
		    updated_at = $8
		WHERE user_id = $1 AND book_id = $2
	`

	result, err := executor(ctx, r.db, r.tx).ExecContext(ctx, query,
		entry.UserID,
		entry.BookID,
		entry.Rating,
		entry.Status,
		entry.Description,
		entry.StartedAt,
		entry.FinishedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user book: %w", translateError(err))
	}

	return requireAffected(result, "user book")
}

// Delete removes a book from a user's library
func (r *UserBookRepository) Delete(ctx context.Context, userID, bookID uuid.UUID) error {
	query := `DELETE FROM user_books WHERE user_id = $1 AND book_id = $2`

	result, err := executor(ctx, r.db, r.tx).ExecContext(ctx, query, userID, bookID)
	if err != nil {
		return fmt.Errorf("failed to delete user book: %w", err)
	}

	if err := requireAffected(result, "user book"); err != nil {
		return err
	}

	r.logger.Debug("user book deleted",
		zap.String("user_id", userID.String()),
		zap.String("book_id", bookID.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UserBookRepository) WithTx(tx repositories.Transaction) repositories.UserBookRepository {
	return &UserBookRepository{
		db:     r.db,
		tx:     txBound(tx),
		logger: r.logger,
	}
}

func requireAffected(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
	}
	return nil
}
