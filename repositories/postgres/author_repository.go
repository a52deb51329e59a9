package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"go.uber.org/zap"
)

const authorColumns = `id, full_name, to_char(dob, 'YYYY-MM-DD'), description, created_at`

// AuthorRepository implements the repositories.AuthorRepository interface
type AuthorRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(db *DB, logger *zap.Logger) repositories.AuthorRepository {
	return &AuthorRepository{
		db:     db,
		logger: logger,
	}
}

// List retrieves all authors, newest first
func (r *AuthorRepository) List(ctx context.Context) ([]*models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM authors ORDER BY created_at DESC`
	return r.query(ctx, query)
}

// Search retrieves authors whose name contains query
func (r *AuthorRepository) Search(ctx context.Context, query string, limit int) ([]*models.Author, error) {
	sqlQuery := `
		SELECT ` + authorColumns + `
		FROM authors
		WHERE LOWER(full_name) LIKE LOWER($1)
		ORDER BY full_name ASC
		LIMIT $2
	`
	return r.query(ctx, sqlQuery, likePattern(query), limit)
}

// GetByID retrieves an author by ID
func (r *AuthorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM authors WHERE id = $1`

	author := &models.Author{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&author.ID,
		&author.FullName,
		&author.DOB,
		&author.Description,
		&author.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get author %s: %w", id, translateError(err))
	}
	return author, nil
}

// Create creates a new author
func (r *AuthorRepository) Create(ctx context.Context, author *models.Author) error {
	query := `
		INSERT INTO authors (id, full_name, dob, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		author.ID,
		author.FullName,
		author.DOB,
		author.Description,
		author.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create author: %w", translateError(err))
	}

	r.logger.Debug("author created", zap.String("id", author.ID.String()))
	return nil
}

func (r *AuthorRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Author, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	authors := []*models.Author{}
	for rows.Next() {
		author := &models.Author{}
		if err := rows.Scan(
			&author.ID,
			&author.FullName,
			&author.DOB,
			&author.Description,
			&author.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating author rows: %w", err)
	}

	return authors, nil
}
