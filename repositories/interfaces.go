package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context bound to the transaction. Repositories
	// called with it run their statements inside the transaction.
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// AuthorRepository handles author data operations
type AuthorRepository interface {
	List(ctx context.Context) ([]*models.Author, error)

	// Search matches authors by name, case-insensitively, ordered by name
	Search(ctx context.Context, query string, limit int) ([]*models.Author, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Author, error)

	Create(ctx context.Context, author *models.Author) error
}

// BookRepository handles catalogue data operations
type BookRepository interface {
	// List returns every book with author and category names, newest first
	List(ctx context.Context) ([]*models.Book, error)

	// Search matches titles case-insensitively, optionally restricted to one author
	Search(ctx context.Context, query string, authorID *uuid.UUID, limit int) ([]*models.Book, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)

	Create(ctx context.Context, book *models.Book) error
}

// UserBookRepository handles personal library entries
type UserBookRepository interface {
	// ListByUser returns the user's library joined with book details
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserBookWithDetails, error)

	// Get returns the entry for a user and book or ErrNotFound
	Get(ctx context.Context, userID, bookID uuid.UUID) (*models.UserBook, error)

	Insert(ctx context.Context, entry *models.UserBook) error

	Update(ctx context.Context, entry *models.UserBook) error

	// Delete removes the entry, returning ErrNotFound when there was none
	Delete(ctx context.Context, userID, bookID uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserBookRepository
}

// AuthEventRepository persists the authentication audit trail
type AuthEventRepository interface {
	Insert(ctx context.Context, event *models.AuthEvent) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users      UserRepository
	Authors    AuthorRepository
	Books      BookRepository
	UserBooks  UserBookRepository
	AuthEvents AuthEventRepository
}
