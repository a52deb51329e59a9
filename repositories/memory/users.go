// Package memory holds in-process repository implementations used by
// tests and by the client end-to-end scenarios.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
)

// UserRepository is a map-backed repositories.UserRepository
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

// NewUserRepository creates an empty repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create stores a copy of user
func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, taken := r.byEmail[key]; taken {
		return fmt.Errorf("%w: users_email_key", repositories.ErrDuplicate)
	}
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[key] = user.ID
	return nil
}

// GetByID returns a copy of the user
func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	out := *user
	return &out, nil
}

// GetByEmail returns a copy of the user
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user by email: %w", repositories.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user
func (r *UserRepository) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		delete(r.byEmail, strings.ToLower(user.Email))
		delete(r.byID, id)
	}
}

// SetRole changes a stored user's role
func (r *UserRepository) SetRole(id uuid.UUID, role models.UserRole) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		user.Role = role
	}
}

// WithTx returns the repository itself; it has no transactions
func (r *UserRepository) WithTx(repositories.Transaction) repositories.UserRepository {
	return r
}
