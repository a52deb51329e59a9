package postgres

import (
	"context"
	"fmt"

	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"go.uber.org/zap"
)

// AuthEventRepository implements the repositories.AuthEventRepository interface
type AuthEventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuthEventRepository creates a new auth event repository
func NewAuthEventRepository(db *DB, logger *zap.Logger) repositories.AuthEventRepository {
	return &AuthEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new auth event
func (r *AuthEventRepository) Insert(ctx context.Context, event *models.AuthEvent) error {
	query := `
		INSERT INTO auth_events (
			id, user_id, email, action, details, ip_address, user_agent, request_id, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var details interface{}
	if len(event.Details) > 0 {
		details = []byte(event.Details)
	}

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.Email,
		event.Action,
		details,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auth event: %w", err)
	}

	r.logger.Debug("auth event inserted", zap.String("id", event.ID.String()), zap.String("action", string(event.Action)))
	return nil
}
