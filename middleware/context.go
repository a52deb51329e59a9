package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/book-tracker/tokens"
)

// Context key type to avoid collisions
type contextKey string

// ClaimsKey is the context key for verified token claims
const ClaimsKey contextKey = "claims"

// GetRequestIDFromContext returns the id assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetClaimsFromContext retrieves verified claims from context
func GetClaimsFromContext(ctx context.Context) *tokens.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*tokens.Claims); ok {
		return claims
	}
	return nil
}

// WithClaims adds verified claims to the context
func WithClaims(ctx context.Context, claims *tokens.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserIDFromContext returns the caller's user id, or false when the
// request is anonymous or the subject is not a uuid
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims := GetClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
