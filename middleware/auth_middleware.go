package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/book-tracker/tokens"
	"github.com/upb/book-tracker/utils"
	"go.uber.org/zap"
)

const (
	// MessageUnauthorized is sent for missing, malformed and invalid tokens
	MessageUnauthorized = "Unauthorized"

	// MessageTokenExpired is sent for expired access tokens. Clients key
	// their silent refresh off the 401 status, not this text.
	MessageTokenExpired = "Token Expired"

	// RoleAdmin bypasses ownership checks
	RoleAdmin = "admin"
)

// TokenValidator verifies a bearer access token
type TokenValidator interface {
	Authenticate(token string) (*tokens.Claims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// RequireAuth is a middleware that requires a valid access token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Debug("missing bearer token",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, MessageUnauthorized)
			return
		}

		claims, err := m.validator.Authenticate(token)
		if err != nil {
			if errors.Is(err, tokens.ErrExpired) {
				m.logger.Debug("expired token",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, MessageTokenExpired)
				return
			}
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, MessageUnauthorized)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.SubjectID))

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// RequireRole is a middleware that requires a specific role.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, MessageUnauthorized)
				return
			}
			if claims.Role != role {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("required_role", role),
					zap.String("role", claims.Role))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner only lets the subject named by the URL parameter param
// through. Admins pass as well when allowAdmin is set.
func (m *AuthMiddleware) RequireOwner(param string, allowAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, MessageUnauthorized)
				return
			}

			owner := chi.URLParam(r, param)
			if !strings.EqualFold(owner, claims.SubjectID) && !(allowAdmin && claims.Role == RoleAdmin) {
				m.logger.Warn("access to another user's resource denied",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("sub", claims.SubjectID),
					zap.String("owner", owner))
				_ = utils.WriteForbidden(w, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
