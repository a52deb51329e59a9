package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/book-tracker/tokens"
	"github.com/upb/book-tracker/utils"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Authenticate(token string) (*tokens.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokens.Claims), args.Error(1)
}

func claimsFor(sub, role string) *tokens.Claims {
	return &tokens.Claims{Identity: tokens.Identity{SubjectID: sub, Email: "user@example.com", Role: role}}
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Message
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("valid bearer token allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		mw := NewAuthMiddleware(mockValidator, logger)
		claims := claimsFor("user-123", "user")
		mockValidator.On("Authenticate", "valid-token").Return(claims, nil)

		handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Same(t, claims, GetClaimsFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "bearer valid-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	rejected := []struct {
		name        string
		header      string
		err         error
		wantMessage string
	}{
		{name: "missing header", wantMessage: MessageUnauthorized},
		{name: "not a bearer scheme", header: "Basic dXNlcjpwYXNz", wantMessage: MessageUnauthorized},
		{name: "bearer without token", header: "Bearer ", wantMessage: MessageUnauthorized},
		{name: "bad signature", header: "Bearer forged", err: tokens.ErrMalformed, wantMessage: MessageUnauthorized},
		{name: "refresh token", header: "Bearer refresh", err: fmt.Errorf("wrapped: %w", tokens.ErrKindMismatch), wantMessage: MessageUnauthorized},
		{name: "expired", header: "Bearer old", err: fmt.Errorf("wrapped: %w", tokens.ErrExpired), wantMessage: MessageTokenExpired},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			mockValidator := new(MockTokenValidator)
			mw := NewAuthMiddleware(mockValidator, logger)
			if tt.err != nil {
				mockValidator.On("Authenticate", mock.Anything).Return(nil, tt.err)
			}

			handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantMessage, decodeMessage(t, w))
			if tt.err == nil {
				mockValidator.AssertNotCalled(t, "Authenticate", mock.Anything)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	mw := NewAuthMiddleware(new(MockTokenValidator), zap.NewNop())
	handler := mw.RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		claims *tokens.Claims
		want   int
	}{
		{"admin passes", claimsFor("a", RoleAdmin), http.StatusNoContent},
		{"user is forbidden", claimsFor("u", "user"), http.StatusForbidden},
		{"anonymous is unauthorized", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/books", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireOwner(t *testing.T) {
	owner := uuid.New().String()
	other := uuid.New().String()

	newRouter := func(allowAdmin bool, claims *tokens.Claims) http.Handler {
		mw := NewAuthMiddleware(new(MockTokenValidator), zap.NewNop())
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if claims != nil {
					req = req.WithContext(WithClaims(req.Context(), claims))
				}
				next.ServeHTTP(w, req)
			})
		})
		r.With(mw.RequireOwner("userId", allowAdmin)).Get("/users/{userId}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return r
	}

	tests := []struct {
		name       string
		allowAdmin bool
		claims     *tokens.Claims
		want       int
	}{
		{"self", false, claimsFor(owner, "user"), http.StatusOK},
		{"other user", true, claimsFor(other, "user"), http.StatusForbidden},
		{"admin when allowed", true, claimsFor(other, RoleAdmin), http.StatusOK},
		{"admin when self only", false, claimsFor(other, RoleAdmin), http.StatusForbidden},
		{"anonymous", true, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tt.allowAdmin, tt.claims).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/"+owner, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := GetUserIDFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithClaims(req.Context(), claimsFor(id.String(), "user"))
	got, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = GetUserIDFromContext(WithClaims(req.Context(), claimsFor("not-a-uuid", "user")))
	assert.False(t, ok)
}

func TestExtractBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer  abc ")
	assert.Equal(t, "abc", extractBearerToken(req))

	req.Header.Set("Authorization", "Token abc")
	assert.Empty(t, extractBearerToken(req))
}
