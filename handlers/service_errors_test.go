package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/book-tracker/services"
	"github.com/upb/book-tracker/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrBookNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "book not found",
		},
		{
			name:            "validation error",
			err:             services.ErrQueryTooShort,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: services.ErrQueryTooShort.Message,
		},
		{
			name:            "unauthorized error",
			err:             services.NewDomainError(services.ErrorTypeUnauthorized, "Unauthorized", errors.New("bad signature")),
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "Unauthorized",
		},
		{
			name:            "expired token",
			err:             services.ErrTokenExpired,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "Token Expired",
		},
		{
			name:            "forbidden error",
			err:             services.NewDomainError(services.ErrorTypeForbidden, "Access denied", nil),
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "Access denied",
		},
		{
			name:            "conflict error",
			err:             services.ErrDuplicateEmail.Wrap(errors.New("duplicate key")),
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: "User with this email already exists",
		},
		{
			name:            "invalid credentials",
			err:             services.ErrInvalidCredentials,
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "invalid email or password",
		},
		{
			name:            "internal error hides the cause",
			err:             services.WrapInternal("failed to list books", errors.New("pq: connection refused")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "plain error",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, nil, logger)
		assert.Empty(t, w.Body.String())
	})

	t.Run("details are forwarded", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := services.NewDomainError(services.ErrorTypeValidation, "query too short", nil).WithDetail("min_length", 2)

		HandleServiceError(w, err, logger)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, float64(2), response.Details["min_length"])
	})
}

func TestDecodeAndValidate(t *testing.T) {
	type payload struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	tests := []struct {
		name        string
		body        string
		ok          bool
		wantMessage string
	}{
		{name: "valid", body: `{"email":"a@b.com","password":"secret"}`, ok: true},
		{name: "empty body", body: "", wantMessage: "Missing required fields"},
		{name: "missing field", body: `{"email":"a@b.com"}`, wantMessage: "Missing required fields"},
		{name: "malformed", body: `{"email":`, wantMessage: "invalid JSON body: unexpected EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))

			var p payload
			ok := DecodeAndValidate(w, r, &p, zap.NewNop())

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantMessage, response.Message)
		})
	}
}
