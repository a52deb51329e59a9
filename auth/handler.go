// Package auth serves the token endpoints: register, login, refresh and verify.
package auth

import (
	"context"
	"net/http"

	"github.com/upb/book-tracker/handlers"
	"github.com/upb/book-tracker/middleware"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/services"
	"github.com/upb/book-tracker/tokens"
	"github.com/upb/book-tracker/utils"
	"go.uber.org/zap"
)

// Service issues and checks tokens. *services.AuthService implements it.
type Service interface {
	Register(ctx context.Context, input services.RegisterInput, meta models.RequestMeta) (*services.AuthResult, error)
	Login(ctx context.Context, input services.LoginInput, meta models.RequestMeta) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta models.RequestMeta) (*services.AuthResult, error)
	Verify(token string) (*tokens.Claims, error)
}

// RefreshRequest is the payload of /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// VerifyRequest is the payload of /auth/verify
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// Handler handles the authentication endpoints
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// HandleRegister handles POST /auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if !handlers.DecodeAndValidate(w, r, &input, h.logger) {
		return
	}

	result, err := h.service.Register(r.Context(), input, requestMeta(r))
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, result)
}

// HandleLogin handles POST /auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if !handlers.DecodeAndValidate(w, r, &input, h.logger) {
		return
	}

	result, err := h.service.Login(r.Context(), input, requestMeta(r))
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, result)
}

// HandleRefresh handles POST /auth/refresh. Any token failure, including
// presenting an access token, is a 401.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !handlers.DecodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
	if err != nil {
		h.logger.Debug("refresh rejected",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		handlers.HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandleVerify handles POST /auth/verify
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !handlers.DecodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if _, err := h.service.Verify(req.Token); err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteMessage(w, http.StatusOK, "Token is valid")
}

func requestMeta(r *http.Request) models.RequestMeta {
	return models.RequestMeta{
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
