package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/book-tracker/internal/observability"
	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/repositories"
	"github.com/upb/book-tracker/tokens"
	"go.uber.org/zap"
)

// AuthAuditor records authentication events. *audit.AuditService implements it.
type AuthAuditor interface {
	LogRegister(user *models.User, meta models.RequestMeta)
	LogLogin(user *models.User, meta models.RequestMeta)
	LogLoginFailed(email, reason string, meta models.RequestMeta)
	LogRefresh(user *models.User, meta models.RequestMeta)
	LogRefreshFailed(email, reason string, meta models.RequestMeta)
}

// NopAuditor discards every event
type NopAuditor struct{}

func (NopAuditor) LogRegister(*models.User, models.RequestMeta) {}

func (NopAuditor) LogLogin(*models.User, models.RequestMeta) {}

func (NopAuditor) LogLoginFailed(string, string, models.RequestMeta) {}

func (NopAuditor) LogRefresh(*models.User, models.RequestMeta) {}

func (NopAuditor) LogRefreshFailed(string, string, models.RequestMeta) {}

// RegisterInput is the payload of /auth/register
type RegisterInput struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginInput is the payload of /auth/login
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// AuthService registers users and issues, refreshes and verifies their tokens
type AuthService struct {
	users   repositories.UserRepository
	tokens  *tokens.Manager
	hasher  PasswordHasher
	auditor AuthAuditor
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAuthService creates an AuthService. auditor and metrics may be nil.
func NewAuthService(
	users repositories.UserRepository,
	manager *tokens.Manager,
	hasher PasswordHasher,
	auditor AuthAuditor,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuthService {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &AuthService{
		users:   users,
		tokens:  manager,
		hasher:  hasher,
		auditor: auditor,
		metrics: metrics,
		logger:  logger,
	}
}

// Register creates an account and signs it in
func (s *AuthService) Register(ctx context.Context, input RegisterInput, meta models.RequestMeta) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(strings.TrimSpace(input.FullName), email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateEmail.Wrap(err)
		}
		return nil, WrapInternal("failed to create user", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.auditor.LogRegister(user, meta)
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return result, nil
}

// Login checks credentials and issues a fresh pair. Unknown emails and
// wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, input LoginInput, meta models.RequestMeta) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.auditor.LogLoginFailed(email, "unknown email", meta)
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to load user", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, input.Password)
	if err != nil {
		return nil, WrapInternal("failed to check password", err)
	}
	if !ok {
		s.auditor.LogLoginFailed(email, "wrong password", meta)
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.auditor.LogLogin(user, meta)
	s.logger.Debug("user logged in", zap.String("user_id", user.ID.String()))
	return result, nil
}

// Refresh exchanges a valid refresh token for a new pair. The user record
// is reloaded so display name and role reflect the current account.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta models.RequestMeta) (*AuthResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.metrics.VerifyFailed(verifyFailureReason(err))
		s.metrics.RefreshCompleted("rejected")
		s.auditor.LogRefreshFailed(emailOf(refreshToken), verifyFailureReason(err), meta)
		return nil, tokenError(err)
	}

	userID, err := uuid.Parse(claims.SubjectID)
	if err != nil {
		s.metrics.RefreshCompleted("rejected")
		return nil, ErrInvalidToken.Wrap(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.metrics.RefreshCompleted("rejected")
			s.auditor.LogRefreshFailed(claims.Email, "account no longer exists", meta)
			return nil, ErrAccountGone.Wrap(err)
		}
		s.metrics.RefreshCompleted("error")
		return nil, WrapInternal("failed to load user", err)
	}

	result, err := s.issue(user)
	if err != nil {
		s.metrics.RefreshCompleted("error")
		return nil, err
	}

	s.metrics.RefreshCompleted("success")
	s.auditor.LogRefresh(user, meta)
	return result, nil
}

// Verify reports whether token is a currently valid token of either kind
func (s *AuthService) Verify(token string) (*tokens.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.metrics.VerifyFailed(verifyFailureReason(err))
		return nil, tokenError(err)
	}
	return claims, nil
}

// Authenticate verifies a bearer token presented to a protected endpoint
func (s *AuthService) Authenticate(token string) (*tokens.Claims, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		s.metrics.VerifyFailed(verifyFailureReason(err))
		return nil, tokenError(err)
	}
	return claims, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(IdentityOf(user))
	if err != nil {
		return nil, WrapInternal("failed to issue tokens", err)
	}
	s.metrics.TokenIssued(tokens.KindAccess.String())
	s.metrics.TokenIssued(tokens.KindRefresh.String())

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// IdentityOf builds the token identity of a user
func IdentityOf(user *models.User) tokens.Identity {
	return tokens.Identity{
		SubjectID:   user.ID.String(),
		Email:       user.Email,
		DisplayName: user.FullName,
		Role:        string(user.Role),
	}
}

// tokenError maps token failures onto the domain taxonomy
func tokenError(err error) error {
	if errors.Is(err, tokens.ErrExpired) {
		return ErrTokenExpired.Wrap(err)
	}
	return ErrInvalidToken.Wrap(err)
}

func verifyFailureReason(err error) string {
	switch {
	case errors.Is(err, tokens.ErrExpired):
		return "expired"
	case errors.Is(err, tokens.ErrKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, tokens.ErrIssuerMismatch):
		return "issuer_mismatch"
	default:
		return "malformed"
	}
}

// emailOf reads the email of a rejected token for the audit trail only
func emailOf(token string) string {
	claims, err := tokens.ReadClaimsUnverified(token)
	if err != nil {
		return ""
	}
	return claims.Email
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
