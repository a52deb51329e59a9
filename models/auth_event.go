package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuthAction represents the kind of authentication event
type AuthAction string

const (
	AuthActionRegister      AuthAction = "register"
	AuthActionLogin         AuthAction = "login"
	AuthActionLoginFailed   AuthAction = "login_failed"
	AuthActionRefresh       AuthAction = "refresh"
	AuthActionRefreshFailed AuthAction = "refresh_failed"
)

// AuthEvent is an entry of the authentication audit trail
type AuthEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Email     string          `json:"email" db:"email"`
	Action    AuthAction      `json:"action" db:"action"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress string          `json:"ip_address" db:"ip_address"`
	UserAgent string          `json:"user_agent" db:"user_agent"`
	RequestID string          `json:"request_id" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuthEvent model
func (AuthEvent) TableName() string {
	return "auth_events"
}

// NewAuthEvent creates a new AuthEvent instance
func NewAuthEvent(action AuthAction, email string) *AuthEvent {
	return &AuthEvent{
		ID:        uuid.New(),
		Email:     email,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// WithUser sets the user ID
func (e *AuthEvent) WithUser(userID uuid.UUID) *AuthEvent {
	e.UserID = &userID
	return e
}

// WithDetails sets the details
func (e *AuthEvent) WithDetails(details interface{}) *AuthEvent {
	if data, err := json.Marshal(details); err == nil {
		e.Details = data
	}
	return e
}

// WithRequest sets request metadata
func (e *AuthEvent) WithRequest(requestID, ipAddress, userAgent string) *AuthEvent {
	e.RequestID = requestID
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// WithMeta sets request metadata from a RequestMeta
func (e *AuthEvent) WithMeta(meta RequestMeta) *AuthEvent {
	return e.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
}

// RequestMeta identifies the HTTP request behind an auth event
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}
