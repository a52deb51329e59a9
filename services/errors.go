package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeTokenExpired       ErrorType = "token_expired"
	ErrorTypeForbidden          ErrorType = "forbidden"
	ErrorTypeConflict           ErrorType = "conflict"
	ErrorTypeInvalidCredentials ErrorType = "invalid_credentials"
	ErrorTypeInternal           ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Wrap returns a copy of e caused by err. Templates below stay untouched.
func (e *DomainError) Wrap(err error) *DomainError {
	return NewDomainError(e.Type, e.Message, err)
}

// Domain error variables. They are templates for errors.Is; use Wrap or
// NewDomainError when a request needs its own cause or details.

var (
	// Not Found Errors
	ErrBookNotFound     = NewDomainError(ErrorTypeNotFound, "book not found", nil)
	ErrAuthorNotFound   = NewDomainError(ErrorTypeNotFound, "author not found", nil)
	ErrUserBookNotFound = NewDomainError(ErrorTypeNotFound, "book not found in user library", nil)

	// Validation Errors
	ErrQueryTooShort = NewDomainError(ErrorTypeValidation, "search query must be at least 2 characters", nil)
	ErrUnknownAuthor = NewDomainError(ErrorTypeValidation, "author or category does not exist", nil)
	ErrUnknownBook   = NewDomainError(ErrorTypeValidation, "book does not exist", nil)

	// Authentication Errors
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthorized, "Unauthorized", nil)
	ErrTokenExpired       = NewDomainError(ErrorTypeTokenExpired, "Token Expired", nil)
	ErrInvalidCredentials = NewDomainError(ErrorTypeInvalidCredentials, "invalid email or password", nil)
	ErrAccountGone        = NewDomainError(ErrorTypeUnauthorized, "account no longer exists", nil)

	// Conflict Errors
	ErrDuplicateEmail = NewDomainError(ErrorTypeConflict, "User with this email already exists", nil)
)

// Error type checking helper functions

func isType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsUnauthorizedError checks if an error is an unauthorized error.
// Expired tokens count as unauthorized.
func IsUnauthorizedError(err error) bool {
	return isType(err, ErrorTypeUnauthorized) || isType(err, ErrorTypeTokenExpired)
}

// IsTokenExpiredError checks if an error reports an expired token
func IsTokenExpiredError(err error) bool { return isType(err, ErrorTypeTokenExpired) }

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool { return isType(err, ErrorTypeForbidden) }

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool { return isType(err, ErrorTypeConflict) }

// IsInvalidCredentialsError checks if an error is a failed login
func IsInvalidCredentialsError(err error) bool { return isType(err, ErrorTypeInvalidCredentials) }

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool { return isType(err, ErrorTypeInternal) }

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the message of a domain error, or empty string
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
