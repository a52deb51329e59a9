package tokens

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when a token cannot be parsed or its signature does not validate
	ErrMalformed = errors.New("malformed token")

	// ErrSigning is returned when the signing primitive fails
	ErrSigning = errors.New("token signing failed")

	// ErrExpired is returned when the current time is past the token expiry
	ErrExpired = errors.New("token expired")

	// ErrInvalidToken groups the misuse and tampering failures below
	ErrInvalidToken = errors.New("invalid token")

	// ErrIssuerMismatch is returned when the token was not issued by this system
	ErrIssuerMismatch = fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)

	// ErrKindMismatch is returned when an access token is presented where a refresh token is required, or vice versa
	ErrKindMismatch = fmt.Errorf("%w: token kind mismatch", ErrInvalidToken)
)
