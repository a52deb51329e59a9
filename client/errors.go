package client

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned once a refresh attempt has failed. The
	// stored credentials are gone and the user must log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrInconsistentPair is returned when a credential pair is half empty or
	// its tokens belong to different subjects
	ErrInconsistentPair = errors.New("inconsistent credential pair")

	// ErrNotAuthenticated is returned by calls that need stored credentials
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of err when it is an APIError, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
