package spotify

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error response from Spotify.
//
// Web API endpoints return {"error": {"status", "message"}}; the accounts
// service returns {"error", "error_description"}. Both are normalized here.
type Error struct {
	StatusCode int    // HTTP status code
	Code       string // OAuth error code (accounts service only)
	Message    string // Error message from Spotify
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("spotify: error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("spotify: error %d: %s", e.StatusCode, e.Message)
}

// Is checks if the target error is a Spotify error with the same status.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// Unauthorized reports whether the error means the credentials were rejected.
//
// An invalid_grant from the accounts service means the refresh token or
// authorization code is no longer valid.
func (e *Error) Unauthorized() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return e.Code == "invalid_grant" || e.Code == "invalid_client"
}

// Predefined errors for common cases.
var (
	// ErrNoToken is returned when an API call is made before authorizing.
	ErrNoToken = errors.New("spotify: no token, run the auth flow first")

	// ErrNotFound matches any 404 response via errors.Is.
	ErrNotFound = &Error{StatusCode: http.StatusNotFound}
)

// StatusCode extracts the HTTP status of a Spotify error, or 0 when err is
// not a response from Spotify.
func StatusCode(err error) int {
	var se *Error
	if errors.As(err, &se) {
		if se.Unauthorized() && se.StatusCode == http.StatusBadRequest {
			return http.StatusUnauthorized
		}
		return se.StatusCode
	}
	if errors.Is(err, ErrNoToken) {
		return http.StatusUnauthorized
	}
	return 0
}
