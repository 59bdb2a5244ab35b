// Package apperr defines the error taxonomy shared by ingestion and the posters.
package apperr

import (
	"errors"
	"fmt"
)

// AuthError reports bad or expired credentials for a service.
type AuthError struct {
	Service string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Service, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports a network or API failure talking to a service.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError reports a missing or invalid setting for a requested service.
type ConfigError struct {
	Service string
	Missing []string
	Msg     string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required settings: %v", e.Service, e.Missing)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Msg)
}

// IsAuth reports whether err is or wraps an *AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsConfig reports whether err is or wraps a *ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// FromStatus classifies an HTTP failure: 401 and 403 are auth failures,
// everything else is a transport failure.
func FromStatus(service string, status int, err error) error {
	if status == 401 || status == 403 {
		return &AuthError{Service: service, Err: err}
	}
	return &TransportError{Service: service, Err: err}
}
