package ierr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrMissingCredential = errors.New("missing api key")
	ErrInvalidFormat     = errors.New("invalid api key format")
	ErrInvalidCredential = errors.New("invalid api key")
	ErrKeyDisabled       = errors.New("api key is disabled")
	ErrKeyExpired        = errors.New("api key has expired")
	ErrInsufficientScope = errors.New("api key lacks required scope")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// ScopeError is returned when a key lacks the capability a route requires.
type ScopeError struct {
	Scope string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("API key lacks '%s' permission", e.Scope)
}

func (e *ScopeError) Unwrap() error {
	return ErrInsufficientScope
}
