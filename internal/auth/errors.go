package auth

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated is matched by every authentication rejection
	ErrUnauthenticated = errors.New("authentication required")

	ErrInvalidCredentials = &authError{msg: "invalid username or password"}
	ErrNoSession          = &authError{msg: "no session"}
	ErrSessionExpired     = &authError{msg: "session expired"}

	ErrUsernameTaken = errors.New("username already taken")
	ErrValidation    = errors.New("validation failed")
	ErrEntropySource = errors.New("secure random source unavailable")
	ErrHashing       = errors.New("password hashing failed")
)

// authError is a rejection on the authentication path. All of them look
// the same to callers that only check ErrUnauthenticated.
type authError struct {
	msg string
}

func (e *authError) Error() string { return e.msg }

func (e *authError) Is(target error) bool { return target == ErrUnauthenticated }

// ValidationError carries field-level messages keyed by JSON field name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
