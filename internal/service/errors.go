// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Service errors. The HTTP layer maps each kind to one status code.
var (
	ErrInvalidCredentials  = errors.New("incorrect username/email or password")
	ErrInactiveUser        = errors.New("inactive user")
	ErrUnauthenticated     = errors.New("could not validate credentials")
	ErrForbidden           = errors.New("not enough permissions")
	ErrNotFound            = errors.New("resource not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrConflict            = errors.New("resource already exists")
	ErrSelfDeleteForbidden = errors.New("users cannot delete themselves")
	ErrValidation          = errors.New("validation failed")
)

// Reasons attached to ErrUnauthenticated.
var (
	ErrCredentialsMissing = errors.New("not authenticated")
	ErrAPIKeyInvalid      = errors.New("invalid API key")
	ErrAPIKeyInactive     = errors.New("API key is inactive")
	ErrAPIKeyExpired      = errors.New("API key has expired")
)

// unauthenticated wraps reason so that errors.Is matches both ErrUnauthenticated and reason.
func unauthenticated(reason error) error {
	return fmt.Errorf("%w: %w", ErrUnauthenticated, reason)
}

// conflict returns an ErrConflict carrying a client-safe message.
func conflict(msg string) error {
	return &kindError{kind: ErrConflict, msg: msg}
}

// invalid returns an ErrValidation carrying a client-safe message.
func invalid(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// kindError is a service error kind with a specific message.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// PublicMessage returns the message that is safe to show to clients.
func (e *kindError) PublicMessage() string { return e.msg }
