package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrAPIKeyExists   = errors.New("API key already exists")
	ErrInvalidSort    = errors.New("invalid sort field")
)

// Unique constraint names from migrations/.
const (
	constraintUsersEmail    = "users_email_key"
	constraintUsersUsername = "users_username_key"
	constraintAPIKeysHash   = "api_keys_key_hash_key"
)

// uniqueViolation reports whether err is a PostgreSQL unique_violation (23505)
// and returns the violated constraint name.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// foreignKeyViolation reports whether err is a PostgreSQL foreign_key_violation (23503).
func foreignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// userConflict translates a unique violation on users into a sentinel.
func userConflict(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case constraintUsersUsername:
		return ErrUsernameExists
	case constraintUsersEmail:
		return ErrEmailExists
	default:
		return ErrEmailExists
	}
}
