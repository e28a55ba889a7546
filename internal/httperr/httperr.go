// Package httperr maps service errors to JSON error responses.
package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/service"
)

// Error codes.
const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInactiveUser        = "INACTIVE_USER"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeSelfDeleteForbidden = "SELF_DELETE_FORBIDDEN"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeInternal            = "INTERNAL_ERROR"
)

// Response is the error envelope.
type Response struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Problem is the HTTP form of an error.
type Problem struct {
	Status  int
	Code    string
	Message string
}

// publicMessager is implemented by errors that carry a client-safe message.
type publicMessager interface {
	PublicMessage() string
}

// FromError classifies err. Unknown errors become a 500 with a generic message.
func FromError(err error) Problem {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return Problem{http.StatusUnauthorized, CodeInvalidCredentials, "Incorrect username/email or password"}
	case errors.Is(err, service.ErrUnauthenticated):
		return Problem{http.StatusUnauthorized, CodeUnauthorized, unauthenticatedMessage(err)}
	case errors.Is(err, service.ErrInactiveUser):
		return Problem{http.StatusBadRequest, CodeInactiveUser, "Inactive user"}
	case errors.Is(err, service.ErrForbidden):
		return Problem{http.StatusForbidden, CodeForbidden, "Not enough permissions"}
	case errors.Is(err, service.ErrUserNotFound):
		return Problem{http.StatusNotFound, CodeUserNotFound, "User not found"}
	case errors.Is(err, service.ErrNotFound):
		return Problem{http.StatusNotFound, CodeNotFound, "Resource not found"}
	case errors.Is(err, service.ErrConflict):
		return Problem{http.StatusBadRequest, CodeConflict, publicMessage(err, "Resource already exists")}
	case errors.Is(err, service.ErrSelfDeleteForbidden):
		return Problem{http.StatusBadRequest, CodeSelfDeleteForbidden, "Users cannot delete themselves"}
	case errors.Is(err, service.ErrValidation):
		return Problem{http.StatusUnprocessableEntity, CodeValidation, publicMessage(err, "Validation failed")}
	default:
		return Problem{http.StatusInternalServerError, CodeInternal, "An internal error occurred"}
	}
}

func unauthenticatedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, service.ErrCredentialsMissing):
		return "Not authenticated"
	case errors.Is(err, service.ErrAPIKeyInvalid):
		return "Invalid API key"
	case errors.Is(err, service.ErrAPIKeyInactive):
		return "API key is inactive"
	case errors.Is(err, service.ErrAPIKeyExpired):
		return "API key has expired"
	default:
		return "Could not validate credentials"
	}
}

func publicMessage(err error, fallback string) string {
	var pm publicMessager
	if errors.As(err, &pm) {
		return pm.PublicMessage()
	}
	return fallback
}

// Write writes an error envelope with status.
func Write(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Error: message, Code: code})
}

// WriteError classifies err and writes it. 500s are logged with the request path.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := FromError(err)
	if p.Status == http.StatusInternalServerError && logger != nil {
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	Write(w, p.Status, p.Code, p.Message)
}
