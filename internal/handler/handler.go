// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/httperr"
	"github.com/warden/warden/internal/model"
)

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	httperr.Write(w, http.StatusNotFound, httperr.CodeNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httperr.Write(w, http.StatusMethodNotAllowed, httperr.CodeMethodNotAllowed, "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// validatable is implemented by request DTOs.
type validatable interface {
	Validate() error
}

// decodeAndValidate reads a JSON body into dst and validates it.
// On failure the error response has been written and false is returned.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperr.Write(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		httperr.Write(w, http.StatusBadRequest, httperr.CodeInvalidJSON, "Invalid request body")
		return false
	}
	return validate(w, r, logger, dst)
}

// validate runs dst.Validate and writes a 422 on failure.
func validate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst validatable) bool {
	err := dst.Validate()
	if err == nil {
		return true
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		httperr.WriteError(w, r, logger, err)
		return false
	}
	httperr.Write(w, http.StatusUnprocessableEntity, httperr.CodeValidation, err.Error())
	return false
}

// actor returns the authenticated user. Routes using it sit behind Authenticate.
func actor(r *http.Request) *model.User {
	return auth.UserFromContext(r.Context())
}

// queryError is a malformed query parameter.
type queryError struct {
	param string
	kind  string
}

func (e *queryError) Error() string {
	return e.param + ": must be " + e.kind
}

func queryInt(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &queryError{param: name, kind: "an integer"}
	}
	return n, nil
}

func queryBool(q url.Values, name string) (*bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &queryError{param: name, kind: "a boolean"}
	}
	return &b, nil
}

func writeQueryError(w http.ResponseWriter, err error) {
	httperr.Write(w, http.StatusUnprocessableEntity, httperr.CodeValidation, err.Error())
}
