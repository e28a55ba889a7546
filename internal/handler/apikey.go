package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warden/warden/internal/handler/dto"
	"github.com/warden/warden/internal/httperr"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		keys:   keys,
		logger: logger,
	}
}

// List handles GET /api/v1/api-keys.
// Superusers may pass user_id to list another user's keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, err := queryInt(values, "page")
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pageSize, err := queryInt(values, "page_size")
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if !validate(w, r, h.logger, dto.ListQuery{Page: page, PageSize: pageSize}) {
		return
	}

	keys, pagination, err := h.keys.ListForUser(r.Context(), actor(r), model.APIKeyQuery{
		UserID:   values.Get("user_id"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAPIKeyListResponse(keys, pagination))
}

// Create handles POST /api/v1/api-keys.
// The plaintext key is only ever returned by this response.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAPIKeyRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	issued, err := h.keys.CreateForUser(r.Context(), actor(r).ID, toCreateKeyInput(req))
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToAPIKeyCreatedResponse(issued))
}

// CreateWithExpiry handles POST /api/v1/api-keys/with-expiry?days_valid=N.
func (h *APIKeyHandler) CreateWithExpiry(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	days, err := queryInt(values, "days_valid")
	if err == nil && values.Has("days_valid") && days == 0 {
		// Zero is indistinguishable from "unset" once parsed.
		err = &queryError{param: "days_valid", kind: "between 1 and 365"}
	}
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if !validate(w, r, h.logger, dto.WithExpiryQuery{DaysValid: days}) {
		return
	}

	var req dto.CreateAPIKeyRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	issued, err := h.keys.CreateWithExpiry(r.Context(), actor(r).ID, toCreateKeyInput(req), days)
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToAPIKeyCreatedResponse(issued))
}

// Get handles GET /api/v1/api-keys/{key_id}.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.keys.Get(r.Context(), actor(r), chi.URLParam(r, "key_id"))
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAPIKeyResponse(key))
}

// Update handles PATCH /api/v1/api-keys/{key_id}.
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAPIKeyRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	input := service.UpdateAPIKeyInput{
		Name:     req.Name,
		IsActive: req.IsActive,
	}
	if req.ExpiresAt.Set {
		input.ExpiresAt = req.ExpiresAt.Value
		input.ClearExpiry = req.ExpiresAt.Value == nil
	}

	key, err := h.keys.Update(r.Context(), actor(r), chi.URLParam(r, "key_id"), input)
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAPIKeyResponse(key))
}

// Delete handles DELETE /api/v1/api-keys/{key_id}.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.keys.Delete(r.Context(), actor(r), chi.URLParam(r, "key_id")); err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCreateKeyInput(req dto.CreateAPIKeyRequest) service.CreateAPIKeyInput {
	return service.CreateAPIKeyInput{
		Name:      req.Name,
		IsActive:  req.IsActive,
		ExpiresAt: req.ExpiresAt,
	}
}
