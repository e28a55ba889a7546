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

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToUserResponse(actor(r)))
}

// UpdateMe handles PATCH /api/v1/users/me.
// is_active and is_superuser are ignored on this path.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.UpdateMe(r.Context(), actor(r), toUpdateInput(req))
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseUserQuery(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	paging := dto.ListQuery{Page: q.Page, PageSize: q.PageSize}
	if !validate(w, r, h.logger, paging) {
		return
	}

	page, err := h.users.List(r.Context(), actor(r), q)
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserListResponse(page.Users, page.Pagination, page.Query))
}

func parseUserQuery(r *http.Request) (model.UserQuery, error) {
	values := r.URL.Query()
	q := model.UserQuery{
		Search: values.Get("q"),
		Sort: model.Sort{
			Field: values.Get("sort_by"),
			Order: values.Get("sort_order"),
		},
		Filter: model.UserFilter{
			Email:    values.Get("email"),
			Username: values.Get("username"),
		},
	}

	var err error
	if q.Page, err = queryInt(values, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(values, "page_size"); err != nil {
		return q, err
	}
	if q.Filter.IsActive, err = queryBool(values, "is_active"); err != nil {
		return q, err
	}
	if q.Filter.IsSuperuser, err = queryBool(values, "is_superuser"); err != nil {
		return q, err
	}
	return q, nil
}

// Create handles POST /api/v1/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), actor(r), service.CreateUserInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		FullName:    req.FullName,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Get handles GET /api/v1/users/{user_id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), actor(r), chi.URLParam(r, "user_id"))
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Update handles PATCH /api/v1/users/{user_id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), actor(r), chi.URLParam(r, "user_id"), toUpdateInput(req))
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Delete handles DELETE /api/v1/users/{user_id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), actor(r), chi.URLParam(r, "user_id")); err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete handles POST /api/v1/users/bulk-delete.
// Nothing is deleted when the caller's own id is in the list.
func (h *UserHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	n, err := h.users.BulkDelete(r.Context(), actor(r), req.IDs)
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BulkDeleteResponse{Deleted: n})
}

func toUpdateInput(req dto.UpdateUserRequest) service.UpdateUserInput {
	return service.UpdateUserInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		FullName:    req.FullName,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	}
}
