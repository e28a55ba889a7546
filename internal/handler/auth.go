package handler

import (
	"log/slog"
	"net/http"

	"github.com/warden/warden/internal/handler/dto"
	"github.com/warden/warden/internal/httperr"
	"github.com/warden/warden/internal/middleware"
	"github.com/warden/warden/internal/service"
)

// AuthHandler handles login, registration and token introspection.
type AuthHandler struct {
	auth   *service.AuthService
	users  *service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, users *service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		users:  users,
		logger: logger,
	}
}

// Token handles POST /api/v1/auth/token.
// The body is an OAuth2 password grant form; username may be an email.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httperr.Write(w, http.StatusUnprocessableEntity, httperr.CodeValidation, "Invalid form body")
		return
	}

	req := dto.LoginRequest{
		Username:  r.PostForm.Get("username"),
		Password:  r.PostForm.Get("password"),
		GrantType: r.PostForm.Get("grant_type"),
	}
	if !validate(w, r, h.logger, req) {
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), service.CreateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		httperr.WriteError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_registered",
		slog.String("user_id", user.ID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// TestToken handles POST /api/v1/auth/test-token.
// It returns the principal the presented credential resolves to.
func (h *AuthHandler) TestToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToUserResponse(actor(r)))
}
