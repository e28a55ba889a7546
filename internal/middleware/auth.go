package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/httperr"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/service"
)

// APIKeyHeader carries API keys.
const APIKeyHeader = "X-API-Key"

// PrincipalResolver resolves credentials to users. *service.Resolver implements it.
type PrincipalResolver interface {
	ResolveFromToken(ctx context.Context, token string) (*model.User, error)
	ResolveFromAPIKey(ctx context.Context, key string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Resolver PrincipalResolver
}

// Authenticate returns a middleware that authenticates API requests.
// A bearer token in the Authorization header is tried first; without one,
// the X-API-Key header is used. The resolved principal is stored in the
// request context.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var (
				user   *model.User
				err    error
				method string
			)
			if token, ok := bearerToken(r); ok {
				method = model.MethodBearer
				user, err = cfg.Resolver.ResolveFromToken(ctx, token)
			} else if key := r.Header.Get(APIKeyHeader); key != "" {
				method = model.MethodAPIKey
				user, err = cfg.Resolver.ResolveFromAPIKey(ctx, key)
			} else {
				err = fmt.Errorf("%w: %w", service.ErrUnauthenticated, service.ErrCredentialsMissing)
				method = "none"
			}

			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", service.AuthResult(err)),
					slog.String("detail", err.Error()),
					slog.String("method", method),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(ctx)),
				)
				httperr.WriteError(w, r, cfg.Logger, err)
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", user.ID),
				slog.String("method", method),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(ctx)),
			)

			recordPrincipal(ctx, user.ID, method)
			ctx = auth.ContextWithPrincipal(ctx, &model.Principal{User: user, Method: method})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
