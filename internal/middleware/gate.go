package middleware

import (
	"net/http"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/httperr"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/service"
)

// require builds a middleware around a gate on the authenticated user.
// Must be applied after Authenticate.
func require(gate func(*model.User) (*model.User, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := gate(auth.UserFromContext(r.Context())); err != nil {
				httperr.WriteError(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActive rejects requests whose principal is inactive.
func RequireActive() func(http.Handler) http.Handler {
	return require(service.RequireActive)
}

// RequireSuperuser rejects requests whose principal is not an active superuser.
func RequireSuperuser() func(http.Handler) http.Handler {
	return require(func(u *model.User) (*model.User, error) {
		u, err := service.RequireActive(u)
		if err != nil {
			return nil, err
		}
		return service.RequireSuperuser(u)
	})
}
