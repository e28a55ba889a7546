package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/warden/warden/internal/httperr"
)

// Recoverer is a middleware that recovers from panics.
// It logs the panic and returns a 500 error envelope. The stack is only
// attached to the log record when includeStack is set.
func Recoverer(logger *slog.Logger, includeStack bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				attrs := []any{
					slog.String("request_id", GetRequestID(r.Context())),
					slog.Any("panic", rvr),
				}
				if includeStack {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}
				logger.Error("panic recovered", attrs...)

				httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "An internal error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
