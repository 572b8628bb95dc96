package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "acceso/pkg/platform/middleware/request"
)

// AdminTokenHeader carries the shared administrative secret.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards administrative routes with a shared-secret header.
// An empty configured token disables the check, which is only suitable for
// local development.
func RequireAdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized admin access",
					"request_id", request.GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
