package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RoleAdmin is the role required for catalog management endpoints.
const RoleAdmin = "admin"

// RequireAdmin gates catalog management routes on the admin role carried in
// the token claims. Requests without a role in context were not authenticated
// and are rejected the same way as a wrong role.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || role != RoleAdmin {
				logger.Warn("Catalog management access denied",
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				respondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
