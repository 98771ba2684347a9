package server

import (
	"net/http"
	"strings"

	"yumetv/internal/api"
	"yumetv/internal/models"
)

// maintenanceMiddleware returns 503 for API traffic while maintenance mode is
// on. Admins keep full access so they can turn it back off, and the auth,
// session, and settings read endpoints stay reachable so the front end can
// show the maintenance message and admins can still log in.
func maintenanceMiddleware(handler *api.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		mode := handler.Store.Settings().MaintenanceMode
		if !mode.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		if maintenanceExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		if user, ok := api.UserFromContext(r.Context()); ok && user.Role == models.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}
		message := strings.TrimSpace(mode.Message)
		if message == "" {
			message = "maintenanceDefaultMessage"
		}
		w.Header().Set("Retry-After", "300")
		writeMiddlewareError(w, http.StatusServiceUnavailable, message)
	})
}

func maintenanceExempt(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/auth/") {
		return true
	}
	return r.Method == http.MethodGet && r.URL.Path == "/api/settings"
}
