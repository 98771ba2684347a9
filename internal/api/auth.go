package api

import (
	"context"
	"fmt"
	"net/http"

	"yumetv/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// AuthenticateRequest validates the session cookie and returns the current
// user. The user record is re-read from the store so role and profile changes
// apply on the next request.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	if h.Sessions == nil {
		return models.User{}, fmt.Errorf("sessions are not configured")
	}
	payload, ok := h.Sessions.Get(r)
	if !ok {
		return models.User{}, fmt.Errorf("missing or invalid session")
	}
	// The break-glass admin login is not a stored user; it lives only in
	// the cookie.
	if payload.UserID == 0 {
		if payload.Role != models.RoleAdmin || payload.Username == "" {
			return models.User{}, fmt.Errorf("missing or invalid session")
		}
		return models.User{ID: 0, Username: payload.Username, Role: models.RoleAdmin}, nil
	}
	user, exists := h.Store.GetUser(payload.UserID)
	if !exists {
		return models.User{}, fmt.Errorf("account not found")
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, roles ...models.Role) (models.User, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if len(roles) == 0 {
		return user, true
	}
	for _, required := range roles {
		if user.Role == required {
			return user, true
		}
	}
	writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
	return models.User{}, false
}
