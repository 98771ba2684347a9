package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"yumetv/internal/models"
	"yumetv/internal/storage"
)

type updateRoleRequest struct {
	Role string `json:"role"`
}

type updateProfileRequest struct {
	Username          *string `json:"username"`
	Password          *string `json:"password"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

type trackProgressRequest struct {
	MediaID       int     `json:"mediaId"`
	Progress      float64 `json:"progress"`
	Duration      float64 `json:"duration"`
	SeasonNumber  *int    `json:"seasonNumber"`
	EpisodeNumber *int    `json:"episodeNumber"`
}

// Users lists every account. Admin only.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.ListUsers())
}

// UserByID serves /api/users/{id} and /api/users/{id}/role.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	segments := splitPath(rest)
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("user id missing"))
		return
	}
	id, err := strconv.Atoi(segments[0])
	if err != nil {
		writeError(w, http.StatusNotFound, storage.ErrUserNotFound)
		return
	}

	if len(segments) == 2 && segments[1] == "role" {
		h.updateUserRole(w, r, id)
		return
	}
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown user resource"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		requester, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if requester.ID != id && requester.Role != models.RoleAdmin {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		user, exists := h.Store.GetUser(id)
		if !exists {
			writeStoreError(w, storage.ErrUserNotFound)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		requester, ok := h.requireRole(w, r, models.RoleAdmin)
		if !ok {
			return
		}
		if requester.ID == id {
			writeError(w, http.StatusBadRequest, fmt.Errorf("cannot delete own account"))
			return
		}
		if err := h.Store.DeleteUser(id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

func (h *Handler) updateUserRole(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		w.Header().Set("Allow", "PUT, PATCH")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.UpdateUserRole(id, models.Role(req.Role))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Profile lets the current user edit their own account. A successful update
// re-issues the session cookie so the stored identity matches.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.Header().Set("Allow", "PATCH")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	requester, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.UpdateUserProfile(requester.ID, storage.ProfileUpdate{
		Username:          req.Username,
		Password:          req.Password,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.Sessions.Set(w, r, user); err != nil {
		h.logger().Error("failed to refresh session cookie", "error", err)
	}
	writeJSON(w, http.StatusOK, user)
}

// Watched records playback progress (POST) or looks up the stored progress
// for one media item (GET with mediaId, and optionally season and episode,
// query parameters).
func (h *Handler) Watched(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req trackProgressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := h.Store.TrackProgress(requester.ID, storage.WatchedUpdate{
			MediaID:       req.MediaID,
			Progress:      req.Progress,
			Duration:      req.Duration,
			SeasonNumber:  req.SeasonNumber,
			EpisodeNumber: req.EpisodeNumber,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user.RecentlyWatched)
	case http.MethodGet:
		query := r.URL.Query()
		mediaID, err := strconv.Atoi(query.Get("mediaId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("mediaId query parameter is required"))
			return
		}
		season := optionalIntParam(query.Get("season"))
		episode := optionalIntParam(query.Get("episode"))
		item, found := h.Store.WatchedProgress(requester.ID, mediaID, season, episode)
		if !found {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, item)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

func optionalIntParam(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}

func splitPath(rest string) []string {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
