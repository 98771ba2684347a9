package api

import (
	"fmt"
	"net/http"

	"yumetv/internal/models"
	"yumetv/internal/storage"
)

type maintenanceRequest struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

type playerSettingsRequest struct {
	AutoPlay *bool `json:"autoPlay"`
	AutoNext *bool `json:"autoNext"`
}

type siteNameRequest struct {
	SiteName string `json:"siteName"`
}

// Settings serves /api/settings and its admin-only subresources
// (maintenance, player, site-name).
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path[len("/api/settings"):])

	if len(segments) == 0 {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
			return
		}
		writeJSON(w, http.StatusOK, h.Store.Settings())
		return
	}

	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown settings resource"))
		return
	}

	switch segments[0] {
	case "maintenance":
		h.setMaintenance(w, r)
	case "player":
		h.updatePlayerSettings(w, r)
	case "site-name":
		h.setSiteName(w, r)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown settings resource"))
	}
}

func (h *Handler) setMaintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", "PUT")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.Store.SetMaintenanceMode(models.MaintenanceMode{
		Enabled: req.Enabled,
		Message: req.Message,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) updatePlayerSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		w.Header().Set("Allow", "PATCH, PUT")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var req playerSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.Store.UpdatePlayerSettings(storage.PlayerSettingsUpdate{
		AutoPlay: req.AutoPlay,
		AutoNext: req.AutoNext,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) setSiteName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", "PUT")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var req siteNameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.Store.SetSiteName(req.SiteName)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
