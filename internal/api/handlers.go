// Package api implements the HTTP handlers for the Yume TV back end. The
// result shape follows the front end's expectations: failures are reported as
// {"success": false, "message": "<code>"} where the code is an i18n key the
// client maps to a translated string.
package api

import (
	"log/slog"
	"net/http"

	"yumetv/internal/mail"
	"yumetv/internal/observability/metrics"
	"yumetv/internal/storage"
)

type Handler struct {
	Store    storage.Repository
	Sessions *SessionCodec
	Mail     *mail.Sender
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

func NewHandler(store storage.Repository, sessions *SessionCodec) *Handler {
	return &Handler{
		Store:    store,
		Sessions: sessions,
		Logger:   slog.Default(),
		Metrics:  metrics.Default(),
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
