package api

import (
	"fmt"
	"net/http"
	"strconv"

	"yumetv/internal/models"
	"yumetv/internal/storage"
)

type mediaRequest struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	PosterURL         string            `json:"posterUrl"`
	ThumbnailURL      string            `json:"thumbnailUrl"`
	ReleaseYear       int               `json:"releaseYear"`
	Genre             []string          `json:"genre"`
	Type              models.MediaType  `json:"type"`
	AudioLanguages    []string          `json:"audioLanguages"`
	SubtitleLanguages []string          `json:"subtitleLanguages"`
	IsProtected       bool              `json:"isProtected"`
	LicenseServerURL  string            `json:"licenseServerUrl"`
	AgeRating         string            `json:"ageRating"`
	SourceURL         string            `json:"sourceUrl"`
	Seasons           []models.Season   `json:"seasons"`
	Tags              []string          `json:"tags"`
}

func (req mediaRequest) params() storage.MediaParams {
	return storage.MediaParams{
		Title:             req.Title,
		Description:       req.Description,
		PosterURL:         req.PosterURL,
		ThumbnailURL:      req.ThumbnailURL,
		ReleaseYear:       req.ReleaseYear,
		Genre:             req.Genre,
		Type:              req.Type,
		AudioLanguages:    req.AudioLanguages,
		SubtitleLanguages: req.SubtitleLanguages,
		IsProtected:       req.IsProtected,
		LicenseServerURL:  req.LicenseServerURL,
		AgeRating:         req.AgeRating,
		SourceURL:         req.SourceURL,
		Seasons:           req.Seasons,
		Tags:              req.Tags,
	}
}

type mediaCommentRequest struct {
	Text string `json:"text"`
}

type rateMediaRequest struct {
	Rating int `json:"rating"`
}

// Media serves the catalogue collection: GET lists, POST creates (admin).
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Store.ListMedia())
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req mediaRequest
		if err := decodeJSONAllowUnknown(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		media, err := h.Store.AddMedia(req.params())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, media)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

// MediaByID serves /api/media/{id} and its comment and rating subresources,
// plus the catalogue facet listings under /api/media/genres,
// /api/media/audio-languages, and /api/media/subtitle-languages.
func (h *Handler) MediaByID(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path[len("/api/media/"):])
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("media id missing"))
		return
	}

	if len(segments) == 1 {
		switch segments[0] {
		case "genres":
			h.facet(w, r, h.Store.Genres)
			return
		case "audio-languages":
			h.facet(w, r, h.Store.AudioLanguages)
			return
		case "subtitle-languages":
			h.facet(w, r, h.Store.SubtitleLanguages)
			return
		}
	}

	id, err := strconv.Atoi(segments[0])
	if err != nil {
		writeError(w, http.StatusNotFound, storage.ErrMediaNotFound)
		return
	}

	switch {
	case len(segments) == 1:
		h.mediaItem(w, r, id)
	case len(segments) == 2 && segments[1] == "comments":
		h.addMediaComment(w, r, id)
	case len(segments) == 3 && segments[1] == "comments":
		commentID, err := strconv.Atoi(segments[2])
		if err != nil {
			writeError(w, http.StatusNotFound, storage.ErrCommentNotFound)
			return
		}
		h.mediaComment(w, r, id, commentID)
	case len(segments) == 2 && segments[1] == "rating":
		h.rateMedia(w, r, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown media resource"))
	}
}

func (h *Handler) facet(w http.ResponseWriter, r *http.Request, list func() []string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	writeJSON(w, http.StatusOK, list())
}

func (h *Handler) mediaItem(w http.ResponseWriter, r *http.Request, id int) {
	switch r.Method {
	case http.MethodGet:
		media, exists := h.Store.GetMedia(id)
		if !exists {
			writeStoreError(w, storage.ErrMediaNotFound)
			return
		}
		writeJSON(w, http.StatusOK, media)
	case http.MethodPut:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		var req mediaRequest
		if err := decodeJSONAllowUnknown(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		media, err := h.Store.UpdateMedia(id, req.params())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, media)
	case http.MethodDelete:
		if _, ok := h.requireRole(w, r, models.RoleAdmin); !ok {
			return
		}
		if err := h.Store.DeleteMedia(id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

func (h *Handler) addMediaComment(w http.ResponseWriter, r *http.Request, mediaID int) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req mediaCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comment, err := h.Store.AddMediaComment(mediaID, user.Username, req.Text)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) mediaComment(w http.ResponseWriter, r *http.Request, mediaID, commentID int) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	canModerate := user.Role == models.RoleAdmin || user.Role == models.RoleMod
	owns := func() bool {
		media, exists := h.Store.GetMedia(mediaID)
		if !exists {
			return false
		}
		for _, comment := range media.Comments {
			if comment.ID == commentID {
				return comment.Username == user.Username
			}
		}
		return false
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		if !owns() && !canModerate {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		var req mediaCommentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		comment, err := h.Store.EditMediaComment(mediaID, commentID, req.Text)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodDelete:
		if !owns() && !canModerate {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		if err := h.Store.DeleteMediaComment(mediaID, commentID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "PATCH, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

func (h *Handler) rateMedia(w http.ResponseWriter, r *http.Request, mediaID int) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		w.Header().Set("Allow", "POST, PUT")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req rateMediaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	media, err := h.Store.RateMedia(mediaID, user.ID, req.Rating)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, media)
}
