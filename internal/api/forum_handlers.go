package api

import (
	"fmt"
	"net/http"
	"strconv"

	"yumetv/internal/models"
	"yumetv/internal/storage"
)

type postRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

type forumCommentRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	Direction string `json:"direction"`
}

// Posts serves the forum collection: GET lists, POST creates.
func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Store.ListPosts())
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req postRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		post, err := h.Store.AddPost(storage.PostParams{
			Title:    req.Title,
			Content:  req.Content,
			Category: req.Category,
		}, user)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, post)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

// PostByID serves /api/posts/{id} and its pin, vote, and comment
// subresources.
func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path[len("/api/posts/"):])
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("post id missing"))
		return
	}
	postID, err := strconv.Atoi(segments[0])
	if err != nil {
		writeError(w, http.StatusNotFound, storage.ErrPostNotFound)
		return
	}

	switch {
	case len(segments) == 1:
		h.postItem(w, r, postID)
	case len(segments) == 2 && segments[1] == "pin":
		h.togglePin(w, r, postID)
	case len(segments) == 2 && segments[1] == "vote":
		h.votePost(w, r, postID)
	case len(segments) == 2 && segments[1] == "comments":
		h.addPostComment(w, r, postID)
	case len(segments) >= 3 && segments[1] == "comments":
		commentID, err := strconv.Atoi(segments[2])
		if err != nil {
			writeError(w, http.StatusNotFound, storage.ErrCommentNotFound)
			return
		}
		switch {
		case len(segments) == 3:
			h.postComment(w, r, postID, commentID)
		case len(segments) == 4 && segments[3] == "replies":
			h.addReply(w, r, postID, commentID)
		case len(segments) == 4 && segments[3] == "vote":
			h.voteComment(w, r, postID, commentID)
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown post resource"))
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown post resource"))
	}
}

func (h *Handler) postItem(w http.ResponseWriter, r *http.Request, postID int) {
	switch r.Method {
	case http.MethodGet:
		post, exists := h.Store.GetPost(postID)
		if !exists {
			writeStoreError(w, storage.ErrPostNotFound)
			return
		}
		writeJSON(w, http.StatusOK, post)
	case http.MethodPut, http.MethodPatch:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if !h.mayEditPost(user, postID) {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		var req postRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		post, err := h.Store.UpdatePost(postID, storage.PostParams{
			Title:    req.Title,
			Content:  req.Content,
			Category: req.Category,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	case http.MethodDelete:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if !h.mayEditPost(user, postID) {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		if err := h.Store.DeletePost(postID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, PUT, PATCH, DELETE")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

func (h *Handler) mayEditPost(user models.User, postID int) bool {
	if canModerate(user) {
		return true
	}
	post, exists := h.Store.GetPost(postID)
	return exists && post.AuthorID == user.ID
}

func canModerate(user models.User) bool {
	return user.Role == models.RoleAdmin || user.Role == models.RoleMod
}

func (h *Handler) togglePin(w http.ResponseWriter, r *http.Request, postID int) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if _, ok := h.requireRole(w, r, models.RoleAdmin, models.RoleMod); !ok {
		return
	}
	post, err := h.Store.TogglePin(postID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) votePost(w http.ResponseWriter, r *http.Request, postID int) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	direction, err := parseVoteDirection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := h.Store.VotePost(postID, user.ID, direction)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) addPostComment(w http.ResponseWriter, r *http.Request, postID int) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req forumCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comment, err := h.Store.AddComment(postID, user, req.Text)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) postComment(w http.ResponseWriter, r *http.Request, postID, commentID int) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	owns := func() bool {
		comment, exists := h.Store.FindComment(postID, commentID)
		return exists && comment.AuthorID == user.ID
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		if !owns() && !canModerate(user) {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		var req forumCommentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		comment, err := h.Store.EditComment(postID, commentID, req.Text)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodDelete:
		if !owns() && !canModerate(user) {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		if err := h.Store.DeleteComment(postID, commentID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "PATCH, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
	}
}

func (h *Handler) addReply(w http.ResponseWriter, r *http.Request, postID, parentID int) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req forumCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reply, err := h.Store.AddReply(postID, parentID, user, req.Text)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (h *Handler) voteComment(w http.ResponseWriter, r *http.Request, postID, commentID int) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	direction, err := parseVoteDirection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comment, err := h.Store.VoteComment(postID, commentID, user.ID, direction)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func parseVoteDirection(r *http.Request) (storage.VoteDirection, error) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	switch storage.VoteDirection(req.Direction) {
	case storage.VoteUp:
		return storage.VoteUp, nil
	case storage.VoteDown:
		return storage.VoteDown, nil
	default:
		return "", fmt.Errorf("direction must be %q or %q", storage.VoteUp, storage.VoteDown)
	}
}
