package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"yumetv/internal/storage"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

// Register handles self-signup. The account stays pending until the emailed
// verification token is redeemed.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pending, err := h.Store.Register(storage.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.Mail != nil {
		// Delivery must not block or fail the signup; the sender logs
		// the link when the provider is down.
		email, username, token := pending.Email, pending.Username, pending.VerificationToken
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = h.Mail.SendVerification(ctx, email, username, token)
		}()
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "successRegistration",
	})
}

// Login authenticates the credentials and issues the session cookie. The
// response body is the full user record, which the front end keeps as the
// current user.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.Authenticate(req.Username, req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.Sessions.Set(w, r, user); err != nil {
		h.logger().Error("failed to issue session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("session could not be created"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if h.Sessions != nil {
		h.Sessions.Clear(w, r)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the current user for a valid session cookie.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// VerifyEmail redeems a verification token and promotes the pending signup to
// a full account. The token may arrive as the trailing path segment or in the
// request body.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/auth/verify-email"), "/")
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	if token == "" && r.Method == http.MethodPost {
		var req verifyEmailRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		token = strings.TrimSpace(req.Token)
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, storage.ErrInvalidToken)
		return
	}
	user, err := h.Store.VerifyEmail(token)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.logger().Info("email verified", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "successEmailVerified",
		"user":    user,
	})
}

// ResendVerification regenerates the token for a pending signup and emails it
// again.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	var req resendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pending, err := h.Store.ResendVerification(req.Email)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.Mail != nil {
		email, username, token := pending.Email, pending.Username, pending.VerificationToken
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = h.Mail.SendVerification(ctx, email, username, token)
		}()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "successVerificationResent",
	})
}
