package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"yumetv/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError reports a failure in the front end's result shape.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{"success": false, "message": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

// writeStoreError picks a status for a storage error and reports it.
func writeStoreError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrMediaNotFound),
		errors.Is(err, storage.ErrPostNotFound),
		errors.Is(err, storage.ErrCommentNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUsernameExists),
		errors.Is(err, storage.ErrEmailExists),
		errors.Is(err, storage.ErrUsernameTaken):
		return http.StatusConflict
	case storage.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errMethodNotAllowed(method string) error {
	return fmt.Errorf("method %s not allowed", method)
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func decodeJSONAllowUnknown(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return err
	}
	return nil
}
