package storage

import "errors"

// Validation and lookup failures carry the message codes the front end maps
// to translated strings, so the API can return them verbatim in the
// {success:false, message} result shape.
var (
	ErrUsernameExists     = errors.New("errorUsernameExists")
	ErrEmailExists        = errors.New("errorEmailExists")
	ErrWeakPassword       = errors.New("errorWeakPassword")
	ErrInvalidCredentials = errors.New("errorInvalidCredentials")
	ErrEmailNotVerified   = errors.New("errorEmailNotVerified")
	ErrInvalidToken       = errors.New("errorInvalidToken")
	ErrTokenExpired       = errors.New("errorTokenExpired")
	ErrUsernameTaken      = errors.New("errorUsernameTaken")
	ErrNoChanges          = errors.New("errorNoChanges")
	ErrUserNotFound       = errors.New("errorUserNotFound")
	ErrMediaNotFound      = errors.New("errorMediaNotFound")
	ErrPostNotFound       = errors.New("errorPostNotFound")
	ErrCommentNotFound    = errors.New("errorCommentNotFound")
	ErrInvalidCategory    = errors.New("errorInvalidCategory")
	ErrInvalidRole        = errors.New("errorInvalidRole")
	ErrInvalidRating      = errors.New("errorInvalidRating")
)

// IsValidationError reports whether the error is one of the domain codes
// callers surface to users, as opposed to a transport failure.
func IsValidationError(err error) bool {
	for _, candidate := range []error{
		ErrUsernameExists, ErrEmailExists, ErrWeakPassword, ErrInvalidCredentials,
		ErrEmailNotVerified, ErrInvalidToken, ErrTokenExpired, ErrUsernameTaken,
		ErrNoChanges, ErrUserNotFound, ErrMediaNotFound, ErrPostNotFound,
		ErrCommentNotFound, ErrInvalidCategory, ErrInvalidRole, ErrInvalidRating,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
