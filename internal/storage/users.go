package storage

import (
	"strings"
	"time"

	"yumetv/internal/models"
)

const (
	minPasswordLength = 8

	// VerificationTokenTTL is how long a pending registration stays
	// redeemable. Expired records are not purged, only rejected when the
	// token is presented.
	VerificationTokenTTL = 24 * time.Hour
)

// RegisterParams carries a self-signup request.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate describes the mutable fields of the current user's profile.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	Username          *string
	Password          *string
	ProfilePictureURL *string
}

// WatchedUpdate records playback progress for one media item.
type WatchedUpdate struct {
	MediaID       int
	Progress      float64
	Duration      float64
	SeasonNumber  *int
	EpisodeNumber *int
}

// Register validates the signup and adds a pending user holding a fresh
// verification token. The account only becomes a User once the token is
// redeemed. Username and email must be unique, case-insensitively, across
// both confirmed and pending users.
func (s *Store) Register(params RegisterParams) (models.PendingUser, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(params.Email)
	if len(params.Password) < minPasswordLength {
		return models.PendingUser{}, ErrWeakPassword
	}

	pending := models.PendingUser{
		Username:          username,
		Email:             email,
		Password:          params.Password,
		VerificationToken: s.newToken(),
		TokenExpires:      s.now().Add(VerificationTokenTTL),
	}

	err := s.sync.Update(func(doc Document) (Document, error) {
		for _, user := range doc.Users {
			if equalFold(user.Username, username) {
				return doc, ErrUsernameExists
			}
			if equalFold(user.Email, email) {
				return doc, ErrEmailExists
			}
		}
		for _, existing := range doc.PendingUsers {
			if equalFold(existing.Username, username) {
				return doc, ErrUsernameExists
			}
			if equalFold(existing.Email, email) {
				return doc, ErrEmailExists
			}
		}
		next := doc
		next.PendingUsers = append(append([]models.PendingUser{}, doc.PendingUsers...), pending)
		return next, nil
	})
	if err != nil {
		return models.PendingUser{}, err
	}
	return pending, nil
}

// VerifyEmail redeems a verification token, promoting the pending record to
// a confirmed user. The token is consumed either way the promotion goes, so
// a second attempt with the same token reports not-found rather than
// double-promoting. The first confirmed user on the site becomes admin.
func (s *Store) VerifyEmail(token string) (models.User, error) {
	var promoted models.User
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := -1
		for i, pending := range doc.PendingUsers {
			if pending.VerificationToken == token {
				index = i
				break
			}
		}
		if index < 0 {
			return doc, ErrInvalidToken
		}
		pending := doc.PendingUsers[index]
		if s.now().After(pending.TokenExpires) {
			return doc, ErrTokenExpired
		}

		role := models.RoleUser
		if len(doc.Users) == 0 {
			role = models.RoleAdmin
		}
		promoted = models.User{
			ID:                nextUserID(doc.Users),
			Username:          pending.Username,
			Email:             pending.Email,
			Password:          pending.Password,
			Role:              role,
			RecentlyWatched:   []models.WatchedItem{},
			ProfilePictureURL: pending.ProfilePictureURL,
		}

		next := doc
		next.Users = append(append([]models.User{}, doc.Users...), promoted)
		remaining := make([]models.PendingUser, 0, len(doc.PendingUsers)-1)
		remaining = append(remaining, doc.PendingUsers[:index]...)
		remaining = append(remaining, doc.PendingUsers[index+1:]...)
		next.PendingUsers = remaining
		return next, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return promoted, nil
}

// ResendVerification regenerates the token and expiry for a pending
// registration identified by email.
func (s *Store) ResendVerification(email string) (models.PendingUser, error) {
	var refreshed models.PendingUser
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := -1
		for i, pending := range doc.PendingUsers {
			if equalFold(pending.Email, email) {
				index = i
				break
			}
		}
		if index < 0 {
			return doc, ErrUserNotFound
		}
		refreshed = doc.PendingUsers[index]
		refreshed.VerificationToken = s.newToken()
		refreshed.TokenExpires = s.now().Add(VerificationTokenTTL)

		next := doc
		pendings := append([]models.PendingUser{}, doc.PendingUsers...)
		pendings[index] = refreshed
		next.PendingUsers = pendings
		return next, nil
	})
	if err != nil {
		return models.PendingUser{}, err
	}
	return refreshed, nil
}

// Authenticate verifies credentials by username. The configured admin
// override authenticates as a synthetic admin account that does not exist in
// the document. A pending registration reports not-verified instead of
// invalid credentials so the UI can offer a resend.
func (s *Store) Authenticate(username, password string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	if s.adminOverride.configured() &&
		equalFold(username, s.adminOverride.Username) &&
		password == s.adminOverride.Password {
		return models.User{
			Username:        s.adminOverride.Username,
			Role:            models.RoleAdmin,
			RecentlyWatched: []models.WatchedItem{},
		}, nil
	}

	doc := s.sync.Read()
	for _, user := range doc.Users {
		if !equalFold(user.Username, username) {
			continue
		}
		// Opaque comparison: the stored credential is never interpreted.
		if user.Password == password {
			return user, nil
		}
		return models.User{}, ErrInvalidCredentials
	}
	for _, pending := range doc.PendingUsers {
		if equalFold(pending.Username, username) {
			return models.User{}, ErrEmailNotVerified
		}
	}
	return models.User{}, ErrInvalidCredentials
}

// ListUsers returns every confirmed user.
func (s *Store) ListUsers() []models.User {
	return s.sync.Read().Users
}

// GetUser looks up a confirmed user by id.
func (s *Store) GetUser(id int) (models.User, bool) {
	for _, user := range s.sync.Read().Users {
		if user.ID == id {
			return user, true
		}
	}
	return models.User{}, false
}

// FindUserByUsername looks up a confirmed user case-insensitively.
func (s *Store) FindUserByUsername(username string) (models.User, bool) {
	for _, user := range s.sync.Read().Users {
		if equalFold(user.Username, username) {
			return user, true
		}
	}
	return models.User{}, false
}

// UpdateUserRole assigns a role to a user.
func (s *Store) UpdateUserRole(id int, role models.Role) (models.User, error) {
	if !role.Valid() {
		return models.User{}, ErrInvalidRole
	}
	var updated models.User
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := userIndex(doc.Users, id)
		if index < 0 {
			return doc, ErrUserNotFound
		}
		updated = doc.Users[index]
		updated.Role = role

		next := doc
		users := append([]models.User{}, doc.Users...)
		users[index] = updated
		next.Users = users
		return next, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// UpdateUserProfile applies a profile change for the given user. Username
// uniqueness is re-checked against everyone else; an update that changes
// nothing is an error so the UI can say so.
func (s *Store) UpdateUserProfile(id int, update ProfileUpdate) (models.User, error) {
	var updated models.User
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := userIndex(doc.Users, id)
		if index < 0 {
			return doc, ErrUserNotFound
		}
		user := doc.Users[index]
		changed := false

		if update.Username != nil {
			username := strings.TrimSpace(*update.Username)
			if username != "" && username != user.Username {
				for _, other := range doc.Users {
					if other.ID != id && equalFold(other.Username, username) {
						return doc, ErrUsernameTaken
					}
				}
				for _, pending := range doc.PendingUsers {
					if equalFold(pending.Username, username) {
						return doc, ErrUsernameTaken
					}
				}
				user.Username = username
				changed = true
			}
		}
		if update.Password != nil && *update.Password != "" {
			if len(*update.Password) < minPasswordLength {
				return doc, ErrWeakPassword
			}
			user.Password = *update.Password
			changed = true
		}
		if update.ProfilePictureURL != nil && *update.ProfilePictureURL != "" {
			user.ProfilePictureURL = *update.ProfilePictureURL
			changed = true
		}
		if !changed {
			return doc, ErrNoChanges
		}

		updated = user
		next := doc
		users := append([]models.User{}, doc.Users...)
		users[index] = user
		next.Users = users
		return next, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// DeleteUser removes a confirmed user from the document.
func (s *Store) DeleteUser(id int) error {
	return s.sync.Update(func(doc Document) (Document, error) {
		index := userIndex(doc.Users, id)
		if index < 0 {
			return doc, ErrUserNotFound
		}
		next := doc
		users := make([]models.User, 0, len(doc.Users)-1)
		users = append(users, doc.Users[:index]...)
		users = append(users, doc.Users[index+1:]...)
		next.Users = users
		return next, nil
	})
}

// TrackProgress upserts a watch record keyed by (media, season, episode):
// an existing record for the tuple is replaced and moved to the front, and
// the history is truncated to the most recent entries.
func (s *Store) TrackProgress(userID int, update WatchedUpdate) (models.User, error) {
	if update.Duration <= 0 {
		return models.User{}, ErrNoChanges
	}
	item := models.WatchedItem{
		MediaID:       update.MediaID,
		Progress:      update.Progress,
		Duration:      update.Duration,
		SeasonNumber:  update.SeasonNumber,
		EpisodeNumber: update.EpisodeNumber,
		WatchedAt:     s.now(),
	}

	var updated models.User
	err := s.sync.Update(func(doc Document) (Document, error) {
		index := userIndex(doc.Users, userID)
		if index < 0 {
			return doc, ErrUserNotFound
		}
		user := doc.Users[index]

		watched := make([]models.WatchedItem, 0, len(user.RecentlyWatched)+1)
		watched = append(watched, item)
		for _, existing := range user.RecentlyWatched {
			if existing.SameEpisode(item) {
				continue
			}
			watched = append(watched, existing)
		}
		if len(watched) > models.RecentlyWatchedLimit {
			watched = watched[:models.RecentlyWatchedLimit]
		}
		user.RecentlyWatched = watched

		updated = user
		next := doc
		users := append([]models.User{}, doc.Users...)
		users[index] = user
		next.Users = users
		return next, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// WatchedProgress returns the stored progress for the given episode tuple.
func (s *Store) WatchedProgress(userID, mediaID int, season, episode *int) (models.WatchedItem, bool) {
	user, ok := s.GetUser(userID)
	if !ok {
		return models.WatchedItem{}, false
	}
	probe := models.WatchedItem{MediaID: mediaID, SeasonNumber: season, EpisodeNumber: episode}
	for _, item := range user.RecentlyWatched {
		if item.SameEpisode(probe) {
			return item, true
		}
	}
	return models.WatchedItem{}, false
}

func userIndex(users []models.User, id int) int {
	for i, user := range users {
		if user.ID == id {
			return i
		}
	}
	return -1
}

func nextUserID(users []models.User) int {
	max := 0
	for _, user := range users {
		if user.ID > max {
			max = user.ID
		}
	}
	return max + 1
}
