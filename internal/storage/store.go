package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"yumetv/internal/models"
)

// AdminOverride holds the configured administrator credentials that
// authenticate without a matching document user.
type AdminOverride struct {
	Username string
	Password string
}

func (o AdminOverride) configured() bool {
	return o.Username != "" && o.Password != ""
}

// Store exposes the domain operations over the synchronized document. Every
// mutation is expressed as a pure Document transform applied through the
// Synchronizer, so reads always see the latest local state while persistence
// stays debounced in the background.
type Store struct {
	sync          *Synchronizer
	adminOverride AdminOverride
	now           func() time.Time
	newToken      func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAdminOverride installs the configured admin credentials consumed by
// Authenticate.
func WithAdminOverride(override AdminOverride) StoreOption {
	return func(s *Store) {
		s.adminOverride = override
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenFactory replaces verification token generation, for tests.
func WithTokenFactory(factory func() string) StoreOption {
	return func(s *Store) {
		if factory != nil {
			s.newToken = factory
		}
	}
}

// NewStore wraps a Synchronizer with the domain mutators.
func NewStore(sync *Synchronizer, opts ...StoreOption) *Store {
	s := &Store{
		sync:     sync,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the current read model.
func (s *Store) Document() Document {
	return s.sync.Read()
}

// Settings returns the current site configuration.
func (s *Store) Settings() models.Settings {
	return s.sync.Read().Settings
}

// canonical trims and case-folds a string for the case-insensitive identity
// comparisons (usernames, emails). Unicode folding rather than ASCII
// lowercasing, so Turkish dotless i and friends compare correctly.
func canonical(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}

func equalFold(a, b string) bool {
	return canonical(a) == canonical(b)
}

// containsInt reports membership in a vote/like set.
func containsInt(set []int, id int) bool {
	for _, member := range set {
		if member == id {
			return true
		}
	}
	return false
}

// removeInt returns a new slice without id; the input is never modified.
func removeInt(set []int, id int) []int {
	out := make([]int, 0, len(set))
	for _, member := range set {
		if member != id {
			out = append(out, member)
		}
	}
	return out
}

// appendInt returns a new slice with id appended; the input is never
// modified, so shared snapshots stay consistent.
func appendInt(set []int, id int) []int {
	out := make([]int, 0, len(set)+1)
	out = append(out, set...)
	return append(out, id)
}

// toggleVote flips the user's membership in target with mutual exclusion
// against opposite: joining target always leaves opposite, and voting again
// withdraws the vote. Both returned slices are fresh.
func toggleVote(target, opposite []int, userID int) ([]int, []int) {
	if containsInt(target, userID) {
		return removeInt(target, userID), removeInt(opposite, userID)
	}
	return appendInt(target, userID), removeInt(opposite, userID)
}
