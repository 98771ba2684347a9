package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"yumetv/internal/models"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *memStore) {
	t.Helper()
	backing := &memStore{}
	synchronizer := NewSynchronizer(backing, WithDebounce(time.Hour))
	if err := synchronizer.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	tokens := 0
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	defaults := []StoreOption{
		WithClock(func() time.Time { return base }),
		WithTokenFactory(func() string {
			tokens++
			return fmt.Sprintf("token-%d", tokens)
		}),
	}
	store := NewStore(synchronizer, append(defaults, opts...)...)
	return store, backing
}

func register(t *testing.T, store *Store, username, email string) models.PendingUser {
	t.Helper()
	pending, err := store.Register(RegisterParams{
		Username: username,
		Email:    email,
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return pending
}

func registerAndVerify(t *testing.T, store *Store, username, email string) models.User {
	t.Helper()
	pending := register(t, store, username, email)
	user, err := store.VerifyEmail(pending.VerificationToken)
	if err != nil {
		t.Fatalf("verify %s: %v", username, err)
	}
	return user
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Register(RegisterParams{Username: "aya", Email: "aya@example.com", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterEnforcesCaseInsensitiveUniqueness(t *testing.T) {
	store, _ := newTestStore(t)
	registerAndVerify(t, store, "Aya", "aya@example.com")

	if _, err := store.Register(RegisterParams{Username: "aYA", Email: "other@example.com", Password: "correct horse"}); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
	if _, err := store.Register(RegisterParams{Username: "other", Email: "AYA@Example.com", Password: "correct horse"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	// Pending signups reserve their names too.
	register(t, store, "ren", "ren@example.com")
	if _, err := store.Register(RegisterParams{Username: "REN", Email: "ren2@example.com", Password: "correct horse"}); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("pending username should be reserved, got %v", err)
	}
}

func TestVerifyEmailPromotesPendingUser(t *testing.T) {
	store, _ := newTestStore(t)
	pending := register(t, store, "aya", "aya@example.com")

	user, err := store.VerifyEmail(pending.VerificationToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("first user id = %d, want 1", user.ID)
	}
	if user.Role != models.RoleAdmin {
		t.Fatal("first verified user should become admin")
	}
	if len(store.Document().PendingUsers) != 0 {
		t.Fatal("pending record should be consumed")
	}

	// Second account stays a regular user.
	second := registerAndVerify(t, store, "ren", "ren@example.com")
	if second.Role != models.RoleUser {
		t.Fatalf("second user role = %s, want user", second.Role)
	}
	if second.ID != 2 {
		t.Fatalf("second user id = %d, want 2", second.ID)
	}
}

func TestVerifyEmailRejectsBadTokens(t *testing.T) {
	store, _ := newTestStore(t)
	register(t, store, "aya", "aya@example.com")

	if _, err := store.VerifyEmail("bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	expired, _ := newTestStore(t, WithClock(func() time.Time {
		return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	}))
	pending, err := expired.Register(RegisterParams{Username: "ren", Email: "ren@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	// Backdate the stored expiry so the token is already stale.
	doc := expired.Document()
	doc.PendingUsers[0].TokenExpires = time.Date(2029, time.December, 1, 0, 0, 0, 0, time.UTC)
	if err := expired.sync.Update(func(d Document) (Document, error) { return doc, nil }); err != nil {
		t.Fatalf("seed expiry: %v", err)
	}
	if _, err := expired.VerifyEmail(pending.VerificationToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestResendVerificationRotatesToken(t *testing.T) {
	store, _ := newTestStore(t)
	pending := register(t, store, "aya", "aya@example.com")

	rotated, err := store.ResendVerification("aya@example.com")
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if rotated.VerificationToken == pending.VerificationToken {
		t.Fatal("token should be regenerated")
	}
	if _, err := store.VerifyEmail(pending.VerificationToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("old token must stop working")
	}
	if _, err := store.VerifyEmail(rotated.VerificationToken); err != nil {
		t.Fatalf("new token should verify: %v", err)
	}

	if _, err := store.ResendVerification("unknown@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	store, _ := newTestStore(t)
	registerAndVerify(t, store, "aya", "aya@example.com")

	user, err := store.Authenticate("aya", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "aya" {
		t.Fatalf("wrong user returned: %+v", user)
	}

	if _, err := store.Authenticate("aya", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.Authenticate("aya", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty password must never match, got %v", err)
	}
	if _, err := store.Authenticate("nobody", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	register(t, store, "ren", "ren@example.com")
	if _, err := store.Authenticate("ren", "correct horse"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("pending account should report ErrEmailNotVerified, got %v", err)
	}
}

func TestAuthenticateAdminOverride(t *testing.T) {
	store, _ := newTestStore(t, WithAdminOverride(AdminOverride{Username: "root", Password: "override-secret"}))

	user, err := store.Authenticate("root", "override-secret")
	if err != nil {
		t.Fatalf("override login: %v", err)
	}
	if user.Role != models.RoleAdmin || user.ID != 0 {
		t.Fatalf("override should yield synthetic admin, got %+v", user)
	}

	if _, err := store.Authenticate("root", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	store, _ := newTestStore(t)
	aya := registerAndVerify(t, store, "aya", "aya@example.com")
	registerAndVerify(t, store, "ren", "ren@example.com")

	newName := "ayaya"
	updated, err := store.UpdateUserProfile(aya.ID, ProfileUpdate{Username: &newName})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Username != "ayaya" {
		t.Fatalf("username not updated: %q", updated.Username)
	}

	taken := "REN"
	if _, err := store.UpdateUserProfile(aya.ID, ProfileUpdate{Username: &taken}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	weak := "short"
	if _, err := store.UpdateUserProfile(aya.ID, ProfileUpdate{Password: &weak}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := store.UpdateUserProfile(aya.ID, ProfileUpdate{}); !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	store, _ := newTestStore(t)
	registerAndVerify(t, store, "aya", "aya@example.com")
	ren := registerAndVerify(t, store, "ren", "ren@example.com")

	updated, err := store.UpdateUserRole(ren.ID, models.RoleMod)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != models.RoleMod {
		t.Fatalf("role = %s, want moderator", updated.Role)
	}
	if _, err := store.UpdateUserRole(ren.ID, models.Role("overlord")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := store.UpdateUserRole(99, models.RoleUser); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTrackProgress(t *testing.T) {
	store, _ := newTestStore(t)
	user := registerAndVerify(t, store, "aya", "aya@example.com")

	season, episode := 1, 2
	updated, err := store.TrackProgress(user.ID, WatchedUpdate{
		MediaID:       7,
		Progress:      120,
		Duration:      1400,
		SeasonNumber:  &season,
		EpisodeNumber: &episode,
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if len(updated.RecentlyWatched) != 1 {
		t.Fatalf("expected one watched item, got %d", len(updated.RecentlyWatched))
	}

	// Same episode again replaces in place rather than duplicating.
	updated, err = store.TrackProgress(user.ID, WatchedUpdate{
		MediaID:       7,
		Progress:      900,
		Duration:      1400,
		SeasonNumber:  &season,
		EpisodeNumber: &episode,
	})
	if err != nil {
		t.Fatalf("track again: %v", err)
	}
	if len(updated.RecentlyWatched) != 1 {
		t.Fatalf("same episode should replace, got %d items", len(updated.RecentlyWatched))
	}
	if updated.RecentlyWatched[0].Progress != 900 {
		t.Fatalf("progress not updated: %v", updated.RecentlyWatched[0].Progress)
	}

	// A different episode of the same media is a distinct entry, newest first.
	other := 3
	updated, err = store.TrackProgress(user.ID, WatchedUpdate{
		MediaID:       7,
		Progress:      10,
		Duration:      1400,
		SeasonNumber:  &season,
		EpisodeNumber: &other,
	})
	if err != nil {
		t.Fatalf("track other episode: %v", err)
	}
	if len(updated.RecentlyWatched) != 2 {
		t.Fatalf("expected two items, got %d", len(updated.RecentlyWatched))
	}
	if updated.RecentlyWatched[0].EpisodeNumber == nil || *updated.RecentlyWatched[0].EpisodeNumber != 3 {
		t.Fatal("newest entry should be first")
	}

	if _, err := store.TrackProgress(user.ID, WatchedUpdate{MediaID: 7, Progress: 5, Duration: 0}); !errors.Is(err, ErrNoChanges) {
		t.Fatalf("zero duration should be ignored, got %v", err)
	}
}

func TestTrackProgressCapsHistory(t *testing.T) {
	store, _ := newTestStore(t)
	user := registerAndVerify(t, store, "aya", "aya@example.com")

	for i := 1; i <= models.RecentlyWatchedLimit+5; i++ {
		if _, err := store.TrackProgress(user.ID, WatchedUpdate{MediaID: i, Progress: 1, Duration: 100}); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
	}
	refreshed, _ := store.GetUser(user.ID)
	if len(refreshed.RecentlyWatched) != models.RecentlyWatchedLimit {
		t.Fatalf("history length = %d, want %d", len(refreshed.RecentlyWatched), models.RecentlyWatchedLimit)
	}
	if refreshed.RecentlyWatched[0].MediaID != models.RecentlyWatchedLimit+5 {
		t.Fatal("newest item should be first after truncation")
	}
}

func TestDeleteUser(t *testing.T) {
	store, _ := newTestStore(t)
	registerAndVerify(t, store, "aya", "aya@example.com")
	ren := registerAndVerify(t, store, "ren", "ren@example.com")

	if err := store.DeleteUser(ren.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, exists := store.GetUser(ren.ID); exists {
		t.Fatal("deleted user still present")
	}
	if err := store.DeleteUser(ren.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
