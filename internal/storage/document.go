package storage

import (
	"encoding/json"
	"fmt"

	"yumetv/internal/models"
)

// Document is the single persisted aggregate: every collection the site
// serves lives in this one JSON object on the remote store. The Synchronizer
// owns the in-memory copy; everything else sees read-only snapshots and
// expresses changes as transforms applied through it.
type Document struct {
	Users        []models.User        `json:"users"`
	PendingUsers []models.PendingUser `json:"pendingUsers"`
	Media        []models.Media       `json:"media"`
	Posts        []models.ForumPost   `json:"posts"`
	Settings     models.Settings      `json:"settings"`
}

// NewDocument returns the well-defined empty document substituted when the
// remote store is unreachable or holds nothing.
func NewDocument() Document {
	doc := Document{Settings: models.DefaultSettings()}
	doc.ensureInitialized()
	return doc
}

func (d *Document) ensureInitialized() {
	if d.Users == nil {
		d.Users = []models.User{}
	}
	if d.PendingUsers == nil {
		d.PendingUsers = []models.PendingUser{}
	}
	if d.Media == nil {
		d.Media = []models.Media{}
	}
	if d.Posts == nil {
		d.Posts = []models.ForumPost{}
	}
}

// Empty reports whether the document carries no content worth persisting.
// The initial pre-load state is empty by this definition, which is what keeps
// a slow startup from clobbering remote data with a blank shell.
func (d Document) Empty() bool {
	return len(d.Users) == 0 && len(d.PendingUsers) == 0 && len(d.Media) == 0 && len(d.Posts) == 0
}

// wireDocument defers settings decoding so stored values can be merged
// field-by-field over the defaults.
type wireDocument struct {
	Users        []models.User        `json:"users"`
	PendingUsers []models.PendingUser `json:"pendingUsers"`
	Media        []models.Media       `json:"media"`
	Posts        []models.ForumPost   `json:"posts"`
	Settings     json.RawMessage      `json:"settings"`
}

// partialSettings mirrors models.Settings with optional fields so absent keys
// can be told apart from zero values during the merge.
type partialSettings struct {
	MaintenanceMode *struct {
		Enabled *bool   `json:"enabled"`
		Message *string `json:"message"`
	} `json:"maintenanceMode"`
	Player *struct {
		AutoPlay *bool `json:"autoPlay"`
		AutoNext *bool `json:"autoNext"`
	} `json:"player"`
	SiteName *string `json:"siteName"`
}

// DecodeDocument parses a raw remote document: timestamps are revived from
// their ISO-8601 string form first, then stored settings are merged over the
// defaults so newly introduced fields always carry a value.
func DecodeDocument(raw []byte) (Document, error) {
	revived, err := reviveTimestamps(raw)
	if err != nil {
		return Document{}, fmt.Errorf("revive document timestamps: %w", err)
	}
	var wire wireDocument
	if err := json.Unmarshal(revived, &wire); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	doc := Document{
		Users:        wire.Users,
		PendingUsers: wire.PendingUsers,
		Media:        wire.Media,
		Posts:        wire.Posts,
		Settings:     mergeSettings(wire.Settings),
	}
	doc.ensureInitialized()
	return doc, nil
}

// mergeSettings overlays stored settings onto the defaults. Loaded values win
// when present; unknown or missing fields fall back to the default so the
// schema can evolve without migrations.
func mergeSettings(raw json.RawMessage) models.Settings {
	merged := models.DefaultSettings()
	if len(raw) == 0 || string(raw) == "null" {
		return merged
	}
	var loaded partialSettings
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return merged
	}
	if loaded.SiteName != nil {
		merged.SiteName = *loaded.SiteName
	}
	if loaded.MaintenanceMode != nil {
		if loaded.MaintenanceMode.Enabled != nil {
			merged.MaintenanceMode.Enabled = *loaded.MaintenanceMode.Enabled
		}
		if loaded.MaintenanceMode.Message != nil {
			merged.MaintenanceMode.Message = *loaded.MaintenanceMode.Message
		}
	}
	if loaded.Player != nil {
		if loaded.Player.AutoPlay != nil {
			merged.Player.AutoPlay = *loaded.Player.AutoPlay
		}
		if loaded.Player.AutoNext != nil {
			merged.Player.AutoNext = *loaded.Player.AutoNext
		}
	}
	return merged
}
