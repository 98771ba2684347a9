package storage

import (
	"strings"

	"yumetv/internal/models"
)

// PlayerSettingsUpdate applies a partial change to the player defaults; nil
// fields are left as they are.
type PlayerSettingsUpdate struct {
	AutoPlay *bool
	AutoNext *bool
}

// SetMaintenanceMode replaces the maintenance flag and message wholesale.
func (s *Store) SetMaintenanceMode(mode models.MaintenanceMode) (models.Settings, error) {
	return s.mutateSettings(func(settings models.Settings) models.Settings {
		settings.MaintenanceMode = mode
		return settings
	})
}

// UpdatePlayerSettings merges the provided fields into the player defaults.
func (s *Store) UpdatePlayerSettings(update PlayerSettingsUpdate) (models.Settings, error) {
	return s.mutateSettings(func(settings models.Settings) models.Settings {
		if update.AutoPlay != nil {
			settings.Player.AutoPlay = *update.AutoPlay
		}
		if update.AutoNext != nil {
			settings.Player.AutoNext = *update.AutoNext
		}
		return settings
	})
}

// SetSiteName renames the site; blank names are rejected.
func (s *Store) SetSiteName(name string) (models.Settings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Settings{}, ErrNoChanges
	}
	return s.mutateSettings(func(settings models.Settings) models.Settings {
		settings.SiteName = name
		return settings
	})
}

func (s *Store) mutateSettings(fn func(models.Settings) models.Settings) (models.Settings, error) {
	var updated models.Settings
	err := s.sync.Update(func(doc Document) (Document, error) {
		next := doc
		next.Settings = fn(doc.Settings)
		updated = next.Settings
		return next, nil
	})
	if err != nil {
		return models.Settings{}, err
	}
	return updated, nil
}
