// Package preferences reads and writes the per-profile UI settings
package preferences

import (
	"context"
	"strconv"

	"github.com/edulytics/portal/models"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// Service persists preferences under the UI preference keys
type Service struct {
	store  repositories.ProfileStore
	logger *zap.Logger
}

// NewService creates a preferences service
func NewService(store repositories.ProfileStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Load returns the profile's preferences. Missing or unparsable values take
// their defaults.
func (s *Service) Load(ctx context.Context, profileID string) (models.Preferences, error) {
	prefs := models.DefaultPreferences()

	for _, key := range repositories.PreferenceKeys() {
		raw, ok, err := s.store.Get(ctx, profileID, key)
		if err != nil {
			return models.Preferences{}, services.WrapStorage(err)
		}
		if !ok {
			continue
		}
		switch key {
		case repositories.KeyDarkMode:
			prefs.DarkMode = s.parseBool(key, raw, prefs.DarkMode)
		case repositories.KeyTaskNotifications:
			prefs.TaskNotifications = s.parseBool(key, raw, prefs.TaskNotifications)
		case repositories.KeyTaskReminders:
			prefs.TaskReminders = s.parseBool(key, raw, prefs.TaskReminders)
		case repositories.KeyLanguage:
			if raw != "" {
				prefs.Language = raw
			}
		case repositories.KeyRegion:
			if raw != "" {
				prefs.Region = raw
			}
		}
	}
	return prefs, nil
}

func (s *Service) parseBool(key, raw string, fallback bool) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed preference", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return v
}

// Save validates and stores all five preferences in one write. Invalid input
// is reported as a *utils.ValidationError.
func (s *Service) Save(ctx context.Context, profileID string, prefs models.Preferences) error {
	if err := utils.ValidateStruct(prefs); err != nil {
		return err
	}

	values := map[string]string{
		repositories.KeyDarkMode:          strconv.FormatBool(prefs.DarkMode),
		repositories.KeyTaskNotifications: strconv.FormatBool(prefs.TaskNotifications),
		repositories.KeyTaskReminders:     strconv.FormatBool(prefs.TaskReminders),
		repositories.KeyLanguage:          prefs.Language,
		repositories.KeyRegion:            prefs.Region,
	}
	if err := s.store.SetMany(ctx, profileID, values); err != nil {
		return services.WrapStorage(err)
	}
	return nil
}
