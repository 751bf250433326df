package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"nodedeck/internal/models"

	"github.com/rs/zerolog"
)

const settingsFile = "settings.json"

var ErrInvalidSettings = errors.New("invalid settings")

// DefaultSettings are used when no settings have been saved.
func DefaultSettings() models.Settings {
	return models.Settings{
		DefaultPackageManager: "npm",
		Language:              "en",
		LogLines:              200,
	}
}

// SettingsStore keeps user preferences in <dir>/settings.json.
type SettingsStore struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

func NewSettingsStore(dir string, logger zerolog.Logger) *SettingsStore {
	return &SettingsStore{
		path:   filepath.Join(dir, settingsFile),
		logger: logger.With().Str("component", "settings_store").Logger(),
	}
}

func (s *SettingsStore) Load() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()
	used, err := readJSON(s.path, &settings)
	switch {
	case errors.Is(err, errNoData):
		return DefaultSettings()
	case err != nil:
		s.logger.Warn().Err(err).Msg("could not read settings, using defaults")
		return DefaultSettings()
	case used != s.path:
		s.logger.Warn().Str("backup", used).Msg("settings file unreadable, loaded backup copy")
	}
	return withDefaults(settings)
}

func (s *SettingsStore) Save(settings models.Settings) (models.Settings, error) {
	if err := ValidateSettings(settings); err != nil {
		return models.Settings{}, err
	}
	settings = withDefaults(settings)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.path, settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func ValidateSettings(settings models.Settings) error {
	switch settings.DefaultPackageManager {
	case "", "npm", "yarn", "pnpm":
	default:
		return fmt.Errorf("%w: unknown package manager %q", ErrInvalidSettings, settings.DefaultPackageManager)
	}
	if settings.LogLines < 0 {
		return fmt.Errorf("%w: logLines must not be negative", ErrInvalidSettings)
	}
	return nil
}

func withDefaults(settings models.Settings) models.Settings {
	def := DefaultSettings()
	if settings.DefaultPackageManager == "" {
		settings.DefaultPackageManager = def.DefaultPackageManager
	}
	if settings.Language == "" {
		settings.Language = def.Language
	}
	if settings.LogLines == 0 {
		settings.LogLines = def.LogLines
	}
	return settings
}
