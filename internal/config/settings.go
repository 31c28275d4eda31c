package config

import (
	"os"
	"path/filepath"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

// LoadSettings loads the global settings from ~/.agentfleet/settings.yaml.
// If the file doesn't exist, returns default settings.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	settings.ApplyDefaults()
	return settings, nil
}

// ProjectsRoot resolves the configured projects root, defaulting to
// ~/projects when unset.
func ProjectsRoot(settings *models.Settings) (string, error) {
	if settings != nil && settings.ProjectsRoot != "" {
		return settings.ProjectsRoot, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "projects"), nil
}

// SaveSettings saves the global settings to ~/.agentfleet/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}
