package popup

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/byteowlz/pagebridge/internal/module"
)

// Settings is the popup module's payload
type Settings struct {
	DefaultMode string   `yaml:"default_mode"`
	Modes       []string `yaml:"modes"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultMode: "Readability",
		Modes:       []string{"Readability", "Basic"},
	}
}

// LoadSettings reads settings from a file:// location or a path
func LoadSettings(location string) (Settings, error) {
	data, err := os.ReadFile(module.LocalPath(location))
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read popup settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse popup settings: %w", err)
	}
	if len(settings.Modes) == 0 {
		return Settings{}, fmt.Errorf("popup settings list no modes")
	}
	return settings, nil
}

// WriteDefaultSettings writes the default settings to path, creating its directory
func WriteDefaultSettings(path string) error {
	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating payload directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
