package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettingsFile(t *testing.T, content string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	path, err := GlobalSettingsFile()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSettingsBackfillsDefaults(t *testing.T) {
	// A hand-written file with no defaults block must not load with
	// zero ack/idle limits.
	writeSettingsFile(t, `version: 1
agents:
  lead:
    channel: ops
`)

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if settings.Defaults.AckMaxChars != 300 {
		t.Errorf("AckMaxChars = %d, want 300", settings.Defaults.AckMaxChars)
	}
	if settings.Defaults.IdleMinutes != 360 {
		t.Errorf("IdleMinutes = %d, want 360", settings.Defaults.IdleMinutes)
	}
	if settings.CLIs == nil {
		t.Error("CLIs map not initialized")
	}
	if settings.Agents["lead"] == nil || settings.Agents["lead"].Channel != "ops" {
		t.Errorf("authored agent config lost: %+v", settings.Agents)
	}
}

func TestLoadSettingsKeepsExplicitDefaults(t *testing.T) {
	writeSettingsFile(t, `version: 1
defaults:
  idle_minutes: 60
  ack_max_chars: 50
`)

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if settings.Defaults.AckMaxChars != 50 {
		t.Errorf("AckMaxChars = %d, want 50", settings.Defaults.AckMaxChars)
	}
	if settings.Defaults.IdleMinutes != 60 {
		t.Errorf("IdleMinutes = %d, want 60", settings.Defaults.IdleMinutes)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if settings.Defaults.AckMaxChars != 300 || settings.Defaults.IdleMinutes != 360 {
		t.Errorf("defaults = %+v, want generated values", settings.Defaults)
	}
}
