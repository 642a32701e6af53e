package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRules(t, "threshold: 75\nspike_floor: 15\ncooldown: 30m\n")

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if rules.Threshold != 75 {
		t.Errorf("Expected threshold 75, got %v", rules.Threshold)
	}
	if rules.SpikeFloor != 15 {
		t.Errorf("Expected spike floor 15, got %v", rules.SpikeFloor)
	}
	if rules.Cooldown != 30*time.Minute {
		t.Errorf("Expected 30m cooldown, got %v", rules.Cooldown)
	}
}

func TestLoadRules_AbsentFieldsKeepDefaults(t *testing.T) {
	path := writeRules(t, "threshold: 120\n")

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if rules.Threshold != 120 {
		t.Errorf("Expected threshold 120, got %v", rules.Threshold)
	}
	if rules.SpikeFloor != SpikeFloor {
		t.Errorf("Expected default spike floor, got %v", rules.SpikeFloor)
	}
	if rules.Cooldown != 0 {
		t.Errorf("Expected zero cooldown by default, got %v", rules.Cooldown)
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
	// Returned rules still carry usable defaults.
	if rules.Threshold != DefaultThreshold {
		t.Errorf("Expected default threshold on error, got %v", rules.Threshold)
	}
}

func TestLoadRules_InvalidYAML(t *testing.T) {
	path := writeRules(t, "threshold: [not a number\n")
	if _, err := LoadRules(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
