package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules holds alert settings that operators may override at runtime via the
// rules file. Zero values fall back to the compiled defaults.
type Rules struct {
	// Threshold is the absolute alert bound (µg/m³).
	Threshold float64 `yaml:"threshold"`

	// SpikeFloor is the minimum jump above baseline before the spike
	// rule fires, guarding against flat-baseline false positives.
	SpikeFloor float64 `yaml:"spike_floor"`

	// Cooldown suppresses repeat alerts of the same kind for this
	// duration. Zero means re-alert every cycle.
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultRules returns the compiled-in alert settings.
func DefaultRules() Rules {
	return Rules{
		Threshold:  DefaultThreshold,
		SpikeFloor: SpikeFloor,
	}
}

// LoadRules parses a rules YAML file. Absent fields keep their defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}

	if rules.Threshold <= 0 {
		rules.Threshold = DefaultThreshold
	}
	if rules.SpikeFloor <= 0 {
		rules.SpikeFloor = SpikeFloor
	}
	return rules, nil
}
