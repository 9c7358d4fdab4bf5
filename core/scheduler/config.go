package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/loadshift/core/model"
)

// SchedulerConfig holds placement parameters loaded from configuration.
type SchedulerConfig struct {
	// ShiftRuleOverride forces one shift rule on every appliance when set.
	ShiftRuleOverride string `json:"shift_rule_override" yaml:"shift_rule_override"`
	// CheapFirst scans the cheapest-level zones before the rest of the
	// runnable window. Nil means true.
	CheapFirst *bool `json:"cheap_first,omitempty" yaml:"cheap_first,omitempty"`
}

// Validate checks the override names a known rule.
func (c SchedulerConfig) Validate() error {
	if c.ShiftRuleOverride == "" {
		return nil
	}
	if _, err := model.ParseShiftRule(c.ShiftRuleOverride); err != nil {
		return fmt.Errorf("shift_rule_override: %w", err)
	}
	return nil
}

func (c SchedulerConfig) cheapFirst() bool {
	return c.CheapFirst == nil || *c.CheapFirst
}

// LoadConfig loads SchedulerConfig from a JSON or YAML file.
func LoadConfig(path string) (SchedulerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SchedulerConfig{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg SchedulerConfig
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return SchedulerConfig{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// DecodeConfig reads from r to decode a SchedulerConfig.
func DecodeConfig(r io.Reader, format string) (SchedulerConfig, error) {
	var cfg SchedulerConfig
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, cfg.Validate()
}
