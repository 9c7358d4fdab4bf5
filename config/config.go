package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/core/scheduler"
	"github.com/kilianp07/loadshift/infra/mqtt"
	"github.com/kilianp07/loadshift/infra/store"
)

// EnvPrefix marks environment variables that override file settings.
// LS_FILTER__THRESHOLD_MINUTES=10 sets filter.threshold_minutes.
const EnvPrefix = "LS_"

type Config struct {
	Inputs    InputsConfig              `json:"inputs"`
	Filter    FilterConfig              `json:"filter"`
	Scheduler scheduler.SchedulerConfig `json:"scheduler"`
	Batch     BatchConfig               `json:"batch"`
	Metrics   metrics.Config            `json:"metrics"`
	Store     store.Config              `json:"store"`
	MQTT      mqtt.Config               `json:"mqtt"`
	Logging   LoggingConfig             `json:"logging"`
	Sentry    SentryConfig              `json:"sentry"`
}

// Load reads a YAML or JSON file, applies environment overrides, fills the
// defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	return fromKoanf(k)
}

// Default returns the configuration used when no file is given. Environment
// overrides still apply.
func Default() (*Config, error) {
	return fromKoanf(koanf.New("."))
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	prefix := strings.ToLower(EnvPrefix)
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), prefix)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.Filter.SetDefaults()
	c.Batch.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"inputs", c.Inputs.Validate()},
		{"filter", c.Filter.Validate()},
		{"scheduler", c.Scheduler.Validate()},
		{"batch", c.Batch.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"store", c.Store.Validate()},
		{"mqtt", c.MQTT.Validate()},
		{"logging", c.Logging.Validate()},
		{"sentry", c.Sentry.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.section, ch.err)
		}
	}
	return nil
}
