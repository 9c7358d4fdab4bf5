package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `inputs:
  constraints: "constraints.yaml"
  tariffs: "tariffs.yaml"
  tariff: "Economy_7"
filter:
  threshold_minutes: 10
  policy: "weighted"
scheduler:
  shift_rule_override: "free"
  cheap_first: false
batch:
  max_parallel: 4
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9100"
store:
  backend: "sqlite"
  path: "runs.db"
mqtt:
  broker: "tcp://localhost:1883"
  ack_topic: "loadshift/+/ack"
  qos:
    command: 1
logging:
  level: "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"inputs.tariff", cfg.Inputs.Tariff, "Economy_7"},
		{"inputs.constraints", cfg.Inputs.Constraints, "constraints.yaml"},
		{"filter.threshold_minutes", cfg.Filter.ThresholdMinutes, 10},
		{"filter.default_min_duration", cfg.Filter.DefaultMinDuration, 5},
		{"filter.policy", cfg.Filter.PolicyImpl().Name(), "weighted"},
		{"filter.weighted_factor", cfg.Filter.WeightedFactor, 0.1},
		{"scheduler.shift_rule_override", cfg.Scheduler.ShiftRuleOverride, "free"},
		{"scheduler.cheap_first", cfg.Scheduler.CheapFirst != nil && !*cfg.Scheduler.CheapFirst, true},
		{"batch.max_parallel", cfg.Batch.MaxParallel, 4},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"store.backend", cfg.Store.Backend, "sqlite"},
		{"mqtt.topic_prefix", cfg.MQTT.TopicPrefix, "loadshift"},
		{"mqtt.qos.command", cfg.MQTT.QoS["command"], byte(1)},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"filter":{"threshold_minutes":10},"inputs":{"tariffs":"t.yaml","tariff":"Economy_7"}}`)
	t.Setenv("LS_FILTER__THRESHOLD_MINUTES", "20")
	t.Setenv("LS_INPUTS__TARIFF", "TOU_D")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Filter.ThresholdMinutes)
	assert.Equal(t, "TOU_D", cfg.Inputs.Tariff)
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Filter.ThresholdMinutes)
	assert.Equal(t, "level", cfg.Filter.Policy)
	assert.Equal(t, runtime.NumCPU(), cfg.Batch.MaxParallel)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.MQTT.Enabled())
	assert.Empty(t, cfg.MQTT.TopicPrefix)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"policy":    "filter:\n  policy: fancy\n",
		"threshold": "filter:\n  threshold_minutes: -1\n",
		"override":  "scheduler:\n  shift_rule_override: sideways\n",
		"store":     "store:\n  backend: postgres\n  path: x\n",
		"tariff":    "inputs:\n  tariffs: tariffs.yaml\n",
		"logging":   "logging:\n  level: loud\n",
		"sink":      "metrics:\n  sinks:\n    - conf: {}\n",
		"batch":     "batch:\n  max_parallel: -2\n",
		"auth":      "inputs:\n  auth:\n    auth_url: https://idp/token\n",
		"sentry":    "sentry:\n  traces_sample_rate: 2\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
