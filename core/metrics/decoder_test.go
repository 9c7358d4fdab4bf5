package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	metrics "github.com/kilianp07/loadshift/core/metrics"
	_ "github.com/kilianp07/loadshift/infra/metrics"
)

func TestConfigFromYAMLBuildsMultiSink(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: nop
prometheus_addr: ":9090"
`
	var cfg metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":9090", cfg.PrometheusAddr)

	s, err := metrics.NewSink(cfg.Sinks)
	require.NoError(t, err)
	require.IsType(t, &metrics.MultiSink{}, s)
	assert.NoError(t, s.RecordRun(metrics.RunEvent{Household: "h1", Tariff: "Night", Scheduled: 2}))
}

func TestConfigFromJSONUnknownSink(t *testing.T) {
	var cfg metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}]}`), &cfg))
	_, err := metrics.NewSink(cfg.Sinks)
	assert.Error(t, err)

	var untyped metrics.Config
	require.NoError(t, json.Unmarshal([]byte(`{"sinks":[{"conf":{"url":"http://influx"}}]}`), &untyped))
	assert.ErrorContains(t, untyped.Validate(), "type required")
}

func TestBuiltinSinksRegistered(t *testing.T) {
	assert.Subset(t, metrics.SinkTypes(), []string{"nop", "prometheus", "influx"})
}
