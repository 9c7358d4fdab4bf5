package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/loadshift/core/events"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
)

// PromSink records load-shifting runs in Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	events     *prometheus.CounterVec
	efficiency *prometheus.GaugeVec
	savings    *prometheus.GaugeVec
	stages     *prometheus.HistogramVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadshift_runs_total",
			Help: "Household runs by tariff and outcome",
		}, []string{"tariff", "status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadshift_events_total",
			Help: "Scheduled events by appliance, status and shift type",
		}, []string{"appliance", "status", "shift_type"}),
		efficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loadshift_filter_efficiency_pct",
			Help: "Share of reschedulable events removed by the filters",
		}, []string{"household"}),
		savings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loadshift_savings",
			Help: "Cost saved by rescheduling, in tariff currency",
		}, []string{"household"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadshift_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, s.events); err != nil {
		return nil, err
	}
	if s.efficiency, err = register(reg, s.efficiency); err != nil {
		return nil, err
	}
	if s.savings, err = register(reg, s.savings); err != nil {
		return nil, err
	}
	if s.stages, err = register(reg, s.stages); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun counts the run and, when it succeeded, sets the household gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Tariff, ev.Status()).Inc()
	if ev.Err != nil {
		return nil
	}
	s.efficiency.WithLabelValues(ev.Household).Set(ev.EfficiencyPct)
	s.savings.WithLabelValues(ev.Household).Set(ev.Savings)
	return nil
}

// RecordStage observes the stage duration.
func (s *PromSink) RecordStage(ev events.StageEvent) error {
	s.stages.WithLabelValues(string(ev.Stage)).Observe(ev.Elapsed.Seconds())
	return nil
}

// RecordOutcomes counts events per appliance and outcome.
func (s *PromSink) RecordOutcomes(out []coremetrics.Outcome) error {
	for _, o := range out {
		s.events.WithLabelValues(o.Appliance, o.Status, o.ShiftType).Inc()
	}
	return nil
}
