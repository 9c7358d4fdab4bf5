package metrics

import (
	"errors"

	"github.com/kilianp07/loadshift/core/events"
)

// MultiSink fans records out to several sinks. Every sink is tried; the
// errors are joined.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run to all sinks.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(ev))
	}
	return errors.Join(errs...)
}

// RecordStage forwards stage events to the sinks that record them.
func (m *MultiSink) RecordStage(ev events.StageEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StageRecorder); ok {
			errs = append(errs, r.RecordStage(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordOutcomes forwards outcomes to the sinks that record them.
func (m *MultiSink) RecordOutcomes(out []Outcome) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(OutcomeRecorder); ok {
			errs = append(errs, r.RecordOutcomes(out))
		}
	}
	return errors.Join(errs...)
}
