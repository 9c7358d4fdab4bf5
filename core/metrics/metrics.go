package metrics

import (
	"time"

	"github.com/kilianp07/loadshift/core/events"
)

// RunEvent summarises one household run.
type RunEvent struct {
	RunID         string
	Household     string
	Tariff        string
	TotalEvents   int
	Reschedulable int
	FilteredOut   int
	EfficiencyPct float64
	Scheduled     int
	Failed        int
	Relocated     int
	OriginalCost  float64
	ScheduledCost float64
	Savings       float64
	Elapsed       time.Duration
	Err           error
	Time          time.Time
}

// Status is "error" for a run that stopped early and "ok" otherwise.
func (e RunEvent) Status() string {
	if e.Err != nil {
		return "error"
	}
	return "ok"
}

// Sink records household runs.
type Sink interface {
	RecordRun(ev RunEvent) error
}

// StageRecorder records pipeline stage timings.
type StageRecorder interface {
	RecordStage(ev events.StageEvent) error
}

// Outcome is the scheduling outcome of one event.
type Outcome struct {
	Household  string
	Appliance  string
	Status     string
	ShiftType  string
	PriceLevel int
	ShiftedBy  time.Duration
}

// OutcomeRecorder records per-event scheduling outcomes.
type OutcomeRecorder interface {
	RecordOutcomes(out []Outcome) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error            { return nil }
func (NopSink) RecordStage(events.StageEvent) error { return nil }
func (NopSink) RecordOutcomes([]Outcome) error      { return nil }
