// Package filter decides which events are worth rescheduling. Stages only
// ever clear the IsReschedulable flag; they never drop, add or reorder rows.
package filter

import (
	"fmt"

	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/core/tariff"
)

// DefaultThreshold is the number of minutes above the cheapest level a run
// needs before moving it is worthwhile.
const DefaultThreshold = 5

// SelectReschedulable returns the rows currently flagged reschedulable. The
// full table is left untouched.
func SelectReschedulable(t model.Table) model.Table {
	return t.Reschedulable()
}

// MinDurationFilter clears the flag on runs shorter than the appliance's
// minimum duration. A run exactly as long as the minimum survives.
type MinDurationFilter struct {
	Constraints model.ConstraintSet
	// Default applies to appliances no constraint names. Zero means
	// model.DefaultMinDuration.
	Default int
	Log     logger.Logger
}

// Apply never fails; unknown appliances use the default minimum.
func (f MinDurationFilter) Apply(t model.Table) (model.Table, Stats) {
	log := logger.OrNop(f.Log)
	def := f.Default
	if def <= 0 {
		def = model.DefaultMinDuration
	}
	out := t.Clone()
	defaulted := make(map[string]bool)
	for i := range out {
		e := &out[i]
		if !e.IsReschedulable {
			continue
		}
		minDur, ok := def, false
		if c, found := f.Constraints.Lookup(e.ApplianceName); found {
			minDur, ok = c.MinDuration, true
		}
		if !ok && !defaulted[e.ApplianceName] {
			defaulted[e.ApplianceName] = true
			log.Debugf("no constraint for %s, min duration %d", e.ApplianceName, def)
		}
		if e.DurationMinutes < minDur {
			e.IsReschedulable = false
		}
	}
	return out, NewStats("min_duration", t, out)
}

// Annotation records how the TOU stage judged one row.
type Annotation struct {
	RowID        model.RowID `json:"row_id"`
	EventID      string      `json:"event_id"`
	Profile      map[int]int `json:"profile"`
	StartLevel   int         `json:"start_level"`
	EndLevel     int         `json:"end_level"`
	PrimaryLevel int         `json:"primary_level"`
	Potential    float64     `json:"optimization_potential"`
	Fallback     bool        `json:"fallback"`
	Kept         bool        `json:"kept"`
}

// TOUFilter clears the flag on runs whose price profile does not justify a
// move. Policy defaults to LevelPolicy and a non-positive Threshold to
// DefaultThreshold.
type TOUFilter struct {
	Tariff    tariff.Source
	Policy    Policy
	Threshold int
	Log       logger.Logger
}

// Apply profiles every still-reschedulable row with the price bands of its
// month. A tariff that cannot serve a month aborts the stage with its
// ConfigError.
func (f TOUFilter) Apply(t model.Table) (model.Table, Stats, []Annotation, error) {
	if f.Tariff == nil {
		return nil, Stats{}, nil, fmt.Errorf("tou filter: no tariff")
	}
	log := logger.OrNop(f.Log)
	policy := f.Policy
	if policy == nil {
		policy = LevelPolicy{}
	}
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	out := t.Clone()
	var notes []Annotation
	for i := range out {
		e := &out[i]
		if !e.IsReschedulable {
			continue
		}
		info, err := f.Tariff.PriceInfo(e.StartTime.Month())
		if err != nil {
			return nil, Stats{}, nil, fmt.Errorf("event %s: %w", e.EventID, err)
		}
		start := e.StartMinute()
		end := start + e.DurationMinutes
		profile, fallback := info.Profile(start, end)
		if fallback {
			log.Warnf("event %s: tariff bands leave %d-%d uncovered, using level at start", e.EventID, start, end)
		}
		keep := policy.Keep(profile, info, threshold)
		primary := tariff.PrimaryLevel(profile)
		notes = append(notes, Annotation{
			RowID:        e.RowID,
			EventID:      e.EventID,
			Profile:      profile,
			StartLevel:   info.LevelAt(start),
			EndLevel:     info.LevelAt(end - 1),
			PrimaryLevel: primary,
			Potential:    tariff.OptimizationPotential(primary, info.MaxLevel()),
			Fallback:     fallback,
			Kept:         keep,
		})
		if !keep {
			e.IsReschedulable = false
		}
	}
	return out, NewStats("tou", t, out), notes, nil
}

// Result is the outcome of a full pipeline run.
type Result struct {
	Table       model.Table
	Duration    Stats
	TOU         Stats
	Overall     Stats
	Annotations []Annotation
}

// Pipeline runs the duration stage followed by the TOU stage.
type Pipeline struct {
	Duration MinDurationFilter
	TOU      TOUFilter
}

// Run filters t. The returned table has the same rows in the same order.
func (p Pipeline) Run(t model.Table) (Result, error) {
	afterDur, durStats := p.Duration.Apply(t)
	final, touStats, notes, err := p.TOU.Apply(afterDur)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Table:       final,
		Duration:    durStats,
		TOU:         touStats,
		Overall:     NewStats("pipeline", t, final),
		Annotations: notes,
	}, nil
}
