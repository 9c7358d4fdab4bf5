package scheduler

import (
	"errors"
	"fmt"

	"github.com/kilianp07/loadshift/core/constraint"
	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/core/tariff"
)

// Scheduler places reschedulable events. Constraints missing for an
// appliance fall back to model.DefaultConstraint.
type Scheduler struct {
	Config      SchedulerConfig
	Constraints model.ConstraintSet
	Tariff      tariff.Source
	Log         logger.Logger
}

// Counts summarises a schedule.
type Counts struct {
	Considered int `json:"considered"`
	Scheduled  int `json:"scheduled"`
	Failed     int `json:"failed"`
	Moved      int `json:"moved"`
}

// Count tallies the results of a run.
func Count(results []model.ScheduleResult) Counts {
	var c Counts
	for _, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			c.Considered++
			c.Scheduled++
			if r.ShiftType != model.ShiftNoChange {
				c.Moved++
			}
		case model.StatusFailed:
			c.Considered++
			c.Failed++
		}
	}
	return c
}

// Schedule returns one result per row of t, in row order. Rows that are not
// reschedulable carry an empty status. Only configuration problems return
// an error; an event that fits nowhere is a FAILED row.
func (s *Scheduler) Schedule(t model.Table) ([]model.ScheduleResult, error) {
	if s.Tariff == nil {
		return nil, errors.New("scheduler: no tariff")
	}
	log := logger.OrNop(s.Log)
	warned := make(map[string]bool)
	out := make([]model.ScheduleResult, 0, len(t))
	for _, e := range t {
		if !e.IsReschedulable {
			out = append(out, model.ScheduleResult{Event: e, PriceLevel: -1})
			continue
		}
		c, found := s.Constraints.Resolve(e.ApplianceName)
		if !found && !warned[e.ApplianceName] {
			warned[e.ApplianceName] = true
			log.Warnf("no constraint for %s, using defaults", e.ApplianceName)
		}
		r, err := s.Place(e, c)
		if err != nil {
			return nil, err
		}
		if r.Scheduled() {
			log.Debugw("event placed", map[string]any{
				"event_id": e.EventID,
				"start":    r.StartMinute,
				"level":    r.PriceLevel,
				"shift":    string(r.ShiftType),
			})
		} else {
			log.Debugf("event %s: %s", e.EventID, r.FailureReason)
		}
		out = append(out, r)
	}
	return out, nil
}

// Place schedules a single event under constraint c.
func (s *Scheduler) Place(e model.Event, c model.ApplianceConstraint) (model.ScheduleResult, error) {
	if s.Config.ShiftRuleOverride != "" {
		rule, err := model.ParseShiftRule(s.Config.ShiftRuleOverride)
		if err != nil {
			return model.ScheduleResult{}, err
		}
		c.ShiftRule = rule
	}
	runnable, err := constraint.RunnableWindow(e.ApplianceName, c)
	if err != nil {
		return model.ScheduleResult{}, fmt.Errorf("event %s: %w", e.EventID, err)
	}
	info, err := s.Tariff.PriceInfo(e.StartTime.Month())
	if err != nil {
		return model.ScheduleResult{}, fmt.Errorf("event %s: %w", e.EventID, err)
	}

	var zones [][]interval.Interval
	if s.Config.cheapFirst() {
		best := interval.Intersect(runnable, info.CheapWindows(c.LatestFinish))
		zones = append(zones, best, interval.Subtract(runnable, best))
	} else {
		zones = append(zones, runnable)
	}

	orig := e.StartMinute()
	from := 0
	if c.ShiftRule == model.OnlyDelay {
		from = orig
	}
	for _, z := range zones {
		start, ok := interval.FirstFit(z, from, e.DurationMinutes)
		if !ok {
			continue
		}
		return model.ScheduleResult{
			Event:       e,
			Status:      model.StatusSuccess,
			StartMinute: start,
			EndMinute:   start + e.DurationMinutes,
			PriceLevel:  info.LevelAt(start),
			Rate:        info.RateAt(start),
			ShiftType:   model.ShiftTypeOf(orig, start),
		}, nil
	}
	return model.ScheduleResult{
		Event:         e,
		Status:        model.StatusFailed,
		PriceLevel:    -1,
		FailureReason: model.ReasonNoFeasibleSlot,
	}, nil
}
