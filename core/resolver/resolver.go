// Package resolver repairs overlapping placements produced by the greedy
// scheduler. Runs of the same physical appliance on the same original day
// form a queue; later runs in the queue slide forward past everything
// already placed.
package resolver

import (
	"fmt"
	"sort"

	"github.com/kilianp07/loadshift/core/constraint"
	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/core/model"
)

// Stats reports what the resolver changed.
type Stats struct {
	Groups     int `json:"groups"`
	Collisions int `json:"collisions"`
	Relocated  int `json:"relocated"`
	Failed     int `json:"failed"`
}

// Resolver holds the constraints bounding where a run may be slid to.
type Resolver struct {
	Constraints model.ConstraintSet
	Log         logger.Logger
}

type groupKey struct {
	queue string
	day   string
}

// Resolve returns a copy of results in which no two successful runs of one
// queue overlap. Rows keep their input order. Runs only ever move later; a
// run with no room left is marked FAILED.
func (r Resolver) Resolve(results []model.ScheduleResult) ([]model.ScheduleResult, Stats, error) {
	log := logger.OrNop(r.Log)
	out := make([]model.ScheduleResult, len(results))
	copy(out, results)

	groups := make(map[groupKey][]int)
	var keys []groupKey
	for i, res := range out {
		if !res.Scheduled() {
			continue
		}
		k := groupKey{queue: res.Event.QueueKey(), day: res.Event.Day().Format("2006-01-02")}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].queue != keys[j].queue {
			return keys[i].queue < keys[j].queue
		}
		return keys[i].day < keys[j].day
	})

	stats := Stats{Groups: len(keys)}
	windows := make(map[string][]interval.Interval)
	for _, k := range keys {
		idx := groups[k]
		sort.SliceStable(idx, func(a, b int) bool {
			ea, eb := out[idx[a]].Event, out[idx[b]].Event
			if ea.EventID != eb.EventID {
				return NaturalLess(ea.EventID, eb.EventID)
			}
			return ea.RowID < eb.RowID
		})

		var used []interval.Interval
		for _, i := range idx {
			res := &out[i]
			slot := interval.Interval{Start: res.StartMinute, End: res.EndMinute}
			if !interval.AnyOverlap(slot, used) {
				used = append(used, slot)
				continue
			}
			stats.Collisions++

			runnable, ok := windows[res.Event.ApplianceName]
			if !ok {
				c, _ := r.Constraints.Resolve(res.Event.ApplianceName)
				var err error
				runnable, err = constraint.RunnableWindow(res.Event.ApplianceName, c)
				if err != nil {
					return nil, Stats{}, fmt.Errorf("event %s: %w", res.Event.EventID, err)
				}
				windows[res.Event.ApplianceName] = runnable
			}

			from := 0
			for _, u := range used {
				from = max(from, u.End)
			}
			start, ok := interval.FirstFit(runnable, from, slot.Len())
			if !ok {
				log.Infof("event %s on %s: no slot after %d", res.Event.EventID, k.queue, from)
				res.MarkFailed(model.ReasonNoSlotAfterFix)
				stats.Failed++
				continue
			}
			if err := res.MoveTo(start); err != nil {
				return nil, Stats{}, err
			}
			log.Debugf("event %s on %s moved %d -> %d", res.Event.EventID, k.queue, slot.Start, start)
			used = append(used, interval.Interval{Start: res.StartMinute, End: res.EndMinute})
			stats.Relocated++
		}
	}
	return out, stats, nil
}
