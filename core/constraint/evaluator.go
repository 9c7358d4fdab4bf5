// Package constraint turns appliance constraint records into runnable
// windows on the minute axis and loads them from configuration files.
package constraint

import (
	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/model"
)

// ExpandForbidden repeats each forbidden interval once per day up to the
// horizon so a nightly window recurs after midnight. Copies are clipped to
// latestFinish.
func ExpandForbidden(forbidden []interval.Interval, latestFinish int) []interval.Interval {
	return interval.Repeat(forbidden, latestFinish)
}

// RunnableWindow returns [0, LatestFinish) minus every expanded forbidden
// interval. It fails with a ConfigError for malformed constraints.
func RunnableWindow(name string, c model.ApplianceConstraint) ([]interval.Interval, error) {
	if err := c.Validate(name); err != nil {
		return nil, err
	}
	total := []interval.Interval{{Start: 0, End: c.LatestFinish}}
	return interval.Subtract(total, ExpandForbidden(c.Forbidden, c.LatestFinish)), nil
}

// Fits reports whether [start, start+d) lies entirely inside the runnable
// window of c.
func Fits(runnable []interval.Interval, start, d int) bool {
	slot := interval.Interval{Start: start, End: start + d}
	for _, r := range runnable {
		if r.Start <= slot.Start && slot.End <= r.End {
			return true
		}
	}
	return false
}
