package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/loadshift/core/interval"
)

// ShiftRule restricts the direction an event may move.
type ShiftRule string

const (
	// OnlyDelay forbids scheduling an event earlier than its original start.
	OnlyDelay ShiftRule = "only_delay"
	// Free allows moving the event anywhere in its runnable window.
	Free ShiftRule = "free"
)

// ParseShiftRule maps the configuration value; empty means only_delay.
func ParseShiftRule(s string) (ShiftRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OnlyDelay):
		return OnlyDelay, nil
	case string(Free), "both":
		return Free, nil
	default:
		return "", fmt.Errorf("unknown shift rule %q", s)
	}
}

// DefaultMinDuration is used when no constraint names an appliance.
const DefaultMinDuration = 5

// ApplianceConstraint holds the user rules for one appliance type.
type ApplianceConstraint struct {
	// Forbidden lists minute intervals during which the appliance must not
	// run. They are not assumed merged and may extend past 1440.
	Forbidden []interval.Interval `json:"forbidden_intervals"`
	// LatestFinish is the absolute minute, possibly past 1440, by which a
	// rescheduled event must have finished.
	LatestFinish int       `json:"latest_finish_minutes"`
	ShiftRule    ShiftRule `json:"shift_rule"`
	MinDuration  int       `json:"min_duration_minutes"`
}

// Validate rejects a non-positive latest finish and inverted or empty
// forbidden intervals.
func (c ApplianceConstraint) Validate(name string) error {
	if c.LatestFinish <= 0 {
		return NewConfigError(name, "latest_finish must be positive, got %d", c.LatestFinish)
	}
	for _, f := range c.Forbidden {
		if f.Start >= f.End {
			return NewConfigError(name, "forbidden interval %s has start >= end", f)
		}
		if f.Start < 0 {
			return NewConfigError(name, "forbidden interval %s starts before midnight", f)
		}
	}
	switch c.ShiftRule {
	case OnlyDelay, Free:
	default:
		return NewConfigError(name, "unknown shift rule %q", c.ShiftRule)
	}
	if c.MinDuration < 0 {
		return NewConfigError(name, "min_duration must not be negative")
	}
	return nil
}

// DefaultConstraint is the rule applied to appliances the user never
// mentioned: no runs 00:00-06:30 or 23:00-24:00, finish the same day, delay
// only, ignore runs under five minutes.
func DefaultConstraint() ApplianceConstraint {
	return ApplianceConstraint{
		Forbidden:    []interval.Interval{{Start: 0, End: 390}, {Start: 1380, End: 1440}},
		LatestFinish: interval.MinutesPerDay,
		ShiftRule:    OnlyDelay,
		MinDuration:  DefaultMinDuration,
	}
}

// ConstraintSet maps appliance type names to their constraint.
type ConstraintSet map[string]ApplianceConstraint

// Validate checks every constraint in the set.
func (s ConstraintSet) Validate() error {
	for _, name := range s.Names() {
		if err := s[name].Validate(name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the appliance names in sorted order.
func (s ConstraintSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup finds the constraint for an appliance: exact name first, then a
// case-insensitive substring match in either direction. Fuzzy candidates are
// tried in sorted name order so the result is deterministic.
func (s ConstraintSet) Lookup(name string) (ApplianceConstraint, bool) {
	if c, ok := s[name]; ok {
		return c, true
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return ApplianceConstraint{}, false
	}
	for _, n := range s.Names() {
		ln := strings.ToLower(n)
		if strings.Contains(lower, ln) || strings.Contains(ln, lower) {
			return s[n], true
		}
	}
	return ApplianceConstraint{}, false
}

// MinDurationFor returns the minimum duration for an appliance or the
// package default when no constraint matches.
func (s ConstraintSet) MinDurationFor(name string, fallback int) int {
	if c, ok := s.Lookup(name); ok {
		return c.MinDuration
	}
	return fallback
}

// Resolve returns the matching constraint or DefaultConstraint. The boolean
// is false when the default was used.
func (s ConstraintSet) Resolve(name string) (ApplianceConstraint, bool) {
	if c, ok := s.Lookup(name); ok {
		return c, true
	}
	return DefaultConstraint(), false
}
