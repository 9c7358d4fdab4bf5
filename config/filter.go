package config

import (
	"fmt"

	"github.com/kilianp07/loadshift/core/filter"
	"github.com/kilianp07/loadshift/core/model"
)

// FilterConfig tunes the event filters.
type FilterConfig struct {
	// ThresholdMinutes is the minimum number of minutes above the cheapest
	// level for a run to stay reschedulable.
	ThresholdMinutes int `json:"threshold_minutes"`
	// DefaultMinDuration applies to appliances without a min_duration.
	DefaultMinDuration int `json:"default_min_duration"`
	// Policy is "level" or "weighted".
	Policy         string  `json:"policy"`
	WeightedFactor float64 `json:"weighted_factor"`
}

// SetDefaults applies the documented defaults.
func (c *FilterConfig) SetDefaults() {
	if c.ThresholdMinutes == 0 {
		c.ThresholdMinutes = filter.DefaultThreshold
	}
	if c.DefaultMinDuration == 0 {
		c.DefaultMinDuration = model.DefaultMinDuration
	}
	if c.Policy == "" {
		c.Policy = "level"
	}
	if c.WeightedFactor == 0 {
		c.WeightedFactor = filter.DefaultWeightedFactor
	}
}

// Validate checks ranges and the policy name.
func (c FilterConfig) Validate() error {
	if c.ThresholdMinutes < 0 {
		return fmt.Errorf("threshold_minutes must not be negative")
	}
	if c.DefaultMinDuration < 0 {
		return fmt.Errorf("default_min_duration must not be negative")
	}
	if c.WeightedFactor < 0 {
		return fmt.Errorf("weighted_factor must not be negative")
	}
	switch c.Policy {
	case "level", "weighted":
		return nil
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
}

// PolicyImpl returns the configured TOU policy.
func (c FilterConfig) PolicyImpl() filter.Policy {
	return filter.PolicyByName(c.Policy, c.WeightedFactor)
}
