package filter

import "github.com/kilianp07/loadshift/core/tariff"

// Policy decides whether a run's price profile justifies moving it.
type Policy interface {
	Name() string
	Keep(profile map[int]int, info tariff.PriceInfo, threshold int) bool
}

// DefaultWeightedFactor scales the threshold for the weighted comparison.
const DefaultWeightedFactor = 0.1

// PolicyByName maps a configuration value to a policy. Unknown names get the
// level policy.
func PolicyByName(name string, factor float64) Policy {
	if name == "weighted" {
		return WeightedPolicy{Factor: factor}
	}
	return LevelPolicy{}
}

func split(profile map[int]int, info tariff.PriceInfo) (total, cheap int) {
	for _, m := range profile {
		total += m
	}
	return total, profile[info.MinLevel()]
}

// LevelPolicy keeps a run when at least threshold of its minutes fall above
// the cheapest level. A run entirely at the cheapest level is never kept.
type LevelPolicy struct{}

func (LevelPolicy) Name() string { return "level" }

func (LevelPolicy) Keep(profile map[int]int, info tariff.PriceInfo, threshold int) bool {
	total, cheap := split(profile, info)
	if total == 0 || cheap == total {
		return false
	}
	return total-cheap >= threshold
}

// WeightedPolicy weights each expensive minute by its relative premium over
// the cheapest rate and keeps the run once the weighted sum reaches
// threshold*Factor. Runs failing that test still pass on the level rule.
type WeightedPolicy struct {
	Factor float64
}

func (WeightedPolicy) Name() string { return "weighted" }

func (p WeightedPolicy) Keep(profile map[int]int, info tariff.PriceInfo, threshold int) bool {
	total, cheap := split(profile, info)
	if total == 0 || cheap == total {
		return false
	}
	factor := p.Factor
	if factor <= 0 {
		factor = DefaultWeightedFactor
	}
	if len(info.Rates) > 0 && info.Rates[0] > 0 {
		lowest := info.Rates[0]
		weighted := 0.0
		for lv, m := range profile {
			if lv <= info.MinLevel() || lv >= len(info.Rates) {
				continue
			}
			weighted += float64(m) * (info.Rates[lv] - lowest) / lowest
		}
		if weighted >= float64(threshold)*factor {
			return true
		}
	}
	return total-cheap >= threshold
}
