package tariff

import (
	"sort"

	"github.com/kilianp07/loadshift/core/interval"
)

// Band is a same-day rate segment [Start, End) with its price level.
type Band struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Rate  float64 `json:"rate"`
	Level int     `json:"level"`
}

// Interval returns the band's minute span.
func (b Band) Interval() interval.Interval {
	return interval.Interval{Start: b.Start, End: b.End}
}

// PriceInfo is the band set in force for one month. Rates holds the distinct
// rates ascending; a rate's index is its level, 0 being the cheapest.
type PriceInfo struct {
	Rates []float64 `json:"rates"`
	Bands []Band    `json:"bands"`
}

// MinLevel is always 0.
func (p PriceInfo) MinLevel() int { return 0 }

// MaxLevel returns the most expensive level.
func (p PriceInfo) MaxLevel() int {
	if len(p.Rates) == 0 {
		return 0
	}
	return len(p.Rates) - 1
}

// LevelsFor maps each level to its rate.
func (p PriceInfo) LevelsFor() map[int]float64 {
	out := make(map[int]float64, len(p.Rates))
	for i, r := range p.Rates {
		out[i] = r
	}
	return out
}

// Covers reports whether the bands cover the whole day.
func (p PriceInfo) Covers() bool {
	spans := make([]interval.Interval, 0, len(p.Bands))
	for _, b := range p.Bands {
		spans = append(spans, b.Interval())
	}
	return interval.Total(spans) == interval.MinutesPerDay
}

// Expand repeats the bands once per day and clips them to [0, horizon).
// The result is ordered by start.
func (p PriceInfo) Expand(horizon int) []Band {
	if horizon <= 0 {
		return nil
	}
	days := (horizon + interval.MinutesPerDay - 1) / interval.MinutesPerDay
	var out []Band
	for d := 0; d <= days; d++ {
		off := d * interval.MinutesPerDay
		for _, b := range p.Bands {
			c := Band{Start: b.Start + off, End: b.End + off, Rate: b.Rate, Level: b.Level}
			if c.Start >= horizon {
				continue
			}
			c.End = min(c.End, horizon)
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func minuteOfDay(m int) int {
	return ((m % interval.MinutesPerDay) + interval.MinutesPerDay) % interval.MinutesPerDay
}

func (p PriceInfo) bandAt(minute int) (Band, bool) {
	m := minuteOfDay(minute)
	for _, b := range p.Bands {
		if b.Start <= m && m < b.End {
			return b, true
		}
	}
	return Band{}, false
}

// LevelAt returns the level active at minute, matched on minute of day. A
// minute no band covers gets the lowest level.
func (p PriceInfo) LevelAt(minute int) int {
	if b, ok := p.bandAt(minute); ok {
		return b.Level
	}
	return p.MinLevel()
}

// RateAt returns the rate active at minute, or the cheapest rate when no band
// covers it.
func (p PriceInfo) RateAt(minute int) float64 {
	if b, ok := p.bandAt(minute); ok {
		return b.Rate
	}
	if len(p.Rates) == 0 {
		return 0
	}
	return p.Rates[0]
}

// Profile counts the minutes of [start, end) spent at each level. Every level
// is present in the result. When the bands leave part of the run uncovered,
// the whole run is attributed to the level at start and fallback is true.
func (p PriceInfo) Profile(start, end int) (profile map[int]int, fallback bool) {
	profile = make(map[int]int, len(p.Rates))
	for lv := range p.Rates {
		profile[lv] = 0
	}
	if end <= start {
		return profile, false
	}
	run := interval.Interval{Start: start, End: end}
	counted := 0
	for _, b := range p.Expand(end) {
		lo, hi := max(b.Start, run.Start), min(b.End, run.End)
		if lo < hi {
			profile[b.Level] += hi - lo
			counted += hi - lo
		}
	}
	if counted == run.Len() {
		return profile, false
	}
	for lv := range profile {
		profile[lv] = 0
	}
	profile[p.LevelAt(start)] = run.Len()
	return profile, true
}

// Windows returns the merged spans at the given level over [0, horizon).
func (p PriceInfo) Windows(level, horizon int) []interval.Interval {
	var spans []interval.Interval
	for _, b := range p.Expand(horizon) {
		if b.Level == level {
			spans = append(spans, b.Interval())
		}
	}
	return interval.Merge(spans)
}

// CheapWindows returns the spans at the cheapest level over [0, horizon).
func (p PriceInfo) CheapWindows(horizon int) []interval.Interval {
	return p.Windows(p.MinLevel(), horizon)
}

// PrimaryLevel returns the level holding the most minutes of a profile. Ties
// go to the cheaper level; an empty profile yields 0.
func PrimaryLevel(profile map[int]int) int {
	best, bestMin := 0, -1
	levels := make([]int, 0, len(profile))
	for lv := range profile {
		levels = append(levels, lv)
	}
	sort.Ints(levels)
	for _, lv := range levels {
		if profile[lv] > bestMin {
			best, bestMin = lv, profile[lv]
		}
	}
	return best
}

// OptimizationPotential scales a level into [0, 1] against the most expensive
// level. A single-level plan has no potential.
func OptimizationPotential(level, maxLevel int) float64 {
	if maxLevel <= 0 {
		return 0
	}
	return float64(level) / float64(maxLevel)
}
