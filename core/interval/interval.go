package interval

import (
	"fmt"
	"sort"
)

// MinutesPerDay is the length of one day on the minute axis.
const MinutesPerDay = 1440

// Interval is a half-open range [Start, End) of minutes. The axis may extend
// past MinutesPerDay to describe multi-day horizons.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of minutes covered by the interval.
func (iv Interval) Len() int {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Empty reports whether the interval covers no minute.
func (iv Interval) Empty() bool { return iv.End <= iv.Start }

// Overlaps reports whether the two intervals share at least one minute.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start < o.End && o.Start < iv.End
}

// Contains reports whether minute m lies inside the interval.
func (iv Interval) Contains(m int) bool { return iv.Start <= m && m < iv.End }

// Shift returns the interval moved by d minutes.
func (iv Interval) Shift(d int) Interval { return Interval{Start: iv.Start + d, End: iv.End + d} }

func (iv Interval) String() string { return fmt.Sprintf("[%d,%d)", iv.Start, iv.End) }

// Merge sorts the intervals and folds overlapping or adjacent ones. Empty
// intervals are dropped. The input is left untouched.
func Merge(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]Interval, 0, len(in))
	for _, iv := range in {
		if !iv.Empty() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})
	out := []Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &out[len(out)-1]
		if cur.Start <= last.End {
			if cur.End > last.End {
				last.End = cur.End
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}

// Subtract removes every minute of remove from base.
func Subtract(base, remove []Interval) []Interval {
	rm := Merge(remove)
	var out []Interval
	for _, b := range Merge(base) {
		rest := []Interval{b}
		for _, r := range rm {
			if r.Start >= b.End {
				break
			}
			var next []Interval
			for _, t := range rest {
				if !t.Overlaps(r) {
					next = append(next, t)
					continue
				}
				if r.Start > t.Start {
					next = append(next, Interval{Start: t.Start, End: r.Start})
				}
				if r.End < t.End {
					next = append(next, Interval{Start: r.End, End: t.End})
				}
			}
			rest = next
		}
		out = append(out, rest...)
	}
	return Merge(out)
}

// Intersect returns the minutes present in both a and b.
func Intersect(a, b []Interval) []Interval {
	am, bm := Merge(a), Merge(b)
	var out []Interval
	i, j := 0, 0
	for i < len(am) && j < len(bm) {
		start := max(am[i].Start, bm[j].Start)
		end := min(am[i].End, bm[j].End)
		if start < end {
			out = append(out, Interval{Start: start, End: end})
		}
		if am[i].End < bm[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Clip restricts the intervals to [lo, hi).
func Clip(in []Interval, lo, hi int) []Interval {
	return Intersect(in, []Interval{{Start: lo, End: hi}})
}

// Repeat copies each interval once per day, i = 0..ceil(horizon/1440), and
// clips the copies to [0, horizon). The result is merged.
func Repeat(daily []Interval, horizon int) []Interval {
	if horizon <= 0 {
		return nil
	}
	days := (horizon + MinutesPerDay - 1) / MinutesPerDay
	var out []Interval
	for _, iv := range daily {
		for i := 0; i <= days; i++ {
			c := iv.Shift(i * MinutesPerDay)
			if c.Start >= horizon {
				break
			}
			if c.End > horizon {
				c.End = horizon
			}
			out = append(out, c)
		}
	}
	return Merge(out)
}

// Total sums the lengths of the merged intervals.
func Total(in []Interval) int {
	n := 0
	for _, iv := range Merge(in) {
		n += iv.Len()
	}
	return n
}

// AnyOverlap reports whether iv overlaps any interval in set.
func AnyOverlap(iv Interval, set []Interval) bool {
	for _, s := range set {
		if iv.Overlaps(s) {
			return true
		}
	}
	return false
}

// FirstFit returns the earliest start s >= from such that [s, s+d) fits in
// one of the zones. Zones are scanned in the given order.
func FirstFit(zones []Interval, from, d int) (int, bool) {
	for _, z := range zones {
		s := max(z.Start, from)
		if s+d <= z.End {
			return s, true
		}
	}
	return 0, false
}
