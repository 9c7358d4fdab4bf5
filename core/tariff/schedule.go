// Package tariff models time-of-use price plans and answers the two questions
// the scheduling core asks of them: which price level is active at a minute,
// and how many minutes of a run fall into each level.
package tariff

import (
	"sort"
	"time"

	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/model"
)

// Kind selects how a schedule's bands are chosen.
type Kind string

const (
	Flat              Kind = "flat"
	TimeBased         Kind = "time_based"
	SeasonalTimeBased Kind = "seasonal_time_based"
)

// Period is one rate band in file form. An end at or before the start wraps
// past midnight.
type Period struct {
	Start string  `json:"start" yaml:"start"`
	End   string  `json:"end" yaml:"end"`
	Rate  float64 `json:"rate" yaml:"rate"`
}

// Season groups the months sharing one band set.
type Season struct {
	Months  []int    `json:"months" yaml:"months"`
	Periods []Period `json:"periods" yaml:"periods"`
}

// Schedule is one price plan.
type Schedule struct {
	Kind     Kind              `json:"kind" yaml:"kind"`
	Rate     float64           `json:"rate,omitempty" yaml:"rate,omitempty"`
	Periods  []Period          `json:"periods,omitempty" yaml:"periods,omitempty"`
	Seasonal map[string]Season `json:"seasonal,omitempty" yaml:"seasonal,omitempty"`
}

// Source yields the price bands in force for a month.
type Source interface {
	PriceInfo(month time.Month) (PriceInfo, error)
}

// normalized fills an empty Kind from the fields that are present.
func (s Schedule) normalized() Schedule {
	if s.Kind != "" {
		return s
	}
	switch {
	case len(s.Seasonal) > 0:
		s.Kind = SeasonalTimeBased
	case len(s.Periods) > 0:
		s.Kind = TimeBased
	default:
		s.Kind = Flat
	}
	return s
}

// Validate checks every band set of the schedule. name is used as the
// ConfigError subject.
func (s Schedule) Validate(name string) error {
	s = s.normalized()
	switch s.Kind {
	case Flat:
		if s.Rate < 0 {
			return model.NewConfigError(name, "negative flat rate %v", s.Rate)
		}
		return nil
	case TimeBased:
		_, err := buildPriceInfo(name, s.Periods)
		return err
	case SeasonalTimeBased:
		if len(s.Seasonal) == 0 {
			return model.NewConfigError(name, "seasonal tariff without seasons")
		}
		owner := make(map[int]string)
		for _, season := range seasonNames(s.Seasonal) {
			def := s.Seasonal[season]
			if len(def.Months) == 0 {
				return model.NewConfigError(name, "season %s lists no months", season)
			}
			for _, m := range def.Months {
				if m < 1 || m > 12 {
					return model.NewConfigError(name, "season %s: month %d out of range", season, m)
				}
				if prev, dup := owner[m]; dup {
					return model.NewConfigError(name, "month %d in both %s and %s", m, prev, season)
				}
				owner[m] = season
			}
			if _, err := buildPriceInfo(name+"/"+season, def.Periods); err != nil {
				return err
			}
		}
		return nil
	default:
		return model.NewConfigError(name, "unknown tariff kind %q", s.Kind)
	}
}

// PriceInfo derives the bands and levels for month. Levels are ranked within
// the selected season only, so the same rate may sit at different levels in
// different seasons. A month no season claims is a ConfigError.
func (s Schedule) PriceInfo(month time.Month) (PriceInfo, error) {
	return s.priceInfo("tariff", month)
}

func (s Schedule) priceInfo(name string, month time.Month) (PriceInfo, error) {
	s = s.normalized()
	switch s.Kind {
	case Flat:
		if s.Rate < 0 {
			return PriceInfo{}, model.NewConfigError(name, "negative flat rate %v", s.Rate)
		}
		return PriceInfo{
			Rates: []float64{s.Rate},
			Bands: []Band{{Start: 0, End: interval.MinutesPerDay, Rate: s.Rate, Level: 0}},
		}, nil
	case TimeBased:
		return buildPriceInfo(name, s.Periods)
	case SeasonalTimeBased:
		for _, season := range seasonNames(s.Seasonal) {
			def := s.Seasonal[season]
			for _, m := range def.Months {
				if time.Month(m) == month {
					return buildPriceInfo(name+"/"+season, def.Periods)
				}
			}
		}
		return PriceInfo{}, model.NewConfigError(name, "no season covers %s", month)
	default:
		return PriceInfo{}, model.NewConfigError(name, "unknown tariff kind %q", s.Kind)
	}
}

func seasonNames(m map[string]Season) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// buildPriceInfo parses periods, ranks their distinct rates and splits
// wrapping periods into two same-day bands.
func buildPriceInfo(name string, periods []Period) (PriceInfo, error) {
	if len(periods) == 0 {
		return PriceInfo{}, model.NewConfigError(name, "no rate periods")
	}
	type parsed struct {
		start, end int
		rate       float64
	}
	ps := make([]parsed, 0, len(periods))
	seen := make(map[float64]struct{})
	var rates []float64
	for i, p := range periods {
		s, err := model.ParseClock(p.Start)
		if err != nil {
			return PriceInfo{}, model.NewConfigError(name, "period %d start: %v", i, err)
		}
		e, err := model.ParseClock(p.End)
		if err != nil {
			return PriceInfo{}, model.NewConfigError(name, "period %d end: %v", i, err)
		}
		switch {
		case s >= interval.MinutesPerDay || e > interval.MinutesPerDay:
			return PriceInfo{}, model.NewConfigError(name, "period %d %s-%s outside the day", i, p.Start, p.End)
		case s == e:
			return PriceInfo{}, model.NewConfigError(name, "period %d %s-%s is empty", i, p.Start, p.End)
		case p.Rate < 0:
			return PriceInfo{}, model.NewConfigError(name, "period %d has negative rate %v", i, p.Rate)
		}
		ps = append(ps, parsed{start: s, end: e, rate: p.Rate})
		if _, ok := seen[p.Rate]; !ok {
			seen[p.Rate] = struct{}{}
			rates = append(rates, p.Rate)
		}
	}
	sort.Float64s(rates)
	level := make(map[float64]int, len(rates))
	for i, r := range rates {
		level[r] = i
	}

	var bands []Band
	for _, p := range ps {
		lv := level[p.rate]
		if p.end > p.start {
			bands = append(bands, Band{Start: p.start, End: p.end, Rate: p.rate, Level: lv})
			continue
		}
		bands = append(bands, Band{Start: p.start, End: interval.MinutesPerDay, Rate: p.rate, Level: lv})
		if p.end > 0 {
			bands = append(bands, Band{Start: 0, End: p.end, Rate: p.rate, Level: lv})
		}
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Start < bands[j].Start })
	return PriceInfo{Rates: rates, Bands: bands}, nil
}
