// Package cost prices appliance runs before and after rescheduling.
package cost

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/core/tariff"
)

// Places is the rounding applied to every money amount.
const Places = 4

var wattMinutesPerKWh = decimal.NewFromInt(60000)

// Row is the cost of one event at its original and scheduled start.
type Row struct {
	RowID         model.RowID     `json:"row_id"`
	EventID       string          `json:"event_id"`
	ApplianceName string          `json:"appliance_name"`
	OriginalCost  decimal.Decimal `json:"original_cost"`
	ScheduledCost decimal.Decimal `json:"scheduled_cost"`
	Saving        decimal.Decimal `json:"saving"`
}

// Calculator prices runs against a tariff. EnergyWatts is taken as the
// average power over the run.
type Calculator struct {
	Tariff tariff.Source
}

// Cost prices e as if it started at minute start of its original day.
func (c Calculator) Cost(e model.Event, start int) (decimal.Decimal, error) {
	info, err := c.Tariff.PriceInfo(e.StartTime.Month())
	if err != nil {
		return decimal.Zero, fmt.Errorf("event %s: %w", e.EventID, err)
	}
	end := start + e.DurationMinutes
	rateMinutes := decimal.Zero
	covered := 0
	for _, b := range info.Expand(end) {
		lo, hi := max(b.Start, start), min(b.End, end)
		if lo < hi {
			rateMinutes = rateMinutes.Add(decimal.NewFromFloat(b.Rate).Mul(decimal.NewFromInt(int64(hi - lo))))
			covered += hi - lo
		}
	}
	if gap := e.DurationMinutes - covered; gap > 0 && len(info.Rates) > 0 {
		// uncovered minutes are billed at the cheapest rate
		rateMinutes = rateMinutes.Add(decimal.NewFromFloat(info.Rates[0]).Mul(decimal.NewFromInt(int64(gap))))
	}
	power := decimal.NewFromFloat(e.EnergyWatts)
	return power.Mul(rateMinutes).Div(wattMinutesPerKWh).Round(Places), nil
}

// Rows prices every result. Rows without a successful placement keep their
// original cost as scheduled cost.
func (c Calculator) Rows(results []model.ScheduleResult) ([]Row, error) {
	out := make([]Row, 0, len(results))
	for _, r := range results {
		orig, err := c.Cost(r.Event, r.Event.StartMinute())
		if err != nil {
			return nil, err
		}
		sched := orig
		if r.Scheduled() {
			if sched, err = c.Cost(r.Event, r.StartMinute); err != nil {
				return nil, err
			}
		}
		out = append(out, Row{
			RowID:         r.Event.RowID,
			EventID:       r.Event.EventID,
			ApplianceName: r.Event.ApplianceName,
			OriginalCost:  orig,
			ScheduledCost: sched,
			Saving:        orig.Sub(sched),
		})
	}
	return out, nil
}

// ApplianceSummary aggregates the cost of one appliance.
type ApplianceSummary struct {
	Events    int             `json:"events"`
	Original  decimal.Decimal `json:"original"`
	Scheduled decimal.Decimal `json:"scheduled"`
	Savings   decimal.Decimal `json:"savings"`
}

// Summary aggregates the cost rows of one household.
type Summary struct {
	Original     decimal.Decimal             `json:"original"`
	Scheduled    decimal.Decimal             `json:"scheduled"`
	Savings      decimal.Decimal             `json:"savings"`
	SavingsPct   float64                     `json:"savings_pct"`
	PerAppliance map[string]ApplianceSummary `json:"per_appliance"`
}

// Summarize totals cost rows.
func Summarize(rows []Row) Summary {
	s := Summary{PerAppliance: make(map[string]ApplianceSummary)}
	for _, r := range rows {
		s.Original = s.Original.Add(r.OriginalCost)
		s.Scheduled = s.Scheduled.Add(r.ScheduledCost)
		a := s.PerAppliance[r.ApplianceName]
		a.Events++
		a.Original = a.Original.Add(r.OriginalCost)
		a.Scheduled = a.Scheduled.Add(r.ScheduledCost)
		a.Savings = a.Original.Sub(a.Scheduled)
		s.PerAppliance[r.ApplianceName] = a
	}
	s.Savings = s.Original.Sub(s.Scheduled)
	if s.Original.IsPositive() {
		s.SavingsPct = s.Savings.Div(s.Original).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return s
}

// Appliances returns the summarised appliance names in sorted order.
func (s Summary) Appliances() []string {
	names := make([]string, 0, len(s.PerAppliance))
	for n := range s.PerAppliance {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
