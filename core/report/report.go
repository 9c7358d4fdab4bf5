// Package report aggregates per-household run outcomes into a batch summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/loadshift/core/cost"
	"github.com/kilianp07/loadshift/core/filter"
	"github.com/kilianp07/loadshift/core/resolver"
	"github.com/kilianp07/loadshift/core/scheduler"
)

// Household is the outcome of one household run. Err is set when the run
// stopped on a configuration problem; the other fields are then empty.
type Household struct {
	ID       string           `json:"household"`
	Tariff   string           `json:"tariff"`
	Filter   filter.Stats     `json:"filter"`
	Schedule scheduler.Counts `json:"schedule"`
	Resolver resolver.Stats   `json:"resolver"`
	Cost     cost.Summary     `json:"cost"`
	Err      error            `json:"-"`
}

// Error returns the run error text, if any.
func (h Household) Error() string {
	if h.Err == nil {
		return ""
	}
	return h.Err.Error()
}

// Batch summarises a set of household runs.
type Batch struct {
	Households       []Household     `json:"households"`
	Succeeded        int             `json:"succeeded"`
	Errored          []string        `json:"errored,omitempty"`
	MeanEfficiency   float64         `json:"mean_filter_efficiency_pct"`
	StdEfficiency    float64         `json:"std_filter_efficiency_pct"`
	MeanSavingsPct   float64         `json:"mean_savings_pct"`
	PlacementRate    float64         `json:"placement_rate"`
	TotalOriginal    decimal.Decimal `json:"total_original_cost"`
	TotalSavings     decimal.Decimal `json:"total_savings"`
	TotalScheduled   int             `json:"total_scheduled"`
	TotalFailed      int             `json:"total_failed"`
	TotalRelocations int             `json:"total_relocations"`
}

// Summarize sorts households by ID and aggregates the ones without errors.
func Summarize(hs []Household) Batch {
	sorted := append([]Household(nil), hs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	b := Batch{Households: sorted}
	var eff, savings []float64
	var placed, considered []float64
	for _, h := range sorted {
		if h.Err != nil {
			b.Errored = append(b.Errored, h.ID)
			continue
		}
		b.Succeeded++
		eff = append(eff, h.Filter.FilterEfficiencyPct)
		savings = append(savings, h.Cost.SavingsPct)
		failed := h.Schedule.Failed + h.Resolver.Failed
		scheduled := h.Schedule.Scheduled - h.Resolver.Failed
		placed = append(placed, float64(scheduled))
		considered = append(considered, float64(h.Schedule.Considered))
		b.TotalScheduled += scheduled
		b.TotalFailed += failed
		b.TotalRelocations += h.Resolver.Relocated
		b.TotalOriginal = b.TotalOriginal.Add(h.Cost.Original)
		b.TotalSavings = b.TotalSavings.Add(h.Cost.Savings)
	}
	if len(eff) > 0 {
		b.MeanEfficiency = stat.Mean(eff, nil)
		b.MeanSavingsPct = stat.Mean(savings, nil)
	}
	if len(eff) > 1 {
		b.StdEfficiency = stat.StdDev(eff, nil)
	}
	if total := floats.Sum(considered); total > 0 {
		b.PlacementRate = floats.Sum(placed) / total
	}
	return b
}

// WriteTable renders the batch as an aligned text table.
func WriteTable(w io.Writer, b Batch) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOUSEHOLD\tTARIFF\tEVENTS\tRESCHEDULABLE\tFILTERED %\tSCHEDULED\tFAILED\tMOVED\tSAVINGS\tSAVINGS %\tERROR")
	for _, h := range b.Households {
		if h.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t-\t-\t-\t%s\n", h.ID, h.Tariff, h.Error())
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%d\t%d\t%d\t%s\t%.2f\t\n",
			h.ID, h.Tariff,
			h.Filter.TotalEvents, h.Filter.FinalReschedulable, h.Filter.FilterEfficiencyPct,
			h.Schedule.Scheduled-h.Resolver.Failed, h.Schedule.Failed+h.Resolver.Failed, h.Resolver.Relocated,
			h.Cost.Savings.StringFixed(cost.Places), h.Cost.SavingsPct)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%.1f±%.1f\t%d\t%d\t%d\t%s\t%.2f\t%d errored\n",
		b.MeanEfficiency, b.StdEfficiency, b.TotalScheduled, b.TotalFailed, b.TotalRelocations,
		b.TotalSavings.StringFixed(cost.Places), b.MeanSavingsPct, len(b.Errored))
	return tw.Flush()
}
