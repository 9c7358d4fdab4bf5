package report

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/loadshift/core/cost"
	"github.com/kilianp07/loadshift/core/filter"
	"github.com/kilianp07/loadshift/core/resolver"
	"github.com/kilianp07/loadshift/core/scheduler"
)

func households() []Household {
	return []Household{
		{
			ID: "house2", Tariff: "Economy_7",
			Filter:   filter.Stats{TotalEvents: 10, InitialReschedulable: 2, FinalReschedulable: 0, FilterEfficiencyPct: 100},
			Schedule: scheduler.Counts{Considered: 2, Scheduled: 2},
			Cost:     cost.Summary{Original: decimal.RequireFromString("2"), Savings: decimal.RequireFromString("0.5"), SavingsPct: 25},
		},
		{
			ID: "house1", Tariff: "Economy_7",
			Filter:   filter.Stats{TotalEvents: 20, InitialReschedulable: 8, FinalReschedulable: 4, FilterEfficiencyPct: 50},
			Schedule: scheduler.Counts{Considered: 4, Scheduled: 3, Failed: 1},
			Resolver: resolver.Stats{Groups: 2, Collisions: 2, Relocated: 1, Failed: 1},
			Cost:     cost.Summary{Original: decimal.RequireFromString("3"), Savings: decimal.RequireFromString("0.3"), SavingsPct: 10},
		},
		{ID: "house3", Tariff: "TOU_D", Err: errors.New("config error: TOU_D: no season covers March")},
	}
}

func TestSummarize(t *testing.T) {
	b := Summarize(households())
	if b.Households[0].ID != "house1" || b.Households[2].ID != "house3" {
		t.Fatalf("households not sorted: %v", b.Households)
	}
	if b.Succeeded != 2 || len(b.Errored) != 1 || b.Errored[0] != "house3" {
		t.Fatalf("succeeded %d errored %v", b.Succeeded, b.Errored)
	}
	if b.MeanEfficiency != 75 {
		t.Fatalf("mean efficiency %v", b.MeanEfficiency)
	}
	if math.Abs(b.StdEfficiency-math.Sqrt(1250)) > 1e-9 {
		t.Fatalf("std efficiency %v", b.StdEfficiency)
	}
	if b.MeanSavingsPct != 17.5 {
		t.Fatalf("mean savings %v", b.MeanSavingsPct)
	}
	if math.Abs(b.PlacementRate-4.0/6.0) > 1e-9 {
		t.Fatalf("placement rate %v", b.PlacementRate)
	}
	if b.TotalScheduled != 4 || b.TotalFailed != 2 || b.TotalRelocations != 1 {
		t.Fatalf("totals %+v", b)
	}
	if !b.TotalSavings.Equal(decimal.RequireFromString("0.8")) || !b.TotalOriginal.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("money totals %s %s", b.TotalSavings, b.TotalOriginal)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	b := Summarize(nil)
	if b.Succeeded != 0 || b.MeanEfficiency != 0 || b.PlacementRate != 0 {
		t.Fatalf("unexpected %+v", b)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, Summarize(households())); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "HOUSEHOLD") || !strings.HasPrefix(lines[4], "TOTAL") {
		t.Fatalf("bad layout:\n%s", out)
	}
	if !strings.Contains(lines[3], "no season covers March") {
		t.Fatalf("error row missing:\n%s", out)
	}
	if !strings.Contains(lines[1], "0.3000") {
		t.Fatalf("savings missing:\n%s", out)
	}
}
