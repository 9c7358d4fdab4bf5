package filter

import (
	"sort"

	"github.com/kilianp07/loadshift/core/model"
)

// ApplianceStats counts reschedulable rows of one appliance around a stage.
type ApplianceStats struct {
	Initial     int `json:"initial"`
	Final       int `json:"final"`
	FilteredOut int `json:"filtered_out"`
}

// Stats reports how many rows a stage left reschedulable.
type Stats struct {
	Stage                string                    `json:"stage,omitempty"`
	TotalEvents          int                       `json:"total_events"`
	InitialReschedulable int                       `json:"initial_reschedulable"`
	FinalReschedulable   int                       `json:"final_reschedulable"`
	EventsFilteredOut    int                       `json:"events_filtered_out"`
	FilterEfficiencyPct  float64                   `json:"filter_efficiency_pct"`
	PerAppliance         map[string]ApplianceStats `json:"per_appliance,omitempty"`
}

// NewStats compares the input and output tables of a stage. The tables must
// hold the same rows in the same order.
func NewStats(stage string, before, after model.Table) Stats {
	s := Stats{
		Stage:                stage,
		TotalEvents:          len(before),
		InitialReschedulable: before.CountReschedulable(),
		FinalReschedulable:   after.CountReschedulable(),
		PerAppliance:         make(map[string]ApplianceStats),
	}
	s.EventsFilteredOut = s.InitialReschedulable - s.FinalReschedulable
	if s.InitialReschedulable > 0 {
		s.FilterEfficiencyPct = float64(s.EventsFilteredOut) / float64(s.InitialReschedulable) * 100
	}
	for i, e := range before {
		if !e.IsReschedulable {
			continue
		}
		a := s.PerAppliance[e.ApplianceName]
		a.Initial++
		if i < len(after) && after[i].IsReschedulable {
			a.Final++
		} else {
			a.FilteredOut++
		}
		s.PerAppliance[e.ApplianceName] = a
	}
	return s
}

// Appliances lists the appliances with per-appliance counts, sorted.
func (s Stats) Appliances() []string {
	names := make([]string, 0, len(s.PerAppliance))
	for n := range s.PerAppliance {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
