package model

import (
	"fmt"
	"strings"
	"time"
)

// RowID is the stable index of an event in the table it was loaded from.
// Every stage maps rows one to one and keeps them in RowID order.
type RowID int

// Shiftability tells whether an appliance type may be moved in time at all.
type Shiftability string

const (
	Shiftable    Shiftability = "Shiftable"
	NonShiftable Shiftability = "Non-shiftable"
	BaseLoad     Shiftability = "Base-load"
)

// ParseShiftability accepts the labels case-insensitively, with or without
// the hyphen.
func ParseShiftability(s string) (Shiftability, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	switch norm {
	case "shiftable":
		return Shiftable, nil
	case "non-shiftable", "nonshiftable":
		return NonShiftable, nil
	case "base-load", "baseload":
		return BaseLoad, nil
	default:
		return "", fmt.Errorf("unknown shiftability %q", s)
	}
}

// Event is one contiguous run of an appliance above the power threshold.
type Event struct {
	RowID           RowID        `json:"-"`
	EventID         string       `json:"event_id"`
	ApplianceName   string       `json:"appliance_name"`
	ApplianceID     string       `json:"appliance_id"`
	Shiftability    Shiftability `json:"shiftability"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	DurationMinutes int          `json:"duration_minutes"`
	EnergyWatts     float64      `json:"energy_watts"`
	IsReschedulable bool         `json:"is_reschedulable"`
}

// Day returns midnight of the calendar day the event started on.
func (e Event) Day() time.Time {
	y, m, d := e.StartTime.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.StartTime.Location())
}

// StartMinute returns the minute of day at which the event started.
func (e Event) StartMinute() int {
	return e.StartTime.Hour()*60 + e.StartTime.Minute()
}

// QueueKey identifies the physical appliance the event ran on. Two
// "Washing Machine" instances with distinct IDs never share a queue.
func (e Event) QueueKey() string {
	if e.ApplianceID != "" {
		return e.ApplianceID
	}
	return e.ApplianceName
}

// EnergyKWh treats EnergyWatts as the average power over the run.
func (e Event) EnergyKWh() float64 {
	return e.EnergyWatts / 1000 * float64(e.DurationMinutes) / 60
}

// Table is an ordered event table. Stages never share a Table: each returns
// a fresh copy.
type Table []Event

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Reschedulable returns the rows currently flagged reschedulable. The result
// is a read-only view; the full table stays authoritative.
func (t Table) Reschedulable() Table {
	var out Table
	for _, e := range t {
		if e.IsReschedulable {
			out = append(out, e)
		}
	}
	return out
}

// CountReschedulable counts rows flagged reschedulable.
func (t Table) CountReschedulable() int {
	n := 0
	for _, e := range t {
		if e.IsReschedulable {
			n++
		}
	}
	return n
}

// Validate checks event ids are unique, durations are positive and that only
// shiftable events are reschedulable.
func (t Table) Validate() error {
	seen := make(map[string]struct{}, len(t))
	for _, e := range t {
		if e.EventID == "" {
			return fmt.Errorf("row %d: empty event_id", e.RowID)
		}
		if _, dup := seen[e.EventID]; dup {
			return fmt.Errorf("duplicate event_id %s", e.EventID)
		}
		seen[e.EventID] = struct{}{}
		if e.DurationMinutes <= 0 {
			return fmt.Errorf("event %s: duration must be positive", e.EventID)
		}
		if e.IsReschedulable && e.Shiftability != Shiftable {
			return fmt.Errorf("event %s: reschedulable but %s", e.EventID, e.Shiftability)
		}
	}
	return nil
}

// Renumber assigns RowIDs following the current order.
func (t Table) Renumber() {
	for i := range t {
		t[i].RowID = RowID(i)
	}
}
