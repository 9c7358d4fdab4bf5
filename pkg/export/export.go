// Package export writes schedule results and filter statistics.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/loadshift/core/cost"
	"github.com/kilianp07/loadshift/core/filter"
	"github.com/kilianp07/loadshift/core/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Row is one exported schedule result.
type Row struct {
	EventID         string           `json:"event_id"`
	ApplianceName   string           `json:"appliance_name"`
	ApplianceID     string           `json:"appliance_id"`
	Shiftability    string           `json:"shiftability"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	DurationMinutes int              `json:"duration_minutes"`
	EnergyWatts     float64          `json:"energy_watts"`
	IsReschedulable bool             `json:"is_reschedulable"`
	ScheduledStart  *time.Time       `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time       `json:"scheduled_end,omitempty"`
	Status          string           `json:"schedule_status,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	PriceLevel      int              `json:"price_level_at_schedule"`
	ShiftType       string           `json:"shift_type,omitempty"`
	OriginalCost    *decimal.Decimal `json:"original_cost,omitempty"`
	ScheduledCost   *decimal.Decimal `json:"scheduled_cost,omitempty"`
}

// Rows joins results with their cost rows by RowID. Costs may be nil.
func Rows(results []model.ScheduleResult, costs []cost.Row) []Row {
	byRow := make(map[model.RowID]cost.Row, len(costs))
	for _, c := range costs {
		byRow[c.RowID] = c
	}
	out := make([]Row, 0, len(results))
	for _, r := range results {
		e := r.Event
		row := Row{
			EventID:         e.EventID,
			ApplianceName:   e.ApplianceName,
			ApplianceID:     e.ApplianceID,
			Shiftability:    string(e.Shiftability),
			StartTime:       e.StartTime,
			EndTime:         e.EndTime,
			DurationMinutes: e.DurationMinutes,
			EnergyWatts:     e.EnergyWatts,
			IsReschedulable: e.IsReschedulable,
			Status:          string(r.Status),
			FailureReason:   r.FailureReason,
			PriceLevel:      r.PriceLevel,
			ShiftType:       string(r.ShiftType),
		}
		if r.Scheduled() {
			s, en := r.ScheduledStart(), r.ScheduledEnd()
			row.ScheduledStart, row.ScheduledEnd = &s, &en
		}
		if c, ok := byRow[e.RowID]; ok {
			oc, sc := c.OriginalCost, c.ScheduledCost
			row.OriginalCost, row.ScheduledCost = &oc, &sc
		}
		out = append(out, row)
	}
	return out
}

// WriteJSON writes the rows as a JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

var header = []string{
	"event_id", "appliance_name", "appliance_id", "shiftability",
	"start_time", "end_time", "duration_minutes", "energy_watts", "is_reschedulable",
	"scheduled_start", "scheduled_end", "schedule_status", "failure_reason",
	"price_level_at_schedule", "shift_type", "original_cost", "scheduled_cost",
}

// WriteCSV writes the rows with a header. Empty cells mark values that do
// not apply to the row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.EventID,
			r.ApplianceName,
			r.ApplianceID,
			r.Shiftability,
			r.StartTime.Format(timeLayout),
			r.EndTime.Format(timeLayout),
			strconv.Itoa(r.DurationMinutes),
			strconv.FormatFloat(r.EnergyWatts, 'f', -1, 64),
			strconv.FormatBool(r.IsReschedulable),
			formatTime(r.ScheduledStart),
			formatTime(r.ScheduledEnd),
			r.Status,
			r.FailureReason,
			strconv.Itoa(r.PriceLevel),
			r.ShiftType,
			formatMoney(r.OriginalCost),
			formatMoney(r.ScheduledCost),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStats writes filter statistics as indented JSON.
func WriteStats(w io.Writer, s filter.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func formatMoney(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(cost.Places)
}
