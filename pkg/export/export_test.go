package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadshift/core/cost"
	"github.com/kilianp07/loadshift/core/filter"
	"github.com/kilianp07/loadshift/core/model"
)

var start = time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

func sample() ([]model.ScheduleResult, []cost.Row) {
	wm := model.Event{RowID: 0, EventID: "WM_1", ApplianceName: "Washing Machine", ApplianceID: "Washing Machine",
		Shiftability: model.Shiftable, StartTime: start, EndTime: start.Add(time.Hour), DurationMinutes: 60, EnergyWatts: 500, IsReschedulable: true}
	fr := model.Event{RowID: 1, EventID: "F_1", ApplianceName: "Fridge", Shiftability: model.BaseLoad,
		StartTime: start, EndTime: start.Add(30 * time.Minute), DurationMinutes: 30, EnergyWatts: 100}
	results := []model.ScheduleResult{
		{Event: wm, Status: model.StatusSuccess, StartMinute: 500, EndMinute: 560, PriceLevel: 1, ShiftType: model.ShiftDelay},
		{Event: fr, PriceLevel: -1},
	}
	costs := []cost.Row{
		{RowID: 0, EventID: "WM_1", OriginalCost: decimal.RequireFromString("0.15"), ScheduledCost: decimal.RequireFromString("0.15")},
		{RowID: 1, EventID: "F_1", OriginalCost: decimal.RequireFromString("0.015"), ScheduledCost: decimal.RequireFromString("0.015")},
	}
	return results, costs
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Rows(sample())))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, header, recs[0])

	wm := recs[1]
	assert.Equal(t, "WM_1", wm[0])
	assert.Equal(t, "2024-03-01 07:00:00", wm[4])
	assert.Equal(t, "2024-03-01 08:20:00", wm[9])
	assert.Equal(t, "2024-03-01 09:20:00", wm[10])
	assert.Equal(t, "SUCCESS", wm[11])
	assert.Equal(t, "1", wm[13])
	assert.Equal(t, "DELAY", wm[14])
	assert.Equal(t, "0.1500", wm[15])

	fr := recs[2]
	assert.Equal(t, "", fr[9])
	assert.Equal(t, "", fr[11])
	assert.Equal(t, "-1", fr[13])
	assert.Equal(t, "0.0150", fr[16])
}

func TestWriteJSON(t *testing.T) {
	results, _ := sample()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Rows(results, nil)))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "2024-03-01T08:20:00Z", out[0]["scheduled_start"])
	assert.NotContains(t, out[0], "original_cost")
	assert.NotContains(t, out[1], "scheduled_start")
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	s := filter.Stats{TotalEvents: 10, InitialReschedulable: 4, FinalReschedulable: 1, EventsFilteredOut: 3, FilterEfficiencyPct: 75}
	require.NoError(t, WriteStats(&buf, s))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	for _, k := range []string{"total_events", "initial_reschedulable", "final_reschedulable", "events_filtered_out", "filter_efficiency_pct"} {
		assert.Contains(t, out, k)
	}
	assert.Equal(t, 75.0, out["filter_efficiency_pct"])
}
