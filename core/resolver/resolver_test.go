package resolver

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func placed(row int, id, appliance, applianceID string, d time.Time, start, dur int) model.ScheduleResult {
	st := d.Add(time.Duration(start) * time.Minute)
	return model.ScheduleResult{
		Event: model.Event{
			RowID:           model.RowID(row),
			EventID:         id,
			ApplianceName:   appliance,
			ApplianceID:     applianceID,
			Shiftability:    model.Shiftable,
			StartTime:       st,
			EndTime:         st.Add(time.Duration(dur) * time.Minute),
			DurationMinutes: dur,
			IsReschedulable: true,
		},
		Status:      model.StatusSuccess,
		StartMinute: start,
		EndMinute:   start + dur,
		PriceLevel:  0,
		ShiftType:   model.ShiftNoChange,
	}
}

func openDay() model.ConstraintSet {
	return model.ConstraintSet{"X": {LatestFinish: 1440, ShiftRule: model.OnlyDelay}}
}

func TestCollisionScenario(t *testing.T) {
	in := []model.ScheduleResult{
		placed(0, "X_10", "X", "X", day, 100, 60),
		placed(1, "X_2", "X", "X", day, 100, 60),
	}
	out, stats, err := Resolver{Constraints: openDay()}.Resolve(in)
	require.NoError(t, err)

	// X_2 comes first in natural order and keeps its slot.
	assert.Equal(t, "X_2", out[1].Event.EventID)
	assert.Equal(t, 100, out[1].StartMinute)
	assert.Equal(t, 160, out[1].EndMinute)

	assert.Equal(t, "X_10", out[0].Event.EventID)
	assert.Equal(t, model.StatusSuccess, out[0].Status)
	assert.Equal(t, 160, out[0].StartMinute)
	assert.Equal(t, 220, out[0].EndMinute)
	assert.Equal(t, model.ShiftDelay, out[0].ShiftType)

	assert.Equal(t, Stats{Groups: 1, Collisions: 1, Relocated: 1}, stats)

	// input untouched
	assert.Equal(t, 100, in[0].StartMinute)
}

func TestCollisionFailsPastLatestFinish(t *testing.T) {
	cs := model.ConstraintSet{"X": {LatestFinish: 200, ShiftRule: model.OnlyDelay}}
	in := []model.ScheduleResult{
		placed(0, "X_1", "X", "X", day, 100, 60),
		placed(1, "X_2", "X", "X", day, 100, 60),
		placed(2, "X_3", "X", "X", day, 120, 30),
	}
	out, stats, err := Resolver{Constraints: cs}.Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, out[0].Status)
	assert.Equal(t, model.StatusFailed, out[1].Status)
	assert.Equal(t, model.ReasonNoSlotAfterFix, out[1].FailureReason)
	assert.True(t, out[1].ScheduledStart().IsZero())
	// 160+30 still ends by 200.
	assert.Equal(t, model.StatusSuccess, out[2].Status)
	assert.Equal(t, 160, out[2].StartMinute)
	assert.Equal(t, Stats{Groups: 1, Collisions: 2, Relocated: 1, Failed: 1}, stats)
}

func TestCollisionSkipsForbidden(t *testing.T) {
	cs := model.ConstraintSet{"X": {
		Forbidden:    []interval.Interval{{Start: 160, End: 300}},
		LatestFinish: 1440,
		ShiftRule:    model.OnlyDelay,
	}}
	in := []model.ScheduleResult{
		placed(0, "X_1", "X", "X", day, 100, 60),
		placed(1, "X_2", "X", "X", day, 100, 60),
	}
	out, _, err := Resolver{Constraints: cs}.Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, 300, out[1].StartMinute)
}

func TestQueuesAndDaysAreSeparate(t *testing.T) {
	next := day.AddDate(0, 0, 1)
	in := []model.ScheduleResult{
		placed(0, "WM_1", "Washing Machine", "Washing Machine", day, 100, 60),
		placed(1, "WM2_1", "Washing Machine", "Washing Machine (2)", day, 100, 60),
		placed(2, "WM_2", "Washing Machine", "Washing Machine", next, 100, 60),
		{Event: model.Event{RowID: 3, EventID: "F_1", ApplianceName: "Fridge"}, PriceLevel: -1},
	}
	out, stats, err := Resolver{}.Resolve(in)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 100, out[i].StartMinute, out[i].Event.EventID)
	}
	assert.Equal(t, model.StatusNone, out[3].Status)
	assert.Equal(t, 3, stats.Groups)
	assert.Zero(t, stats.Collisions)
}

func TestResolveConfigError(t *testing.T) {
	cs := model.ConstraintSet{"X": {LatestFinish: -1, ShiftRule: model.OnlyDelay}}
	in := []model.ScheduleResult{
		placed(0, "X_1", "X", "X", day, 100, 60),
		placed(1, "X_2", "X", "X", day, 100, 60),
	}
	_, _, err := Resolver{Constraints: cs}.Resolve(in)
	assert.True(t, model.IsConfigError(err))
}

func TestResolveNonOverlapProperty(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	names := []string{"A", "B"}
	for iter := 0; iter < 100; iter++ {
		var in []model.ScheduleResult
		for i := 0; i < 30; i++ {
			d := day.AddDate(0, 0, r.Intn(2))
			n := names[r.Intn(len(names))]
			in = append(in, placed(i, fmt.Sprintf("%s_%d", n, i), n, n, d, r.Intn(1200), 1+r.Intn(120)))
		}
		cs := model.ConstraintSet{
			"A": {LatestFinish: 1440, ShiftRule: model.OnlyDelay},
			"B": {LatestFinish: 2000, ShiftRule: model.Free, Forbidden: []interval.Interval{{Start: 0, End: 300}}},
		}
		out, stats, err := Resolver{Constraints: cs}.Resolve(in)
		require.NoError(t, err)
		require.Len(t, out, len(in))

		byGroup := map[string][]interval.Interval{}
		for i, o := range out {
			require.Equal(t, in[i].Event.EventID, o.Event.EventID)
			if o.Status == model.StatusFailed {
				continue
			}
			require.GreaterOrEqual(t, o.StartMinute, in[i].StartMinute, "moved earlier")
			k := o.Event.QueueKey() + o.Event.Day().Format("2006-01-02")
			byGroup[k] = append(byGroup[k], interval.Interval{Start: o.StartMinute, End: o.EndMinute})
		}
		for k, slots := range byGroup {
			sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
			for i := 1; i < len(slots); i++ {
				require.LessOrEqual(t, slots[i-1].End, slots[i].Start, "overlap in %s", k)
			}
		}
		require.Equal(t, stats.Collisions, stats.Relocated+stats.Failed)
	}
}

func TestNaturalLess(t *testing.T) {
	ids := []string{"wm_10", "wm_2", "wm_1", "dw_3", "wm", "wm_2a"}
	sort.Slice(ids, func(i, j int) bool { return NaturalLess(ids[i], ids[j]) })
	assert.Equal(t, []string{"dw_3", "wm", "wm_1", "wm_2", "wm_2a", "wm_10"}, ids)
	assert.False(t, NaturalLess("a", "a"))
	assert.True(t, NaturalLess("wm_2", "wm_02"))
}
