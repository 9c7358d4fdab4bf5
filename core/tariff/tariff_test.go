package tariff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/loadshift/core/interval"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func economy7() Schedule {
	return Schedule{Kind: TimeBased, Periods: []Period{
		{Start: "00:30", End: "07:30", Rate: 0.15},
		{Start: "07:30", End: "00:30", Rate: 0.30},
	}}
}

func seasonal() Schedule {
	return Schedule{Kind: SeasonalTimeBased, Seasonal: map[string]Season{
		"summer": {Months: []int{6, 7, 8}, Periods: []Period{
			{Start: "00:00", End: "12:00", Rate: 0.20},
			{Start: "12:00", End: "24:00", Rate: 0.30},
		}},
		"winter": {Months: []int{1, 2, 3, 4, 5, 9, 10, 11, 12}, Periods: []Period{
			{Start: "00:00", End: "12:00", Rate: 0.30},
			{Start: "12:00", End: "24:00", Rate: 0.40},
		}},
	}}
}

func TestPriceInfoSplitsWrappingBand(t *testing.T) {
	info, err := economy7().PriceInfo(time.March)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.15, 0.30}, info.Rates)
	assert.Equal(t, []Band{
		{Start: 0, End: 30, Rate: 0.30, Level: 1},
		{Start: 30, End: 450, Rate: 0.15, Level: 0},
		{Start: 450, End: 1440, Rate: 0.30, Level: 1},
	}, info.Bands)
	assert.True(t, info.Covers())
	assert.Equal(t, map[int]float64{0: 0.15, 1: 0.30}, info.LevelsFor())
	assert.Equal(t, 1, info.MaxLevel())
}

func TestLevelAt(t *testing.T) {
	info, err := economy7().PriceInfo(time.January)
	require.NoError(t, err)
	cases := []struct {
		minute int
		level  int
		rate   float64
	}{
		{0, 1, 0.30},
		{29, 1, 0.30},
		{30, 0, 0.15},
		{449, 0, 0.15},
		{450, 1, 0.30},
		{1440 + 40, 0, 0.15},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, info.LevelAt(c.minute), "minute %d", c.minute)
		assert.Equal(t, c.rate, info.RateAt(c.minute), "minute %d", c.minute)
	}
}

func TestProfile(t *testing.T) {
	info, err := economy7().PriceInfo(time.January)
	require.NoError(t, err)

	p, fb := info.Profile(400, 500)
	assert.False(t, fb)
	assert.Equal(t, map[int]int{0: 50, 1: 50}, p)

	// Crosses midnight into the next day's wrapped band.
	p, fb = info.Profile(1430, 1480)
	assert.False(t, fb)
	assert.Equal(t, map[int]int{0: 10, 1: 40}, p)

	p, _ = info.Profile(500, 500)
	assert.Equal(t, map[int]int{0: 0, 1: 0}, p)
}

func TestProfileSumsToDuration(t *testing.T) {
	info, err := economy7().PriceInfo(time.January)
	require.NoError(t, err)
	for start := 0; start < 2*interval.MinutesPerDay; start += 37 {
		for _, d := range []int{1, 5, 60, 300, 1500} {
			p, fb := info.Profile(start, start+d)
			require.False(t, fb)
			sum := 0
			for _, m := range p {
				sum += m
			}
			require.Equal(t, d, sum, "start %d duration %d", start, d)
		}
	}
}

func TestProfileFallbackOnGap(t *testing.T) {
	s := Schedule{Kind: TimeBased, Periods: []Period{
		{Start: "08:00", End: "12:00", Rate: 0.2},
		{Start: "12:00", End: "18:00", Rate: 0.4},
	}}
	info, err := s.PriceInfo(time.May)
	require.NoError(t, err)
	assert.False(t, info.Covers())

	p, fb := info.Profile(420, 540)
	assert.True(t, fb)
	assert.Equal(t, map[int]int{0: 120, 1: 0}, p)

	p, fb = info.Profile(780, 840)
	assert.False(t, fb)
	assert.Equal(t, map[int]int{0: 0, 1: 60}, p)

	assert.Equal(t, 0, info.LevelAt(60))
	assert.Equal(t, 0.2, info.RateAt(60))
}

func TestFlat(t *testing.T) {
	info, err := Schedule{Kind: Flat, Rate: 0.25}.PriceInfo(time.July)
	require.NoError(t, err)
	p, fb := info.Profile(100, 160)
	assert.False(t, fb)
	assert.Equal(t, map[int]int{0: 60}, p)
	assert.Equal(t, []interval.Interval{{Start: 0, End: 1440}}, info.CheapWindows(1440))
	assert.Equal(t, 0, info.MaxLevel())
}

func TestSeasonalLevelsRankedPerSeason(t *testing.T) {
	s := seasonal()
	require.NoError(t, s.Validate("tou"))

	summer, err := s.PriceInfo(time.July)
	require.NoError(t, err)
	winter, err := s.PriceInfo(time.January)
	require.NoError(t, err)

	// 0.30 is the expensive level in summer and the cheap one in winter.
	assert.Equal(t, 1, summer.LevelAt(600+720))
	assert.Equal(t, 0.30, summer.RateAt(600+720))
	assert.Equal(t, 0, winter.LevelAt(600))
	assert.Equal(t, 0.30, winter.RateAt(600))
}

func TestSeasonalUnknownMonth(t *testing.T) {
	s := seasonal()
	s.Seasonal["winter"] = Season{Months: []int{1, 2, 12}, Periods: s.Seasonal["winter"].Periods}
	require.NoError(t, s.Validate("tou"))
	_, err := s.PriceInfo(time.March)
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]Schedule{
		"empty band":     {Kind: TimeBased, Periods: []Period{{Start: "07:00", End: "07:00", Rate: 1}}},
		"no periods":     {Kind: TimeBased},
		"negative rate":  {Kind: TimeBased, Periods: []Period{{Start: "00:00", End: "24:00", Rate: -1}}},
		"past midnight":  {Kind: TimeBased, Periods: []Period{{Start: "25:00", End: "02:00", Rate: 1}}},
		"bad clock":      {Kind: TimeBased, Periods: []Period{{Start: "x", End: "02:00", Rate: 1}}},
		"unknown kind":   {Kind: "hourly"},
		"negative flat":  {Kind: Flat, Rate: -0.1},
		"no seasons":     {Kind: SeasonalTimeBased},
		"month overlap":  {Kind: SeasonalTimeBased, Seasonal: map[string]Season{"a": {Months: []int{1}, Periods: economy7().Periods}, "b": {Months: []int{1}, Periods: economy7().Periods}}},
		"month range":    {Kind: SeasonalTimeBased, Seasonal: map[string]Season{"a": {Months: []int{13}, Periods: economy7().Periods}}},
		"season no band": {Kind: SeasonalTimeBased, Seasonal: map[string]Season{"a": {Months: []int{1}}}},
	}
	for name, s := range cases {
		err := s.Validate(name)
		require.Error(t, err, name)
		assert.True(t, model.IsConfigError(err), name)
	}
}

func TestKindInferred(t *testing.T) {
	assert.Equal(t, Flat, Schedule{Rate: 0.2}.normalized().Kind)
	assert.Equal(t, TimeBased, Schedule{Periods: economy7().Periods}.normalized().Kind)
	assert.Equal(t, SeasonalTimeBased, Schedule{Seasonal: seasonal().Seasonal}.normalized().Kind)
}

func TestCheapWindowsOverHorizon(t *testing.T) {
	info, err := economy7().PriceInfo(time.January)
	require.NoError(t, err)
	assert.Equal(t, []interval.Interval{{Start: 30, End: 450}, {Start: 1470, End: 1890}}, info.CheapWindows(2880))
	assert.Equal(t, []interval.Interval{{Start: 30, End: 450}}, info.CheapWindows(1440))
	assert.Equal(t, []interval.Interval{{Start: 0, End: 30}, {Start: 450, End: 1470}}, info.Windows(1, 1470))
}

func TestPrimaryLevelAndPotential(t *testing.T) {
	assert.Equal(t, 1, PrimaryLevel(map[int]int{0: 10, 1: 40}))
	assert.Equal(t, 0, PrimaryLevel(map[int]int{0: 5, 1: 5}))
	assert.Equal(t, 0, PrimaryLevel(nil))
	assert.InDelta(t, 0.5, OptimizationPotential(1, 2), 1e-9)
	assert.Equal(t, 0.0, OptimizationPotential(0, 0))
}

func TestRepositoryMemoisesPerMonth(t *testing.T) {
	data := `{
	  "Economy_7": {"kind": "time_based", "periods": [{"start": "00:30", "end": "07:30", "rate": 0.15}, {"start": "07:30", "end": "00:30", "rate": 0.30}]},
	  "Standard": {"kind": "flat", "rate": 0.25}
	}`
	repo, err := DecodeRepository(strings.NewReader(data), "json")
	require.NoError(t, err)
	assert.Equal(t, []string{"Economy_7", "Standard"}, repo.Names())

	a, err := repo.PriceInfo("Economy_7", time.March)
	require.NoError(t, err)
	b, err := repo.PriceInfo("Economy_7", time.March)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	_, err = repo.PriceInfo("Economy_7", time.April)
	require.NoError(t, err)
	assert.Len(t, repo.cache, 2)

	_, err = repo.PriceInfo("Missing", time.March)
	assert.Error(t, err)

	src, err := repo.Plan("Standard")
	require.NoError(t, err)
	info, err := src.PriceInfo(time.May)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25}, info.Rates)

	_, err = repo.Plan("Missing")
	assert.Error(t, err)
}

func TestRepositoriesDoNotShareState(t *testing.T) {
	r1, err := NewRepository(map[string]Schedule{"t": economy7()})
	require.NoError(t, err)
	r2, err := NewRepository(map[string]Schedule{"t": {Kind: Flat, Rate: 0.5}})
	require.NoError(t, err)
	i1, err := r1.PriceInfo("t", time.June)
	require.NoError(t, err)
	i2, err := r2.PriceInfo("t", time.June)
	require.NoError(t, err)
	assert.NotEqual(t, i1.Rates, i2.Rates)
}

func TestLoadRepositoryYAML(t *testing.T) {
	data := `TOU_D:
  kind: seasonal_time_based
  seasonal:
    summer:
      months: [6, 7, 8, 9]
      periods:
        - {start: "00:00", end: "16:00", rate: 0.30}
        - {start: "16:00", end: "21:00", rate: 0.50}
        - {start: "21:00", end: "00:00", rate: 0.30}
    winter:
      months: [1, 2, 3, 4, 5, 10, 11, 12]
      periods:
        - {start: "00:00", end: "16:00", rate: 0.28}
        - {start: "16:00", end: "21:00", rate: 0.40}
        - {start: "21:00", end: "24:00", rate: 0.28}
`
	path := filepath.Join(t.TempDir(), "tariffs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	repo, err := LoadRepository(path)
	require.NoError(t, err)
	info, err := repo.PriceInfo("TOU_D", time.July)
	require.NoError(t, err)
	assert.Equal(t, []interval.Interval{{Start: 0, End: 960}, {Start: 1260, End: 1440}}, info.CheapWindows(1440))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"x": {"kind": "time_based", "periods": [{"start": "07:00", "end": "07:00", "rate": 1}]}}`), 0o644))
	_, err = LoadRepository(bad)
	assert.True(t, model.IsConfigError(err))
}
