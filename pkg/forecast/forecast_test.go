package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/pkg/dataset"
)

func wide(values ...float64) *dataset.WideTable {
	w := &dataset.WideTable{Services: []string{"EC2"}}
	for i, v := range values {
		d := time.Date(2024, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC)
		w.Rows = append(w.Rows, dataset.WideRow{Date: &d, Values: []float64{v}})
	}
	w.Recompute()
	return w
}

func TestForecastLinearTrend(t *testing.T) {
	res, err := NewEngine(3).Forecast(wide(100, 200, 300))
	require.NoError(t, err)

	assert.InDelta(t, 100, res.Slope, 1e-9)
	assert.InDelta(t, 100, res.Intercept, 1e-9)
	assert.InDelta(t, 200, res.Stats.Mean, 1e-9)
	assert.InDelta(t, 100, res.Stats.Std, 1e-9)
	assert.Equal(t, 0.0, res.Stats.Lower)
	assert.InDelta(t, 400, res.Stats.Upper, 1e-9)

	require.Len(t, res.Points, 3)
	assert.Equal(t, "2024-04", res.Points[0].Label)
	assert.Equal(t, "2024-06", res.Points[2].Label)
	for _, p := range res.Points {
		assert.InDelta(t, 400, p.Forecast, 1e-9)
	}
}

func TestForecastBoundsHold(t *testing.T) {
	series := [][]float64{
		{100, 200, 300},
		{900, 10, 5, 1},
		{50, 50, 50, 50},
		{1, 1000, 1, 1000, 1},
		{300, 250, 200, 150, 100, 50},
	}
	for _, s := range series {
		res, err := NewEngine(0).Forecast(wide(s...))
		require.NoError(t, err)
		require.Len(t, res.Points, DefaultHorizon)
		for _, p := range res.Points {
			assert.GreaterOrEqual(t, p.Forecast, 0.0, "%v", s)
			assert.LessOrEqual(t, p.Lower, p.Forecast+1e-9, "%v", s)
			assert.LessOrEqual(t, p.Forecast, p.Upper+1e-9, "%v", s)
			assert.False(t, math.IsNaN(p.Forecast))
		}
	}
}

func TestForecastInsufficientData(t *testing.T) {
	_, err := NewEngine(6).Forecast(wide(100))
	assert.True(t, errors.Is(err, ErrInsufficientData))

	// zero and negative months do not count
	_, err = NewEngine(6).Forecast(wide(100, 0, -5))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewEngine(6).Forecast(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestForecastFlatHistory(t *testing.T) {
	res, err := NewEngine(2).Forecast(wide(100, 100))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Stats.Std)
	for _, p := range res.Points {
		assert.InDelta(t, 100, p.Forecast, 1e-9)
	}
}

func TestForecastService(t *testing.T) {
	w := wide(100, 200, 300)
	res, err := NewEngine(1).ForecastService(w, "EC2")
	require.NoError(t, err)
	assert.Equal(t, "EC2", res.Service)
	assert.Len(t, res.Points, 1)

	_, err = NewEngine(1).ForecastService(w, "S3")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMonthlyHistoryGroupsByMonth(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	rows := []dataset.WideRow{
		{Date: &d1, Total: 10},
		{Date: &d2, Total: 5},
		{Date: nil, Total: 99},
	}
	h := MonthlyHistory(rows, func(r dataset.WideRow) float64 { return r.Total })
	require.Len(t, h, 1)
	assert.Equal(t, 15.0, h[0].Cost)
	assert.Equal(t, d1, h[0].Month)
}

func TestClamp(t *testing.T) {
	s := Stats{Mean: 100, Std: 10, Min: 90, Max: 110, Lower: 80, Upper: 120}
	assert.Equal(t, 80.0, Clamp(-50, s))
	assert.Equal(t, 120.0, Clamp(500, s))
	assert.Equal(t, 100.0, Clamp(100, s))

	capped := Stats{Mean: 10, Std: 100, Max: 20, Lower: 0, Upper: 210}
	assert.Equal(t, 60.0, Clamp(1000, capped))
}
