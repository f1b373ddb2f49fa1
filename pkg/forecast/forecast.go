// Package forecast projects monthly cost with an ordinary least squares
// trend, clamped to a band derived from the history.
package forecast

import (
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"costlens/pkg/dataset"
	"costlens/pkg/utils/dateutils"
)

// DefaultHorizon is the number of months projected when none is given
const DefaultHorizon = 6

// ErrInsufficientData is returned when fewer than two positive months exist
var ErrInsufficientData = errors.New("forecast: at least two months of positive cost are required")

// MonthlyPoint is one historical month
type MonthlyPoint struct {
	Month time.Time `json:"month"` // first day of the month
	Cost  float64   `json:"cost"`
}

// Point is one projected month. Lower <= Forecast <= Upper holds.
type Point struct {
	Month    time.Time `json:"month"`
	Label    string    `json:"label"`
	Forecast float64   `json:"forecast"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
}

// Stats describes the history the band is built from
type Stats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Result is a forecast plus the inputs it was fitted on
type Result struct {
	Service   string         `json:"service,omitempty"`
	History   []MonthlyPoint `json:"history"`
	Points    []Point        `json:"points"`
	Stats     Stats          `json:"stats"`
	Slope     float64        `json:"slope"`
	Intercept float64        `json:"intercept"`
}

// Engine fits and extrapolates monthly totals
type Engine struct {
	horizon int
}

// NewEngine returns an engine projecting horizon months. horizon <= 0
// selects DefaultHorizon.
func NewEngine(horizon int) *Engine {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Engine{horizon: horizon}
}

// Horizon returns the number of projected months
func (e *Engine) Horizon() int {
	return e.horizon
}

// Forecast projects the total column of w
func (e *Engine) Forecast(w *dataset.WideTable) (*Result, error) {
	if w == nil {
		return nil, ErrInsufficientData
	}
	return e.fit(MonthlyHistory(w.Rows, func(r dataset.WideRow) float64 { return r.Total }))
}

// ForecastService projects a single service column of w
func (e *Engine) ForecastService(w *dataset.WideTable, service string) (*Result, error) {
	if w == nil {
		return nil, ErrInsufficientData
	}
	idx := w.ServiceIndex(service)
	if idx < 0 {
		return nil, ErrInsufficientData
	}
	res, err := e.fit(MonthlyHistory(w.Rows, func(r dataset.WideRow) float64 { return r.Values[idx] }))
	if err != nil {
		return nil, err
	}
	res.Service = service
	return res, nil
}

// MonthlyHistory sums strictly positive dated values per calendar month
// and returns the positive months in order
func MonthlyHistory(rows []dataset.WideRow, value func(dataset.WideRow) float64) []MonthlyPoint {
	sums := make(map[time.Time]float64)
	for _, r := range rows {
		if r.Date == nil {
			continue
		}
		v := value(r)
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sums[dateutils.MonthStart(*r.Date)] += v
	}
	out := make([]MonthlyPoint, 0, len(sums))
	for m, c := range sums {
		if c > 0 {
			out = append(out, MonthlyPoint{Month: m, Cost: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// ComputeStats returns the band of history. Std is the sample deviation.
func ComputeStats(history []MonthlyPoint) Stats {
	costs := costsOf(history)
	if len(costs) == 0 {
		return Stats{}
	}
	mean := stat.Mean(costs, nil)
	std := 0.0
	if len(costs) > 1 {
		std = stat.StdDev(costs, nil)
	}
	return Stats{
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(costs),
		Max:   floats.Max(costs),
		Lower: math.Max(mean-2*std, 0),
		Upper: mean + 2*std,
	}
}

func (e *Engine) fit(history []MonthlyPoint) (*Result, error) {
	if len(history) < 2 {
		return nil, ErrInsufficientData
	}
	stats := ComputeStats(history)

	t := make([]float64, len(history))
	for i := range t {
		t[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(t, costsOf(history), nil, false)

	last := history[len(history)-1].Month
	n := len(history)
	points := make([]Point, e.horizon)
	for i := range points {
		month := dateutils.AddMonths(last, i+1)
		points[i] = Point{
			Month:    month,
			Label:    dateutils.MonthLabel(month),
			Forecast: Clamp(alpha+beta*float64(n+i), stats),
			Lower:    stats.Lower,
			Upper:    stats.Upper,
		}
	}

	return &Result{History: history, Points: points, Stats: stats, Slope: beta, Intercept: alpha}, nil
}

// Clamp bounds a raw prediction to the band of stats
func Clamp(pred float64, s Stats) float64 {
	v := math.Min(math.Max(pred, s.Lower), s.Upper)
	v = math.Max(v, 0)
	if s.Mean > 0 && v == 0 {
		v = s.Lower
	}
	v = math.Min(v, math.Min(3*s.Max, s.Upper))
	if v < s.Lower && s.Lower > 0 {
		v = s.Lower
	}
	return v
}

func costsOf(history []MonthlyPoint) []float64 {
	out := make([]float64, len(history))
	for i, p := range history {
		out[i] = p.Cost
	}
	return out
}
