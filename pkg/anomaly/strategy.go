// Package anomaly flags unusual monthly costs, per service with pluggable
// statistical strategies and across clouds with month-over-month spikes.
package anomaly

import (
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Strategy names
const (
	StrategyZScore          = "zscore"
	StrategyIsolationForest = "isolation_forest"

	DefaultThreshold = 3.0
)

// Strategy marks the anomalous positions of a series
type Strategy interface {
	Name() string
	Detect(values []float64) []bool
}

// ZScore flags values more than Threshold population deviations from the
// mean. A constant series flags nothing.
type ZScore struct {
	Threshold float64
}

// NewZScore returns a z-score strategy. threshold <= 0 selects DefaultThreshold.
func NewZScore(threshold float64) *ZScore {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ZScore{Threshold: threshold}
}

func (z *ZScore) Name() string { return StrategyZScore }

func (z *ZScore) Detect(values []float64) []bool {
	flags := make([]bool, len(values))
	for i, s := range ZScores(values) {
		flags[i] = s > z.Threshold
	}
	return flags
}

// ZScores returns |x-mean|/std per value using the population deviation.
// All scores are 0 when std is 0.
func ZScores(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		return out
	}
	for i, v := range values {
		d := (v - mean) / std
		if d < 0 {
			d = -d
		}
		out[i] = d
	}
	return out
}

// Registry resolves strategies by name
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry registers the z-score strategy with threshold and the
// isolation forest. Unknown names resolve to z-score.
func NewRegistry(threshold float64) *Registry {
	z := NewZScore(threshold)
	return &Registry{
		strategies: map[string]Strategy{
			StrategyZScore:          z,
			StrategyIsolationForest: NewIsolationForest(),
		},
		fallback: z,
	}
}

// Register adds or replaces a strategy
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get returns the named strategy, or z-score
func (r *Registry) Get(name string) Strategy {
	if s, ok := r.strategies[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return r.fallback
}
