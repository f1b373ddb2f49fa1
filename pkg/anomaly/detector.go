package anomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"costlens/pkg/analysis"
	"costlens/pkg/dataset"
)

// MinPoints is the shortest monthly series that is scanned
const MinPoints = 3

// Record is one flagged service month
type Record struct {
	Date         time.Time `json:"date"` // month end
	Month        string    `json:"month"`
	Service      string    `json:"service"`
	Cost         float64   `json:"cost"`
	Score        float64   `json:"score"` // 0-1
	Mean         float64   `json:"mean"`
	Std          float64   `json:"std"`
	DeviationPct float64   `json:"deviation_pct"`
	Strategy     string    `json:"strategy"`
	Explanation  *string   `json:"explanation"`
}

// Context is the numeric summary handed to an Explainer
type Context struct {
	Service      string
	Month        string
	Cost         float64
	Mean         float64
	Std          float64
	DeviationPct float64
	Score        float64
}

// Explainer turns a flagged point into prose
type Explainer interface {
	Explain(ctx context.Context, c Context) (string, error)
}

// FallbackExplanation is the template used when no explainer answers
func FallbackExplanation(c Context) string {
	return fmt.Sprintf("anomaly detected: cost %+.1f%% versus mean", c.DeviationPct)
}

// Options select the strategy and explanation behaviour of one scan
type Options struct {
	Strategy  string
	Threshold float64
	Explain   bool
}

// Detector scans the monthly series of every service
type Detector struct {
	registry  *Registry
	explainer Explainer
}

// NewDetector returns a detector. explainer may be nil.
func NewDetector(threshold float64, explainer Explainer) *Detector {
	return &Detector{registry: NewRegistry(threshold), explainer: explainer}
}

// Registry exposes the strategy registry
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Detect scans w month by month. Services with fewer than MinPoints months
// are skipped. Explanations are only produced when opts.Explain is set.
func (d *Detector) Detect(ctx context.Context, w *dataset.WideTable, opts Options) []Record {
	if w == nil || len(w.Services) == 0 {
		return nil
	}
	strategy := d.registry.Get(opts.Strategy)
	if opts.Threshold > 0 && strategy.Name() == StrategyZScore {
		strategy = NewZScore(opts.Threshold)
	}

	monthly := analysis.MonthlyTotals(w, w.Services)
	if len(monthly) < MinPoints {
		return nil
	}

	var out []Record
	for _, service := range w.Services {
		values := make([]float64, len(monthly))
		for i, m := range monthly {
			values[i] = m.Services[service]
		}
		flags := strategy.Detect(values)
		z := ZScores(values)
		mean, std := stat.PopMeanStdDev(values, nil)

		for i, flagged := range flags {
			if !flagged {
				continue
			}
			rec := Record{
				Date:     monthly[i].MonthEnd,
				Month:    monthly[i].Month,
				Service:  service,
				Cost:     values[i],
				Score:    math.Min(1, z[i]/5),
				Mean:     mean,
				Std:      std,
				Strategy: strategy.Name(),
			}
			if mean > 0 {
				rec.DeviationPct = (values[i] - mean) / mean * 100
			}
			if opts.Explain {
				text := d.explain(ctx, rec)
				rec.Explanation = &text
			}
			out = append(out, rec)
		}
	}
	return out
}

func (d *Detector) explain(ctx context.Context, rec Record) string {
	c := Context{
		Service:      rec.Service,
		Month:        rec.Month,
		Cost:         rec.Cost,
		Mean:         rec.Mean,
		Std:          rec.Std,
		DeviationPct: rec.DeviationPct,
		Score:        rec.Score,
	}
	if d.explainer != nil {
		if text, err := d.explainer.Explain(ctx, c); err == nil && text != "" {
			return text
		}
	}
	return FallbackExplanation(c)
}
