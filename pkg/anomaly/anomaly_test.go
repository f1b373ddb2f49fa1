package anomaly

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/pkg/dataset"
	"costlens/pkg/normalize"
)

var spike = []float64{100, 100, 100, 100, 100, 1000}

func monthlyWide(service string, values ...float64) *dataset.WideTable {
	w := &dataset.WideTable{Services: []string{service}}
	for i, v := range values {
		d := time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		w.Rows = append(w.Rows, dataset.WideRow{Date: &d, Values: []float64{v}})
	}
	w.Recompute()
	return w
}

func TestZScoreThreshold(t *testing.T) {
	z := ZScores(spike)
	assert.InDelta(t, 2.236, z[5], 1e-3)

	assert.Equal(t, []bool{false, false, false, false, false, true}, NewZScore(2.0).Detect(spike))
	assert.NotContains(t, NewZScore(3.0).Detect(spike), true)
	assert.NotContains(t, NewZScore(0).Detect(spike), true)
}

func TestZScoreConstantSeries(t *testing.T) {
	assert.NotContains(t, NewZScore(0.1).Detect([]float64{5, 5, 5, 5}), true)
	assert.Equal(t, []float64{0, 0, 0}, ZScores([]float64{7, 7, 7}))
}

func TestIsolationForestDeterministic(t *testing.T) {
	f := NewIsolationForest()
	first := f.Scores(spike)
	second := f.Scores(spike)
	assert.Equal(t, first, second)

	flags := f.Detect(spike)
	assert.Equal(t, []bool{false, false, false, false, false, true}, flags)
	for i := 0; i < 5; i++ {
		assert.Greater(t, first[5], first[i])
	}
}

func TestRegistryFallsBackToZScore(t *testing.T) {
	r := NewRegistry(2.5)
	assert.Equal(t, StrategyZScore, r.Get("unknown").Name())
	assert.Equal(t, StrategyIsolationForest, r.Get(" Isolation_Forest ").Name())
	assert.Equal(t, 2.5, r.Get("").(*ZScore).Threshold)
}

type failingExplainer struct{}

func (failingExplainer) Explain(context.Context, Context) (string, error) {
	return "", errors.New("llm unavailable")
}

type fixedExplainer string

func (f fixedExplainer) Explain(context.Context, Context) (string, error) {
	return string(f), nil
}

func TestDetectorFlagsSpike(t *testing.T) {
	w := monthlyWide("EC2", spike...)

	none := NewDetector(3.0, nil).Detect(context.Background(), w, Options{})
	assert.Empty(t, none)

	got := NewDetector(3.0, failingExplainer{}).Detect(context.Background(), w, Options{Threshold: 2.0, Explain: true})
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, "EC2", rec.Service)
	assert.Equal(t, "2024-06", rec.Month)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, 1000.0, rec.Cost)
	assert.InDelta(t, 2.236/5, rec.Score, 1e-3)
	assert.InDelta(t, 300, rec.DeviationPct, 1e-9)
	require.NotNil(t, rec.Explanation)
	assert.Equal(t, "anomaly detected: cost +300.0% versus mean", *rec.Explanation)
}

func TestDetectorUsesExplainer(t *testing.T) {
	w := monthlyWide("EC2", spike...)
	got := NewDetector(2.0, fixedExplainer("usage doubled")).Detect(context.Background(), w, Options{Explain: true})
	require.Len(t, got, 1)
	assert.Equal(t, "usage doubled", *got[0].Explanation)

	quiet := NewDetector(2.0, fixedExplainer("x")).Detect(context.Background(), w, Options{})
	require.Len(t, quiet, 1)
	assert.Nil(t, quiet[0].Explanation)
}

func TestDetectorIsolationForest(t *testing.T) {
	w := monthlyWide("EC2", spike...)
	got := NewDetector(3.0, nil).Detect(context.Background(), w, Options{Strategy: StrategyIsolationForest})
	require.Len(t, got, 1)
	assert.Equal(t, StrategyIsolationForest, got[0].Strategy)
	assert.Equal(t, 1000.0, got[0].Cost)
}

func TestDetectorNeedsThreeMonths(t *testing.T) {
	w := monthlyWide("EC2", 1, 1000)
	assert.Empty(t, NewDetector(0.1, nil).Detect(context.Background(), w, Options{}))
	assert.Empty(t, NewDetector(0.1, nil).Detect(context.Background(), nil, Options{}))
}

func momRecord(provider normalize.Provider, service, month string, cost float64) normalize.Record {
	d, _ := time.Parse("2006-01", month)
	return normalize.Record{UsageDate: &d, Month: month, CloudProvider: provider, ServiceName: service, CostAmount: cost}
}

func TestDetectMoM(t *testing.T) {
	records := []normalize.Record{
		momRecord(normalize.ProviderAWS, "EC2", "2024-01", 100),
		momRecord(normalize.ProviderAWS, "EC2", "2024-02", 145),
		momRecord(normalize.ProviderAWS, "S3", "2024-01", 0),
		momRecord(normalize.ProviderAWS, "S3", "2024-02", 500),
		momRecord(normalize.ProviderOCI, "Compute", "2024-01", 10),
		momRecord(normalize.ProviderOCI, "Compute", "2024-02", 50),
		momRecord(normalize.ProviderOCI, "Storage", "2024-01", 400),
		momRecord(normalize.ProviderOCI, "Storage", "2024-03", 200),
	}
	got := DetectMoM(records, DefaultMoMFloor, DefaultMoMThreshold)
	require.Len(t, got, 2)

	assert.Equal(t, "EC2", got[0].Service)
	assert.Equal(t, "2024-02", got[0].Month)
	assert.InDelta(t, 45, got[0].VariationPct, 1e-9)

	// compared with the preceding month present, and drops count
	assert.Equal(t, "Storage", got[1].Service)
	assert.Equal(t, "2024-03", got[1].Month)
	assert.InDelta(t, -50, got[1].VariationPct, 1e-9)
	assert.Equal(t, 400.0, got[1].PrevCost)

	spikes := Spikes(got)
	assert.Equal(t, "AWS", spikes[0].Provider)
}

func BenchmarkIsolationForestScores(b *testing.B) {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 100 + float64(i%7)
	}
	values[30] = 900
	f := NewIsolationForest()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Scores(values)
	}
}
