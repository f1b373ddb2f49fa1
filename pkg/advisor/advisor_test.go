package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/pkg/analysis"
	"costlens/pkg/anomaly"
	"costlens/pkg/dataset"
	"costlens/pkg/llm"
)

type recordingGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *recordingGenerator) Enabled() bool { return true }

func (g *recordingGenerator) Generate(_ context.Context, _, user string) (string, error) {
	g.prompts = append(g.prompts, user)
	return g.text, g.err
}

var sampleTotals = []analysis.ServiceTotal{
	{Service: "Amazon Elastic Compute Cloud - EC2", TotalCost: 500},
	{Service: "Amazon RDS", TotalCost: 300},
	{Service: "Amazon S3", TotalCost: 150},
	{Service: "AWS Support (Business)", TotalCost: 50},
}

func TestRecommendAppliesShareRules(t *testing.T) {
	recs := New(nil).Recommend(context.Background(), sampleTotals)
	require.Len(t, recs, 3)

	assert.Equal(t, CategoryReservedInstances, recs[0].Category)
	assert.Equal(t, "RDS", recs[0].Service)
	assert.Equal(t, ImpactHigh, recs[0].Impact)
	assert.Equal(t, "RDS represents 30.0% of costs. Consider Reserved Instances to save up to 40%.", recs[0].Description)

	assert.Equal(t, CategoryComputeOptimization, recs[1].Category)
	assert.Equal(t, 15.0, recs[1].EstimatedSavingPercent)

	assert.Equal(t, CategoryCostConcentration, recs[2].Category)
	assert.Equal(t, "Amazon Elastic Compute Cloud - EC2", recs[2].Service)
	assert.Contains(t, recs[2].Description, "50.0%")
}

func TestRecommendThresholdsAreStrict(t *testing.T) {
	// S3 sits exactly at 15% and Support exactly at 5%
	for _, r := range New(nil).Recommend(context.Background(), sampleTotals) {
		assert.NotEqual(t, CategoryStorageOptimization, r.Category)
		assert.NotEqual(t, CategorySupportOptimization, r.Category)
	}

	recs := New(nil).Recommend(context.Background(), []analysis.ServiceTotal{
		{Service: "S3 Standard", TotalCost: 30},
		{Service: "S3 Glacier", TotalCost: 30},
		{Service: "Compute", TotalCost: 40},
	})
	require.Len(t, recs, 1)
	assert.Equal(t, CategoryStorageOptimization, recs[0].Category)
}

func TestRecommendUsesGenerator(t *testing.T) {
	gen := &recordingGenerator{text: "generated advice"}
	recs := New(gen).Recommend(context.Background(), sampleTotals)
	require.NotEmpty(t, recs)
	assert.Equal(t, "generated advice", recs[0].Description)
	require.NotEmpty(t, gen.prompts)
	assert.Contains(t, gen.prompts[0], "RDS represents 30.0% of the total cost ($300.00)")
}

func TestRecommendFallsBackOnError(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("timeout")}
	recs := New(gen).Recommend(context.Background(), sampleTotals)
	assert.Contains(t, recs[0].Description, "Consider Reserved Instances")
}

func TestRecommendEmpty(t *testing.T) {
	assert.Empty(t, New(nil).Recommend(context.Background(), nil))
	assert.Empty(t, New(nil).Recommend(context.Background(), []analysis.ServiceTotal{{Service: "x"}}))
}

func monthlyWide(values ...float64) *dataset.WideTable {
	w := &dataset.WideTable{Services: []string{"EC2", "S3"}}
	for i, v := range values {
		d := time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		w.Rows = append(w.Rows, dataset.WideRow{Date: &d, Values: []float64{v, 10}})
	}
	w.Recompute()
	return w
}

func TestNarrateTemplate(t *testing.T) {
	text := New(nil).Narrate(context.Background(), monthlyWide(90, 190))
	assert.Contains(t, text, "Total cost for the period was $300.00")
	assert.Contains(t, text, "The peak month was 2024-02 and the lowest was 2024-01.")
	assert.Contains(t, text, "+100.0% versus the previous one")
	assert.Contains(t, text, "- EC2: $280.00 (93.3%)")
	assert.Contains(t, text, "Risks and opportunities")
}

func TestNarratePromptCarriesContext(t *testing.T) {
	gen := &recordingGenerator{text: "summary"}
	assert.Equal(t, "summary", New(gen).Narrate(context.Background(), monthlyWide(90, 190)))
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "- Total cost: $300.00")
	assert.Contains(t, gen.prompts[0], "- Month over month variation: +100.0%")
}

func TestNarrateEmpty(t *testing.T) {
	assert.Equal(t, NoDataNarrative, New(nil).Narrate(context.Background(), nil))
	assert.Equal(t, NoDataNarrative, New(nil).Narrate(context.Background(), &dataset.WideTable{}))
}

func TestExplainPlugsIntoDetector(t *testing.T) {
	w := &dataset.WideTable{Services: []string{"EC2"}}
	for i, v := range []float64{100, 100, 100, 100, 100, 1000} {
		d := time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		w.Rows = append(w.Rows, dataset.WideRow{Date: &d, Values: []float64{v}})
	}
	w.Recompute()

	_, err := New(nil).Explain(context.Background(), anomaly.Context{})
	assert.ErrorIs(t, err, llm.ErrDisabled)

	gen := &recordingGenerator{text: "a new cluster was launched"}
	det := anomaly.NewDetector(2.0, New(gen))
	recs := det.Detect(context.Background(), w, anomaly.Options{Explain: true})
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Explanation)
	assert.Equal(t, "a new cluster was launched", *recs[0].Explanation)
	assert.Contains(t, gen.prompts[0], "Service EC2 cost $1000.00 in 2024-06")
}
