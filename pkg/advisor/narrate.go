package advisor

import (
	"context"
	"fmt"
	"strings"

	"costlens/pkg/analysis"
	"costlens/pkg/dataset"
)

// NoDataNarrative is returned for an empty table
const NoDataNarrative = "No data available to generate insights."

const narrativeTopServices = 5

// NarrativeContext is the numeric input of a narrative
type NarrativeContext struct {
	Summary     analysis.KPISummary
	TopServices []analysis.ServicePercentage
	MoMPct      *float64 // last month versus the previous one
}

// BuildNarrativeContext collects KPIs, the top services and the last
// month-over-month variation of w
func BuildNarrativeContext(w *dataset.WideTable) NarrativeContext {
	nc := NarrativeContext{Summary: analysis.Summary(w, nil)}
	dist := analysis.Percentages(analysis.ServiceTotals(w, nil))
	if len(dist) > narrativeTopServices {
		dist = dist[:narrativeTopServices]
	}
	nc.TopServices = dist

	monthly := analysis.MonthlyTotals(w, nil)
	if n := len(monthly); n > 1 {
		last, prev := monthly[n-1].Total, monthly[n-2].Total
		if prev > 0 {
			v := (last - prev) / prev * 100
			nc.MoMPct = &v
		}
	}
	return nc
}

// Narrate writes an executive summary of w
func (a *Advisor) Narrate(ctx context.Context, w *dataset.WideTable) string {
	if w == nil || w.Len() == 0 {
		return NoDataNarrative
	}
	nc := BuildNarrativeContext(w)
	user := fmt.Sprintf(`Analyze the following cost data and write an executive summary:

%s
Focus on:
1. A summary of the period
2. The main highlights (growth, reduction, dominant services)
3. Risks and optimization opportunities
`, nc.describe())
	return a.generate(ctx, analystPrompt, user, nc.template())
}

func (nc NarrativeContext) describe() string {
	var b strings.Builder
	s := nc.Summary
	fmt.Fprintf(&b, "- Total cost: $%.2f\n", s.TotalCost)
	fmt.Fprintf(&b, "- Average cost: $%.2f\n", s.AverageCost)
	fmt.Fprintf(&b, "- Max cost: $%.2f\n", s.MaxCost)
	fmt.Fprintf(&b, "- Min cost: $%.2f\n", s.MinCost)
	fmt.Fprintf(&b, "- Peak month: %s\n", orNA(s.PeakMonth))
	fmt.Fprintf(&b, "- Lowest month: %s\n", orNA(s.LowestMonth))
	fmt.Fprintf(&b, "- Most expensive service: %s\n", orNA(s.PeakService))
	fmt.Fprintf(&b, "- Cheapest service: %s\n", orNA(s.LowestService))
	if nc.MoMPct != nil {
		fmt.Fprintf(&b, "- Month over month variation: %+.1f%%\n", *nc.MoMPct)
	}
	b.WriteString("\nTop services by cost:\n")
	for _, p := range nc.TopServices {
		fmt.Fprintf(&b, "- %s: $%.2f (%.1f%%)\n", p.Service, p.Cost, p.Percentage)
	}
	return b.String()
}

// template is the narrative used when no generator answers
func (nc NarrativeContext) template() string {
	var b strings.Builder
	s := nc.Summary
	fmt.Fprintf(&b, "Total cost for the period was $%.2f, averaging $%.2f per record.", s.TotalCost, s.AverageCost)
	if s.PeakMonth != nil {
		fmt.Fprintf(&b, " The peak month was %s", *s.PeakMonth)
		if s.LowestMonth != nil {
			fmt.Fprintf(&b, " and the lowest was %s", *s.LowestMonth)
		}
		b.WriteString(".")
	}
	if nc.MoMPct != nil {
		fmt.Fprintf(&b, " The last month changed %+.1f%% versus the previous one.", *nc.MoMPct)
	}
	if len(nc.TopServices) > 0 {
		b.WriteString("\n\nHighlights:")
		for _, p := range nc.TopServices {
			fmt.Fprintf(&b, "\n- %s: $%.2f (%.1f%%)", p.Service, p.Cost, p.Percentage)
		}
	}
	if len(nc.TopServices) > 0 && nc.TopServices[0].Percentage > ConcentrationThreshold {
		fmt.Fprintf(&b, "\n\nRisks and opportunities: %s concentrates %.1f%% of spend and is the first candidate for optimization.",
			nc.TopServices[0].Service, nc.TopServices[0].Percentage)
	}
	return b.String()
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}
