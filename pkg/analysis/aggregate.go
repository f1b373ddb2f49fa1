// Package analysis holds the aggregation engine: pure functions over a
// dataset's wide table and canonical records.
package analysis

import (
	"sort"

	"github.com/samber/lo"

	"costlens/pkg/dataset"
	"costlens/pkg/utils/dateutils"
)

// scope narrows w to services, or returns w when none are given
func scope(w *dataset.WideTable, services []string) *dataset.WideTable {
	if w == nil {
		return &dataset.WideTable{}
	}
	if len(services) == 0 {
		return w
	}
	return w.Select(services)
}

// ServiceTotals sums every service column, highest first. Ties keep
// column order.
func ServiceTotals(w *dataset.WideTable, services []string) []ServiceTotal {
	w = scope(w, services)
	out := make([]ServiceTotal, len(w.Services))
	for i, s := range w.Services {
		out[i] = ServiceTotal{Service: s, TotalCost: lo.Sum(w.Series(s))}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalCost > out[j].TotalCost })
	return out
}

// Percentages turns totals into shares of their sum. A zero sum yields 0 for
// every service.
func Percentages(totals []ServiceTotal) []ServicePercentage {
	grand := lo.SumBy(totals, func(t ServiceTotal) float64 { return t.TotalCost })
	return lo.Map(totals, func(t ServiceTotal, _ int) ServicePercentage {
		return ServicePercentage{
			Service:    t.Service,
			Cost:       t.TotalCost,
			Percentage: Round2(pct(t.TotalCost, grand)),
		}
	})
}

// Rankings returns the first topN totals. topN <= 0 selects DefaultTopN.
func Rankings(totals []ServiceTotal, topN int) []ServiceTotal {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(totals) > topN {
		return totals[:topN]
	}
	return totals
}

// MonthlyTotals rolls the wide table up to calendar months present in the
// data. Undated rows are ignored. Services are broken out when given.
func MonthlyTotals(w *dataset.WideTable, services []string) []MonthlyAggregate {
	w = scope(w, services)
	byMonth := make(map[string]*MonthlyAggregate)
	var order []string
	for _, row := range w.Rows {
		if row.Date == nil {
			continue
		}
		label := dateutils.MonthLabel(*row.Date)
		agg, ok := byMonth[label]
		if !ok {
			agg = &MonthlyAggregate{Month: label, MonthEnd: dateutils.MonthEnd(*row.Date)}
			if len(services) > 0 {
				agg.Services = make(map[string]float64, len(w.Services))
			}
			byMonth[label] = agg
			order = append(order, label)
		}
		agg.Total += row.Total
		if agg.Services != nil {
			for i, s := range w.Services {
				agg.Services[s] += row.Values[i]
			}
		}
	}

	sort.Strings(order)
	return lo.Map(order, func(label string, _ int) MonthlyAggregate { return *byMonth[label] })
}

// MonthlyEvolution is MonthlyTotals with every selected service broken out
func MonthlyEvolution(w *dataset.WideTable, services []string) []MonthlyAggregate {
	if len(services) == 0 && w != nil {
		services = w.Services
	}
	return MonthlyTotals(w, services)
}

// ComputeOverallMetrics summarizes the total column. Empty input yields zeros.
func ComputeOverallMetrics(w *dataset.WideTable) OverallMetrics {
	if w == nil || len(w.Rows) == 0 {
		return OverallMetrics{}
	}
	values := w.Totals()
	total := lo.Sum(values)
	return OverallMetrics{
		Total:   Round2(total),
		Average: Round2(total / float64(len(values))),
		Max:     Round2(lo.Max(values)),
		Min:     Round2(lo.Min(values)),
	}
}

// ComputeHighlights picks the most and least expensive service and month.
// Each field is set independently.
func ComputeHighlights(totals []ServiceTotal, monthly []MonthlyAggregate) Highlights {
	var h Highlights
	if len(totals) > 0 {
		maxT := lo.MaxBy(totals, func(a, b ServiceTotal) bool { return a.TotalCost > b.TotalCost })
		minT := lo.MinBy(totals, func(a, b ServiceTotal) bool { return a.TotalCost < b.TotalCost })
		h.PeakService = lo.ToPtr(maxT.Service)
		h.LowestService = lo.ToPtr(minT.Service)
	}
	if len(monthly) > 0 {
		maxM := lo.MaxBy(monthly, func(a, b MonthlyAggregate) bool { return a.Total > b.Total })
		minM := lo.MinBy(monthly, func(a, b MonthlyAggregate) bool { return a.Total < b.Total })
		h.PeakMonth = lo.ToPtr(maxM.Month)
		h.LowestMonth = lo.ToPtr(minM.Month)
	}
	return h
}

// Summary builds the KPI summary of w, scoped to services
func Summary(w *dataset.WideTable, services []string) KPISummary {
	metrics := ComputeOverallMetrics(scope(w, services))
	h := ComputeHighlights(ServiceTotals(w, services), MonthlyTotals(w, services))
	return KPISummary{
		TotalCost:     metrics.Total,
		AverageCost:   metrics.Average,
		MaxCost:       metrics.Max,
		MinCost:       metrics.Min,
		PeakMonth:     h.PeakMonth,
		LowestMonth:   h.LowestMonth,
		PeakService:   h.PeakService,
		LowestService: h.LowestService,
	}
}

// ServiceStatistics returns sum, mean, max and min of each service column
func ServiceStatistics(w *dataset.WideTable, services []string) []ServiceStatistic {
	w = scope(w, services)
	if len(w.Rows) == 0 {
		return nil
	}
	return lo.Map(w.Services, func(s string, _ int) ServiceStatistic {
		series := w.Series(s)
		sum := lo.Sum(series)
		return ServiceStatistic{
			Service: s,
			Sum:     sum,
			Mean:    sum / float64(len(series)),
			Max:     lo.Max(series),
			Min:     lo.Min(series),
		}
	})
}

// ServiceStats returns the detailed per-service view, highest total first
func ServiceStats(w *dataset.WideTable, services []string) []ServiceStat {
	totals := ServiceTotals(w, services)
	grand := lo.SumBy(totals, func(t ServiceTotal) float64 { return t.TotalCost })
	w = scope(w, services)
	return lo.Map(totals, func(t ServiceTotal, _ int) ServiceStat {
		series := w.Series(t.Service)
		st := ServiceStat{
			Service:     t.Service,
			TotalCost:   t.TotalCost,
			Percentage:  pct(t.TotalCost, grand),
			RecordCount: len(series),
		}
		if len(series) > 0 {
			st.AverageCost = t.TotalCost / float64(len(series))
			st.MaxCost = lo.Max(series)
			st.MinCost = lo.Min(series)
		}
		return st
	})
}
