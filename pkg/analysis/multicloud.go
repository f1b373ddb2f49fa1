package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"costlens/pkg/dataset"
	"costlens/pkg/normalize"
	"costlens/pkg/utils/dateutils"
)

// monthTotal is one month's summed cost
type monthTotal struct {
	month string
	cost  float64
}

// monthlyByLabel sums records per month label in calendar order. The
// no-date bucket is kept last when includeUndated is set.
func monthlyByLabel(records []normalize.Record, includeUndated bool) []monthTotal {
	sums := make(map[string]float64)
	for _, r := range records {
		if r.Month == normalize.NoDateMonth && !includeUndated {
			continue
		}
		sums[r.Month] += r.CostAmount
	}
	labels := sortMonths(lo.Keys(sums))
	return lo.Map(labels, func(l string, _ int) monthTotal { return monthTotal{month: l, cost: sums[l]} })
}

// sortMonths orders YYYY-MM labels with the no-date label last
func sortMonths(labels []string) []string {
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if a == normalize.NoDateMonth || b == normalize.NoDateMonth {
			return b == normalize.NoDateMonth && a != b
		}
		return a < b
	})
	return labels
}

// filterWindow keeps dated records inside w. A nil window keeps everything.
func filterWindow(records []normalize.Record, w *DateWindow) []normalize.Record {
	if w == nil {
		return records
	}
	rng := w.Range()
	return lo.Filter(records, func(r normalize.Record, _ int) bool {
		return r.UsageDate != nil && rng.Contains(*r.UsageDate)
	})
}

// ComputeMultiCloudKPIs returns the headline numbers of records inside the
// window. Without a window the period length is the span of the dates.
func ComputeMultiCloudKPIs(records []normalize.Record, window *DateWindow) MultiCloudKPIs {
	records = filterWindow(records, window)
	kpis := MultiCloudKPIs{MaxMonth: NoValueLabel, MinMonth: NoValueLabel}
	if len(records) == 0 {
		return kpis
	}

	total := lo.SumBy(records, func(r normalize.Record) float64 { return r.CostAmount })
	days := 0
	if window != nil {
		days = window.Days
	} else if dates := normalize.Dates(records); len(dates) > 0 {
		days = dateutils.DaysInclusive(dates[0], dates[len(dates)-1])
	}
	avgDaily := total
	if days > 0 {
		avgDaily = total / float64(days)
	}

	monthly := monthlyByLabel(records, false)
	if len(monthly) > 0 {
		kpis.MaxMonth = lo.MaxBy(monthly, func(a, b monthTotal) bool { return a.cost > b.cost }).month
		kpis.MinMonth = lo.MinBy(monthly, func(a, b monthTotal) bool { return a.cost < b.cost }).month
	}
	if n := len(monthly); n >= 2 {
		kpis.MoMDeltaPct = pct(monthly[n-1].cost-monthly[n-2].cost, monthly[n-2].cost)
	}
	if len(monthly) > 0 {
		tail := monthly[max(0, len(monthly)-3):]
		kpis.ForecastNextMonth = lo.SumBy(tail, func(m monthTotal) float64 { return m.cost }) / float64(len(tail))
	}

	kpis.TotalCost = Round2(total)
	kpis.AvgDaily = Round2(avgDaily)
	kpis.MoMDeltaPct = Round2(kpis.MoMDeltaPct)
	kpis.ForecastNextMonth = Round2(kpis.ForecastNextMonth)
	return kpis
}

// MonthlyTrend returns one row per month with a column per provider in
// CloudOrder plus the total
func MonthlyTrend(records []normalize.Record) []TrendRow {
	rows := make(map[string]*TrendRow)
	for _, r := range records {
		row, ok := rows[r.Month]
		if !ok {
			row = &TrendRow{Month: r.Month, Providers: zeroProviders()}
			rows[r.Month] = row
		}
		if _, known := row.Providers[string(r.CloudProvider)]; known {
			row.Providers[string(r.CloudProvider)] += r.CostAmount
			row.Total += r.CostAmount
		}
	}
	return lo.Map(sortMonths(lo.Keys(rows)), func(m string, _ int) TrendRow { return *rows[m] })
}

func zeroProviders() map[string]float64 {
	out := make(map[string]float64, len(normalize.CloudOrder))
	for _, p := range normalize.CloudOrder {
		out[string(p)] = 0
	}
	return out
}

// TopServices ranks (provider, service) pairs by cost
func TopServices(records []normalize.Record, n int) []ProviderService {
	if n <= 0 {
		n = DefaultTopN
	}
	all := providerServiceTotals(records)
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func providerServiceTotals(records []normalize.Record) []ProviderService {
	type key struct{ provider, service string }
	sums := make(map[key]float64)
	var order []key
	for _, r := range records {
		k := key{string(r.CloudProvider), r.ServiceName}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += r.CostAmount
	}
	out := lo.Map(order, func(k key, _ int) ProviderService {
		return ProviderService{Provider: k.provider, Service: k.service, Cost: sums[k]}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost > out[j].Cost })
	return out
}

// Treemap groups cost by provider, category and service. Services outside
// the topK most expensive are folded into OthersLabel.
func Treemap(records []normalize.Record, topK int) []TreemapNode {
	if topK <= 0 {
		topK = DefaultTopK
	}
	type key struct{ provider, category, service string }
	leaves := make(map[key]float64)
	var order []key
	for _, r := range records {
		k := key{string(r.CloudProvider), string(r.ServiceCategory), r.ServiceName}
		if _, ok := leaves[k]; !ok {
			order = append(order, k)
		}
		leaves[k] += r.CostAmount
	}
	sort.SliceStable(order, func(i, j int) bool { return leaves[order[i]] > leaves[order[j]] })

	top := make(map[string]struct{})
	for _, k := range order[:min(topK, len(order))] {
		top[k.service] = struct{}{}
	}

	folded := make(map[key]float64)
	var foldedOrder []key
	for _, k := range order {
		fk := k
		if _, ok := top[k.service]; !ok {
			fk.service = OthersLabel
		}
		if _, ok := folded[fk]; !ok {
			foldedOrder = append(foldedOrder, fk)
		}
		folded[fk] += leaves[k]
	}
	return lo.Map(foldedOrder, func(k key, _ int) TreemapNode {
		return TreemapNode{Provider: k.provider, Category: k.category, Service: k.service, Cost: folded[k]}
	})
}

// Stack keys for MonthlyStacked
const (
	StackByCloud    = "cloud"
	StackByCategory = "category"
)

// MonthlyStacked splits each month by provider or by category
func MonthlyStacked(records []normalize.Record, by string) []StackedRow {
	rows := make(map[string]*StackedRow)
	for _, r := range records {
		row, ok := rows[r.Month]
		if !ok {
			row = &StackedRow{Month: r.Month, Values: map[string]float64{}}
			rows[r.Month] = row
		}
		k := string(r.CloudProvider)
		if by == StackByCategory {
			k = string(r.ServiceCategory)
		}
		row.Values[k] += r.CostAmount
	}
	return lo.Map(sortMonths(lo.Keys(rows)), func(m string, _ int) StackedRow { return *rows[m] })
}

// CloudShares returns each provider's share in CloudOrder, including
// providers without cost
func CloudShares(records []normalize.Record) []CloudShare {
	totals := providerTotals(records)
	grand := lo.Sum(lo.Values(totals))
	return lo.Map(normalize.CloudOrder, func(p normalize.Provider, _ int) CloudShare {
		cost := totals[string(p)]
		return CloudShare{Provider: string(p), Cost: Round2(cost), Pct: Round2(pct(cost, grand))}
	})
}

func providerTotals(records []normalize.Record) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range records {
		out[string(r.CloudProvider)] += r.CostAmount
	}
	return out
}

// CategoryCloudMatrix returns category rows with a column per provider
func CategoryCloudMatrix(records []normalize.Record) []MatrixRow {
	rows := make(map[string]*MatrixRow)
	for _, r := range records {
		cat := string(r.ServiceCategory)
		row, ok := rows[cat]
		if !ok {
			row = &MatrixRow{Category: cat, Providers: zeroProviders()}
			rows[cat] = row
		}
		row.Providers[string(r.CloudProvider)] += r.CostAmount
	}
	cats := lo.Keys(rows)
	sort.Strings(cats)
	return lo.Map(cats, func(c string, _ int) MatrixRow { return *rows[c] })
}

// Spike is the minimal view of a month-over-month anomaly used by Insights
type Spike struct {
	Month        string
	Provider     string
	Service      string
	VariationPct float64
}

// Insights returns exactly InsightCount sentences about records, padded
// with a default message
func Insights(records []normalize.Record, spikes []Spike) []string {
	if len(records) == 0 {
		return padInsights([]string{"No data available. Import AWS or OCI files to start the analysis."})
	}

	var out []string
	totals := providerTotals(records)
	grand := lo.Sum(lo.Values(totals))
	if grand > 0 {
		top := lo.MaxBy(lo.Entries(totals), func(a, b lo.Entry[string, float64]) bool {
			return a.Value > b.Value || (a.Value == b.Value && a.Key < b.Key)
		})
		out = append(out, fmt.Sprintf("%s accounts for %.1f%% of the total cost in the period.", top.Key, pct(top.Value, grand)))
	}

	catTotals := make(map[string]float64)
	for _, r := range records {
		catTotals[string(r.ServiceCategory)] += r.CostAmount
	}
	if len(catTotals) > 0 {
		top := lo.MaxBy(lo.Entries(catTotals), func(a, b lo.Entry[string, float64]) bool {
			return a.Value > b.Value || (a.Value == b.Value && a.Key < b.Key)
		})
		out = append(out, fmt.Sprintf("The %s category consumed USD %s, leading the mix.", titleCase(top.Key), formatThousands(top.Value)))
	}

	if monthly := monthlyByLabel(records, false); len(monthly) >= 2 {
		delta := monthly[len(monthly)-1].cost - monthly[len(monthly)-2].cost
		direction := "decreased"
		if delta > 0 {
			direction = "increased"
		}
		out = append(out, fmt.Sprintf("Total cost %s by USD %s compared with the previous month.", direction, formatThousands(math.Abs(delta))))
	}

	if len(spikes) > 0 {
		s := lo.MaxBy(spikes, func(a, b Spike) bool { return math.Abs(a.VariationPct) > math.Abs(b.VariationPct) })
		out = append(out, fmt.Sprintf("Anomaly: %s on %s changed %.1f%% in %s.", s.Service, s.Provider, s.VariationPct, s.Month))
	}

	if top := TopServices(records, 1); len(top) > 0 {
		out = append(out, fmt.Sprintf("Service %s (%s) concentrates USD %s.", top[0].Service, top[0].Provider, formatThousands(top[0].Cost)))
	}
	return padInsights(out)
}

func padInsights(in []string) []string {
	for len(in) < InsightCount {
		in = append(in, defaultInsight)
	}
	return in[:InsightCount]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var printer = message.NewPrinter(language.English)

// formatThousands renders v rounded to units with comma separators
func formatThousands(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// RecordsOf flattens several datasets into one record slice
func RecordsOf(datasets ...*dataset.CostDataset) []normalize.Record {
	var out []normalize.Record
	for _, ds := range datasets {
		if ds != nil {
			out = append(out, ds.Records...)
		}
	}
	return out
}
