package anomaly

import (
	"math"
	"sort"

	"costlens/pkg/analysis"
	"costlens/pkg/normalize"
)

// Month-over-month defaults
const (
	DefaultMoMFloor     = 100.0
	DefaultMoMThreshold = 40.0
)

// MoMRecord is a (provider, service) month whose cost moved sharply
type MoMRecord struct {
	Month        string  `json:"month"`
	Provider     string  `json:"cloud_provider"`
	Service      string  `json:"service_name"`
	Cost         float64 `json:"cost_amount"`
	PrevCost     float64 `json:"prev_cost"`
	VariationPct float64 `json:"variation_pct"`
}

// DetectMoM groups records by provider, service and month and compares each
// month with the previous month present for the same group. A month is
// flagged when the previous cost is positive, the current cost reaches
// floor and the absolute change reaches threshold percent.
func DetectMoM(records []normalize.Record, floor, threshold float64) []MoMRecord {
	type key struct{ provider, service string }
	groups := make(map[key]map[string]float64)
	var order []key
	for _, r := range records {
		if r.Month == normalize.NoDateMonth {
			continue
		}
		k := key{string(r.CloudProvider), r.ServiceName}
		if _, ok := groups[k]; !ok {
			groups[k] = make(map[string]float64)
			order = append(order, k)
		}
		groups[k][r.Month] += r.CostAmount
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].provider != order[j].provider {
			return order[i].provider < order[j].provider
		}
		return order[i].service < order[j].service
	})

	var out []MoMRecord
	for _, k := range order {
		months := make([]string, 0, len(groups[k]))
		for m := range groups[k] {
			months = append(months, m)
		}
		sort.Strings(months)
		for i := 1; i < len(months); i++ {
			prev, cur := groups[k][months[i-1]], groups[k][months[i]]
			if prev <= 0 || cur < floor {
				continue
			}
			change := (cur - prev) / prev * 100
			if math.Abs(change) < threshold {
				continue
			}
			out = append(out, MoMRecord{
				Month:        months[i],
				Provider:     k.provider,
				Service:      k.service,
				Cost:         cur,
				PrevCost:     prev,
				VariationPct: change,
			})
		}
	}
	return out
}

// Spikes converts records for analysis.Insights
func Spikes(records []MoMRecord) []analysis.Spike {
	out := make([]analysis.Spike, len(records))
	for i, r := range records {
		out[i] = analysis.Spike{Month: r.Month, Provider: r.Provider, Service: r.Service, VariationPct: r.VariationPct}
	}
	return out
}
