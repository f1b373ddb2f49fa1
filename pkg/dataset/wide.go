package dataset

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"costlens/pkg/normalize"
)

// DateColumn and TotalColumn name the fixed columns of a wide table
const (
	DateColumn  = "usage_date"
	TotalColumn = "total"
)

// WideRow is one date of a wide table. Values is aligned with the owning
// table's Services.
type WideRow struct {
	Date   *time.Time
	Values []float64
	Total  float64
}

// WideTable holds one column per service plus the derived total
type WideTable struct {
	Services []string
	Rows     []WideRow
}

// Recompute rebuilds every row total from the service columns
func (w *WideTable) Recompute() {
	for i := range w.Rows {
		w.Rows[i].Total = lo.Sum(w.Rows[i].Values)
	}
}

// ServiceIndex returns the column of service, or -1
func (w *WideTable) ServiceIndex(service string) int {
	return lo.IndexOf(w.Services, service)
}

// Series returns the values of one service column in row order
func (w *WideTable) Series(service string) []float64 {
	idx := w.ServiceIndex(service)
	if idx < 0 {
		return nil
	}
	return lo.Map(w.Rows, func(r WideRow, _ int) float64 { return r.Values[idx] })
}

// Totals returns the total column in row order
func (w *WideTable) Totals() []float64 {
	return lo.Map(w.Rows, func(r WideRow, _ int) float64 { return r.Total })
}

// HasDates reports whether at least one row is dated
func (w *WideTable) HasDates() bool {
	return lo.ContainsBy(w.Rows, func(r WideRow) bool { return r.Date != nil })
}

// Len returns the row count
func (w *WideTable) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Rows)
}

// Select returns a copy restricted to services, in the given order.
// Unknown services are ignored and totals are recomputed.
func (w *WideTable) Select(services []string) *WideTable {
	keep := lo.Filter(services, func(s string, _ int) bool { return w.ServiceIndex(s) >= 0 })
	keep = lo.Uniq(keep)
	idx := lo.Map(keep, func(s string, _ int) int { return w.ServiceIndex(s) })

	out := &WideTable{Services: keep, Rows: make([]WideRow, len(w.Rows))}
	for i, r := range w.Rows {
		vals := make([]float64, len(idx))
		for j, c := range idx {
			vals[j] = r.Values[c]
		}
		out.Rows[i] = WideRow{Date: r.Date, Values: vals}
	}
	out.Recompute()
	return out
}

// LongToWide pivots canonical records into a wide table. Duplicated
// (date, service) pairs are summed, gaps are zero and rows are sorted by
// date. Undated records are dropped. Services keep first-seen order.
func LongToWide(records []normalize.Record) *WideTable {
	dated := lo.Filter(records, func(r normalize.Record, _ int) bool { return r.UsageDate != nil })
	services := lo.Uniq(lo.Map(dated, func(r normalize.Record, _ int) string { return r.ServiceName }))
	col := make(map[string]int, len(services))
	for i, s := range services {
		col[s] = i
	}

	byDate := make(map[time.Time]*WideRow)
	for _, r := range dated {
		row, ok := byDate[*r.UsageDate]
		if !ok {
			d := *r.UsageDate
			row = &WideRow{Date: &d, Values: make([]float64, len(services))}
			byDate[d] = row
		}
		row.Values[col[r.ServiceName]] += r.CostAmount
	}

	w := &WideTable{Services: services, Rows: make([]WideRow, 0, len(byDate))}
	for _, row := range byDate {
		w.Rows = append(w.Rows, *row)
	}
	sort.Slice(w.Rows, func(i, j int) bool { return w.Rows[i].Date.Before(*w.Rows[j].Date) })
	w.Recompute()
	return w
}

// Melt turns the wide table back into canonical records for provider.
// Non-positive cells are dropped.
func (w *WideTable) Melt(provider normalize.Provider) []normalize.Record {
	var out []normalize.Record
	for _, row := range w.Rows {
		if row.Date == nil {
			continue
		}
		for i, s := range w.Services {
			if row.Values[i] <= 0 {
				continue
			}
			out = append(out, newRecord(*row.Date, s, row.Values[i], provider))
		}
	}
	return out
}

func newRecord(date time.Time, service string, cost float64, provider normalize.Provider) normalize.Record {
	d := date
	if service == "" {
		service = normalize.UnknownService
	}
	return normalize.Record{
		UsageDate:       &d,
		Month:           normalize.MonthOf(&d),
		CloudProvider:   provider,
		AccountScope:    normalize.DefaultAccountScope(provider),
		ServiceName:     service,
		ServiceCategory: normalize.Categorize(service, provider),
		CostAmount:      cost,
		Currency:        normalize.DefaultCurrency,
	}
}
