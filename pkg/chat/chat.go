// Package chat answers cost questions. A question is parsed into a
// QuerySpec and executed against the wide table; nothing the user or a
// model writes is ever run as code.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"costlens/pkg/dataset"
	"costlens/pkg/llm"
	"costlens/pkg/utils/dateutils"
)

const (
	// NoDataAnswer is returned when there is nothing to query
	NoDataAnswer = "No data available to answer. Import a billing file first."
	// NoMatchAnswer is returned when the filters leave no cost
	NoMatchAnswer = "No service with cost was found for the requested period."

	periodTopN = 5

	systemPrompt = `You are an assistant specialized in FinOps cost analysis.
Answer only from the data summary you are given. If the summary does not contain the answer, say so
and suggest one of the supported questions. Be objective and clear.`
)

// HelpAnswer lists the questions answered without a model
const HelpAnswer = `I can answer these questions directly:
- Which service was the most expensive? (add "in the last 6 months" to narrow it)
- Which service appears most frequently?
- What was the total cost? (optionally "in March 2024")
- How did costs look in October?`

// Row is one line of a tabular answer
type Row struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Response is a chat answer
type Response struct {
	Answer string    `json:"answer"`
	Spec   QuerySpec `json:"spec"`
	Rows   []Row     `json:"rows,omitempty"`
}

// Assistant answers questions about one dataset
type Assistant struct {
	gen llm.Generator
}

// NewAssistant returns an assistant. gen may be nil.
func NewAssistant(gen llm.Generator) *Assistant {
	return &Assistant{gen: gen}
}

var money = message.NewPrinter(language.English)

func formatMoney(v float64) string {
	return money.Sprintf("$%.2f", v)
}

// Answer parses question and executes it against w
func (a *Assistant) Answer(ctx context.Context, question string, w *dataset.WideTable) Response {
	if w == nil || w.Len() == 0 {
		return Response{Answer: NoDataAnswer, Spec: QuerySpec{Verb: VerbUnknown}}
	}
	spec := Parse(question, w.Services)
	resp := Execute(spec, w)
	if spec.Verb != VerbUnknown {
		return resp
	}

	user := fmt.Sprintf("Data summary:\n%s\nUser question: %s", describe(w), question)
	resp.Answer = llm.GenerateOr(ctx, a.gen, systemPrompt, user, HelpAnswer)
	return resp
}

// Execute runs spec against w. VerbUnknown yields the help text.
func Execute(spec QuerySpec, w *dataset.WideTable) Response {
	resp := Response{Spec: spec}
	if w == nil || w.Len() == 0 {
		resp.Answer = NoDataAnswer
		return resp
	}

	switch spec.Verb {
	case VerbMostExpensive:
		scoped := w
		suffix := ""
		if spec.LastN > 0 {
			scoped = lastMonths(w, spec.LastN)
			suffix = fmt.Sprintf(" in the last %d months", spec.LastN)
		} else if spec.HasPeriod() {
			scoped = byPeriod(w, spec)
		}
		rows := rank(serviceSums(scoped), spec.TopN)
		if len(rows) == 0 {
			resp.Answer = NoMatchAnswer
			return resp
		}
		resp.Rows = rows
		resp.Answer = fmt.Sprintf("Most expensive service%s: %s\n\nTotal cost: %s\n\nTop %d services by total cost%s:",
			suffix, rows[0].Label, formatMoney(rows[0].Value), len(rows), suffix)

	case VerbMostFrequent:
		scoped := byPeriod(w, spec)
		rows := rank(serviceCounts(scoped), spec.TopN)
		if len(rows) == 0 {
			resp.Answer = NoMatchAnswer
			return resp
		}
		resp.Rows = rows
		resp.Answer = fmt.Sprintf("Most frequent service: %s\n\nIt had cost in %d of the %d periods analyzed.\n\nTop %d services by frequency:",
			rows[0].Label, int(rows[0].Value), scoped.Len(), len(rows))

	case VerbTotal:
		scoped := byServices(byPeriod(w, spec), spec.Services)
		total := lo.Sum(scoped.Totals())
		resp.Rows = []Row{{Label: "total", Value: total}}
		resp.Answer = fmt.Sprintf("Total cost in the period: %s", formatMoney(total))

	case VerbPeriod:
		scoped := byServices(byPeriod(w, spec), spec.Services)
		if scoped.Len() == 0 {
			resp.Answer = "No data found for the requested period."
			return resp
		}
		total := lo.Sum(scoped.Totals())
		rows := rank(serviceSums(scoped), periodTopN)
		resp.Rows = rows
		var b strings.Builder
		fmt.Fprintf(&b, "Period analysis:\n\n- Records: %d\n- Total cost: %s\n\nTop %d services in the period:\n",
			scoped.Len(), formatMoney(total), periodTopN)
		for _, r := range rows {
			fmt.Fprintf(&b, "- %s: %s\n", r.Label, formatMoney(r.Value))
		}
		resp.Answer = b.String()

	default:
		resp.Answer = HelpAnswer
	}
	return resp
}

// byPeriod keeps dated rows matching the month and year filters
func byPeriod(w *dataset.WideTable, spec QuerySpec) *dataset.WideTable {
	if !spec.HasPeriod() {
		return w
	}
	return keepRows(w, func(d time.Time) bool {
		if len(spec.Months) > 0 && !lo.Contains(spec.Months, int(d.Month())) {
			return false
		}
		return spec.Year == 0 || d.Year() == spec.Year
	})
}

// lastMonths keeps rows dated on or after the latest date minus n months
func lastMonths(w *dataset.WideTable, n int) *dataset.WideTable {
	var latest time.Time
	for _, r := range w.Rows {
		if r.Date != nil && r.Date.After(latest) {
			latest = *r.Date
		}
	}
	if latest.IsZero() {
		return w
	}
	cutoff := dateutils.AddMonths(latest, -n)
	return keepRows(w, func(d time.Time) bool { return !d.Before(cutoff) })
}

func keepRows(w *dataset.WideTable, keep func(time.Time) bool) *dataset.WideTable {
	out := &dataset.WideTable{Services: w.Services}
	out.Rows = lo.Filter(w.Rows, func(r dataset.WideRow, _ int) bool {
		return r.Date != nil && keep(*r.Date)
	})
	return out
}

func byServices(w *dataset.WideTable, services []string) *dataset.WideTable {
	if len(services) == 0 {
		return w
	}
	return w.Select(services)
}

func serviceSums(w *dataset.WideTable) []Row {
	return lo.Map(w.Services, func(s string, _ int) Row {
		return Row{Label: s, Value: lo.Sum(w.Series(s))}
	})
}

func serviceCounts(w *dataset.WideTable) []Row {
	return lo.Map(w.Services, func(s string, _ int) Row {
		return Row{Label: s, Value: float64(lo.CountBy(w.Series(s), func(v float64) bool { return v > 0 }))}
	})
}

// rank drops non-positive rows and returns the highest topN
func rank(rows []Row, topN int) []Row {
	rows = lo.Filter(rows, func(r Row, _ int) bool { return r.Value > 0 })
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}

// describe summarizes w for the model without exposing raw rows
func describe(w *dataset.WideTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %d periods, %d services\n", w.Len(), len(w.Services))
	var first, last *time.Time
	for _, r := range w.Rows {
		if r.Date == nil {
			continue
		}
		if first == nil || r.Date.Before(*first) {
			first = r.Date
		}
		if last == nil || r.Date.After(*last) {
			last = r.Date
		}
	}
	if first != nil {
		fmt.Fprintf(&b, "- dates from %s to %s\n", first.Format("2006-01-02"), last.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- total cost %s\n", formatMoney(lo.Sum(w.Totals())))
	b.WriteString("- top services:\n")
	for _, r := range rank(serviceSums(w), periodTopN) {
		fmt.Fprintf(&b, "  - %s: %s\n", r.Label, formatMoney(r.Value))
	}
	return b.String()
}
