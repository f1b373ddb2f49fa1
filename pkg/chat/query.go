package chat

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Verb is the intent of a question
type Verb string

const (
	VerbMostExpensive Verb = "most_expensive"
	VerbMostFrequent  Verb = "most_frequent"
	VerbTotal         Verb = "total"
	VerbPeriod        Verb = "period"
	VerbUnknown       Verb = "unknown"
)

// DefaultLastN is the window used by "last months" questions without a number
const DefaultLastN = 3

// DefaultTopN bounds ranked answers
const DefaultTopN = 10

// QuerySpec is the constrained, executable form of a question
type QuerySpec struct {
	Verb     Verb     `json:"verb"`
	Months   []int    `json:"months,omitempty"` // 1-12
	Year     int      `json:"year,omitempty"`
	LastN    int      `json:"last_n,omitempty"`
	Services []string `json:"services,omitempty"`
	TopN     int      `json:"top_n"`
}

// HasPeriod reports whether a month or year filter applies
func (q QuerySpec) HasPeriod() bool {
	return len(q.Months) > 0 || q.Year > 0
}

var (
	mostExpensiveWords = []string{
		"mais consumido", "mais caro", "maior custo", "maior gasto", "maior valor", "mais usado", "mais utilizado",
		"most expensive", "highest cost", "costliest", "most consumed", "most used", "biggest spend",
	}
	mostFrequentWords = []string{
		"maior frequencia", "maior frequência", "mais frequente",
		"most frequent", "most often", "highest frequency",
	}
	totalWords  = []string{"total", "soma", "sum", "how much"}
	recentWords = []string{"ultimos", "últimos", "recentes", "recente", "last", "recent"}

	monthNames = map[string]int{
		"janeiro": 1, "fevereiro": 2, "março": 3, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
		"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
		"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
		"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	}

	lastNPattern = regexp.MustCompile(`(\d+)\s*(meses|mês|mes|months?)`)
	yearPattern  = regexp.MustCompile(`\b(20\d{2})\b`)
	wordPattern  = regexp.MustCompile(`[\p{L}]+`)
)

// Parse turns a question into a QuerySpec. known lists the service names
// that may be referenced; matches are case-insensitive.
func Parse(question string, known []string) QuerySpec {
	q := strings.ToLower(strings.TrimSpace(question))
	spec := QuerySpec{Verb: VerbUnknown, TopN: DefaultTopN}

	spec.Months = parseMonths(q)
	if m := yearPattern.FindStringSubmatch(q); m != nil {
		spec.Year, _ = strconv.Atoi(m[1])
	}
	spec.Services = lo.Filter(known, func(s string, _ int) bool {
		name := strings.ToLower(strings.TrimSpace(s))
		return len(name) >= 2 && strings.Contains(q, name)
	})

	switch {
	case containsAny(q, mostExpensiveWords):
		spec.Verb = VerbMostExpensive
		if containsAny(q, recentWords) {
			spec.LastN = DefaultLastN
			if m := lastNPattern.FindStringSubmatch(q); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					spec.LastN = n
				}
			}
		}
	case containsAny(q, mostFrequentWords):
		spec.Verb = VerbMostFrequent
	case containsAny(q, totalWords):
		spec.Verb = VerbTotal
	case len(spec.Months) > 0:
		spec.Verb = VerbPeriod
	}
	return spec
}

func containsAny(s string, words []string) bool {
	return lo.SomeBy(words, func(w string) bool { return strings.Contains(s, w) })
}

// parseMonths matches whole words so that "marco" inside "marcos" is ignored
func parseMonths(q string) []int {
	seen := make(map[int]struct{})
	for _, w := range wordPattern.FindAllString(q, -1) {
		if m, ok := monthNames[w]; ok {
			seen[m] = struct{}{}
		}
	}
	months := lo.Keys(seen)
	sort.Ints(months)
	return months
}
