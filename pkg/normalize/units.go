package normalize

import "strings"

const (
	MillisPerHour   = 3_600_000
	SecondsPerMonth = 2_592_000 // 30 days
	BytesPerGB      = 1 << 30
)

// UnitRule rescales values whose unit tag satisfies Match
type UnitRule struct {
	Name    string
	Match   func(tag string) bool
	Divisor float64
}

// UnitNormalizer converts consumption quantities to human scale units.
// Rules are tried in order and the first match wins.
type UnitNormalizer struct {
	rules []UnitRule
}

// NewOCIUnitNormalizer returns the rule set used for OCI usage exports.
// Byte-time compound tags are checked before plain bytes.
func NewOCIUnitNormalizer() *UnitNormalizer {
	return &UnitNormalizer{rules: []UnitRule{
		{Name: "byte_months", Match: isByteTimeTag, Divisor: SecondsPerMonth},
		{Name: "milliseconds", Match: isMillisTag, Divisor: MillisPerHour},
		{Name: "bytes", Match: containsAny("BYTE"), Divisor: BytesPerGB},
	}}
}

// Normalize rescales value according to unit. Unknown units pass through.
func (n *UnitNormalizer) Normalize(value float64, unit string) float64 {
	tag := strings.ToUpper(strings.TrimSpace(unit))
	if tag == "" {
		return value
	}
	for _, r := range n.rules {
		if r.Match(tag) {
			return value / r.Divisor
		}
	}
	return value
}

// RuleFor returns the name of the rule that applies to unit, or ""
func (n *UnitNormalizer) RuleFor(unit string) string {
	tag := strings.ToUpper(strings.TrimSpace(unit))
	for _, r := range n.rules {
		if tag != "" && r.Match(tag) {
			return r.Name
		}
	}
	return ""
}

func isByteTimeTag(tag string) bool {
	hasBytes := strings.Contains(tag, "BYTE") || strings.Contains(tag, "GB")
	hasTime := hasToken(tag, "MS") || strings.Contains(tag, "MONTH") || strings.Contains(tag, "SECOND")
	return hasBytes && hasTime
}

func isMillisTag(tag string) bool {
	return hasToken(tag, "MS") || strings.Contains(tag, "MILLISECOND")
}

// hasToken reports whether want appears in tag as a whole token. Tokens are
// separated by underscores, slashes, dashes or spaces.
func hasToken(tag, want string) bool {
	for _, tok := range strings.FieldsFunc(tag, func(r rune) bool {
		return r == '_' || r == '/' || r == '-' || r == ' '
	}) {
		if tok == want {
			return true
		}
	}
	return false
}

func containsAny(tokens ...string) func(string) bool {
	return func(tag string) bool {
		for _, t := range tokens {
			if strings.Contains(tag, t) {
				return true
			}
		}
		return false
	}
}
