package normalize

import (
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is bumped whenever CanonicalColumns changes
const SchemaVersion = 1

// CanonicalColumns is the ordered canonical cost schema
var CanonicalColumns = []string{
	"usage_date",
	"month",
	"cloud_provider",
	"account_scope",
	"account_name",
	"service_name",
	"service_category",
	"cost_amount",
	"currency",
	"region",
	"tags",
}

// Defaults applied when a source value is missing
const (
	UnknownService  = "service not informed"
	NoDateMonth     = "no-date"
	DefaultCurrency = "USD"
)

// Category is a coarse FinOps service family
type Category string

const (
	CategoryCompute Category = "compute"
	CategoryStorage Category = "storage"
	CategoryNetwork Category = "network"
	CategoryManaged Category = "managed"
	CategoryOther   Category = "other"
)

// Categories lists every category in display order
var Categories = []Category{CategoryCompute, CategoryStorage, CategoryNetwork, CategoryManaged, CategoryOther}

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryCompute, []string{"ec2", "compute", "vm", "virtual machine", "eks", "lambda", "fargate", "oke", "instance", "containers"}},
	{CategoryStorage, []string{"s3", "storage", "ebs", "efs", "fsx", "glacier", "bucket", "object", "blob", "volume", "backup"}},
	{CategoryNetwork, []string{"transfer", "bandwidth", "network", "direct connect", "cloudfront", "cdn", "route 53", "vpc", "nat", "gateway"}},
	{CategoryManaged, []string{"rds", "database", "sql", "dynamodb", "aurora", "redis", "elasticache", "managed", "api gateway", "kubernetes", "queue"}},
}

// Record is one canonical cost line
type Record struct {
	UsageDate       *time.Time `json:"usage_date"`
	Month           string     `json:"month"`
	CloudProvider   Provider   `json:"cloud_provider"`
	AccountScope    string     `json:"account_scope"`
	AccountName     *string    `json:"account_name"`
	ServiceName     string     `json:"service_name"`
	ServiceCategory Category   `json:"service_category"`
	CostAmount      float64    `json:"cost_amount"`
	Currency        string     `json:"currency"`
	Region          *string    `json:"region"`
	Tags            *string    `json:"tags"`
}

// HasDate reports whether the record carries a usage date
func (r Record) HasDate() bool {
	return r.UsageDate != nil
}

// Categorize maps a service name to its category by keyword
func Categorize(service string, provider Provider) Category {
	name := strings.ToLower(strings.TrimSpace(service))
	if name == "" {
		return CategoryOther
	}
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(name, kw) {
				return ck.category
			}
		}
	}
	switch {
	case strings.Contains(name, "data"), strings.Contains(name, "analytics"), strings.Contains(name, "insight"):
		return CategoryManaged
	case strings.Contains(name, "log"):
		return CategoryStorage
	case provider == ProviderAzure && strings.Contains(name, "sql"):
		return CategoryManaged
	}
	return CategoryOther
}

// DefaultAccountScope is the scope label used when the source has none
func DefaultAccountScope(p Provider) string {
	switch p {
	case ProviderAWS:
		return "aws_account"
	case ProviderOCI:
		return "oci_compartment"
	case ProviderAzure:
		return "azure_subscription"
	}
	return "multicloud_scope"
}

// MonthOf returns the YYYY-MM label of t, or NoDateMonth when t is nil
func MonthOf(t *time.Time) string {
	if t == nil {
		return NoDateMonth
	}
	return t.Format("2006-01")
}

var currencyTokens = []string{"US$", "R$", "USD", "BRL", "EUR", "$", "€", "£", " ", " "}

// ParseAmount leniently parses a money cell. Currency markers and blanks are
// dropped, "(12)" is negative, and both "1,234.56" and "1.234,56" are read
// as 1234.56. A single comma is a decimal separator unless exactly three
// digits follow it.
func ParseAmount(s string) (float64, bool) {
	v := strings.TrimSpace(s)
	if isNull(v) {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	upper := strings.ToUpper(v)
	for _, tok := range currencyTokens {
		upper = strings.ReplaceAll(upper, tok, "")
	}
	v = upper
	if v == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(v, ".")
	lastComma := strings.LastIndex(v, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(v, ",") == 1 && len(v)-lastComma-1 != 3 {
			v = strings.Replace(v, ",", ".", 1)
		} else {
			v = strings.ReplaceAll(v, ",", "")
		}
	}

	if !numericText(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

// numericText accepts an optional sign, digits and at most one dot, with an
// optional exponent
func numericText(v string) bool {
	if v == "" {
		return false
	}
	i := 0
	if v[0] == '-' || v[0] == '+' {
		i++
	}
	digits, dots := 0, 0
	for ; i < len(v); i++ {
		ch := v[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.':
			dots++
			if dots > 1 {
				return false
			}
		case ch == 'E' || ch == 'e':
			if digits == 0 {
				return false
			}
			_, err := strconv.Atoi(v[i+1:])
			return err == nil
		default:
			return false
		}
	}
	return digits > 0
}

func optional(s string) *string {
	if isNull(s) {
		return nil
	}
	return &s
}
