package normalize

import (
	"strings"

	"costlens/pkg/frame"
	"costlens/pkg/utils/dateutils"
)

// Role is the canonical meaning of a source column
type Role string

const (
	RoleDate         Role = "usage_date"
	RoleTotal        Role = "total"
	RoleService      Role = "service_name"
	RoleCost         Role = "cost_amount"
	RoleAccountScope Role = "account_scope"
	RoleAccountName  Role = "account_name"
	RoleCurrency     Role = "currency"
	RoleRegion       Role = "region"
	RoleTags         Role = "tags"
)

// DefaultDateRatio is the share of non-empty cells that must parse as dates
// for a column to be inferred as the date column
const DefaultDateRatio = 0.6

// roleOrder is the resolution order. A column claimed by an earlier role is
// not offered to later ones.
var roleOrder = []Role{
	RoleDate,
	RoleTotal,
	RoleService,
	RoleCost,
	RoleAccountScope,
	RoleAccountName,
	RoleCurrency,
	RoleRegion,
	RoleTags,
}

// DefaultAliases lists, per role, the lowercase names accepted for it.
// Earlier aliases win.
var DefaultAliases = map[Role][]string{
	RoleDate: {
		"usage_date", "usage_start_date", "billing_period_start", "data", "date",
		"start", "lineitem/intervalusagestart", "invoice_date", "competencia",
		"competência", "month",
	},
	RoleTotal: {
		"total", "custos totais($)", "total_cost", "total cost", "grand total",
	},
	RoleService: {
		"service_name", "service", "product/service", "productname", "serviço",
		"servico", "produto", "produto_serviço", "lineitem/lineitemdescription",
	},
	RoleCost: {
		"cost_amount", "amount", "cost", "costusd", "unblendedcost", "netamount",
		"usage_cost", "valor", "custo",
	},
	RoleAccountScope: {
		"account_scope", "account_id", "aws_account_id", "payeraccountid",
		"linkedaccountid", "subscription_id", "subscriptionguid", "subscription",
		"compartment_id", "compartment", "tenancy",
	},
	RoleAccountName: {
		"account_name", "account", "accountdescription", "account friendly name",
		"subscription_name", "subscriptionfriendlyname", "compartmentname",
	},
	RoleCurrency: {
		"currency", "currencycode", "currency_code", "billing_currency_code",
	},
	RoleRegion: {
		"region", "awsregion", "product/region", "resource_location", "localizacao",
	},
	RoleTags: {
		"tags", "resource_tags", "lineitem/usagetype", "lineitem/usageaccounttags",
	},
}

// Mapping records which source column serves each role
type Mapping struct {
	Index map[Role]int
	Names map[Role]string
	// DateInferred is set when the date column was found by its values
	DateInferred bool
}

// Has reports whether role resolved
func (m *Mapping) Has(role Role) bool {
	_, ok := m.Index[role]
	return ok
}

// Column returns the source column index for role, or -1
func (m *Mapping) Column(role Role) int {
	if i, ok := m.Index[role]; ok {
		return i
	}
	return -1
}

// Claimed reports whether column c serves any role
func (m *Mapping) Claimed(c int) bool {
	for _, i := range m.Index {
		if i == c {
			return true
		}
	}
	return false
}

// AsStrings flattens the mapping to role -> column name
func (m *Mapping) AsStrings() map[string]string {
	out := make(map[string]string, len(m.Names))
	for r, n := range m.Names {
		out[string(r)] = n
	}
	return out
}

func (m *Mapping) set(role Role, f *frame.RawFrame, c int) {
	if c < 0 || c >= len(f.Columns) {
		return
	}
	m.Index[role] = c
	m.Names[role] = f.Columns[c]
}

// ColumnMapper resolves canonical roles on generic frames
type ColumnMapper struct {
	aliases   map[Role][]string
	dateRatio float64
}

// NewColumnMapper returns a mapper using DefaultAliases
func NewColumnMapper() *ColumnMapper {
	return &ColumnMapper{aliases: DefaultAliases, dateRatio: DefaultDateRatio}
}

// WithAliases returns a copy of m whose alias list for role is replaced
func (m *ColumnMapper) WithAliases(role Role, aliases ...string) *ColumnMapper {
	cp := make(map[Role][]string, len(m.aliases))
	for k, v := range m.aliases {
		cp[k] = v
	}
	lower := make([]string, len(aliases))
	for i, a := range aliases {
		lower[i] = strings.ToLower(strings.TrimSpace(a))
	}
	cp[role] = lower
	return &ColumnMapper{aliases: cp, dateRatio: m.dateRatio}
}

// Map resolves every role on f. For each role the lookup order is the
// canonical name, its case-insensitive form, the alias list and, for the
// date role only, value inference. Ties go to the leftmost column.
func (m *ColumnMapper) Map(f *frame.RawFrame) *Mapping {
	mp := &Mapping{Index: map[Role]int{}, Names: map[Role]string{}}
	if f == nil {
		return mp
	}
	for _, role := range roleOrder {
		if c := m.resolveByName(f, role, mp); c >= 0 {
			mp.set(role, f, c)
			continue
		}
		if role == RoleDate {
			if c := m.inferDate(f, mp); c >= 0 {
				mp.set(role, f, c)
				mp.DateInferred = true
			}
		}
	}
	return mp
}

func (m *ColumnMapper) resolveByName(f *frame.RawFrame, role Role, mp *Mapping) int {
	canonical := string(role)
	for c, name := range f.Columns {
		if name == canonical && !mp.Claimed(c) {
			return c
		}
	}
	for c, name := range f.Columns {
		if strings.EqualFold(name, canonical) && !mp.Claimed(c) {
			return c
		}
	}
	for _, alias := range m.aliases[role] {
		for c, name := range f.Columns {
			if strings.ToLower(name) == alias && !mp.Claimed(c) {
				return c
			}
		}
	}
	return -1
}

func (m *ColumnMapper) inferDate(f *frame.RawFrame, mp *Mapping) int {
	for c := range f.Columns {
		if mp.Claimed(c) {
			continue
		}
		if DateDominant(f.Column(c), m.dateRatio) {
			return c
		}
	}
	return -1
}

// DateDominant reports whether at least ratio of the non-empty values parse
// as dates. A column with no values is not date dominant.
func DateDominant(values []string, ratio float64) bool {
	return dominant(values, ratio, func(v string) bool {
		if _, ok := ParseAmount(v); ok {
			return false
		}
		_, err := dateutils.ParseFlexibleDate(v)
		return err == nil
	})
}

// NumericDominant reports whether at least ratio of the non-empty values
// parse as amounts
func NumericDominant(values []string, ratio float64) bool {
	return dominant(values, ratio, func(v string) bool {
		_, ok := ParseAmount(v)
		return ok
	})
}

func dominant(values []string, ratio float64, accept func(string) bool) bool {
	total, hits := 0, 0
	for _, v := range values {
		if isNull(v) {
			continue
		}
		total++
		if accept(v) {
			hits++
		}
	}
	if total == 0 {
		return false
	}
	return float64(hits)/float64(total) >= ratio
}

func isNull(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "null", "none", "n/a", "na", "-":
		return true
	}
	return false
}
