// Package normalize turns provider billing exports into canonical cost
// records: schema detection, column role mapping and unit conversion.
package normalize

import (
	"sort"
	"strings"
	"time"

	"costlens/pkg/frame"
	"costlens/pkg/utils/dateutils"
)

// Result is the outcome of normalizing one frame
type Result struct {
	Provider Provider
	Records  []Record
	Mapping  *Mapping
}

// Dated returns the number of records with a usage date
func (r *Result) Dated() int {
	n := 0
	for _, rec := range r.Records {
		if rec.HasDate() {
			n++
		}
	}
	return n
}

// Normalizer converts a RawFrame into canonical records
type Normalizer struct {
	mapper *ColumnMapper
	units  *UnitNormalizer
}

// NewNormalizer returns a normalizer with the default mapper and OCI unit rules
func NewNormalizer() *Normalizer {
	return &Normalizer{mapper: NewColumnMapper(), units: NewOCIUnitNormalizer()}
}

// WithMapper replaces the column mapper
func (n *Normalizer) WithMapper(m *ColumnMapper) *Normalizer {
	return &Normalizer{mapper: m, units: n.units}
}

// Mapper returns the column mapper in use
func (n *Normalizer) Mapper() *ColumnMapper {
	return n.mapper
}

// Normalize detects the schema of f (unless hint is set) and returns its
// canonical records. Missing services and costs fall back to defaults.
// Records keep the hinted provider even when f is read with the generic layout.
func (n *Normalizer) Normalize(f *frame.RawFrame, hint Provider) *Result {
	provider := DetectSchema(f, hint)
	res := &Result{Provider: provider, Mapping: &Mapping{Index: map[Role]int{}, Names: map[Role]string{}}}
	if f.Empty() {
		return res
	}

	layout := Layout(f, provider)
	switch layout {
	case ProviderAWS:
		res.Mapping = n.awsMapping(f)
	case ProviderOCI:
		res.Mapping = ociMapping(f)
	default:
		res.Mapping = n.mapper.Map(f)
	}

	res.Records = make([]Record, 0, f.Len())
	for r := 0; r < f.Len(); r++ {
		res.Records = append(res.Records, n.record(f, r, provider, layout, res.Mapping))
	}
	return res
}

// awsMapping pins the Cost Explorer columns and resolves the rest by alias
func (n *Normalizer) awsMapping(f *frame.RawFrame) *Mapping {
	fixed := &Mapping{Index: map[Role]int{}, Names: map[Role]string{}}
	fixed.set(RoleDate, f, f.IndexFold(AWSDateColumn))
	fixed.set(RoleService, f, f.IndexFold(AWSServiceColumn))
	fixed.set(RoleCost, f, f.IndexFold(AWSAmountColumn))

	rest := n.mapper.Map(f)
	for _, role := range []Role{RoleAccountScope, RoleAccountName, RoleCurrency, RoleRegion, RoleTags} {
		if c := rest.Column(role); c >= 0 && !fixed.Claimed(c) {
			fixed.set(role, f, c)
		}
	}
	return fixed
}

func ociMapping(f *frame.RawFrame) *Mapping {
	mp := &Mapping{Index: map[Role]int{}, Names: map[Role]string{}}
	pin := func(role Role, names ...string) {
		for _, name := range names {
			if c := f.IndexFold(name); c >= 0 {
				mp.set(role, f, c)
				return
			}
		}
	}
	pin(RoleDate, OCIDateColumn)
	pin(RoleService, OCIServiceColumn)
	pin(RoleCost, OCICostColumn, ociAltCostColumn)
	pin(RoleAccountScope, OCICompartmentID)
	pin(RoleAccountName, OCICompartmentName)
	pin(RoleRegion, OCIRegionColumn)
	pin(RoleCurrency, OCICurrencyColumn)
	return mp
}

func (n *Normalizer) record(f *frame.RawFrame, r int, provider, layout Provider, mp *Mapping) Record {
	cell := func(role Role) string {
		return f.Cell(r, mp.Column(role))
	}

	rec := Record{
		CloudProvider: provider,
		ServiceName:   cell(RoleService),
		AccountScope:  cell(RoleAccountScope),
		AccountName:   optional(cell(RoleAccountName)),
		Currency:      cell(RoleCurrency),
		Region:        optional(cell(RoleRegion)),
		Tags:          optional(cell(RoleTags)),
	}

	if d, err := dateutils.ParseFlexibleDate(cell(RoleDate)); err == nil {
		rec.UsageDate = &d
	}
	rec.Month = MonthOf(rec.UsageDate)

	switch {
	case layout == ProviderOCI:
		rec.CostAmount = n.ociCost(f, r, mp)
		rec.Tags = ociTags(f, r)
	case mp.Has(RoleCost):
		rec.CostAmount, _ = ParseAmount(cell(RoleCost))
	default:
		rec.CostAmount, _ = ParseAmount(cell(RoleTotal))
	}

	if isNull(rec.ServiceName) {
		rec.ServiceName = UnknownService
	}
	if isNull(rec.AccountScope) {
		rec.AccountScope = DefaultAccountScope(provider)
	}
	if isNull(rec.Currency) {
		rec.Currency = DefaultCurrency
	}
	rec.ServiceCategory = Categorize(rec.ServiceName, provider)
	return rec
}

// ociCost prefers the billed cost. Without one, the consumed quantity is
// rescaled by its unit tag.
func (n *Normalizer) ociCost(f *frame.RawFrame, r int, mp *Mapping) float64 {
	if c := mp.Column(RoleCost); c >= 0 {
		if v, ok := ParseAmount(f.Cell(r, c)); ok {
			return v
		}
	}
	q := f.IndexFold(OCIQuantityColumn)
	if q < 0 {
		return 0
	}
	v, ok := ParseAmount(f.Cell(r, q))
	if !ok {
		return 0
	}
	unit := ""
	for _, name := range []string{OCIUnitColumn, OCIMeasureColumn, ociAltUnitColumnKey} {
		if c := f.IndexFold(name); c >= 0 && f.Cell(r, c) != "" {
			unit = f.Cell(r, c)
			break
		}
	}
	return n.units.Normalize(v, unit)
}

// ociTags folds the tags/* columns into "key=value;key=value"
func ociTags(f *frame.RawFrame, r int) *string {
	var pairs []string
	for c, name := range f.Columns {
		if !strings.HasPrefix(strings.ToLower(name), OCITagColumnPrefix) {
			continue
		}
		if v := f.Cell(r, c); !isNull(v) {
			pairs = append(pairs, name[len(OCITagColumnPrefix):]+"="+v)
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Strings(pairs)
	joined := strings.Join(pairs, ";")
	return &joined
}

// Dates returns the distinct usage dates of records in ascending order
func Dates(records []Record) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, r := range records {
		if r.UsageDate == nil {
			continue
		}
		if _, ok := seen[*r.UsageDate]; ok {
			continue
		}
		seen[*r.UsageDate] = struct{}{}
		out = append(out, *r.UsageDate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
