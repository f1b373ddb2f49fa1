// Package dataset builds the CostDataset: canonical long records plus the
// derived wide table that the analytics packages consume.
package dataset

import (
	"time"

	"github.com/samber/lo"

	"costlens/pkg/frame"
	"costlens/pkg/normalize"
)

// Shape is the layout a dataset was loaded from
type Shape string

const (
	ShapeLong Shape = "long"
	ShapeWide Shape = "wide"
)

// CostDataset is built fresh per load and treated as read-only afterwards
type CostDataset struct {
	Name     string
	Provider normalize.Provider
	Shape    Shape
	FileID   *uint

	Records []normalize.Record
	Wide    *WideTable
	Mapping map[string]string
}

// ServiceColumns lists the wide table's service columns
func (d *CostDataset) ServiceColumns() []string {
	if d == nil || d.Wide == nil {
		return nil
	}
	return d.Wide.Services
}

// HasDates reports whether at least one wide row is dated
func (d *CostDataset) HasDates() bool {
	return d != nil && d.Wide != nil && d.Wide.HasDates()
}

// Empty reports whether the dataset holds no records
func (d *CostDataset) Empty() bool {
	return d == nil || len(d.Records) == 0
}

// Dates returns the distinct usage dates in ascending order
func (d *CostDataset) Dates() []time.Time {
	return normalize.Dates(d.Records)
}

// Builder assembles datasets with a given normalizer
type Builder struct {
	normalizer *normalize.Normalizer
}

// NewBuilder returns a builder. A nil normalizer selects the default one.
func NewBuilder(n *normalize.Normalizer) *Builder {
	if n == nil {
		n = normalize.NewNormalizer()
	}
	return &Builder{normalizer: n}
}

var defaultBuilder = NewBuilder(nil)

// Build is NewBuilder(nil).Build
func Build(name string, raw *frame.RawFrame, hint normalize.Provider) *CostDataset {
	return defaultBuilder.Build(name, raw, hint)
}

// Build produces both representations of raw. The schema is resolved first
// and a first-class provider layout present in raw always wins. Otherwise a
// frame that passes the wide test is melted, and anything else is
// normalized as long. A hinted provider whose columns are missing keeps its
// label but goes through the wide test and generic mapping.
func (b *Builder) Build(name string, raw *frame.RawFrame, hint normalize.Provider) *CostDataset {
	provider := normalize.DetectSchema(raw, hint)
	ds := &CostDataset{Name: name, Provider: provider, Shape: ShapeLong}

	if raw.Empty() {
		ds.Wide = &WideTable{}
		ds.Mapping = map[string]string{}
		return ds
	}

	if normalize.Layout(raw, provider) == normalize.ProviderGeneric {
		if shape, ok := DetectWide(raw, b.normalizer.Mapper()); ok {
			ds.Shape = ShapeWide
			ds.Records = WideToLong(raw, shape, provider)
			ds.Wide = LongToWide(ds.Records)
			ds.Mapping = map[string]string{
				string(normalize.RoleDate): raw.Columns[shape.DateColumn],
			}
			if shape.TotalColumn >= 0 {
				ds.Mapping[string(normalize.RoleTotal)] = raw.Columns[shape.TotalColumn]
			}
			return ds
		}
	}

	res := b.normalizer.Normalize(raw, provider)
	ds.Records = res.Records
	ds.Mapping = res.Mapping.AsStrings()
	ds.Wide = LongToWide(ds.Records)
	return ds
}

// FromRecords wraps already canonical records
func FromRecords(name string, provider normalize.Provider, records []normalize.Record) *CostDataset {
	return &CostDataset{
		Name:     name,
		Provider: provider,
		Shape:    ShapeLong,
		Records:  records,
		Wide:     LongToWide(records),
		Mapping:  map[string]string{},
	}
}

// DateRange bounds a filter. Nil ends are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t is within the inclusive range
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Bounded reports whether either end is set
func (r DateRange) Bounded() bool {
	return r.Start != nil || r.End != nil
}

// Filter returns a new dataset restricted to rng and services. An empty
// services list keeps every service. Undated records are dropped when the
// range is bounded.
func Filter(ds *CostDataset, rng DateRange, services []string) *CostDataset {
	if ds == nil {
		return nil
	}
	wanted := lo.SliceToMap(services, func(s string) (string, struct{}) { return s, struct{}{} })
	records := lo.Filter(ds.Records, func(r normalize.Record, _ int) bool {
		if len(wanted) > 0 {
			if _, ok := wanted[r.ServiceName]; !ok {
				return false
			}
		}
		if !rng.Bounded() {
			return true
		}
		return r.UsageDate != nil && rng.Contains(*r.UsageDate)
	})

	out := FromRecords(ds.Name, ds.Provider, records)
	out.Shape = ds.Shape
	out.FileID = ds.FileID
	out.Mapping = ds.Mapping
	return out
}
