package dataset

import (
	"costlens/pkg/frame"
	"costlens/pkg/normalize"
	"costlens/pkg/utils/dateutils"
)

// NumericRatio is the share of non-empty cells a melted column needs to
// parse as amounts
const NumericRatio = 0.6

// WideShape describes a frame that passed the wide test
type WideShape struct {
	DateColumn     int
	TotalColumn    int
	ServiceColumns []int
}

// DetectWide applies the wide shape test: a resolvable date column, no
// service column, and at least one other numeric-dominant column besides
// the total. Every candidate column must be numeric dominant. Columns the
// mapper resolved to a descriptive role, such as an account id, are never
// melted.
func DetectWide(f *frame.RawFrame, mapper *normalize.ColumnMapper) (*WideShape, bool) {
	if f == nil || len(f.Columns) == 0 {
		return nil, false
	}
	mp := mapper.Map(f)
	if !mp.Has(normalize.RoleDate) || mp.Has(normalize.RoleService) {
		return nil, false
	}
	shape := &WideShape{DateColumn: mp.Column(normalize.RoleDate), TotalColumn: mp.Column(normalize.RoleTotal)}
	for c := range f.Columns {
		if mp.Claimed(c) && c != mp.Column(normalize.RoleCost) {
			continue
		}
		if !normalize.NumericDominant(f.Column(c), NumericRatio) {
			return nil, false
		}
		shape.ServiceColumns = append(shape.ServiceColumns, c)
	}
	if len(shape.ServiceColumns) == 0 {
		return nil, false
	}
	return shape, true
}

// WideToLong melts a wide frame into canonical records. Rows with an
// unparseable date and cells with non-positive cost are dropped.
func WideToLong(f *frame.RawFrame, shape *WideShape, provider normalize.Provider) []normalize.Record {
	var out []normalize.Record
	for r := 0; r < f.Len(); r++ {
		d, err := dateutils.ParseFlexibleDate(f.Cell(r, shape.DateColumn))
		if err != nil {
			continue
		}
		for _, c := range shape.ServiceColumns {
			v, ok := normalize.ParseAmount(f.Cell(r, c))
			if !ok || v <= 0 {
				continue
			}
			out = append(out, newRecord(d, f.Columns[c], v, provider))
		}
	}
	return out
}
