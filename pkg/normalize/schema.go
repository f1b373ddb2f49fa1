package normalize

import "costlens/pkg/frame"

// Fixed column names of the first-class export schemas
const (
	AWSDateColumn    = "Start"
	AWSServiceColumn = "Service"
	AWSAmountColumn  = "Amount"

	OCIDateColumn       = "lineItem/intervalUsageStart"
	OCIServiceColumn    = "product/service"
	OCICostColumn       = "cost/myCost"
	OCIQuantityColumn   = "usage/consumedQuantity"
	OCIUnitColumn       = "usage/consumedQuantityUnits"
	OCIMeasureColumn    = "usage/consumedQuantityMeasure"
	OCICompartmentID    = "product/compartmentId"
	OCICompartmentName  = "product/compartmentName"
	OCIRegionColumn     = "product/region"
	OCICurrencyColumn   = "cost/currencyCode"
	OCITagColumnPrefix  = "tags/"
	ociAltCostColumn    = "cost/cost"
	ociAltUnitColumnKey = "usage/billedQuantityUnits"
)

// DetectSchema classifies f. A non-empty hint is trusted as is. Otherwise
// the OCI and AWS column sets are tested in that order, case-insensitively;
// anything else is generic.
func DetectSchema(f *frame.RawFrame, hint Provider) Provider {
	if hint != "" {
		return hint
	}
	if f == nil {
		return ProviderGeneric
	}
	if hasColumns(f, OCIDateColumn, OCIServiceColumn) {
		return ProviderOCI
	}
	if hasColumns(f, AWSDateColumn, AWSServiceColumn, AWSAmountColumn) {
		return ProviderAWS
	}
	return ProviderGeneric
}

// Layout returns the column layout to read f with. A first-class provider
// whose signature columns are missing from f falls back to the generic
// layout, so a wrong hint never pins absent columns.
func Layout(f *frame.RawFrame, p Provider) Provider {
	if f == nil || !p.FirstClass() {
		return ProviderGeneric
	}
	switch p {
	case ProviderOCI:
		if hasColumns(f, OCIDateColumn, OCIServiceColumn) {
			return ProviderOCI
		}
	case ProviderAWS:
		if hasColumns(f, AWSDateColumn, AWSServiceColumn, AWSAmountColumn) {
			return ProviderAWS
		}
	}
	return ProviderGeneric
}

func hasColumns(f *frame.RawFrame, names ...string) bool {
	for _, n := range names {
		if f.IndexFold(n) < 0 {
			return false
		}
	}
	return true
}
