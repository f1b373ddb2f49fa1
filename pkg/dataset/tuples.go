package dataset

import (
	"time"

	"github.com/samber/lo"

	"costlens/pkg/normalize"
)

// CostTuple is the persisted form of a canonical record
type CostTuple struct {
	FileID      uint       `json:"file_id"`
	UsageDate   *time.Time `json:"usage_date"`
	ServiceName string     `json:"service_name"`
	CostAmount  float64    `json:"cost_amount"`
}

// Tuples flattens the dataset for storage under fileID
func (d *CostDataset) Tuples(fileID uint) []CostTuple {
	return lo.Map(d.Records, func(r normalize.Record, _ int) CostTuple {
		return CostTuple{
			FileID:      fileID,
			UsageDate:   r.UsageDate,
			ServiceName: r.ServiceName,
			CostAmount:  r.CostAmount,
		}
	})
}

// FromTuples rehydrates a dataset stored with Tuples. Fields that tuples do
// not carry take their canonical defaults.
func FromTuples(name string, provider normalize.Provider, tuples []CostTuple) *CostDataset {
	if provider == "" {
		provider = normalize.ProviderGeneric
	}
	records := lo.Map(tuples, func(t CostTuple, _ int) normalize.Record {
		service := t.ServiceName
		if service == "" {
			service = normalize.UnknownService
		}
		var date *time.Time
		if t.UsageDate != nil {
			d := t.UsageDate.UTC()
			date = &d
		}
		return normalize.Record{
			UsageDate:       date,
			Month:           normalize.MonthOf(date),
			CloudProvider:   provider,
			AccountScope:    normalize.DefaultAccountScope(provider),
			ServiceName:     service,
			ServiceCategory: normalize.Categorize(service, provider),
			CostAmount:      t.CostAmount,
			Currency:        normalize.DefaultCurrency,
		}
	})

	ds := FromRecords(name, provider, records)
	if len(tuples) > 0 {
		id := tuples[0].FileID
		ds.FileID = &id
	}
	return ds
}
