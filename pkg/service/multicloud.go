package service

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"costlens/pkg/analysis"
	"costlens/pkg/anomaly"
	"costlens/pkg/cache"
	"costlens/pkg/clickhouse"
	"costlens/pkg/dataset"
	"costlens/pkg/metrics"
	"costlens/pkg/normalize"
)

// MultiCloudQuery selects the imports and the period of a cross-provider
// view. An empty IDs list means every import. Start and End are used by the
// custom period only.
type MultiCloudQuery struct {
	IDs    []uint     `json:"ids,omitempty"`
	Period string     `json:"period,omitempty"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
}

// MultiCloudView is the record set of a query restricted to its window.
// Window is nil when none of the records carries a date.
type MultiCloudView struct {
	Window  *analysis.DateWindow
	Records []normalize.Record
}

// MultiCloud resolves q into the records every cross-provider view uses
func (s *Service) MultiCloud(ctx context.Context, q MultiCloudQuery) (*MultiCloudView, error) {
	return cache.Do(s.cache, "multicloud", []interface{}{q}, func() (*MultiCloudView, error) {
		datasets, err := s.LoadDatasets(ctx, q.IDs)
		if err != nil {
			return nil, err
		}
		records := analysis.RecordsOf(datasets...)

		var custom *dataset.DateRange
		if q.Start != nil || q.End != nil {
			custom = &dataset.DateRange{Start: q.Start, End: q.End}
		}
		window, err := analysis.ComputeDateWindow(q.Period, normalize.Dates(records), custom)
		switch {
		case errors.Is(err, analysis.ErrNoDataFound):
			return &MultiCloudView{Records: records}, nil
		case err != nil:
			return nil, err
		}

		rng := window.Range()
		inside := lo.Filter(records, func(r normalize.Record, _ int) bool {
			return r.UsageDate != nil && rng.Contains(*r.UsageDate)
		})
		return &MultiCloudView{Window: window, Records: inside}, nil
	})
}

// KPIs returns the headline numbers of the view
func (v *MultiCloudView) KPIs() analysis.MultiCloudKPIs {
	return analysis.ComputeMultiCloudKPIs(v.Records, v.Window)
}

// Trend returns cost per month and provider
func (v *MultiCloudView) Trend() []analysis.TrendRow {
	return analysis.MonthlyTrend(v.Records)
}

// Shares returns each provider's share of the total
func (v *MultiCloudView) Shares() []analysis.CloudShare {
	return analysis.CloudShares(v.Records)
}

// TopServices ranks (provider, service) pairs
func (v *MultiCloudView) TopServices(n int) []analysis.ProviderService {
	return analysis.TopServices(v.Records, n)
}

// Treemap returns the provider > category > service hierarchy
func (v *MultiCloudView) Treemap(topK int) []analysis.TreemapNode {
	return analysis.Treemap(v.Records, topK)
}

// Matrix returns cost per category and provider
func (v *MultiCloudView) Matrix() []analysis.MatrixRow {
	return analysis.CategoryCloudMatrix(v.Records)
}

// Stacked splits every month by cloud or by category
func (v *MultiCloudView) Stacked(by string) []analysis.StackedRow {
	if by != analysis.StackByCategory {
		by = analysis.StackByCloud
	}
	return analysis.MonthlyStacked(v.Records, by)
}

// MultiCloudAnomalies returns the month-over-month spikes of the view
func (s *Service) MultiCloudAnomalies(ctx context.Context, q MultiCloudQuery) ([]anomaly.MoMRecord, error) {
	view, err := s.MultiCloud(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.spikes(view), nil
}

func (s *Service) spikes(view *MultiCloudView) []anomaly.MoMRecord {
	out := anomaly.DetectMoM(view.Records, s.settings.MoMFloor, s.settings.MoMThreshold)
	if out == nil {
		out = []anomaly.MoMRecord{}
	}
	metrics.AnomaliesDetected.WithLabelValues("mom").Add(float64(len(out)))
	return out
}

// ScanAnomalies runs month-over-month detection over every import
// regardless of period
func (s *Service) ScanAnomalies(ctx context.Context) ([]anomaly.MoMRecord, error) {
	datasets, err := s.LoadDatasets(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.spikes(&MultiCloudView{Records: analysis.RecordsOf(datasets...)}), nil
}

// MultiCloudInsights returns the five insight sentences of the view
func (s *Service) MultiCloudInsights(ctx context.Context, q MultiCloudQuery) ([]string, error) {
	view, err := s.MultiCloud(ctx, q)
	if errors.Is(err, ErrNoImports) {
		return analysis.Insights(nil, nil), nil
	}
	if err != nil {
		return nil, err
	}
	return analysis.Insights(view.Records, anomaly.Spikes(s.spikes(view))), nil
}

// WarehouseTotals reads monthly totals per provider from the ClickHouse
// mirror. An empty ids list covers every mirrored import.
func (s *Service) WarehouseTotals(ctx context.Context, ids []uint) ([]clickhouse.MonthlyTotal, error) {
	if s.mirror == nil {
		return nil, clickhouse.ErrDisabled
	}
	return s.mirror.MonthlyTotals(ctx, ids)
}
