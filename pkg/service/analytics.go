package service

import (
	"context"
	"errors"
	"time"

	"costlens/pkg/advisor"
	"costlens/pkg/analysis"
	"costlens/pkg/anomaly"
	"costlens/pkg/cache"
	"costlens/pkg/chat"
	"costlens/pkg/dataset"
	"costlens/pkg/forecast"
	"costlens/pkg/logger"
	"costlens/pkg/metrics"
)

// Query narrows a dataset before it is analysed
type Query struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Services []string   `json:"services,omitempty"`
}

func (q Query) dateRange() dataset.DateRange {
	return dataset.DateRange{Start: q.Start, End: q.End}
}

// AnomalyQuery selects the detection strategy of one scan. Zero values use
// the configured defaults.
type AnomalyQuery struct {
	Strategy  string  `json:"strategy,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Explain   bool    `json:"explain"`
}

// Dataset returns dataset id filtered by q
func (s *Service) Dataset(ctx context.Context, id uint, q Query) (*dataset.CostDataset, error) {
	return cache.Do(s.cache, "dataset", []interface{}{id, q}, func() (*dataset.CostDataset, error) {
		ds, err := s.LoadDataset(ctx, id)
		if err != nil {
			return nil, err
		}
		if !q.dateRange().Bounded() && len(q.Services) == 0 {
			return ds, nil
		}
		return dataset.Filter(ds, q.dateRange(), q.Services), nil
	})
}

func (s *Service) wide(ctx context.Context, id uint, q Query) (*dataset.WideTable, error) {
	ds, err := s.Dataset(ctx, id, q)
	if err != nil {
		return nil, err
	}
	return ds.Wide, nil
}

// Summary returns the KPI summary of a dataset
func (s *Service) Summary(ctx context.Context, id uint, q Query) (analysis.KPISummary, error) {
	return cache.Do(s.cache, "summary", []interface{}{id, q}, func() (analysis.KPISummary, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return analysis.KPISummary{}, err
		}
		return analysis.Summary(w, nil), nil
	})
}

// Rankings returns the topN services by total cost. topN <= 0 uses the
// configured default.
func (s *Service) Rankings(ctx context.Context, id uint, q Query, topN int) ([]analysis.ServiceTotal, error) {
	if topN <= 0 {
		topN = s.settings.TopN
	}
	return cache.Do(s.cache, "rankings", []interface{}{id, q, topN}, func() ([]analysis.ServiceTotal, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		return analysis.Rankings(analysis.ServiceTotals(w, nil), topN), nil
	})
}

// Percentages returns each service's share of the total
func (s *Service) Percentages(ctx context.Context, id uint, q Query) ([]analysis.ServicePercentage, error) {
	return cache.Do(s.cache, "percentages", []interface{}{id, q}, func() ([]analysis.ServicePercentage, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		return analysis.Percentages(analysis.ServiceTotals(w, nil)), nil
	})
}

// Monthly returns the month by month evolution
func (s *Service) Monthly(ctx context.Context, id uint, q Query) ([]analysis.MonthlyAggregate, error) {
	return cache.Do(s.cache, "monthly", []interface{}{id, q}, func() ([]analysis.MonthlyAggregate, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		return analysis.MonthlyEvolution(w, nil), nil
	})
}

// Statistics returns the detailed per-service statistics
func (s *Service) Statistics(ctx context.Context, id uint, q Query) ([]analysis.ServiceStat, error) {
	return cache.Do(s.cache, "statistics", []interface{}{id, q}, func() ([]analysis.ServiceStat, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		return analysis.ServiceStats(w, nil), nil
	})
}

// Forecast projects the dataset total, or one service when service is set.
// Too little history yields a result without points.
func (s *Service) Forecast(ctx context.Context, id uint, q Query, horizon int, service string) (*forecast.Result, error) {
	engine := s.forecaster
	if horizon > 0 && horizon != engine.Horizon() {
		engine = forecast.NewEngine(horizon)
	}
	return cache.Do(s.cache, "forecast", []interface{}{id, q, engine.Horizon(), service}, func() (*forecast.Result, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		var res *forecast.Result
		if service == "" {
			res, err = engine.Forecast(w)
		} else {
			res, err = engine.ForecastService(w, service)
		}
		if errors.Is(err, forecast.ErrInsufficientData) {
			return &forecast.Result{Service: service, History: []forecast.MonthlyPoint{}, Points: []forecast.Point{}}, nil
		}
		return res, err
	})
}

// Anomalies scans every service of the dataset
func (s *Service) Anomalies(ctx context.Context, id uint, q Query, aq AnomalyQuery) ([]anomaly.Record, error) {
	if aq.Strategy == "" {
		aq.Strategy = s.settings.AnomalyStrategy
	}
	return cache.Do(s.cache, "anomalies", []interface{}{id, q, aq}, func() ([]anomaly.Record, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		records := s.detector.Detect(ctx, w, anomaly.Options{Strategy: aq.Strategy, Threshold: aq.Threshold, Explain: aq.Explain})
		if records == nil {
			records = []anomaly.Record{}
		}
		metrics.AnomaliesDetected.WithLabelValues(aq.Strategy).Add(float64(len(records)))
		logger.FromContext(logger.WithFileID(ctx, id)).Debug("Anomaly scan finished", logger.CountField(len(records)))
		return records, nil
	})
}

// Recommendations returns the share-of-total optimization advice
func (s *Service) Recommendations(ctx context.Context, id uint, q Query) ([]advisor.Recommendation, error) {
	return cache.Do(s.cache, "recommendations", []interface{}{id, q}, func() ([]advisor.Recommendation, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return nil, err
		}
		recs := s.advisor.Recommend(ctx, analysis.ServiceTotals(w, nil))
		if recs == nil {
			recs = []advisor.Recommendation{}
		}
		return recs, nil
	})
}

// Insights returns the narrative summary of a dataset
func (s *Service) Insights(ctx context.Context, id uint, q Query) (string, error) {
	return cache.Do(s.cache, "insights", []interface{}{id, q}, func() (string, error) {
		w, err := s.wide(ctx, id, q)
		if err != nil {
			return "", err
		}
		return s.advisor.Narrate(ctx, w), nil
	})
}

// Chat answers a question about the dataset. Answers are not memoized.
func (s *Service) Chat(ctx context.Context, id uint, question string) (chat.Response, error) {
	w, err := s.wide(ctx, id, Query{})
	if err != nil {
		return chat.Response{}, err
	}
	return s.assistant.Answer(ctx, question, w), nil
}
