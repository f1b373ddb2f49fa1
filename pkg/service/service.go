// Package service wires storage, the analytical mirror, the cache and the
// analytics engine into the operations served over HTTP, the CLI and the
// scheduler.
package service

import (
	"costlens/pkg/advisor"
	"costlens/pkg/anomaly"
	"costlens/pkg/cache"
	"costlens/pkg/chat"
	"costlens/pkg/clickhouse"
	"costlens/pkg/config"
	"costlens/pkg/dataset"
	"costlens/pkg/forecast"
	"costlens/pkg/llm"
	"costlens/pkg/objectstore"
	"costlens/pkg/storage"
)

// Options are the collaborators of a Service. Store is required; a nil
// Mirror disables the ClickHouse copy, a nil Cache disables memoization and
// a nil Generator makes every text output use its template. Bucket is only
// needed by ImportBucket.
type Options struct {
	Store     *storage.Store
	Mirror    *clickhouse.Client
	Bucket    *objectstore.Store
	Cache     *cache.Cache
	Generator llm.Generator
	Analytics *config.AnalyticsConfig
}

// Service is safe for concurrent use once built
type Service struct {
	store   *storage.Store
	mirror  *clickhouse.Client
	bucket  *objectstore.Store
	cache   *cache.Cache
	builder *dataset.Builder

	settings   config.AnalyticsConfig
	forecaster *forecast.Engine
	detector   *anomaly.Detector
	advisor    *advisor.Advisor
	assistant  *chat.Assistant
}

// New builds a Service from opts
func New(opts Options) *Service {
	settings := config.NewAnalyticsConfig()
	if opts.Analytics != nil {
		settings = opts.Analytics
	}
	_ = settings.Validate()

	c := opts.Cache
	if c == nil {
		c = cache.Disabled()
	}

	adv := advisor.New(opts.Generator)
	return &Service{
		store:      opts.Store,
		mirror:     opts.Mirror,
		bucket:     opts.Bucket,
		cache:      c,
		builder:    dataset.NewBuilder(nil),
		settings:   *settings,
		forecaster: forecast.NewEngine(settings.ForecastHorizon),
		detector:   anomaly.NewDetector(settings.ZScoreThreshold, adv),
		advisor:    adv,
		assistant:  chat.NewAssistant(opts.Generator),
	}
}

// Settings returns the analytics tunables in effect
func (s *Service) Settings() config.AnalyticsConfig {
	return s.settings
}

// Store exposes the relational store
func (s *Service) Store() *storage.Store {
	return s.store
}

// CacheStats reports the memoizer's counters
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every memoized result and returns how many were removed
func (s *Service) ClearCache() int {
	return s.cache.Clear()
}

// EvictExpired drops memoized results past their TTL
func (s *Service) EvictExpired() int {
	return s.cache.EvictExpired()
}
