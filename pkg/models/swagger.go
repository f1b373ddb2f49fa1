// Package models holds the request and response shapes documented in the
// swagger spec
package models

import (
	"time"

	"costlens/pkg/advisor"
	"costlens/pkg/analysis"
	"costlens/pkg/anomaly"
	"costlens/pkg/cache"
	"costlens/pkg/chat"
	"costlens/pkg/forecast"
	"costlens/pkg/scheduler"
	"costlens/pkg/service"

	dbmodels "costlens/internal/models"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp" example:"2025-09-11T08:13:24Z"`
	Service   string            `json:"service" example:"costlens"`
	Version   string            `json:"version" example:"1.0.0"`
	Checks    map[string]string `json:"checks"`
}

// ComponentStatus tells which optional collaborators are configured
type ComponentStatus struct {
	ClickHouse  bool `json:"clickhouse" example:"false"`
	ObjectStore bool `json:"object_store" example:"true"`
	LLM         bool `json:"llm" example:"false"`
	Cache       bool `json:"cache" example:"true"`
	Scheduler   bool `json:"scheduler" example:"true"`
	Alerts      bool `json:"alerts" example:"false"`
}

// SystemStatus represents the system status response
type SystemStatus struct {
	Service       string            `json:"service" example:"costlens"`
	Version       string            `json:"version" example:"1.0.0"`
	Status        string            `json:"status" example:"running"`
	Timestamp     time.Time         `json:"timestamp" example:"2025-09-11T08:13:24Z"`
	UptimeSeconds int64             `json:"uptime_seconds" example:"3600"`
	Imports       int               `json:"imports" example:"4"`
	SchemaVersion int               `json:"schema_version" example:"1"`
	Components    ComponentStatus   `json:"components"`
	Cache         cache.Stats       `json:"cache"`
	Scheduler     *scheduler.Status `json:"scheduler,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     bool   `json:"error" example:"true"`
	Message   string `json:"message" example:"Invalid parameter"`
	Code      int    `json:"code" example:"400"`
	Details   string `json:"details,omitempty" example:"invalid parameter: id \"abc\""`
	RequestID string `json:"request_id,omitempty" example:"0b4f5c1e-2f7d-4a8e-9a5b-1c2d3e4f5a6b"`
}

// MessageResponse represents a generic message response
type MessageResponse struct {
	Message string `json:"message" example:"Operation completed successfully"`
}

// ImportResponse is returned after an upload
type ImportResponse struct {
	Success bool                 `json:"success" example:"true"`
	Data    service.ImportResult `json:"data"`
}

// ImportListResponse lists imports, newest first
type ImportListResponse struct {
	Success bool                  `json:"success" example:"true"`
	Data    []dbmodels.FileImport `json:"data"`
	Count   int                   `json:"count" example:"2"`
}

// DatasetView is a dataset with its wide table flattened for JSON
type DatasetView struct {
	ID       uint              `json:"id" example:"1"`
	Name     string            `json:"name" example:"aws-2024.csv"`
	Provider string            `json:"provider" example:"AWS"`
	Shape    string            `json:"shape" example:"long"`
	Mapping  map[string]string `json:"mapping"`
	Services []string          `json:"services"`
	Rows     []DatasetRow      `json:"rows"`
	Records  int               `json:"records" example:"1200"`
}

// DatasetRow is one row of the wide table
type DatasetRow struct {
	Date   *time.Time         `json:"date"`
	Values map[string]float64 `json:"values"`
	Total  float64            `json:"total" example:"1234.56"`
}

// SummaryResponse wraps a KPI summary
type SummaryResponse struct {
	Success bool                `json:"success" example:"true"`
	Data    analysis.KPISummary `json:"data"`
}

// ForecastResponse wraps a forecast
type ForecastResponse struct {
	Success bool            `json:"success" example:"true"`
	Data    forecast.Result `json:"data"`
}

// AnomalyListResponse wraps per-service anomalies
type AnomalyListResponse struct {
	Success bool             `json:"success" example:"true"`
	Data    []anomaly.Record `json:"data"`
	Count   int              `json:"count" example:"1"`
}

// RecommendationListResponse wraps recommendations
type RecommendationListResponse struct {
	Success bool                     `json:"success" example:"true"`
	Data    []advisor.Recommendation `json:"data"`
	Count   int                      `json:"count" example:"2"`
}

// InsightsResponse carries narrative text
type InsightsResponse struct {
	Insights string `json:"insights" example:"Total cost for the period was $1234.56, averaging $41.15 per record."`
}

// ChatRequest is a question about a dataset
type ChatRequest struct {
	Question string `json:"question" binding:"required" example:"Which service was the most expensive in the last 3 months?"`
}

// ChatResponse wraps a chat answer
type ChatResponse struct {
	Success bool          `json:"success" example:"true"`
	Data    chat.Response `json:"data"`
}

// MultiCloudKPIResponse carries the KPIs and the window they cover
type MultiCloudKPIResponse struct {
	KPIs   analysis.MultiCloudKPIs `json:"kpis"`
	Window *analysis.DateWindow    `json:"window"`
}

// TrendResponse carries the monthly trend and the top services
type TrendResponse struct {
	Trend       []analysis.TrendRow        `json:"trend"`
	TopServices []analysis.ProviderService `json:"top_services"`
}

// BucketImportRequest selects the provider hint of a bucket import
type BucketImportRequest struct {
	Provider string `json:"provider" example:"OCI"`
}

// JobRunListResponse lists recorded job runs
type JobRunListResponse struct {
	Success bool              `json:"success" example:"true"`
	Data    []dbmodels.JobRun `json:"data"`
	Count   int               `json:"count" example:"10"`
}

// CreateJobRequest registers a scheduled job
type CreateJobRequest struct {
	Name string `json:"name" binding:"required" example:"nightly_import"`
	Kind string `json:"kind" binding:"required" example:"bucket_import" enums:"cache_evict,anomaly_scan,bucket_import"`
	Cron string `json:"cron" binding:"required" example:"0 2 * * *"`
}

// CacheClearResponse reports how many memoized results were dropped
type CacheClearResponse struct {
	Removed int `json:"removed" example:"12"`
}
