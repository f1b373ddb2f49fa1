package analysis

import (
	"time"
)

// ServiceTotal is the summed cost of one service column
type ServiceTotal struct {
	Service   string  `json:"service"`
	TotalCost float64 `json:"total_cost"`
}

// ServicePercentage is a service's share of the grand total
type ServicePercentage struct {
	Service    string  `json:"service"`
	Cost       float64 `json:"cost"`
	Percentage float64 `json:"percentage"` // 0-100, 2 decimals
}

// MonthlyAggregate is one calendar month of a wide table
type MonthlyAggregate struct {
	Month    string             `json:"month"`     // YYYY-MM
	MonthEnd time.Time          `json:"month_end"` // last day of the month
	Services map[string]float64 `json:"services,omitempty"`
	Total    float64            `json:"total"`
}

// OverallMetrics summarizes the total column
type OverallMetrics struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// Highlights names the extremes. Each field is nil when it cannot be derived.
type Highlights struct {
	PeakService   *string `json:"peak_service"`
	LowestService *string `json:"lowest_service"`
	PeakMonth     *string `json:"peak_month"`
	LowestMonth   *string `json:"lowest_month"`
}

// KPISummary combines overall metrics and highlights
type KPISummary struct {
	TotalCost     float64 `json:"total_cost"`
	AverageCost   float64 `json:"average_cost"`
	MaxCost       float64 `json:"max_cost"`
	MinCost       float64 `json:"min_cost"`
	PeakMonth     *string `json:"peak_month"`
	LowestMonth   *string `json:"lowest_month"`
	PeakService   *string `json:"peak_service"`
	LowestService *string `json:"lowest_service"`
}

// ServiceStatistic is sum/mean/max/min of one service column
type ServiceStatistic struct {
	Service string  `json:"service"`
	Sum     float64 `json:"sum"`
	Mean    float64 `json:"mean"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// ServiceStat is the detailed per-service view
type ServiceStat struct {
	Service     string  `json:"service"`
	TotalCost   float64 `json:"total_cost"`
	AverageCost float64 `json:"average_cost"`
	MaxCost     float64 `json:"max_cost"`
	MinCost     float64 `json:"min_cost"`
	Percentage  float64 `json:"percentage"`
	RecordCount int     `json:"record_count"`
}

// DateWindow is an inclusive date range and its length in days
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Period keys accepted by ComputeDateWindow
const (
	Period30Days   = "30d"
	Period3Months  = "3m"
	Period6Months  = "6m"
	PeriodCustom   = "custom"
	DefaultPeriod  = Period3Months
	DefaultTopN    = 10
	DefaultTopK    = 30
	OthersLabel    = "Others"
	NoValueLabel   = "-"
	InsightCount   = 5
	defaultInsight = "Keep tracking costs to uncover new optimization opportunities."
)

// MultiCloudKPIs are the headline numbers across providers
type MultiCloudKPIs struct {
	TotalCost         float64 `json:"total_cost"`
	AvgDaily          float64 `json:"avg_daily"`
	MaxMonth          string  `json:"max_month"`
	MinMonth          string  `json:"min_month"`
	MoMDeltaPct       float64 `json:"mom_delta_pct"`
	ForecastNextMonth float64 `json:"forecast_next_month"`
}

// TrendRow is one month of cost per provider
type TrendRow struct {
	Month     string             `json:"month"`
	Providers map[string]float64 `json:"providers"`
	Total     float64            `json:"total"`
}

// ProviderService is a (provider, service) cost total
type ProviderService struct {
	Provider string  `json:"cloud_provider"`
	Service  string  `json:"service_name"`
	Cost     float64 `json:"cost_amount"`
}

// TreemapNode is a leaf of the provider > category > service hierarchy
type TreemapNode struct {
	Provider string  `json:"cloud_provider"`
	Category string  `json:"service_category"`
	Service  string  `json:"service_name"`
	Cost     float64 `json:"cost_amount"`
}

// StackedRow is one month split by a key (provider or category)
type StackedRow struct {
	Month  string             `json:"month"`
	Values map[string]float64 `json:"values"`
}

// CloudShare is one provider's share of the grand total
type CloudShare struct {
	Provider string  `json:"cloud_provider"`
	Cost     float64 `json:"cost_amount"`
	Pct      float64 `json:"pct"`
}

// MatrixRow is one category's cost per provider
type MatrixRow struct {
	Category  string             `json:"service_category"`
	Providers map[string]float64 `json:"providers"`
}
