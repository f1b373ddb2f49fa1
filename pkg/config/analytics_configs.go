package config

import (
	"fmt"
	"time"
)

// AnalyticsConfig holds the tunables of forecasting, anomaly detection and rankings
type AnalyticsConfig struct {
	ForecastHorizon int     `json:"forecast_horizon" yaml:"forecast_horizon"`
	ZScoreThreshold float64 `json:"zscore_threshold" yaml:"zscore_threshold"`
	AnomalyStrategy string  `json:"anomaly_strategy" yaml:"anomaly_strategy"` // zscore, isolation_forest
	MoMFloor        float64 `json:"mom_floor" yaml:"mom_floor"`
	MoMThreshold    float64 `json:"mom_threshold" yaml:"mom_threshold"` // percent
	TopN            int     `json:"top_n" yaml:"top_n"`
	TreemapTopK     int     `json:"treemap_top_k" yaml:"treemap_top_k"`
}

// NewAnalyticsConfig creates an analytics config with env defaults
func NewAnalyticsConfig() *AnalyticsConfig {
	return &AnalyticsConfig{
		ForecastHorizon: getEnvInt("COSTLENS_FORECAST_HORIZON", 6),
		ZScoreThreshold: getEnvFloat("COSTLENS_ZSCORE_THRESHOLD", 3.0),
		AnomalyStrategy: getEnv("COSTLENS_ANOMALY_STRATEGY", "zscore"),
		MoMFloor:        getEnvFloat("COSTLENS_MOM_FLOOR", 100),
		MoMThreshold:    getEnvFloat("COSTLENS_MOM_THRESHOLD", 40),
		TopN:            getEnvInt("COSTLENS_TOP_N", 10),
		TreemapTopK:     getEnvInt("COSTLENS_TREEMAP_TOP_K", 30),
	}
}

// Validate resets out of range values to their defaults and rejects unknown strategies
func (a *AnalyticsConfig) Validate() error {
	if a.ForecastHorizon <= 0 {
		a.ForecastHorizon = 6
	}
	if a.ZScoreThreshold <= 0 {
		a.ZScoreThreshold = 3.0
	}
	if a.MoMFloor < 0 {
		a.MoMFloor = 100
	}
	if a.MoMThreshold <= 0 {
		a.MoMThreshold = 40
	}
	if a.TopN <= 0 {
		a.TopN = 10
	}
	if a.TreemapTopK <= 0 {
		a.TreemapTopK = 30
	}
	if a.AnomalyStrategy == "" {
		a.AnomalyStrategy = "zscore"
	}
	if !isValidValue(a.AnomalyStrategy, []string{"zscore", "isolation_forest"}) {
		return fmt.Errorf("%w: anomaly_strategy %q", ErrInvalidValue, a.AnomalyStrategy)
	}
	return nil
}

// CacheConfig configures the memoizing cache in front of expensive analytics
type CacheConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	TTL        int  `json:"ttl" yaml:"ttl"` // seconds
	MaxEntries int  `json:"max_entries" yaml:"max_entries"`
}

// NewCacheConfig creates a cache config with env defaults
func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:    getEnvBool("ENABLE_CACHE", true),
		TTL:        getEnvInt("CACHE_TTL", 3600),
		MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 1000),
	}
}

// TTLDuration returns the configured TTL as a duration
func (c *CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	if c.TTL <= 0 {
		c.TTL = 3600
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("%w: max_entries must not be negative", ErrInvalidValue)
	}
	return nil
}
