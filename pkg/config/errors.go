package config

import "errors"

// Configuration-related error definitions using sentinel errors pattern
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidFormat  = errors.New("invalid configuration file format")

	ErrMissingRequired = errors.New("missing required configuration item")
	ErrInvalidValue    = errors.New("invalid configuration value")

	ErrStorageConfig     = errors.New("storage configuration error")
	ErrClickHouseConfig  = errors.New("ClickHouse configuration error")
	ErrAnalyticsConfig   = errors.New("analytics configuration error")
	ErrLLMConfig         = errors.New("LLM configuration error")
	ErrObjectStoreConfig = errors.New("object store configuration error")
	ErrNotifierConfig    = errors.New("notifier configuration error")

	ErrSchedulerConfig = errors.New("scheduler configuration error")
	ErrInvalidCron     = errors.New("invalid Cron expression")
)
