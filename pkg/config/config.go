package config

// Config is the root configuration of the service and the CLI
type Config struct {
	App         *AppConfig         `json:"app" yaml:"app"`
	Server      *ServerConfig      `json:"server" yaml:"server"`
	Storage     *StorageConfig     `json:"storage" yaml:"storage"`
	ClickHouse  *ClickHouseConfig  `json:"clickhouse" yaml:"clickhouse"`
	Analytics   *AnalyticsConfig   `json:"analytics" yaml:"analytics"`
	Cache       *CacheConfig       `json:"cache" yaml:"cache"`
	LLM         *LLMConfig         `json:"llm" yaml:"llm"`
	ObjectStore *ObjectStoreConfig `json:"object_store" yaml:"object_store"`
	Scheduler   *SchedulerConfig   `json:"scheduler" yaml:"scheduler"`
	Metrics     *MetricsConfig     `json:"metrics" yaml:"metrics"`
	Notifier    *NotifierConfig    `json:"notifier" yaml:"notifier"`
}

// getDefaultConfig returns a config where every section carries its defaults
func getDefaultConfig() *Config {
	return &Config{
		App:         NewAppConfig(),
		Server:      NewServerConfig(),
		Storage:     NewStorageConfig(),
		ClickHouse:  NewClickHouseConfig(),
		Analytics:   NewAnalyticsConfig(),
		Cache:       NewCacheConfig(),
		LLM:         NewLLMConfig(),
		ObjectStore: NewObjectStoreConfig(),
		Scheduler:   NewSchedulerConfig(),
		Metrics:     NewMetricsConfig(),
		Notifier:    NewNotifierConfig(),
	}
}

// Default returns the built-in configuration with environment overrides applied
func Default() *Config {
	return getDefaultConfig()
}

// fillDefaults replaces sections missing from a config file with their defaults
func (c *Config) fillDefaults() {
	d := getDefaultConfig()
	if c.App == nil {
		c.App = d.App
	}
	if c.Server == nil {
		c.Server = d.Server
	}
	if c.Storage == nil {
		c.Storage = d.Storage
	}
	if c.ClickHouse == nil {
		c.ClickHouse = d.ClickHouse
	}
	if c.Analytics == nil {
		c.Analytics = d.Analytics
	}
	if c.Cache == nil {
		c.Cache = d.Cache
	}
	if c.LLM == nil {
		c.LLM = d.LLM
	}
	if c.ObjectStore == nil {
		c.ObjectStore = d.ObjectStore
	}
	if c.Scheduler == nil {
		c.Scheduler = d.Scheduler
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if c.Notifier == nil {
		c.Notifier = d.Notifier
	}
	if c.Notifier.Webhook == nil {
		c.Notifier.Webhook = d.Notifier.Webhook
	}
	if c.Notifier.Telegram == nil {
		c.Notifier.Telegram = d.Notifier.Telegram
	}
}
