package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the config file at configPath. An empty path searches the
// default locations; a missing file yields the defaults. Environment variables
// always override file values.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}

	config := &Config{}
	switch ext := filepath.Ext(configPath); ext {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: JSON parsing failed: %v", ErrInvalidFormat, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: YAML parsing failed: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}

	config.fillDefaults()
	mergeEnvVars(config)
	return config, nil
}

// SaveConfig writes config to configPath as JSON or YAML depending on the extension
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch ext := filepath.Ext(configPath); ext {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		return fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("config serialization failed: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// getDefaultConfigPath returns the first existing config file:
// working directory, then ~/.costlens, then /etc/costlens
func getDefaultConfigPath() string {
	paths := []string{"./config.yaml", "./config.json"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".costlens", "config.yaml"),
			filepath.Join(homeDir, ".costlens", "config.json"),
		)
	}
	paths = append(paths, "/etc/costlens/config.yaml", "/etc/costlens/config.json")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "./config.yaml"
}

func mergeEnvVars(c *Config) {
	applyEnv(map[string]interface{}{
		"LOG_LEVEL": &c.App.LogLevel,
		"LOG_PATH":  &c.App.LogPath,
		"APP_ENV":   &c.App.Environment,

		"SERVER_PORT":         &c.Server.Port,
		"SERVER_ADDRESS":      &c.Server.Address,
		"SERVER_CORS_ORIGINS": &c.Server.CORSOrigins,

		"COSTLENS_DB_DRIVER": &c.Storage.Driver,
		"COSTLENS_DB_DSN":    &c.Storage.DSN,

		"CLICKHOUSE_ENABLED":  &c.ClickHouse.Enabled,
		"CLICKHOUSE_HOSTS":    &c.ClickHouse.Hosts,
		"CLICKHOUSE_PORT":     &c.ClickHouse.Port,
		"CLICKHOUSE_DATABASE": &c.ClickHouse.Database,
		"CLICKHOUSE_USERNAME": &c.ClickHouse.Username,
		"CLICKHOUSE_PASSWORD": &c.ClickHouse.Password,
		"CLICKHOUSE_TABLE":    &c.ClickHouse.Table,
		"CLICKHOUSE_CLUSTER":  &c.ClickHouse.Cluster,
		"CLICKHOUSE_PROTOCOL": &c.ClickHouse.Protocol,
		"CLICKHOUSE_DEBUG":    &c.ClickHouse.Debug,

		"COSTLENS_FORECAST_HORIZON": &c.Analytics.ForecastHorizon,
		"COSTLENS_ZSCORE_THRESHOLD": &c.Analytics.ZScoreThreshold,
		"COSTLENS_ANOMALY_STRATEGY": &c.Analytics.AnomalyStrategy,
		"COSTLENS_MOM_FLOOR":        &c.Analytics.MoMFloor,
		"COSTLENS_MOM_THRESHOLD":    &c.Analytics.MoMThreshold,
		"COSTLENS_TOP_N":            &c.Analytics.TopN,

		"ENABLE_CACHE": &c.Cache.Enabled,
		"CACHE_TTL":    &c.Cache.TTL,

		"OPENAI_API_KEY":  &c.LLM.APIKey,
		"OPENAI_API_BASE": &c.LLM.BaseURL,
		"OPENAI_MODEL":    &c.LLM.Model,
		"LLM_ENABLED":     &c.LLM.Enabled,

		"OBJECT_STORE_ENABLED":    &c.ObjectStore.Enabled,
		"OBJECT_STORE_ENDPOINT":   &c.ObjectStore.Endpoint,
		"OBJECT_STORE_BUCKET":     &c.ObjectStore.Bucket,
		"OBJECT_STORE_PREFIX":     &c.ObjectStore.Prefix,
		"OBJECT_STORE_ACCESS_KEY": &c.ObjectStore.AccessKey,
		"OBJECT_STORE_SECRET_KEY": &c.ObjectStore.SecretKey,

		"SCHEDULER_ENABLED": &c.Scheduler.Enabled,
		"METRICS_ENABLED":   &c.Metrics.Enabled,

		"ALERT_WEBHOOK_ENABLED": &c.Notifier.Webhook.Enabled,
		"ALERT_WEBHOOK_URL":     &c.Notifier.Webhook.URL,
		"TELEGRAM_ENABLED":      &c.Notifier.Telegram.Enabled,
		"TELEGRAM_BOT_TOKEN":    &c.Notifier.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &c.Notifier.Telegram.ChatID,
	})

	// A key supplied only through the environment switches generation on
	if os.Getenv("OPENAI_API_KEY") != "" && os.Getenv("LLM_ENABLED") == "" {
		c.LLM.Enabled = true
	}
}
