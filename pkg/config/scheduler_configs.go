package config

import "fmt"

// Job kinds understood by the scheduler
const (
	JobKindCacheEvict   = "cache_evict"
	JobKindAnomalyScan  = "anomaly_scan"
	JobKindBucketImport = "bucket_import"
)

// SchedulerConfig represents the scheduler configuration
type SchedulerConfig struct {
	Enabled bool           `json:"enabled" yaml:"enabled"`
	Jobs    []ScheduledJob `json:"jobs" yaml:"jobs"`
}

// ScheduledJob represents a scheduled job configuration
type ScheduledJob struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Cron string `json:"cron" yaml:"cron"`
}

// ServerConfig represents HTTP server settings
type ServerConfig struct {
	Port         int      `json:"port" yaml:"port"`
	Address      string   `json:"address" yaml:"address"`
	ReadTimeout  int      `json:"read_timeout" yaml:"read_timeout"`   // seconds
	WriteTimeout int      `json:"write_timeout" yaml:"write_timeout"` // seconds
	MaxUploadMB  int      `json:"max_upload_mb" yaml:"max_upload_mb"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins"`
}

// AppConfig represents application configuration settings
type AppConfig struct {
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogPath     string `json:"log_path" yaml:"log_path"`
	Environment string `json:"environment" yaml:"environment"`
}

// NewSchedulerConfig creates a scheduler configuration with env defaults
func NewSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Enabled: getEnvBool("SCHEDULER_ENABLED", true),
		Jobs:    []ScheduledJob{},
	}
}

// NewServerConfig creates a server configuration with env defaults
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvInt("SERVER_PORT", 8080),
		Address:      getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 30),
		WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 60),
		MaxUploadMB:  getEnvInt("SERVER_MAX_UPLOAD_MB", 50),
		CORSOrigins:  parseStringList(getEnv("SERVER_CORS_ORIGINS", "*")),
	}
}

// NewAppConfig creates an application configuration with env defaults
func NewAppConfig() *AppConfig {
	return &AppConfig{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPath:     getEnv("LOG_PATH", "./logs/costlens.log"),
		Environment: getEnv("APP_ENV", "development"),
	}
}

// IsDevelopment reports whether console-only logging should be used
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "" || a.Environment == "development" || a.Environment == "dev"
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port must be within 1-65535", ErrInvalidValue)
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 30
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 60
	}
	if s.MaxUploadMB <= 0 {
		s.MaxUploadMB = 50
	}
	return nil
}

// Validate validates application configuration
func (a *AppConfig) Validate() error {
	if a.LogLevel == "" {
		a.LogLevel = "info"
	}
	if !isValidValue(a.LogLevel, []string{"debug", "info", "warn", "error"}) {
		return fmt.Errorf("%w: log_level %q", ErrInvalidValue, a.LogLevel)
	}
	return nil
}
