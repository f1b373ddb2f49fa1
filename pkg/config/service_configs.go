package config

import (
	"fmt"
	"time"
)

// LLMConfig configures the OpenAI compatible text generation endpoint
type LLMConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	APIKey            string  `json:"api_key" yaml:"api_key"`
	BaseURL           string  `json:"base_url" yaml:"base_url"`
	Model             string  `json:"model" yaml:"model"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
	MaxTokens         int     `json:"max_tokens" yaml:"max_tokens"`
	Timeout           int     `json:"timeout" yaml:"timeout"` // seconds
	MaxRetries        int     `json:"max_retries" yaml:"max_retries"`
	RetryDelay        int     `json:"retry_delay" yaml:"retry_delay"` // seconds
	RequestsPerMinute int     `json:"requests_per_minute" yaml:"requests_per_minute"`
}

// NewLLMConfig creates an LLM config. It is enabled whenever an API key is present.
func NewLLMConfig() *LLMConfig {
	key := getEnv("OPENAI_API_KEY", "")
	return &LLMConfig{
		Enabled:           getEnvBool("LLM_ENABLED", key != ""),
		APIKey:            key,
		BaseURL:           getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
		Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature:       getEnvFloat("LLM_TEMPERATURE", 0.3),
		MaxTokens:         getEnvInt("LLM_MAX_TOKENS", 800),
		Timeout:           getEnvInt("LLM_TIMEOUT", 30),
		MaxRetries:        getEnvInt("LLM_MAX_RETRIES", 2),
		RetryDelay:        getEnvInt("LLM_RETRY_DELAY", 2),
		RequestsPerMinute: getEnvInt("LLM_REQUESTS_PER_MINUTE", 30),
	}
}

// TimeoutDuration returns the per-request timeout
func (l *LLMConfig) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

// Validate validates LLM configuration
func (l *LLMConfig) Validate() error {
	if !l.Enabled {
		return nil
	}
	if l.APIKey == "" {
		return fmt.Errorf("%w: api_key", ErrMissingRequired)
	}
	if l.BaseURL == "" {
		return fmt.Errorf("%w: base_url", ErrMissingRequired)
	}
	if l.Model == "" {
		l.Model = "gpt-4o-mini"
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within 0-2", ErrInvalidValue)
	}
	if l.Timeout <= 0 {
		l.Timeout = 30
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = 2
	}
	if l.RetryDelay <= 0 {
		l.RetryDelay = 2
	}
	if l.RequestsPerMinute <= 0 {
		l.RequestsPerMinute = 30
	}
	return nil
}

// ObjectStoreConfig points at an S3 compatible bucket holding billing exports.
// OCI exposes its object storage through the same API with a custom endpoint.
type ObjectStoreConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	Region       string `json:"region" yaml:"region"`
	Bucket       string `json:"bucket" yaml:"bucket"`
	Prefix       string `json:"prefix" yaml:"prefix"`
	Provider     string `json:"provider" yaml:"provider"` // hint applied to imported files
	AccessKey    string `json:"access_key" yaml:"access_key"`
	SecretKey    string `json:"secret_key" yaml:"secret_key"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// NewObjectStoreConfig creates an object store config with env defaults
func NewObjectStoreConfig() *ObjectStoreConfig {
	return &ObjectStoreConfig{
		Enabled:      getEnvBool("OBJECT_STORE_ENABLED", false),
		Endpoint:     getEnv("OBJECT_STORE_ENDPOINT", ""),
		Region:       getEnv("OBJECT_STORE_REGION", "us-east-1"),
		Bucket:       getEnv("OBJECT_STORE_BUCKET", ""),
		Prefix:       getEnv("OBJECT_STORE_PREFIX", ""),
		Provider:     getEnv("OBJECT_STORE_PROVIDER", ""),
		AccessKey:    getEnv("OBJECT_STORE_ACCESS_KEY", ""),
		SecretKey:    getEnv("OBJECT_STORE_SECRET_KEY", ""),
		UsePathStyle: getEnvBool("OBJECT_STORE_PATH_STYLE", true),
	}
}

// Validate validates object store configuration
func (o *ObjectStoreConfig) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.Bucket == "" {
		return fmt.Errorf("%w: bucket", ErrMissingRequired)
	}
	if o.Region == "" {
		return fmt.Errorf("%w: region", ErrMissingRequired)
	}
	if (o.AccessKey == "") != (o.SecretKey == "") {
		return fmt.Errorf("%w: access_key and secret_key must be set together", ErrInvalidValue)
	}
	if o.Provider != "" && !isValidValue(o.Provider, []string{"AWS", "OCI", "AZURE", "GENERIC"}) {
		return fmt.Errorf("%w: provider %q", ErrInvalidValue, o.Provider)
	}
	return nil
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// NewMetricsConfig creates a metrics config with env defaults
func NewMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled: getEnvBool("METRICS_ENABLED", true),
		Path:    getEnv("METRICS_PATH", "/metrics"),
	}
}
