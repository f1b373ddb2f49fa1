package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// StorageConfig selects the relational store that keeps imported files and cost rows
type StorageConfig struct {
	Driver      string `json:"driver" yaml:"driver"` // sqlite, mysql
	DSN         string `json:"dsn" yaml:"dsn"`
	AutoMigrate bool   `json:"auto_migrate" yaml:"auto_migrate"`
	Debug       bool   `json:"debug" yaml:"debug"`
}

// NewStorageConfig creates a storage config with env defaults
func NewStorageConfig() *StorageConfig {
	return &StorageConfig{
		Driver:      getEnv("COSTLENS_DB_DRIVER", "sqlite"),
		DSN:         getEnv("COSTLENS_DB_DSN", "./data/costlens.db"),
		AutoMigrate: getEnvBool("COSTLENS_DB_AUTO_MIGRATE", true),
		Debug:       getEnvBool("COSTLENS_DB_DEBUG", false),
	}
}

// Validate validates the storage configuration
func (s *StorageConfig) Validate() error {
	if !isValidValue(s.Driver, []string{"sqlite", "mysql"}) {
		return fmt.Errorf("%w: driver must be sqlite or mysql, got %q", ErrInvalidValue, s.Driver)
	}
	if s.DSN == "" {
		return fmt.Errorf("%w: dsn", ErrMissingRequired)
	}
	return nil
}

// ClickHouseConfig configures the optional analytical mirror of cost rows
type ClickHouseConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Hosts    []string `json:"hosts" yaml:"hosts"`
	Port     int      `json:"port" yaml:"port"`
	Database string   `json:"database" yaml:"database"`
	Username string   `json:"username" yaml:"username"`
	Password string   `json:"password" yaml:"password"`
	Table    string   `json:"table" yaml:"table"`
	Debug    bool     `json:"debug" yaml:"debug"`
	Cluster  string   `json:"cluster" yaml:"cluster"`
	Protocol string   `json:"protocol" yaml:"protocol"` // native, http
}

// NewClickHouseConfig creates a ClickHouse config with env defaults
func NewClickHouseConfig() *ClickHouseConfig {
	hosts := []string{getEnv("CLICKHOUSE_HOST", "localhost")}
	if hostsEnv := os.Getenv("CLICKHOUSE_HOSTS"); hostsEnv != "" {
		hosts = parseStringList(hostsEnv)
	}

	protocol := getEnv("CLICKHOUSE_PROTOCOL", "native")
	defaultPort := 9000
	if protocol == "http" {
		defaultPort = 8123
	}

	return &ClickHouseConfig{
		Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
		Hosts:    hosts,
		Port:     getEnvInt("CLICKHOUSE_PORT", defaultPort),
		Database: getEnv("CLICKHOUSE_DATABASE", "default"),
		Username: getEnv("CLICKHOUSE_USERNAME", "default"),
		Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		Table:    getEnv("CLICKHOUSE_TABLE", "cost_rows"),
		Debug:    getEnvBool("CLICKHOUSE_DEBUG", false),
		Cluster:  getEnv("CLICKHOUSE_CLUSTER", ""),
		Protocol: protocol,
	}
}

// DSN renders the connection string of the first host
func (c *ClickHouseConfig) DSN() string {
	host := "localhost"
	if len(c.Hosts) > 0 {
		host = c.Hosts[0]
	}

	scheme := "clickhouse"
	if c.Protocol == "http" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		scheme, url.QueryEscape(c.Username), url.QueryEscape(c.Password), host, c.Port, c.Database)
}

// GetProtocol returns the driver protocol, native unless http is configured
func (c *ClickHouseConfig) GetProtocol() clickhouse.Protocol {
	if c.Protocol == "http" {
		return clickhouse.HTTP
	}
	return clickhouse.Native
}

// GetAddresses returns host:port pairs for every configured host
func (c *ClickHouseConfig) GetAddresses() []string {
	addresses := make([]string, len(c.Hosts))
	for i, host := range c.Hosts {
		addresses[i] = fmt.Sprintf("%s:%d", host, c.Port)
	}
	return addresses
}

// Validate validates ClickHouse configuration. A disabled mirror is always valid.
func (c *ClickHouseConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Hosts) == 0 {
		return fmt.Errorf("%w: hosts", ErrMissingRequired)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be within 1-65535", ErrInvalidValue)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database", ErrMissingRequired)
	}
	if c.Table == "" {
		return fmt.Errorf("%w: table", ErrMissingRequired)
	}
	if c.Protocol != "" && c.Protocol != "native" && c.Protocol != "http" {
		return fmt.Errorf("%w: protocol must be 'native' or 'http'", ErrInvalidValue)
	}
	return nil
}
