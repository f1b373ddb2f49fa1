package clickhouse

import (
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"costlens/pkg/config"
)

// ConnectionConfig holds pool and driver tuning
type ConnectionConfig struct {
	DialTimeout          time.Duration
	MaxOpenConns         int
	MaxIdleConns         int
	ConnMaxLifetime      time.Duration
	BlockBufferSize      uint8
	MaxCompressionBuffer int
	MaxExecutionTime     int
}

// DefaultConnectionConfig returns the default connection settings
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		DialTimeout:          30 * time.Second,
		MaxOpenConns:         10,
		MaxIdleConns:         5,
		ConnMaxLifetime:      time.Hour,
		BlockBufferSize:      10,
		MaxCompressionBuffer: 10240,
		MaxExecutionTime:     60,
	}
}

// connectionOptions builds driver options from configuration
func connectionOptions(cfg *config.ClickHouseConfig, connCfg *ConnectionConfig) *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: cfg.GetAddresses(),
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug:    cfg.Debug,
		Protocol: cfg.GetProtocol(),
		Settings: clickhouse.Settings{
			"max_execution_time": connCfg.MaxExecutionTime,
		},
		DialTimeout:          connCfg.DialTimeout,
		MaxOpenConns:         connCfg.MaxOpenConns,
		MaxIdleConns:         connCfg.MaxIdleConns,
		ConnMaxLifetime:      connCfg.ConnMaxLifetime,
		ConnOpenStrategy:     clickhouse.ConnOpenInOrder,
		BlockBufferSize:      connCfg.BlockBufferSize,
		MaxCompressionBuffer: connCfg.MaxCompressionBuffer,
	}

	// LZ4 is only available on the native protocol
	if cfg.GetProtocol() == clickhouse.Native {
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}
	return opts
}

func openConnection(cfg *config.ClickHouseConfig, connCfg *ConnectionConfig) (driver.Conn, error) {
	if connCfg == nil {
		connCfg = DefaultConnectionConfig()
	}
	conn, err := clickhouse.Open(connectionOptions(cfg, connCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return conn, nil
}
