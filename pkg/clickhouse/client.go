// Package clickhouse mirrors persisted cost tuples into a ClickHouse table
// for analytical queries across imports.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"costlens/pkg/config"
	"costlens/pkg/dataset"
	"costlens/pkg/logger"
	"costlens/pkg/normalize"
)

// BatchInsertOptions tune InsertTuples
type BatchInsertOptions struct {
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultBatchInsertOptions returns default batch insert options
func DefaultBatchInsertOptions() *BatchInsertOptions {
	return &BatchInsertOptions{
		BatchSize:  500,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// BatchInsertResult summarizes one InsertTuples call
type BatchInsertResult struct {
	TotalRecords     int           `json:"total_records"`
	ProcessedBatches int           `json:"processed_batches"`
	InsertedRecords  int           `json:"inserted_records"`
	Duration         time.Duration `json:"duration"`
}

// MonthlyTotal is one row of the monthly totals query
type MonthlyTotal struct {
	Month    string  `json:"month"`
	Provider string  `json:"cloud_provider"`
	Total    float64 `json:"total"`
}

// Client is the ClickHouse cost mirror
type Client struct {
	conn    driver.Conn
	table   string
	cluster string
	opts    *BatchInsertOptions
}

// NewClient connects and pings ClickHouse
func NewClient(cfg *config.ClickHouseConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrDisabled
	}
	table := cfg.Table
	if table == "" {
		table = "cost_rows"
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}

	conn, err := openConnection(cfg, nil)
	if err != nil {
		return nil, WrapConnectionError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, WrapConnectionError(fmt.Errorf("ping failed: %w", err))
	}

	return &Client{
		conn:    conn,
		table:   table,
		cluster: cfg.Cluster,
		opts:    DefaultBatchInsertOptions(),
	}, nil
}

// Table returns the mirror table name
func (c *Client) Table() string {
	return c.table
}

// Close closes the connection
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return WrapConnectionError(err)
	}
	return nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return ErrDisabled
	}
	if err := c.conn.Ping(ctx); err != nil {
		return WrapConnectionError(err)
	}
	return nil
}

func (c *Client) exec(ctx context.Context, query string, args ...interface{}) error {
	start := time.Now()
	err := c.conn.Exec(ctx, query, args...)
	logger.Debug("ClickHouse statement executed",
		zap.String("query_type", getQueryType(query)),
		zap.String("table", c.table),
		logger.DurationField(time.Since(start)),
		zap.Error(err))
	if err != nil {
		return WrapError("exec", c.table, err)
	}
	return nil
}

// EnsureTable creates the mirror table when missing
func (c *Client) EnsureTable(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return ErrDisabled
	}
	return c.exec(ctx, BuildCreateTableQuery(c.table, c.cluster))
}

// InsertTuples appends tuples in batches. Each batch is retried on
// connection failures.
func (c *Client) InsertTuples(ctx context.Context, provider normalize.Provider, tuples []dataset.CostTuple) (*BatchInsertResult, error) {
	if c == nil || c.conn == nil {
		return nil, ErrDisabled
	}
	if len(tuples) == 0 {
		return nil, ErrEmptyData
	}

	start := time.Now()
	result := &BatchInsertResult{TotalRecords: len(tuples)}
	insertedAt := start.UTC().Truncate(time.Second)

	for from := 0; from < len(tuples); from += c.opts.BatchSize {
		to := from + c.opts.BatchSize
		if to > len(tuples) {
			to = len(tuples)
		}
		chunk := tuples[from:to]

		var err error
		for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
			if attempt > 0 {
				logger.Warn("ClickHouse batch failed, retrying",
					zap.String("table", c.table),
					zap.Int("batch_start", from),
					zap.Int("retry_attempt", attempt),
					zap.Error(err))
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(c.opts.RetryDelay):
				}
			}
			if err = c.sendBatch(ctx, provider, chunk, insertedAt); err == nil || !isRetryable(err) {
				break
			}
		}
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.ProcessedBatches++
		result.InsertedRecords += len(chunk)
	}

	result.Duration = time.Since(start)
	logger.Info("Cost tuples mirrored to ClickHouse",
		zap.String("table", c.table),
		logger.CountField(result.InsertedRecords),
		zap.Int("batches", result.ProcessedBatches),
		logger.DurationField(result.Duration))
	return result, nil
}

func (c *Client) sendBatch(ctx context.Context, provider normalize.Provider, tuples []dataset.CostTuple, insertedAt time.Time) error {
	batch, err := c.conn.PrepareBatch(ctx, BuildInsertQuery(c.table, costColumns))
	if err != nil {
		return WrapError("prepare batch", c.table, err)
	}
	for _, t := range tuples {
		if err := batch.Append(
			uint64(t.FileID),
			string(provider),
			t.UsageDate,
			normalize.MonthOf(t.UsageDate),
			t.ServiceName,
			t.CostAmount,
			insertedAt,
		); err != nil {
			_ = batch.Abort()
			return WrapError("append to batch", c.table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return WrapError("send batch", c.table, err)
	}
	return nil
}

// DeleteFile removes the mirrored rows of one import
func (c *Client) DeleteFile(ctx context.Context, fileID uint) error {
	if c == nil || c.conn == nil {
		return ErrDisabled
	}
	return c.exec(ctx, BuildDeleteFileQuery(c.table, c.cluster), uint64(fileID))
}

// MonthlyTotals sums mirrored cost by month and provider. Empty fileIDs
// covers every import.
func (c *Client) MonthlyTotals(ctx context.Context, fileIDs []uint) ([]MonthlyTotal, error) {
	if c == nil || c.conn == nil {
		return nil, ErrDisabled
	}
	var args []interface{}
	if len(fileIDs) > 0 {
		ids := make([]uint64, len(fileIDs))
		for i, id := range fileIDs {
			ids[i] = uint64(id)
		}
		args = append(args, ids)
	}

	rows, err := c.conn.Query(ctx, BuildMonthlyTotalsQuery(c.table, len(fileIDs) > 0), args...)
	if err != nil {
		return nil, WrapError("query", c.table, err)
	}
	defer rows.Close()

	var out []MonthlyTotal
	for rows.Next() {
		var m MonthlyTotal
		if err := rows.Scan(&m.Month, &m.Provider, &m.Total); err != nil {
			return nil, WrapError("scan", c.table, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("iterate", c.table, err)
	}
	return out, nil
}
