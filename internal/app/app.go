// Package app assembles the service and its optional collaborators from a
// loaded configuration. Both binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"costlens/pkg/cache"
	"costlens/pkg/clickhouse"
	"costlens/pkg/config"
	"costlens/pkg/llm"
	"costlens/pkg/logger"
	"costlens/pkg/notifier"
	"costlens/pkg/objectstore"
	"costlens/pkg/scheduler"
	"costlens/pkg/service"
	"costlens/pkg/storage"
)

// App owns the long lived resources
type App struct {
	Config  *config.Config
	Store   *storage.Store
	Mirror  *clickhouse.Client
	Bucket  *objectstore.Store
	LLM     *llm.Client
	Service *service.Service

	// Notifier is nil when no alert channel is enabled
	Notifier *notifier.Dispatcher
}

// Build opens storage and connects the enabled components. A ClickHouse or
// object store that cannot be reached is logged and left out.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a := &App{Config: cfg, Store: store}

	if cfg.ClickHouse != nil && cfg.ClickHouse.Enabled {
		a.Mirror = connectMirror(ctx, cfg.ClickHouse)
	}

	if cfg.ObjectStore != nil && cfg.ObjectStore.Enabled {
		bucket, err := objectstore.New(ctx, cfg.ObjectStore)
		if err != nil {
			logger.Warn("Object store unavailable", zap.String("bucket", cfg.ObjectStore.Bucket), zap.Error(err))
		} else {
			a.Bucket = bucket
		}
	}

	a.LLM = llm.NewClient(cfg.LLM)
	a.Service = service.New(service.Options{
		Store:     store,
		Mirror:    a.Mirror,
		Bucket:    a.Bucket,
		Cache:     cache.New(cfg.Cache),
		Generator: a.LLM,
		Analytics: cfg.Analytics,
	})

	a.Notifier = notifier.New(cfg.Notifier)

	logger.Info("Application assembled",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("clickhouse", a.Mirror != nil),
		zap.Bool("object_store", a.Bucket != nil),
		zap.Bool("llm", a.LLM.Enabled()),
		zap.Bool("alerts", a.Notifier != nil))
	return a, nil
}

func connectMirror(ctx context.Context, cfg *config.ClickHouseConfig) *clickhouse.Client {
	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		logger.Warn("ClickHouse mirror unavailable", zap.Strings("hosts", cfg.Hosts), zap.Error(err))
		return nil
	}
	if err := client.EnsureTable(ctx); err != nil {
		logger.Warn("ClickHouse table setup failed", zap.String("table", client.Table()), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// Alerter returns the notifier as a scheduler alerter, or nil
func (a *App) Alerter() scheduler.Alerter {
	if a.Notifier == nil {
		return nil
	}
	return a.Notifier
}

// Close releases every resource
func (a *App) Close() error {
	var errs []error
	if a.Mirror != nil {
		errs = append(errs, a.Mirror.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
