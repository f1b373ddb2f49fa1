package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"costlens/internal/app"
	"costlens/pkg/config"
	"costlens/pkg/handlers"
	"costlens/pkg/logger"
	"costlens/pkg/scheduler"
	"costlens/pkg/server"
)

const shutdownTimeout = 15 * time.Second

// @title CostLens API
// @version 1.0.0
// @description Multi-cloud billing normalization and cost analytics.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML or JSON config file")
		address    = flag.String("address", "", "Listen address (overrides config)")
		port       = flag.Int("port", 0, "Listen port (overrides config)")
		noSchedule = flag.Bool("no-scheduler", false, "Disable scheduled jobs")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.InitLogger(cfg.App.IsDevelopment(), cfg.App.LogPath, cfg.App.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if *address != "" {
		cfg.Server.Address = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *noSchedule {
		cfg.Scheduler.Enabled = false
	}

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handlerSvc := handlers.NewHandlerService(cfg, a.Service)
	srv, err := server.NewHTTPServer(&server.Config{
		Address: cfg.Server.Address,
		Port:    cfg.Server.Port,
		Config:  cfg,
	}, handlerSvc)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	ts, err := scheduler.NewTaskScheduler(ctx, scheduler.Options{
		Config:        cfg.Scheduler,
		Runner:        a.Service,
		Runs:          a.Store,
		Alerter:       a.Alerter(),
		BucketEnabled: a.Bucket != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	srv.SetScheduler(ts)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()
	go func() { errCh <- ts.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		srv.Shutdown(shutdownCtx),
		ts.Shutdown(shutdownCtx),
	)
}
