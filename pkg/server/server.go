package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "costlens/docs" // swagger docs
	"costlens/pkg/config"
	"costlens/pkg/handlers"
	"costlens/pkg/logger"
	"costlens/pkg/middleware"
	"costlens/pkg/scheduler"
)

// Server constants
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Config holds HTTP server configuration
type Config struct {
	Address string
	Port    int
	Config  *config.Config
}

// HTTPServer represents the HTTP server component
type HTTPServer struct {
	server     *http.Server
	router     *gin.Engine
	config     *Config
	handlerSvc *handlers.HandlerService
}

// NewHTTPServer creates a new HTTP server over handlerSvc
func NewHTTPServer(cfg *Config, handlerSvc *handlers.HandlerService) (*HTTPServer, error) {
	if handlerSvc == nil {
		return nil, fmt.Errorf("handler service is required")
	}
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	logger.Info("Initializing HTTP server", zap.String("address", cfg.Address), zap.Int("port", cfg.Port))

	if app := cfg.Config.App; app != nil && !app.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		router:     gin.New(),
		config:     cfg,
		handlerSvc: handlerSvc,
	}
	s.setupRoutes()

	readTimeout, writeTimeout := DefaultReadTimeout, DefaultWriteTimeout
	if sc := cfg.Config.Server; sc != nil {
		if sc.ReadTimeout > 0 {
			readTimeout = time.Duration(sc.ReadTimeout) * time.Second
		}
		if sc.WriteTimeout > 0 {
			writeTimeout = time.Duration(sc.WriteTimeout) * time.Second
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	logger.Info("HTTP server initialized", zap.String("listen_addr", addr))
	return s, nil
}

// SetScheduler passes the scheduler to the handlers
func (s *HTTPServer) SetScheduler(ts *scheduler.TaskScheduler) {
	s.handlerSvc.SetScheduler(ts)
}

// Handler exposes the router, mostly for tests
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *HTTPServer) setupRoutes() {
	s.addMiddleware()

	// Health check lives outside the versioned API
	s.router.GET("/health", s.handlerSvc.HealthCheck)

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if mc := s.config.Config.Metrics; mc != nil && mc.Enabled {
		path := mc.Path
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	s.handlerSvc.RegisterRoutes(s.router.Group("/api/v1"))
	logger.Info("HTTP routes configured", zap.Int("routes", len(s.router.Routes())))
}

// addMiddleware adds all middleware to the router
func (s *HTTPServer) addMiddleware() {
	s.router.Use(
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		cors.New(s.corsConfig()),
	)
}

func (s *HTTPServer) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID}
	cfg.ExposeHeaders = []string{middleware.HeaderRequestID}

	var origins []string
	if sc := s.config.Config.Server; sc != nil {
		origins = sc.CORSOrigins
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
