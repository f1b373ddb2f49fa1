package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"costlens/pkg/models"
	"costlens/pkg/normalize"
	"costlens/pkg/response"
)

// Version is reported by the status and health endpoints
var Version = "1.0.0"

const serviceName = "costlens"

// GetStatus returns the overall system status
// @Summary Get system status
// @Description Returns uptime, import count, cache counters, scheduler state and which optional components are enabled
// @Tags System
// @Produce json
// @Success 200 {object} models.SystemStatus
// @Failure 500 {object} models.ErrorResponse
// @Router /system/status [get]
func (h *HandlerService) GetStatus(c *gin.Context) {
	imports, err := h.svc.ListImports(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	status := models.SystemStatus{
		Service:       serviceName,
		Version:       Version,
		Status:        "running",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Imports:       len(imports),
		SchemaVersion: normalize.SchemaVersion,
		Components:    h.components(),
		Cache:         h.svc.CacheStats(),
	}
	if h.scheduler != nil {
		st := h.scheduler.GetStatus()
		status.Scheduler = &st
	}
	response.OK(c, status)
}

func (h *HandlerService) components() models.ComponentStatus {
	cfg := h.config
	return models.ComponentStatus{
		ClickHouse:  cfg.ClickHouse != nil && cfg.ClickHouse.Enabled,
		ObjectStore: cfg.ObjectStore != nil && cfg.ObjectStore.Enabled,
		LLM:         cfg.LLM != nil && cfg.LLM.Enabled,
		Cache:       cfg.Cache != nil && cfg.Cache.Enabled,
		Scheduler:   h.scheduler != nil,
		Alerts:      cfg.Notifier.Enabled(),
	}
}

// HealthCheck performs a health check
// @Summary Perform health check
// @Description Pings the relational store. This endpoint is served outside /api/v1.
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse "Health check passed"
// @Failure 503 {object} models.HealthResponse "Service unhealthy"
// @Router /health [get]
func (h *HandlerService) HealthCheck(c *gin.Context) {
	health := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   serviceName,
		Version:   Version,
		Checks:    map[string]string{"storage": "ok"},
	}

	if err := h.pingStorage(c.Request.Context()); err != nil {
		health.Status = "unhealthy"
		health.Checks["storage"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	if h.scheduler != nil {
		health.Checks["scheduler"] = "ok"
		if !h.scheduler.GetStatus().Running {
			health.Checks["scheduler"] = "stopped"
		}
	}
	c.JSON(http.StatusOK, health)
}

func (h *HandlerService) pingStorage(ctx context.Context) error {
	if h.svc.Store() == nil {
		return ErrServiceUnavailable
	}
	sqlDB, err := h.svc.Store().DB().DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
