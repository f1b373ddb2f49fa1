package handlers

import (
	"time"

	"costlens/pkg/config"
	"costlens/pkg/scheduler"
	"costlens/pkg/service"
)

// HandlerService holds the dependencies shared by every HTTP handler
type HandlerService struct {
	config    *config.Config
	svc       *service.Service
	scheduler *scheduler.TaskScheduler
	startedAt time.Time
}

// NewHandlerService creates a handler service over svc
func NewHandlerService(cfg *config.Config, svc *service.Service) *HandlerService {
	if cfg == nil {
		cfg = config.Default()
	}
	return &HandlerService{
		config:    cfg,
		svc:       svc,
		startedAt: time.Now(),
	}
}

// SetScheduler sets the scheduler reference (called after scheduler is created)
func (h *HandlerService) SetScheduler(s *scheduler.TaskScheduler) {
	h.scheduler = s
}

// GetConfig returns the handler service configuration
func (h *HandlerService) GetConfig() *config.Config {
	return h.config
}

// IsSchedulerAvailable checks if scheduler is available
func (h *HandlerService) IsSchedulerAvailable() bool {
	return h.scheduler != nil
}
