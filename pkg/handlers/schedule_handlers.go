package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"costlens/pkg/models"
	"costlens/pkg/response"
	"costlens/pkg/scheduler"
)

const defaultRunLimit = 50

func (h *HandlerService) requireScheduler(c *gin.Context) bool {
	if !h.IsSchedulerAvailable() {
		HandleError(c, NewAPIError(http.StatusServiceUnavailable, "Scheduler not available", ErrServiceUnavailable))
		return false
	}
	return true
}

// GetSchedulerStatus returns scheduler status
// @Summary Get scheduler status
// @Tags Scheduler
// @Produce json
// @Success 200 {object} scheduler.Status
// @Failure 503 {object} models.ErrorResponse
// @Router /scheduler/status [get]
func (h *HandlerService) GetSchedulerStatus(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	response.OK(c, h.scheduler.GetStatus())
}

// GetScheduledJobs returns all scheduled jobs
// @Summary List scheduled jobs
// @Tags Scheduler
// @Produce json
// @Success 200 {array} scheduler.ScheduledJob
// @Failure 503 {object} models.ErrorResponse
// @Router /scheduler/jobs [get]
func (h *HandlerService) GetScheduledJobs(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	jobs := h.scheduler.GetJobs()
	response.List(c, jobs, len(jobs))
}

// GetScheduledJob returns one job
// @Summary Get scheduled job
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} scheduler.ScheduledJob
// @Failure 404 {object} models.ErrorResponse
// @Router /scheduler/jobs/{id} [get]
func (h *HandlerService) GetScheduledJob(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	job, err := h.scheduler.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, job)
}

// CreateScheduledJob registers a new job
// @Summary Create scheduled job
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param request body models.CreateJobRequest true "Job definition"
// @Success 201 {object} scheduler.ScheduledJob
// @Failure 400 {object} models.ErrorResponse
// @Router /scheduler/jobs [post]
func (h *HandlerService) CreateScheduledJob(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleError(c, NewBadRequestError("Invalid job definition", err))
		return
	}

	job := &scheduler.ScheduledJob{Name: req.Name, Kind: req.Kind, Cron: req.Cron}
	if err := h.scheduler.AddJob(job); err != nil {
		HandleError(c, NewBadRequestError(fmt.Sprintf("Cannot schedule %s", req.Name), err))
		return
	}
	created, err := h.scheduler.GetJob(job.ID)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.Created(c, created)
}

// DeleteScheduledJob unregisters a job
// @Summary Delete scheduled job
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /scheduler/jobs/{id} [delete]
func (h *HandlerService) DeleteScheduledJob(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	id := c.Param("id")
	if err := h.scheduler.RemoveJob(id); err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, models.MessageResponse{Message: fmt.Sprintf("job %s removed", id)})
}

// TriggerScheduledJob runs a job immediately and waits for it
// @Summary Run scheduled job now
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} dbmodels.JobRun
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /scheduler/jobs/{id}/trigger [post]
func (h *HandlerService) TriggerScheduledJob(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	run, err := h.scheduler.RunNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	response.OK(c, run)
}

// GetJobRuns lists recorded executions, newest first
// @Summary List job runs
// @Tags Scheduler
// @Produce json
// @Param job query string false "Filter by job name"
// @Param limit query int false "Maximum runs" default(50)
// @Success 200 {object} models.JobRunListResponse
// @Router /scheduler/runs [get]
func (h *HandlerService) GetJobRuns(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultRunLimit)
	if err != nil {
		HandleError(c, err)
		return
	}
	runs, err := h.svc.Store().ListRuns(c.Request.Context(), c.Query("job"), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	response.List(c, runs, len(runs))
}

// GetCacheStats reports the analytics cache counters
// @Summary Cache statistics
// @Tags System
// @Produce json
// @Success 200 {object} cache.Stats
// @Router /cache/stats [get]
func (h *HandlerService) GetCacheStats(c *gin.Context) {
	response.OK(c, h.svc.CacheStats())
}

// ClearCache drops every memoized analytics result
// @Summary Clear cache
// @Tags System
// @Produce json
// @Success 200 {object} models.CacheClearResponse
// @Router /cache [delete]
func (h *HandlerService) ClearCache(c *gin.Context) {
	response.OK(c, models.CacheClearResponse{Removed: h.svc.ClearCache()})
}
