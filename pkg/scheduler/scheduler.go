package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"costlens/internal/models"
	"costlens/pkg/anomaly"
	"costlens/pkg/config"
	"costlens/pkg/logger"
	"costlens/pkg/metrics"
	"costlens/pkg/normalize"
	"costlens/pkg/notifier"
	"costlens/pkg/service"
)

// Job statuses
const (
	JobStatusScheduled = "scheduled"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Error variables
var (
	ErrJobNotFound    = fmt.Errorf("job not found")
	ErrUnknownJobKind = fmt.Errorf("unknown job kind")
)

// Runner performs the work behind each job kind
type Runner interface {
	EvictExpired() int
	ScanAnomalies(ctx context.Context) ([]anomaly.MoMRecord, error)
	ImportBucket(ctx context.Context, hint normalize.Provider) (*service.BucketImportResult, error)
}

// RunStore persists job executions
type RunStore interface {
	SaveRun(ctx context.Context, run *models.JobRun) error
}

// Alerter receives the spikes of every anomaly scan that flags any
type Alerter interface {
	Notify(ctx context.Context, alert *notifier.Alert) error
}

// Options configure a TaskScheduler. Runs and Alerter may be nil.
type Options struct {
	Config        *config.SchedulerConfig
	Runner        Runner
	Runs          RunStore
	Alerter       Alerter
	BucketEnabled bool
}

// TaskScheduler runs maintenance jobs on cron schedules
type TaskScheduler struct {
	cron      *cron.Cron
	ctx       context.Context
	opts      Options
	jobs      map[string]*ScheduledJob
	jobsMutex sync.RWMutex
}

// ScheduledJob is one registered job
type ScheduledJob struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Cron    string       `json:"cron"`
	NextRun time.Time    `json:"next_run"`
	LastRun time.Time    `json:"last_run"`
	Status  string       `json:"status"`
	EntryID cron.EntryID `json:"-"`
}

// Status is a snapshot of the scheduler
type Status struct {
	Running   bool      `json:"running"`
	JobCount  int       `json:"job_count"`
	Entries   int       `json:"entries"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTaskScheduler creates a scheduler and registers the configured jobs,
// or the default jobs when none are configured
func NewTaskScheduler(ctx context.Context, opts Options) (*TaskScheduler, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("scheduler needs a runner")
	}
	if opts.Config == nil {
		opts.Config = config.NewSchedulerConfig()
	}
	logger.Info("Initializing task scheduler")

	ts := &TaskScheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:  ctx,
		opts: opts,
		jobs: make(map[string]*ScheduledJob),
	}
	if err := ts.loadConfiguredJobs(); err != nil {
		return nil, fmt.Errorf("failed to load configured jobs: %w", err)
	}

	logger.Info("Task scheduler initialized", zap.Int("job_count", len(ts.jobs)))
	return ts, nil
}

// Start runs the cron loop until the scheduler context is cancelled
func (ts *TaskScheduler) Start() error {
	logger.Info("Starting task scheduler")
	ts.cron.Start()

	ts.jobsMutex.Lock()
	for _, job := range ts.jobs {
		if err := ts.updateJobNextRunTime(job); err != nil {
			logger.Warn("Failed to update next run time after start", zap.String("job_name", job.Name), zap.Error(err))
		}
	}
	ts.jobsMutex.Unlock()
	ts.logScheduledJobs()

	<-ts.ctx.Done()
	logger.Info("Task scheduler context cancelled")
	return nil
}

// Shutdown stops the cron loop and waits for running jobs until ctx expires
func (ts *TaskScheduler) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down task scheduler")
	cronCtx := ts.cron.Stop()

	select {
	case <-cronCtx.Done():
		logger.Info("All scheduled jobs completed")
	case <-ctx.Done():
		logger.Warn("Scheduler shutdown timeout, some jobs may still be running")
	}
	return nil
}

// AddJob registers job with the cron loop
func (ts *TaskScheduler) AddJob(job *ScheduledJob) error {
	if !isKnownKind(job.Kind) {
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}

	ts.jobsMutex.Lock()
	defer ts.jobsMutex.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	entryID, err := ts.cron.AddFunc(job.Cron, func() { _, _ = ts.execute(ts.ctx, job) })
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	job.EntryID = entryID
	job.Status = JobStatusScheduled
	if err := ts.updateJobNextRunTime(job); err != nil {
		logger.Warn("Failed to update next run time", zap.String("job_name", job.Name), zap.Error(err))
	}
	ts.jobs[job.ID] = job

	logger.Info("Added scheduled job",
		zap.String("job_id", job.ID),
		zap.String("job_name", job.Name),
		zap.String("kind", job.Kind),
		zap.String("cron", job.Cron),
		zap.Time("next_run", job.NextRun))
	return nil
}

// RemoveJob unregisters a job
func (ts *TaskScheduler) RemoveJob(jobID string) error {
	ts.jobsMutex.Lock()
	defer ts.jobsMutex.Unlock()

	job, exists := ts.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	ts.cron.Remove(job.EntryID)
	delete(ts.jobs, jobID)

	logger.Info("Removed scheduled job", zap.String("job_id", jobID), zap.String("job_name", job.Name))
	return nil
}

// GetJobs returns copies of every job ordered by name
func (ts *TaskScheduler) GetJobs() []ScheduledJob {
	ts.jobsMutex.Lock()
	defer ts.jobsMutex.Unlock()

	jobs := make([]ScheduledJob, 0, len(ts.jobs))
	for _, job := range ts.jobs {
		_ = ts.updateJobNextRunTime(job)
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// GetJob returns a copy of one job
func (ts *TaskScheduler) GetJob(jobID string) (ScheduledJob, error) {
	ts.jobsMutex.RLock()
	defer ts.jobsMutex.RUnlock()

	job, exists := ts.jobs[jobID]
	if !exists {
		return ScheduledJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return *job, nil
}

// RunNow executes a job synchronously, outside its schedule
func (ts *TaskScheduler) RunNow(ctx context.Context, jobID string) (*models.JobRun, error) {
	ts.jobsMutex.RLock()
	job, exists := ts.jobs[jobID]
	ts.jobsMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return ts.execute(ctx, job)
}

// GetStatus returns the scheduler status
func (ts *TaskScheduler) GetStatus() Status {
	ts.jobsMutex.RLock()
	defer ts.jobsMutex.RUnlock()

	return Status{
		Running:   ts.ctx.Err() == nil,
		JobCount:  len(ts.jobs),
		Entries:   len(ts.cron.Entries()),
		Timestamp: time.Now().UTC(),
	}
}

func (ts *TaskScheduler) loadConfiguredJobs() error {
	cfg := ts.opts.Config
	if !cfg.Enabled {
		logger.Info("Scheduler disabled, no jobs registered")
		return nil
	}

	configured := cfg.Jobs
	if len(configured) == 0 {
		logger.Info("No jobs found in configuration, loading default jobs")
		configured = ts.getDefaultJobs()
	}
	for _, c := range configured {
		job := &ScheduledJob{Name: c.Name, Kind: c.Kind, Cron: c.Cron}
		if err := ts.AddJob(job); err != nil {
			logger.Warn("Failed to add configured job", zap.String("job_name", job.Name), zap.Error(err))
		}
	}
	return nil
}

func (ts *TaskScheduler) getDefaultJobs() []config.ScheduledJob {
	jobs := []config.ScheduledJob{
		{Name: "hourly_cache_evict", Kind: config.JobKindCacheEvict, Cron: "0 * * * *"},
		{Name: "daily_anomaly_scan", Kind: config.JobKindAnomalyScan, Cron: "0 6 * * *"},
	}
	if ts.opts.BucketEnabled {
		jobs = append(jobs, config.ScheduledJob{Name: "daily_bucket_import", Kind: config.JobKindBucketImport, Cron: "0 2 * * *"})
	}
	return jobs
}

// execute runs job once and records the run
func (ts *TaskScheduler) execute(ctx context.Context, job *ScheduledJob) (*models.JobRun, error) {
	run := &models.JobRun{
		RunID:     uuid.New().String(),
		JobName:   job.Name,
		Kind:      job.Kind,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	ctx = logger.WithJobID(ctx, run.RunID)
	log := logger.FromContext(ctx).With(zap.String("job_name", job.Name), zap.String("kind", job.Kind))
	log.Info("Executing scheduled job")

	ts.setJobState(job, JobStatusRunning, run.StartedAt)
	ts.saveRun(ctx, run)

	message, result, err := ts.perform(ctx, job.Kind)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Duration = completed.Sub(run.StartedAt).Milliseconds()
	run.Message = message
	if result != nil {
		if raw, mErr := json.Marshal(result); mErr == nil {
			run.Result = datatypes.JSON(raw)
		}
	}

	status := JobStatusCompleted
	run.Status = models.RunStatusCompleted
	if err != nil {
		status = JobStatusFailed
		run.Status = models.RunStatusFailed
		run.ErrorMsg = err.Error()
		log.Error("Scheduled job failed", logger.ErrorField(err))
	} else {
		log.Info("Scheduled job completed successfully", zap.String("message", message), logger.DurationField(completed.Sub(run.StartedAt)))
	}

	metrics.ScheduledJobRuns.WithLabelValues(job.Kind, string(run.Status)).Inc()
	ts.setJobState(job, status, time.Time{})
	ts.saveRun(ctx, run)
	return run, err
}

func (ts *TaskScheduler) perform(ctx context.Context, kind string) (string, interface{}, error) {
	switch kind {
	case config.JobKindCacheEvict:
		n := ts.opts.Runner.EvictExpired()
		return fmt.Sprintf("evicted %d cache entries", n), map[string]int{"evicted": n}, nil

	case config.JobKindAnomalyScan:
		spikes, err := ts.opts.Runner.ScanAnomalies(ctx)
		if err != nil {
			return "", nil, err
		}
		for _, s := range spikes {
			logger.FromContext(ctx).Warn("Month-over-month cost spike",
				zap.String("month", s.Month),
				zap.String("provider", s.Provider),
				zap.String("service", s.Service),
				zap.Float64("cost", s.Cost),
				zap.Float64("prev_cost", s.PrevCost),
				zap.Float64("variation_pct", s.VariationPct))
		}
		message := fmt.Sprintf("%d spikes flagged", len(spikes))
		if len(spikes) > 0 && ts.opts.Alerter != nil {
			// delivery failures do not fail the scan
			if err := ts.opts.Alerter.Notify(ctx, notifier.NewAlert(spikes)); err != nil {
				message += ", alert delivery failed"
			} else {
				message += ", alert sent"
			}
		}
		return message, spikes, nil

	case config.JobKindBucketImport:
		res, err := ts.opts.Runner.ImportBucket(ctx, "")
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%d imported, %d skipped, %d failed", len(res.Imported), len(res.Skipped), len(res.Failed)), res, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnknownJobKind, kind)
}

func (ts *TaskScheduler) saveRun(ctx context.Context, run *models.JobRun) {
	if ts.opts.Runs == nil {
		return
	}
	if err := ts.opts.Runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Failed to persist job run", zap.String("run_id", run.RunID), logger.ErrorField(err))
	}
}

func (ts *TaskScheduler) logScheduledJobs() {
	ts.jobsMutex.RLock()
	defer ts.jobsMutex.RUnlock()

	if len(ts.jobs) == 0 {
		logger.Info("No scheduled jobs configured")
		return
	}
	for _, job := range ts.jobs {
		logger.Info("Scheduled job",
			zap.String("job_name", job.Name),
			zap.String("kind", job.Kind),
			zap.String("cron", job.Cron),
			zap.Time("next_run", job.NextRun),
			zap.String("status", job.Status))
	}
}

// updateJobNextRunTime must be called with jobsMutex held
func (ts *TaskScheduler) updateJobNextRunTime(job *ScheduledJob) error {
	for _, entry := range ts.cron.Entries() {
		if entry.ID == job.EntryID && !entry.Next.IsZero() {
			job.NextRun = entry.Next
			return nil
		}
	}
	schedule, err := cron.ParseStandard(job.Cron)
	if err != nil {
		return fmt.Errorf("failed to parse cron expression %s: %w", job.Cron, err)
	}
	job.NextRun = schedule.Next(time.Now())
	return nil
}

func (ts *TaskScheduler) setJobState(job *ScheduledJob, status string, lastRun time.Time) {
	ts.jobsMutex.Lock()
	defer ts.jobsMutex.Unlock()
	job.Status = status
	if !lastRun.IsZero() {
		job.LastRun = lastRun
	}
}

func isKnownKind(kind string) bool {
	switch kind {
	case config.JobKindCacheEvict, config.JobKindAnomalyScan, config.JobKindBucketImport:
		return true
	}
	return false
}
