package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"costlens/internal/models"
	"costlens/pkg/anomaly"
	"costlens/pkg/config"
	"costlens/pkg/normalize"
	"costlens/pkg/notifier"
	"costlens/pkg/service"
)

type fakeRunner struct {
	evicted   int
	spikes    []anomaly.MoMRecord
	bucketErr error
}

func (f *fakeRunner) EvictExpired() int { return f.evicted }

func (f *fakeRunner) ScanAnomalies(context.Context) ([]anomaly.MoMRecord, error) {
	return f.spikes, nil
}

func (f *fakeRunner) ImportBucket(context.Context, normalize.Provider) (*service.BucketImportResult, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &service.BucketImportResult{Skipped: []string{"a.csv"}, Failed: map[string]string{}}, nil
}

type memoryRuns struct {
	mu    sync.Mutex
	saved []models.JobRun
}

func (m *memoryRuns) SaveRun(_ context.Context, run *models.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *run)
	return nil
}

func newScheduler(t *testing.T, cfg *config.SchedulerConfig, runner Runner, runs RunStore, bucket bool) *TaskScheduler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ts, err := NewTaskScheduler(ctx, Options{Config: cfg, Runner: runner, Runs: runs, BucketEnabled: bucket})
	if err != nil {
		t.Fatalf("NewTaskScheduler: %v", err)
	}
	return ts
}

func jobByKind(t *testing.T, ts *TaskScheduler, kind string) ScheduledJob {
	t.Helper()
	for _, j := range ts.GetJobs() {
		if j.Kind == kind {
			return j
		}
	}
	t.Fatalf("no %s job registered", kind)
	return ScheduledJob{}
}

func TestDefaultJobs(t *testing.T) {
	ts := newScheduler(t, &config.SchedulerConfig{Enabled: true}, &fakeRunner{}, nil, false)
	if got := len(ts.GetJobs()); got != 2 {
		t.Fatalf("jobs = %d, want 2", got)
	}

	withBucket := newScheduler(t, &config.SchedulerConfig{Enabled: true}, &fakeRunner{}, nil, true)
	if got := len(withBucket.GetJobs()); got != 3 {
		t.Fatalf("jobs with bucket = %d, want 3", got)
	}
	for _, j := range withBucket.GetJobs() {
		if j.NextRun.IsZero() {
			t.Errorf("job %s has no next run", j.Name)
		}
		if j.Status != JobStatusScheduled {
			t.Errorf("job %s status = %s", j.Name, j.Status)
		}
	}
}

func TestDisabledSchedulerRegistersNothing(t *testing.T) {
	ts := newScheduler(t, &config.SchedulerConfig{Enabled: false}, &fakeRunner{}, nil, true)
	if got := ts.GetStatus().JobCount; got != 0 {
		t.Fatalf("job count = %d, want 0", got)
	}
}

func TestConfiguredJobsSkipUnknownKinds(t *testing.T) {
	cfg := &config.SchedulerConfig{Enabled: true, Jobs: []config.ScheduledJob{
		{Name: "evict", Kind: config.JobKindCacheEvict, Cron: "*/5 * * * *"},
		{Name: "bogus", Kind: "sync", Cron: "0 1 * * *"},
		{Name: "bad_cron", Kind: config.JobKindAnomalyScan, Cron: "not a cron"},
	}}
	ts := newScheduler(t, cfg, &fakeRunner{}, nil, false)
	jobs := ts.GetJobs()
	if len(jobs) != 1 || jobs[0].Name != "evict" {
		t.Fatalf("jobs = %+v, want only evict", jobs)
	}
}

func TestRunNowRecordsRuns(t *testing.T) {
	runs := &memoryRuns{}
	runner := &fakeRunner{
		evicted: 4,
		spikes:  []anomaly.MoMRecord{{Month: "2024-03", Provider: "AWS", Service: "EC2", Cost: 300, PrevCost: 100, VariationPct: 200}},
	}
	ts := newScheduler(t, &config.SchedulerConfig{Enabled: true}, runner, runs, false)

	evict := jobByKind(t, ts, config.JobKindCacheEvict)
	run, err := ts.RunNow(context.Background(), evict.ID)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("status = %s", run.Status)
	}
	if run.Message != "evicted 4 cache entries" {
		t.Errorf("message = %q", run.Message)
	}
	if run.CompletedAt == nil || len(run.Result) == 0 {
		t.Errorf("run not finalized: %+v", run)
	}

	scan := jobByKind(t, ts, config.JobKindAnomalyScan)
	run, err = ts.RunNow(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("RunNow scan: %v", err)
	}
	if run.Message != "1 spikes flagged" {
		t.Errorf("message = %q", run.Message)
	}

	if len(runs.saved) != 4 {
		t.Fatalf("saved runs = %d, want 4 (start and finish of each)", len(runs.saved))
	}
	if runs.saved[0].Status != models.RunStatusRunning {
		t.Errorf("first save status = %s, want running", runs.saved[0].Status)
	}

	after, _ := ts.GetJob(scan.ID)
	if after.Status != JobStatusCompleted || after.LastRun.IsZero() {
		t.Errorf("job state after run = %+v", after)
	}
}

type fakeAlerter struct {
	alerts []*notifier.Alert
	err    error
}

func (f *fakeAlerter) Notify(_ context.Context, alert *notifier.Alert) error {
	f.alerts = append(f.alerts, alert)
	return f.err
}

func TestAnomalyScanSendsAlert(t *testing.T) {
	runner := &fakeRunner{
		spikes: []anomaly.MoMRecord{{Month: "2024-03", Provider: "OCI", Service: "COMPUTE", Cost: 500, PrevCost: 200, VariationPct: 150}},
	}
	alerter := &fakeAlerter{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts, err := NewTaskScheduler(ctx, Options{Config: &config.SchedulerConfig{Enabled: true}, Runner: runner, Alerter: alerter})
	if err != nil {
		t.Fatalf("NewTaskScheduler: %v", err)
	}

	scan := jobByKind(t, ts, config.JobKindAnomalyScan)
	run, err := ts.RunNow(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if run.Message != "1 spikes flagged, alert sent" {
		t.Errorf("message = %q", run.Message)
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].Spikes[0].Service != "COMPUTE" {
		t.Fatalf("alerts = %+v", alerter.alerts)
	}

	alerter.err = errors.New("webhook down")
	run, err = ts.RunNow(context.Background(), scan.ID)
	if err != nil {
		t.Fatalf("delivery failure should not fail the scan: %v", err)
	}
	if run.Status != models.RunStatusCompleted || run.Message != "1 spikes flagged, alert delivery failed" {
		t.Errorf("run = %+v", run)
	}

	runner.spikes = nil
	if _, err := ts.RunNow(context.Background(), scan.ID); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if len(alerter.alerts) != 2 {
		t.Errorf("empty scan should not alert, got %d alerts", len(alerter.alerts))
	}
}

func TestRunNowFailure(t *testing.T) {
	runner := &fakeRunner{bucketErr: service.ErrObjectStoreDisabled}
	ts := newScheduler(t, &config.SchedulerConfig{Enabled: true}, runner, nil, true)

	job := jobByKind(t, ts, config.JobKindBucketImport)
	run, err := ts.RunNow(context.Background(), job.ID)
	if !errors.Is(err, service.ErrObjectStoreDisabled) {
		t.Fatalf("err = %v", err)
	}
	if run.Status != models.RunStatusFailed || run.ErrorMsg == "" {
		t.Errorf("run = %+v", run)
	}
	if got, _ := ts.GetJob(job.ID); got.Status != JobStatusFailed {
		t.Errorf("job status = %s", got.Status)
	}
}

func TestRemoveJob(t *testing.T) {
	ts := newScheduler(t, &config.SchedulerConfig{Enabled: true}, &fakeRunner{}, nil, false)
	job := jobByKind(t, ts, config.JobKindCacheEvict)

	if err := ts.RemoveJob(job.ID); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if err := ts.RemoveJob(job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("second RemoveJob err = %v", err)
	}
	if _, err := ts.RunNow(context.Background(), job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("RunNow err = %v", err)
	}
}

func TestNewTaskSchedulerNeedsRunner(t *testing.T) {
	if _, err := NewTaskScheduler(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without runner")
	}
}
