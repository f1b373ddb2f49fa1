package storage

import (
	"context"

	"costlens/internal/models"
)

const defaultRunLimit = 50

// SaveRun inserts or updates a job run
func (s *Store) SaveRun(ctx context.Context, run *models.JobRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

// ListRuns returns the most recent job runs, optionally for one job
func (s *Store) ListRuns(ctx context.Context, jobName string, limit int) ([]models.JobRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	q := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit)
	if jobName != "" {
		q = q.Where("job_name = ?", jobName)
	}
	var out []models.JobRun
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
