package models

import (
	"time"

	"gorm.io/datatypes"
)

// RunStatus is the outcome of a scheduled job execution
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// JobRun records one execution of a scheduled job
type JobRun struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RunID       string         `gorm:"size:36;uniqueIndex;not null" json:"run_id"` // UUID
	JobName     string         `gorm:"not null;index" json:"job_name"`
	Kind        string         `gorm:"size:32;not null" json:"kind"`
	Status      RunStatus      `gorm:"size:16;default:running" json:"status"`
	Message     string         `json:"message"`
	Result      datatypes.JSON `json:"result"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Duration    int64          `json:"duration"` // milliseconds
	ErrorMsg    string         `json:"error_msg"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName returns the table name for JobRun model
func (JobRun) TableName() string {
	return "job_runs"
}
