package types

import (
	"time"

	"github.com/google/uuid"
)

// TrimJob status values.
const (
	TrimJobRunning = "running"
	TrimJobDone    = "done"
	TrimJobFailed  = "failed"
)

// TrimJob records one run of the video trim pipeline for a task.
type TrimJob struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID    string    `gorm:"not null;index;column:task_id" json:"task_id"`
	Status    string    `gorm:"not null;column:status" json:"status"`
	OutputKey string    `gorm:"column:output_key" json:"output_s3_key"`
	DurationS *float64  `gorm:"column:duration_s" json:"duration_s"`
	Error     string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrimJob) TableName() string {
	return "trim_job"
}
