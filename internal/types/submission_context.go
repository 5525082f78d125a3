package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SubmissionContext is one row per upload of a match recording. A task can
// accumulate several rows when the submitter corrects the form; readers
// must take the latest row per task_id (created_at DESC, nulls last).
type SubmissionContext struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID       string         `gorm:"not null;index;column:task_id" json:"task_id"`
	Email        string         `gorm:"column:email" json:"email"`
	CustomerName string         `gorm:"column:customer_name" json:"customer_name"`
	RawMeta      datatypes.JSON `gorm:"column:raw_meta" json:"raw_meta"`
	CreatedAt    time.Time      `gorm:"default:now()" json:"created_at"`
}

func (SubmissionContext) TableName() string {
	return "bronze.submission_context"
}
