package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

type SubmissionContextRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sc *types.SubmissionContext) (*types.SubmissionContext, error)
	GetLatestByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.SubmissionContext, error)
}

type submissionContextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionContextRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionContextRepo {
	return &submissionContextRepo{db: db, log: baseLog.With("repo", "SubmissionContextRepo")}
}

func (sr *submissionContextRepo) Create(ctx context.Context, tx *gorm.DB, sc *types.SubmissionContext) (*types.SubmissionContext, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(sc).Error; err != nil {
		return nil, err
	}
	return sc, nil
}

// GetLatestByTaskID returns the newest context row for the task, matching
// the latest-wins rule the enriched view applies. (nil, nil) when absent.
func (sr *submissionContextRepo) GetLatestByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.SubmissionContext, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var sc types.SubmissionContext
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC NULLS LAST").
		First(&sc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}
