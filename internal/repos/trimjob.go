package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

type TrimJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.TrimJob) (*types.TrimJob, error)
	Update(ctx context.Context, tx *gorm.DB, job *types.TrimJob) error
	GetLatestByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.TrimJob, error)
}

type trimJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrimJobRepo(db *gorm.DB, baseLog *logger.Logger) TrimJobRepo {
	return &trimJobRepo{db: db, log: baseLog.With("repo", "TrimJobRepo")}
}

func (tr *trimJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.TrimJob) (*types.TrimJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (tr *trimJobRepo) Update(ctx context.Context, tx *gorm.DB, job *types.TrimJob) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(ctx).Save(job).Error
}

// GetLatestByTaskID returns (nil, nil) when the task has no trim job yet.
func (tr *trimJobRepo) GetLatestByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.TrimJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var job types.TrimJob
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
