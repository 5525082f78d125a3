package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

type PointEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.PointEvent) ([]*types.PointEvent, error)
	GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.PointEvent, error)
	GetBallHitsByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]BallHitRow, error)
}

// BallHitRow is the slim projection the timeline builder consumes.
type BallHitRow struct {
	PointNumber int      `gorm:"column:point_number"`
	BallHitS    *float64 `gorm:"column:ball_hit_s"`
	Exclude     string   `gorm:"column:exclude"`
}

type pointEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPointEventRepo(db *gorm.DB, baseLog *logger.Logger) PointEventRepo {
	return &pointEventRepo{db: db, log: baseLog.With("repo", "PointEventRepo")}
}

func (pr *pointEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.PointEvent) ([]*types.PointEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(events) == 0 {
		return []*types.PointEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (pr *pointEventRepo) GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.PointEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.PointEvent
	if err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("point_number, shot_ix").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *pointEventRepo) GetBallHitsByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]BallHitRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var rows []BallHitRow
	if err := transaction.WithContext(ctx).
		Model(&types.PointEvent{}).
		Select("point_number, ball_hit_s, exclude").
		Where("task_id = ? AND point_number IS NOT NULL AND ball_hit_s IS NOT NULL", taskID).
		Order("point_number").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
