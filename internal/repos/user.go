package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
	UpdatePassword(ctx context.Context, tx *gorm.DB, email, hashed string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if err := transaction.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail returns (nil, nil) when no account exists.
func (ur *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	var user types.User
	err := transaction.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, email, hashed string) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("email = ?", email).
		Update("password", hashed).Error
}
