package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type ChildProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.ChildProfile) (*types.ChildProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.ChildProfile, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, childID uuid.UUID, updates map[string]any) error
}

type childProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChildProfileRepo(db *gorm.DB, baseLog *logger.Logger) ChildProfileRepo {
	return &childProfileRepo{db: db, log: baseLog.With("repo", "ChildProfileRepo")}
}

func (r *childProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.ChildProfile) (*types.ChildProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *childProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.ChildProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ChildProfile
	err := transaction.WithContext(ctx).
		Where("id = ?", childID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *childProfileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, childID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.ChildProfile{}).
		Where("id = ?", childID).
		Updates(updates).Error
}
