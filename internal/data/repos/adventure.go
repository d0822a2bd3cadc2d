package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type AdventureRepo interface {
	Create(ctx context.Context, tx *gorm.DB, adventures []*types.Adventure) ([]*types.Adventure, error)
	GetByID(ctx context.Context, tx *gorm.DB, adventureID uuid.UUID) (*types.Adventure, error)
	ListByActivityType(ctx context.Context, tx *gorm.DB, activityType string) ([]*types.Adventure, error)
}

type adventureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdventureRepo(db *gorm.DB, baseLog *logger.Logger) AdventureRepo {
	return &adventureRepo{db: db, log: baseLog.With("repo", "AdventureRepo")}
}

func (r *adventureRepo) Create(ctx context.Context, tx *gorm.DB, adventures []*types.Adventure) ([]*types.Adventure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(adventures) == 0 {
		return []*types.Adventure{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&adventures).Error; err != nil {
		return nil, err
	}
	return adventures, nil
}

func (r *adventureRepo) GetByID(ctx context.Context, tx *gorm.DB, adventureID uuid.UUID) (*types.Adventure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Adventure
	err := transaction.WithContext(ctx).
		Where("id = ?", adventureID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *adventureRepo) ListByActivityType(ctx context.Context, tx *gorm.DB, activityType string) ([]*types.Adventure, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Adventure
	if err := transaction.WithContext(ctx).
		Where("activity_type = ?", activityType).
		Order("title ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
