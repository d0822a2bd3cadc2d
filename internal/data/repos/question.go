package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, questions []*types.AdventureQuestion) ([]*types.AdventureQuestion, error)
	ListByAdventureID(ctx context.Context, tx *gorm.DB, adventureID uuid.UUID) ([]*types.AdventureQuestion, error)
	ListByActivityType(ctx context.Context, tx *gorm.DB, activityType string) ([]*types.AdventureQuestion, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, questions []*types.AdventureQuestion) ([]*types.AdventureQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(questions) == 0 {
		return []*types.AdventureQuestion{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// ListByAdventureID returns the adventure's questions; rows with an order
// index come back in ascending order, unordered rows keep insertion order.
func (r *questionRepo) ListByAdventureID(ctx context.Context, tx *gorm.DB, adventureID uuid.UUID) ([]*types.AdventureQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AdventureQuestion
	if err := transaction.WithContext(ctx).
		Where("adventure_id = ?", adventureID).
		Order("order_index ASC NULLS LAST, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) ListByActivityType(ctx context.Context, tx *gorm.DB, activityType string) ([]*types.AdventureQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AdventureQuestion
	if err := transaction.WithContext(ctx).
		Where("activity_type = ?", activityType).
		Order("order_index ASC NULLS LAST, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
