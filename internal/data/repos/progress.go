package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type LessonProgressRepo interface {
	// UpsertStarted records a session start. Repeated calls for the same
	// (child, adventure) update the existing row.
	UpsertStarted(ctx context.Context, tx *gorm.DB, childID, adventureID uuid.UUID, at time.Time) error
	MarkComplete(ctx context.Context, tx *gorm.DB, childID, adventureID uuid.UUID, at time.Time) error
	GetByChildAndAdventure(ctx context.Context, tx *gorm.DB, childID, adventureID uuid.UUID) (*types.LessonProgress, error)
	ListByChildID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) ([]*types.LessonProgress, error)
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func (r *lessonProgressRepo) UpsertStarted(ctx context.Context, tx *gorm.DB, childID, adventureID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := &types.LessonProgress{
		ID:            uuid.New(),
		ChildID:       childID,
		AdventureID:   adventureID,
		Status:        types.ProgressStatusStarted,
		TimesStarted:  1,
		LastStartedAt: &at,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "child_id"}, {Name: "adventure_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"status":          types.ProgressStatusStarted,
				"times_started":   gorm.Expr("lesson_progress.times_started + 1"),
				"last_started_at": at,
				"updated_at":      at,
			}),
		}).
		Create(row).Error
}

func (r *lessonProgressRepo) MarkComplete(ctx context.Context, tx *gorm.DB, childID, adventureID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.LessonProgress{}).
		Where("child_id = ? AND adventure_id = ?", childID, adventureID).
		Updates(map[string]any{
			"status":         types.ProgressStatusComplete,
			"times_complete": gorm.Expr("times_complete + 1"),
			"completed_at":   at,
			"updated_at":     at,
		}).Error
}

func (r *lessonProgressRepo) GetByChildAndAdventure(ctx context.Context, tx *gorm.DB, childID, adventureID uuid.UUID) (*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LessonProgress
	err := transaction.WithContext(ctx).
		Where("child_id = ? AND adventure_id = ?", childID, adventureID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lessonProgressRepo) ListByChildID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) ([]*types.LessonProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LessonProgress
	if err := transaction.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type SessionRecordRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, record *types.SessionRecord) error
	UpdateFields(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, updates map[string]any) error
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.SessionRecord, error)
}

type sessionRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRecordRepo(db *gorm.DB, baseLog *logger.Logger) SessionRecordRepo {
	return &sessionRecordRepo{db: db, log: baseLog.With("repo", "SessionRecordRepo")}
}

func (r *sessionRecordRepo) Upsert(ctx context.Context, tx *gorm.DB, record *types.SessionRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"question_count", "correct_count", "completed_at", "updated_at",
			}),
		}).
		Create(record).Error
}

func (r *sessionRecordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.SessionRecord{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
}

func (r *sessionRecordRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.SessionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SessionRecord
	err := transaction.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type QuestionAttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *types.QuestionAttempt) error
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.QuestionAttempt, error)
}

type questionAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuestionAttemptRepo {
	return &questionAttemptRepo{db: db, log: baseLog.With("repo", "QuestionAttemptRepo")}
}

func (r *questionAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *types.QuestionAttempt) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Create(attempt).Error
}

func (r *questionAttemptRepo) ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.QuestionAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuestionAttempt
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
