package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProgressStatusStarted  = "started"
	ProgressStatusComplete = "complete"
)

// LessonProgress is one row per (child, adventure); repeated session starts
// update the row rather than duplicate it.
type LessonProgress struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChildID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_child_adventure" json:"child_id"`
	Child       *ChildProfile `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChildID;references:ID" json:"child,omitempty"`
	AdventureID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_child_adventure" json:"adventure_id"`

	Status        string     `gorm:"column:status;not null;default:'started'" json:"status"`
	TimesStarted  int        `gorm:"column:times_started;not null;default:0" json:"times_started"`
	TimesComplete int        `gorm:"column:times_complete;not null;default:0" json:"times_complete"`
	LastStartedAt *time.Time `gorm:"column:last_started_at" json:"last_started_at,omitempty"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

// SessionRecord is the persisted trace of one bounded session run.
type SessionRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ChildID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"child_id"`
	AdventureID *uuid.UUID `gorm:"type:uuid;index" json:"adventure_id,omitempty"`

	ActivityType  string     `gorm:"column:activity_type;not null" json:"activity_type"`
	QuestionCount int        `gorm:"column:question_count;not null;default:0" json:"question_count"`
	CorrectCount  int        `gorm:"column:correct_count;not null;default:0" json:"correct_count"`
	StartedAt     time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SessionRecord) TableName() string { return "session_record" }

type QuestionAttempt struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	ChildID    uuid.UUID `gorm:"type:uuid;not null;index" json:"child_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null" json:"question_id"`

	QuestionIndex int    `gorm:"column:question_index;not null" json:"question_index"`
	AnswerKind    string `gorm:"column:answer_kind;not null" json:"answer_kind"`
	WasCorrect    bool   `gorm:"column:was_correct;not null" json:"was_correct"`
	AttemptsUsed  int    `gorm:"column:attempts_used;not null;default:1" json:"attempts_used"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (QuestionAttempt) TableName() string { return "question_attempt" }
