package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Adventure is one narrated practice unit: a lesson's worth of questions, or
// an ordered story (scene sequence) with embedded choices.
type Adventure struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ActivityType string    `gorm:"column:activity_type;not null;index" json:"activity_type"`
	Title        string    `gorm:"column:title;not null" json:"title"`
	Introduction string    `gorm:"column:introduction;type:text" json:"introduction"`

	SkipIntroduction bool `gorm:"column:skip_introduction;not null;default:false" json:"skip_introduction"`

	// CelebrateByDefault nil means celebration is enabled for this adventure
	// unless the child profile says otherwise.
	CelebrateByDefault *bool `gorm:"column:celebrate_by_default" json:"celebrate_by_default,omitempty"`

	IsSceneSequence bool `gorm:"column:is_scene_sequence;not null;default:false" json:"is_scene_sequence"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Adventure) TableName() string { return "adventure" }

type AdventureQuestion struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AdventureID  *uuid.UUID `gorm:"type:uuid;index" json:"adventure_id,omitempty"`
	Adventure    *Adventure `gorm:"constraint:OnDelete:CASCADE;foreignKey:AdventureID;references:ID" json:"adventure,omitempty"`
	ActivityType string     `gorm:"column:activity_type;not null;index" json:"activity_type"`

	AnswerKind string `gorm:"column:answer_kind;not null" json:"answer_kind"`
	Prompt     string `gorm:"column:prompt;type:text" json:"prompt"`
	OrderIndex *int   `gorm:"column:order_index" json:"order_index,omitempty"`

	// Kind-specific payload columns; which of these are set is governed by
	// AnswerKind and checked when the row is lifted into a Question.
	CorrectAnswer   string         `gorm:"column:correct_answer" json:"correct_answer,omitempty"`
	Choices         datatypes.JSON `gorm:"column:choices;type:jsonb" json:"choices,omitempty"`
	Images          datatypes.JSON `gorm:"column:images;type:jsonb" json:"images,omitempty"`
	CorrectIndex    *int           `gorm:"column:correct_index" json:"correct_index,omitempty"`
	SequenceNumber  *int           `gorm:"column:sequence_number" json:"sequence_number,omitempty"`
	IsScene         bool           `gorm:"column:is_scene;not null;default:false" json:"is_scene"`
	BackgroundAsset string         `gorm:"column:background_asset" json:"background_asset,omitempty"`

	// After-answer media sequence: image, then narration line, then video.
	AfterImage string `gorm:"column:after_image" json:"after_image,omitempty"`
	AfterLine  string `gorm:"column:after_line;type:text" json:"after_line,omitempty"`
	AfterVideo string `gorm:"column:after_video" json:"after_video,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdventureQuestion) TableName() string { return "adventure_question" }
