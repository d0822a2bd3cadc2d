package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChildProfile struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DisplayName string    `gorm:"column:display_name;not null" json:"display_name"`

	// SpeechDelayMode lowers the free-response similarity threshold.
	SpeechDelayMode bool `gorm:"column:speech_delay_mode;not null;default:false" json:"speech_delay_mode"`

	// NarrationEnabled false means prompts are shown silently and the
	// introduction screen is bypassed.
	NarrationEnabled bool `gorm:"column:narration_enabled;not null;default:true" json:"narration_enabled"`

	// CelebrationEnabled nil means "no explicit preference"; the adventure's
	// own default applies.
	CelebrationEnabled *bool `gorm:"column:celebration_enabled" json:"celebration_enabled,omitempty"`

	VoiceID    string  `gorm:"column:voice_id;not null;default:'en-US-Neural2-H'" json:"voice_id"`
	SpeechRate float64 `gorm:"column:speech_rate;not null;default:1.0" json:"speech_rate"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ChildProfile) TableName() string { return "child_profile" }
