package domain

import "github.com/google/uuid"

type Screen string

const (
	ScreenHome            Screen = "home"
	ScreenLessonSelection Screen = "lesson_selection"
	ScreenIntroduction    Screen = "introduction"
	ScreenQuestion        Screen = "question"
	ScreenCelebration     Screen = "celebration"
	ScreenComplete        Screen = "complete"
)

type Phase string

const (
	PhaseReadingPrompt     Phase = "reading_prompt"
	PhaseAwaitingAnswer    Phase = "awaiting_answer"
	PhaseProcessingAnswer  Phase = "processing_answer"
	PhaseFeedbackCorrect   Phase = "feedback_correct"
	PhaseFeedbackIncorrect Phase = "feedback_incorrect"
	PhaseAfterAnswerMedia  Phase = "after_answer_media"
	PhaseDone              Phase = "done"
)

// QuestionView is the client-facing projection of the active question: asset
// refs resolved to URLs, answers stripped.
type QuestionView struct {
	ID         uuid.UUID  `json:"id"`
	Kind       AnswerKind `json:"kind"`
	Prompt     string     `json:"prompt"`
	Choices    []string   `json:"choices,omitempty"`
	Images     []string   `json:"images,omitempty"`
	Background string     `json:"background,omitempty"`
	IsScene    bool       `json:"is_scene,omitempty"`

	AfterImage string `json:"after_image,omitempty"`
	AfterVideo string `json:"after_video,omitempty"`
}

// Snapshot is the externally observable session state.
type Snapshot struct {
	SessionID    uuid.UUID  `json:"session_id"`
	ChildID      uuid.UUID  `json:"child_id"`
	Screen       Screen     `json:"screen"`
	ActivityType string     `json:"activity_type,omitempty"`
	AdventureID  *uuid.UUID `json:"adventure_id,omitempty"`

	Question *QuestionView `json:"question,omitempty"`
	Phase    Phase         `json:"phase,omitempty"`

	QuestionCount int    `json:"question_count"`
	CorrectCount  int    `json:"correct_count"`
	RetryCount    int    `json:"retry_count"`
	LastResponse  string `json:"last_response,omitempty"`

	// ConfigError is set when the active question failed validation; the
	// client renders a configuration-error screen for it.
	ConfigError string `json:"config_error,omitempty"`
}
