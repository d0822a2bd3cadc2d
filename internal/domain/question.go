package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type AnswerKind string

const (
	AnswerKindFreeText    AnswerKind = "free_text"
	AnswerKindChoiceIndex AnswerKind = "choice_index"
	AnswerKindTapImage    AnswerKind = "tap_image"
	AnswerKindScene       AnswerKind = "scene"
	AnswerKindNone        AnswerKind = "none"
)

// AssetRef identifies an image or video asset. It is either an absolute URL
// or a bare identifier the asset resolver turns into one.
type AssetRef string

type FreeTextSpec struct {
	CorrectAnswer string `json:"correct_answer"`
}

type ChoiceSpec struct {
	Choices      []AssetRef `json:"choices"`
	CorrectIndex int        `json:"correct_index"`
}

type TapImageSpec struct {
	Images       []AssetRef `json:"images"`
	CorrectIndex int        `json:"correct_index"`
}

type SceneSpec struct {
	SequenceNumber int `json:"sequence_number"`
	// IsScene true means a narration-only story beat; false means an embedded
	// two-image choice inside the sequence.
	IsScene         bool       `json:"is_scene"`
	BackgroundAsset AssetRef   `json:"background_asset,omitempty"`
	Images          []AssetRef `json:"images,omitempty"`
	CorrectIndex    int        `json:"correct_index"`
}

type AfterMedia struct {
	Image AssetRef `json:"image,omitempty"`
	Line  string   `json:"line,omitempty"`
	Video AssetRef `json:"video,omitempty"`
}

func (m AfterMedia) Empty() bool {
	return m.Image == "" && m.Line == "" && m.Video == ""
}

// Question is the runtime form of an AdventureQuestion: a union discriminated
// by Kind, with exactly one payload pointer populated (none for
// narration-only questions).
type Question struct {
	ID          uuid.UUID
	AdventureID *uuid.UUID
	Kind        AnswerKind
	Prompt      string
	OrderIndex  *int

	FreeText *FreeTextSpec
	Choice   *ChoiceSpec
	TapImage *TapImageSpec
	Scene    *SceneSpec

	After AfterMedia
}

// Validate rejects malformed questions before they ever reach a session.
// A failure here is a content configuration error, not a crash.
func (q *Question) Validate() error {
	if q == nil {
		return fmt.Errorf("nil question")
	}
	if q.ID == uuid.Nil {
		return fmt.Errorf("question missing id")
	}
	switch q.Kind {
	case AnswerKindFreeText:
		if q.FreeText == nil || q.FreeText.CorrectAnswer == "" {
			return fmt.Errorf("free_text question %s missing correct answer", q.ID)
		}
	case AnswerKindChoiceIndex:
		if q.Choice == nil || len(q.Choice.Choices) == 0 {
			return fmt.Errorf("choice_index question %s has no choices", q.ID)
		}
		if q.Choice.CorrectIndex < 0 || q.Choice.CorrectIndex >= len(q.Choice.Choices) {
			return fmt.Errorf("choice_index question %s correct index %d out of range", q.ID, q.Choice.CorrectIndex)
		}
	case AnswerKindTapImage:
		if q.TapImage == nil || len(q.TapImage.Images) != 2 {
			return fmt.Errorf("tap_image question %s must carry exactly two images", q.ID)
		}
		if q.TapImage.CorrectIndex != 0 && q.TapImage.CorrectIndex != 1 {
			return fmt.Errorf("tap_image question %s correct index must be 0 or 1", q.ID)
		}
	case AnswerKindScene:
		if q.Scene == nil {
			return fmt.Errorf("scene question %s missing scene payload", q.ID)
		}
		if !q.Scene.IsScene {
			if len(q.Scene.Images) != 2 {
				return fmt.Errorf("scene question %s must carry exactly two images", q.ID)
			}
			if q.Scene.CorrectIndex != 0 && q.Scene.CorrectIndex != 1 {
				return fmt.Errorf("scene question %s correct index must be 0 or 1", q.ID)
			}
		}
	case AnswerKindNone:
		// narration-only; nothing to check beyond the prompt
		if q.Prompt == "" {
			return fmt.Errorf("narration-only question %s has no prompt", q.ID)
		}
	default:
		return fmt.Errorf("question %s has unknown answer kind %q", q.ID, q.Kind)
	}
	return nil
}

// ToQuestion lifts a stored row into the runtime union, decoding the jsonb
// payload columns and validating the result.
func (r *AdventureQuestion) ToQuestion() (*Question, error) {
	if r == nil {
		return nil, fmt.Errorf("nil question row")
	}
	q := &Question{
		ID:          r.ID,
		AdventureID: r.AdventureID,
		Kind:        AnswerKind(r.AnswerKind),
		Prompt:      r.Prompt,
		OrderIndex:  r.OrderIndex,
		After: AfterMedia{
			Image: AssetRef(r.AfterImage),
			Line:  r.AfterLine,
			Video: AssetRef(r.AfterVideo),
		},
	}

	switch q.Kind {
	case AnswerKindFreeText:
		q.FreeText = &FreeTextSpec{CorrectAnswer: r.CorrectAnswer}
	case AnswerKindChoiceIndex:
		choices, err := decodeAssetRefs(r.Choices)
		if err != nil {
			return nil, fmt.Errorf("question %s choices: %w", r.ID, err)
		}
		q.Choice = &ChoiceSpec{Choices: choices, CorrectIndex: intOrZero(r.CorrectIndex)}
	case AnswerKindTapImage:
		images, err := decodeAssetRefs(r.Images)
		if err != nil {
			return nil, fmt.Errorf("question %s images: %w", r.ID, err)
		}
		q.TapImage = &TapImageSpec{Images: images, CorrectIndex: intOrZero(r.CorrectIndex)}
	case AnswerKindScene:
		images, err := decodeAssetRefs(r.Images)
		if err != nil {
			return nil, fmt.Errorf("question %s images: %w", r.ID, err)
		}
		q.Scene = &SceneSpec{
			SequenceNumber:  intOrZero(r.SequenceNumber),
			IsScene:         r.IsScene,
			BackgroundAsset: AssetRef(r.BackgroundAsset),
			Images:          images,
			CorrectIndex:    intOrZero(r.CorrectIndex),
		}
	case AnswerKindNone:
		// nothing extra
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func decodeAssetRefs(raw []byte) ([]AssetRef, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []AssetRef
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
