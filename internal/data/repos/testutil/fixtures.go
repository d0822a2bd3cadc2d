package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
)

func SeedChild(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.ChildProfile {
	tb.Helper()
	c := &types.ChildProfile{
		ID:               uuid.New(),
		DisplayName:      name,
		NarrationEnabled: true,
		VoiceID:          "en-US-Neural2-H",
		SpeechRate:       1.0,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed child: %v", err)
	}
	return c
}

func SeedAdventure(tb testing.TB, ctx context.Context, tx *gorm.DB, activityType string) *types.Adventure {
	tb.Helper()
	a := &types.Adventure{
		ID:           uuid.New(),
		ActivityType: activityType,
		Title:        "adventure",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed adventure: %v", err)
	}
	return a
}

func SeedTapQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, adventureID uuid.UUID, orderIndex *int) *types.AdventureQuestion {
	tb.Helper()
	correct := 1
	q := &types.AdventureQuestion{
		ID:           uuid.New(),
		AdventureID:  &adventureID,
		ActivityType: "tap",
		AnswerKind:   string(types.AnswerKindTapImage),
		Prompt:       "which one is the ball?",
		OrderIndex:   orderIndex,
		Images:       []byte(`["ball.png","sock.png"]`),
		CorrectIndex: &correct,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}
