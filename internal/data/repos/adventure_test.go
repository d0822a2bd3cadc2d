package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/data/repos/testutil"
	types "github.com/sproutspeech/adventure-backend/internal/domain"
)

func TestAdventureRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewAdventureRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, []*types.Adventure{
		{ID: uuid.New(), ActivityType: "animals", Title: "Farm Friends"},
		{ID: uuid.New(), ActivityType: "animals", Title: "Jungle Trek"},
		{ID: uuid.New(), ActivityType: "colors", Title: "Rainbow Hunt"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Create: expected 3 adventures, got %d", len(created))
	}

	got, err := repo.GetByID(ctx, tx, created[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Title != "Farm Friends" {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(ctx, tx, uuid.New())
	if err != nil {
		t.Fatalf("GetByID (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID (missing): expected nil, got %+v", missing)
	}

	animals, err := repo.ListByActivityType(ctx, tx, "animals")
	if err != nil {
		t.Fatalf("ListByActivityType: %v", err)
	}
	if len(animals) != 2 {
		t.Fatalf("ListByActivityType: want=2 got=%d", len(animals))
	}
}

func TestQuestionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewQuestionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	adv := testutil.SeedAdventure(t, ctx, tx, "animals")
	first := 0
	second := 1
	testutil.SeedTapQuestion(t, ctx, tx, adv.ID, &second)
	testutil.SeedTapQuestion(t, ctx, tx, adv.ID, &first)

	// Quick-practice question with no adventure.
	loose := &types.AdventureQuestion{
		ID:            uuid.New(),
		ActivityType:  "animals",
		AnswerKind:    string(types.AnswerKindFreeText),
		Prompt:        "what animal says moo?",
		CorrectAnswer: "cow",
	}
	if _, err := repo.Create(ctx, tx, []*types.AdventureQuestion{loose}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byAdventure, err := repo.ListByAdventureID(ctx, tx, adv.ID)
	if err != nil {
		t.Fatalf("ListByAdventureID: %v", err)
	}
	if len(byAdventure) != 2 {
		t.Fatalf("ListByAdventureID: want=2 got=%d", len(byAdventure))
	}

	byType, err := repo.ListByActivityType(ctx, tx, "animals")
	if err != nil {
		t.Fatalf("ListByActivityType: %v", err)
	}
	if len(byType) != 3 {
		t.Fatalf("ListByActivityType: want=3 got=%d", len(byType))
	}
}
