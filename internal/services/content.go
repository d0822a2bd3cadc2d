package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/sproutspeech/adventure-backend/internal/data/repos"
	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// PoolItem is one candidate question for a session. A row that fails to lift
// into a runtime question still enters the pool carrying its error, so the
// session can surface a configuration-error screen instead of crashing or
// silently skipping content.
type PoolItem struct {
	Question *types.Question
	Err      error
}

// ContentService serves adventures and question pools, and seeds the catalog
// from YAML pack files on disk.
type ContentService interface {
	ListAdventures(ctx context.Context, activityType string) ([]*types.Adventure, error)
	GetAdventure(ctx context.Context, adventureID uuid.UUID) (*types.Adventure, error)
	LoadPool(ctx context.Context, adventureID *uuid.UUID, activityType string) ([]PoolItem, error)
	SeedFromDir(ctx context.Context, dir string) error
}

type contentService struct {
	log        *logger.Logger
	adventures repos.AdventureRepo
	questions  repos.QuestionRepo
}

func NewContentService(baseLog *logger.Logger, adventures repos.AdventureRepo, questions repos.QuestionRepo) ContentService {
	return &contentService{
		log:        baseLog.With("service", "ContentService"),
		adventures: adventures,
		questions:  questions,
	}
}

func (s *contentService) ListAdventures(ctx context.Context, activityType string) ([]*types.Adventure, error) {
	return s.adventures.ListByActivityType(ctx, nil, activityType)
}

func (s *contentService) GetAdventure(ctx context.Context, adventureID uuid.UUID) (*types.Adventure, error) {
	return s.adventures.GetByID(ctx, nil, adventureID)
}

// LoadPool builds the session's question pool. With an adventure id the pool
// is that adventure's questions; without one it is every loose question for
// the activity type (quick practice).
func (s *contentService) LoadPool(ctx context.Context, adventureID *uuid.UUID, activityType string) ([]PoolItem, error) {
	var rows []*types.AdventureQuestion
	var err error
	if adventureID != nil {
		rows, err = s.questions.ListByAdventureID(ctx, nil, *adventureID)
	} else {
		rows, err = s.questions.ListByActivityType(ctx, nil, activityType)
	}
	if err != nil {
		return nil, err
	}

	pool := make([]PoolItem, 0, len(rows))
	for _, row := range rows {
		q, convErr := row.ToQuestion()
		if convErr != nil {
			s.log.Warn("question failed validation; pooled as config error", "question_id", row.ID, "error", convErr)
			pool = append(pool, PoolItem{Err: convErr})
			continue
		}
		pool = append(pool, PoolItem{Question: q})
	}
	return pool, nil
}

// adventurePack is the on-disk YAML shape of one adventure and its questions.
type adventurePack struct {
	ActivityType     string         `yaml:"activity_type"`
	Title            string         `yaml:"title"`
	Introduction     string         `yaml:"introduction"`
	SkipIntroduction bool           `yaml:"skip_introduction"`
	Celebrate        *bool          `yaml:"celebrate"`
	SceneSequence    bool           `yaml:"scene_sequence"`
	Questions        []packQuestion `yaml:"questions"`
}

type packQuestion struct {
	Kind         string   `yaml:"kind"`
	Prompt       string   `yaml:"prompt"`
	Order        *int     `yaml:"order"`
	Answer       string   `yaml:"answer"`
	Choices      []string `yaml:"choices"`
	Images       []string `yaml:"images"`
	CorrectIndex *int     `yaml:"correct_index"`

	Sequence   *int   `yaml:"sequence"`
	Scene      bool   `yaml:"scene"`
	Background string `yaml:"background"`

	After struct {
		Image string `yaml:"image"`
		Line  string `yaml:"line"`
		Video string `yaml:"video"`
	} `yaml:"after"`
}

// SeedFromDir loads every *.yaml pack under dir into the catalog. Packs whose
// (activity type, title) pair already exists are skipped, so repeated startups
// do not duplicate content.
func (s *contentService) SeedFromDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read pack dir %s: %w", dir, err)
	}

	existing := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read pack %s: %w", name, err)
		}
		var pack adventurePack
		if err := yaml.Unmarshal(raw, &pack); err != nil {
			return fmt.Errorf("parse pack %s: %w", name, err)
		}
		if pack.Title == "" || pack.ActivityType == "" {
			return fmt.Errorf("pack %s: title and activity_type are required", name)
		}

		key := pack.ActivityType + "\x00" + pack.Title
		if !existing[key] {
			current, err := s.adventures.ListByActivityType(ctx, nil, pack.ActivityType)
			if err != nil {
				return err
			}
			for _, a := range current {
				existing[a.ActivityType+"\x00"+a.Title] = true
			}
		}
		if existing[key] {
			s.log.Debug("pack already seeded", "pack", name, "title", pack.Title)
			continue
		}

		if err := s.seedPack(ctx, &pack); err != nil {
			return fmt.Errorf("seed pack %s: %w", name, err)
		}
		existing[key] = true
		s.log.Info("seeded adventure pack", "pack", name, "title", pack.Title, "questions", len(pack.Questions))
	}
	return nil
}

func (s *contentService) seedPack(ctx context.Context, pack *adventurePack) error {
	adventure := &types.Adventure{
		ID:                 uuid.New(),
		ActivityType:       pack.ActivityType,
		Title:              pack.Title,
		Introduction:       pack.Introduction,
		SkipIntroduction:   pack.SkipIntroduction,
		CelebrateByDefault: pack.Celebrate,
		IsSceneSequence:    pack.SceneSequence,
	}
	if _, err := s.adventures.Create(ctx, nil, []*types.Adventure{adventure}); err != nil {
		return err
	}

	rows := make([]*types.AdventureQuestion, 0, len(pack.Questions))
	for i, pq := range pack.Questions {
		row, err := packQuestionToRow(adventure, i, pq)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := s.questions.Create(ctx, nil, rows)
	return err
}

func packQuestionToRow(adventure *types.Adventure, idx int, pq packQuestion) (*types.AdventureQuestion, error) {
	row := &types.AdventureQuestion{
		ID:              uuid.New(),
		AdventureID:     &adventure.ID,
		ActivityType:    adventure.ActivityType,
		AnswerKind:      pq.Kind,
		Prompt:          pq.Prompt,
		OrderIndex:      pq.Order,
		CorrectAnswer:   pq.Answer,
		CorrectIndex:    pq.CorrectIndex,
		SequenceNumber:  pq.Sequence,
		IsScene:         pq.Scene,
		BackgroundAsset: pq.Background,
		AfterImage:      pq.After.Image,
		AfterLine:       pq.After.Line,
		AfterVideo:      pq.After.Video,
	}
	if len(pq.Choices) > 0 {
		raw, err := json.Marshal(pq.Choices)
		if err != nil {
			return nil, fmt.Errorf("question %d choices: %w", idx, err)
		}
		row.Choices = datatypes.JSON(raw)
	}
	if len(pq.Images) > 0 {
		raw, err := json.Marshal(pq.Images)
		if err != nil {
			return nil, fmt.Errorf("question %d images: %w", idx, err)
		}
		row.Images = datatypes.JSON(raw)
	}

	// Fail fast on malformed packs; a bad file should stop seeding, unlike a
	// bad row already in the database.
	if _, err := row.ToQuestion(); err != nil {
		return nil, err
	}
	return row, nil
}
