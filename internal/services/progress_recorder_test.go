package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
)

type memSessionRepo struct {
	mu      sync.Mutex
	upserts []*types.SessionRecord
	updates []map[string]any
	calls   chan struct{}
	err     error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{calls: make(chan struct{}, 8)}
}

func (m *memSessionRepo) Upsert(_ context.Context, _ *gorm.DB, record *types.SessionRecord) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, record)
	m.mu.Unlock()
	m.calls <- struct{}{}
	return m.err
}

func (m *memSessionRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ uuid.UUID, updates map[string]any) error {
	m.mu.Lock()
	m.updates = append(m.updates, updates)
	m.mu.Unlock()
	m.calls <- struct{}{}
	return m.err
}

func (m *memSessionRepo) GetByID(context.Context, *gorm.DB, uuid.UUID) (*types.SessionRecord, error) {
	return nil, nil
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []*types.QuestionAttempt
	calls    chan struct{}
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{calls: make(chan struct{}, 8)}
}

func (m *memAttemptRepo) Create(_ context.Context, _ *gorm.DB, attempt *types.QuestionAttempt) error {
	m.mu.Lock()
	m.attempts = append(m.attempts, attempt)
	m.mu.Unlock()
	m.calls <- struct{}{}
	return nil
}

func (m *memAttemptRepo) ListBySessionID(context.Context, *gorm.DB, uuid.UUID) ([]*types.QuestionAttempt, error) {
	return nil, nil
}

type memLessonRepo struct {
	mu        sync.Mutex
	started   int
	completed int
	calls     chan struct{}
}

func newMemLessonRepo() *memLessonRepo {
	return &memLessonRepo{calls: make(chan struct{}, 8)}
}

func (m *memLessonRepo) UpsertStarted(_ context.Context, _ *gorm.DB, _, _ uuid.UUID, _ time.Time) error {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
	m.calls <- struct{}{}
	return nil
}

func (m *memLessonRepo) MarkComplete(_ context.Context, _ *gorm.DB, _, _ uuid.UUID, _ time.Time) error {
	m.mu.Lock()
	m.completed++
	m.mu.Unlock()
	m.calls <- struct{}{}
	return nil
}

func (m *memLessonRepo) GetByChildAndAdventure(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) (*types.LessonProgress, error) {
	return nil, nil
}

func (m *memLessonRepo) ListByChildID(context.Context, *gorm.DB, uuid.UUID) ([]*types.LessonProgress, error) {
	return nil, nil
}

func waitCall(t *testing.T, calls chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatalf("repository write never happened")
	}
}

func TestProgressRecorderSessionStarted(t *testing.T) {
	sessions := newMemSessionRepo()
	lessons := newMemLessonRepo()
	rec := NewProgressRecorder(testLogger(t), sessions, newMemAttemptRepo(), lessons)

	adventureID := uuid.New()
	rec.SessionStarted(&types.SessionRecord{
		ID:           uuid.New(),
		ChildID:      uuid.New(),
		AdventureID:  &adventureID,
		ActivityType: "vocabulary",
		StartedAt:    time.Now().UTC(),
	})

	waitCall(t, sessions.calls)
	waitCall(t, lessons.calls)

	lessons.mu.Lock()
	defer lessons.mu.Unlock()
	if lessons.started != 1 {
		t.Fatalf("lesson progress upserts: want=1 got=%d", lessons.started)
	}
}

func TestProgressRecorderQuickPracticeSkipsLessonProgress(t *testing.T) {
	sessions := newMemSessionRepo()
	lessons := newMemLessonRepo()
	rec := NewProgressRecorder(testLogger(t), sessions, newMemAttemptRepo(), lessons)

	rec.SessionStarted(&types.SessionRecord{
		ID:           uuid.New(),
		ChildID:      uuid.New(),
		ActivityType: "vocabulary",
		StartedAt:    time.Now().UTC(),
	})

	waitCall(t, sessions.calls)
	select {
	case <-lessons.calls:
		t.Fatalf("quick practice wrote lesson progress")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestProgressRecorderQuestionAnswered(t *testing.T) {
	attempts := newMemAttemptRepo()
	rec := NewProgressRecorder(testLogger(t), newMemSessionRepo(), attempts, newMemLessonRepo())

	q := tapQuestion(0)
	rec.QuestionAnswered(uuid.New(), uuid.New(), q, 2, true, 1)
	waitCall(t, attempts.calls)

	attempts.mu.Lock()
	defer attempts.mu.Unlock()
	got := attempts.attempts[0]
	if got.QuestionID != q.ID || got.QuestionIndex != 2 || !got.WasCorrect {
		t.Fatalf("persisted attempt: %+v", got)
	}
	if got.AnswerKind != string(types.AnswerKindTapImage) {
		t.Fatalf("answer kind: want=%s got=%s", types.AnswerKindTapImage, got.AnswerKind)
	}
}

func TestProgressRecorderCompletionMarksLesson(t *testing.T) {
	sessions := newMemSessionRepo()
	lessons := newMemLessonRepo()
	rec := NewProgressRecorder(testLogger(t), sessions, newMemAttemptRepo(), lessons)

	adventureID := uuid.New()
	rec.SessionCompleted(uuid.New(), uuid.New(), &adventureID, 6, 4)

	waitCall(t, sessions.calls)
	waitCall(t, lessons.calls)

	sessions.mu.Lock()
	updates := sessions.updates[0]
	sessions.mu.Unlock()
	if updates["question_count"] != 6 || updates["correct_count"] != 4 {
		t.Fatalf("completion update payload: %v", updates)
	}

	lessons.mu.Lock()
	defer lessons.mu.Unlock()
	if lessons.completed != 1 {
		t.Fatalf("lesson completions: want=1 got=%d", lessons.completed)
	}
}

func TestProgressRecorderSwallowsWriteErrors(t *testing.T) {
	sessions := newMemSessionRepo()
	sessions.err = errors.New("connection refused")
	rec := NewProgressRecorder(testLogger(t), sessions, newMemAttemptRepo(), newMemLessonRepo())

	// Must not panic or propagate; the session flow never sees storage errors.
	rec.SessionCompleted(uuid.New(), uuid.New(), nil, 1, 1)
	waitCall(t, sessions.calls)
}
