package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("dev")
	if err != nil {
		tb.Fatalf("logger.New: %v", err)
	}
	return log
}

// fakeNarrator records every line spoken and completes playback instantly.
type fakeNarrator struct {
	mu     sync.Mutex
	spoken []SpeakRequest
}

func (f *fakeNarrator) Speak(ctx context.Context, req SpeakRequest) PlaybackOutcome {
	f.mu.Lock()
	f.spoken = append(f.spoken, req)
	f.mu.Unlock()
	if ctx.Err() != nil {
		return PlaybackSkipped
	}
	return PlaybackCompleted
}

func (f *fakeNarrator) Ack(uuid.UUID) {}
func (f *fakeNarrator) Stop()        {}

func (f *fakeNarrator) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	for i, s := range f.spoken {
		out[i] = s.Text
	}
	return out
}

// identityAssets resolves every ref to itself.
type identityAssets struct{}

func (identityAssets) Resolve(ref types.AssetRef) string { return string(ref) }

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.transcript, f.err
}

// eventSink collects published SSE messages.
type eventSink struct {
	mu     sync.Mutex
	events []realtime.SSEMessage
}

func (s *eventSink) publish(msg realtime.SSEMessage) {
	s.mu.Lock()
	s.events = append(s.events, msg)
	s.mu.Unlock()
}

func (s *eventSink) ofType(event realtime.SSEEvent) []realtime.SSEMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []realtime.SSEMessage
	for _, e := range s.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// submitWhenReady retries until the controller accepts the attempt; the flow
// only accepts while awaiting an answer.
func submitWhenReady(tb testing.TB, submit func(AnswerSubmission) bool, sub AnswerSubmission) {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if submit(sub) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	tb.Fatalf("controller never started accepting answers")
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func tapQuestion(correct int) *types.Question {
	return &types.Question{
		ID:     uuid.New(),
		Kind:   types.AnswerKindTapImage,
		Prompt: "Which one is the cow?",
		TapImage: &types.TapImageSpec{
			Images:       []types.AssetRef{"cow.png", "duck.png"},
			CorrectIndex: correct,
		},
	}
}

func freeTextQuestion(answer string) *types.Question {
	return &types.Question{
		ID:       uuid.New(),
		Kind:     types.AnswerKindFreeText,
		Prompt:   "What animal says moo?",
		FreeText: &types.FreeTextSpec{CorrectAnswer: answer},
	}
}

func testChild() *types.ChildProfile {
	return &types.ChildProfile{
		ID:               uuid.New(),
		DisplayName:      "Maya",
		NarrationEnabled: true,
		VoiceID:          "en-US-Neural2-H",
		SpeechRate:       1.0,
	}
}

// fakeChildRepo serves a fixed profile.
type fakeChildRepo struct {
	child *types.ChildProfile
}

func (f *fakeChildRepo) Create(_ context.Context, _ *gorm.DB, p *types.ChildProfile) (*types.ChildProfile, error) {
	return p, nil
}

func (f *fakeChildRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.ChildProfile, error) {
	if f.child != nil && f.child.ID == id {
		return f.child, nil
	}
	return nil, nil
}

func (f *fakeChildRepo) UpdateFields(context.Context, *gorm.DB, uuid.UUID, map[string]any) error {
	return nil
}

// fakeContent serves a fixed adventure and pool.
type fakeContent struct {
	adventure *types.Adventure
	pool      []PoolItem
}

func (f *fakeContent) ListAdventures(context.Context, string) ([]*types.Adventure, error) {
	if f.adventure == nil {
		return nil, nil
	}
	return []*types.Adventure{f.adventure}, nil
}

func (f *fakeContent) GetAdventure(_ context.Context, id uuid.UUID) (*types.Adventure, error) {
	if f.adventure != nil && f.adventure.ID == id {
		return f.adventure, nil
	}
	return nil, nil
}

func (f *fakeContent) LoadPool(context.Context, *uuid.UUID, string) ([]PoolItem, error) {
	return f.pool, nil
}

func (f *fakeContent) SeedFromDir(context.Context, string) error { return nil }

// fakeRecorder counts recorder calls and signals completion.
type fakeRecorder struct {
	mu        sync.Mutex
	started   int
	answered  []AttemptSummary
	completed chan struct{}
	final     struct {
		questions int
		correct   int
	}
}

type AttemptSummary struct {
	QuestionID   uuid.UUID
	WasCorrect   bool
	AttemptsUsed int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{completed: make(chan struct{}, 1)}
}

func (f *fakeRecorder) SessionStarted(*types.SessionRecord) {
	f.mu.Lock()
	f.started++
	f.mu.Unlock()
}

func (f *fakeRecorder) QuestionAnswered(_, _ uuid.UUID, q *types.Question, _ int, wasCorrect bool, attemptsUsed int) {
	f.mu.Lock()
	f.answered = append(f.answered, AttemptSummary{QuestionID: q.ID, WasCorrect: wasCorrect, AttemptsUsed: attemptsUsed})
	f.mu.Unlock()
}

func (f *fakeRecorder) SessionCompleted(_, _ uuid.UUID, _ *uuid.UUID, questionCount, correctCount int) {
	f.mu.Lock()
	f.final.questions = questionCount
	f.final.correct = correctCount
	f.mu.Unlock()
	select {
	case f.completed <- struct{}{}:
	default:
	}
}

func (f *fakeRecorder) waitComplete(tb testing.TB) {
	tb.Helper()
	select {
	case <-f.completed:
	case <-time.After(5 * time.Second):
		tb.Fatalf("session never completed")
	}
}
