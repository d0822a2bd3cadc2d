package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

type engineFixture struct {
	engine   *Engine
	narr     *fakeNarrator
	sink     *eventSink
	recorder *fakeRecorder
	child    *types.ChildProfile
	content  *fakeContent
}

func newEngineFixture(t *testing.T, content *fakeContent, cfg EngineConfig) *engineFixture {
	t.Helper()
	child := testChild()
	narr := &fakeNarrator{}
	sink := &eventSink{}
	recorder := newFakeRecorder()

	cfg.ConfigErrorDwell = 10 * time.Millisecond
	cfg.CelebrationDwell = 10 * time.Millisecond
	cfg.Interaction = InteractionConfig{ImageDwell: 10 * time.Millisecond, VideoTimeout: 2 * time.Second}

	engine := NewEngine(child.ID, EngineDeps{
		Log:       testLogger(t),
		Content:   content,
		Children:  &fakeChildRepo{child: child},
		Narrator:  narr,
		Evaluator: NewEvaluator(),
		Assets:    identityAssets{},
		Recorder:  recorder,
		Publish:   sink.publish,
		Config:    cfg,
	})
	return &engineFixture{engine: engine, narr: narr, sink: sink, recorder: recorder, child: child, content: content}
}

func (f *engineFixture) submit(t *testing.T, sub AnswerSubmission) {
	t.Helper()
	submitWhenReady(t, func(s AnswerSubmission) bool {
		return f.engine.SubmitAnswer(s) == nil
	}, sub)
}

func (f *engineFixture) waitSnapshot(t *testing.T, what string, cond func(types.Snapshot) bool) types.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := f.engine.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return types.Snapshot{}
}

func orderedTapPool(correct ...int) []PoolItem {
	pool := make([]PoolItem, len(correct))
	for i, c := range correct {
		q := tapQuestion(c)
		q.OrderIndex = intPtr(i)
		pool[i] = PoolItem{Question: q}
	}
	return pool
}

func TestEngineFullSessionFlow(t *testing.T) {
	adventure := &types.Adventure{
		ID:           uuid.New(),
		ActivityType: "vocabulary",
		Title:        "Farm Friends",
		Introduction: "Welcome to the farm!",
	}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0, 1)}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := f.engine.Snapshot().Screen; got != types.ScreenLessonSelection {
		t.Fatalf("screen after start: want=%v got=%v", types.ScreenLessonSelection, got)
	}

	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)}) // correct
	f.submit(t, AnswerSubmission{Index: intPtr(0)}) // wrong, correct is 1

	f.recorder.waitComplete(t)
	if f.recorder.final.questions != 2 || f.recorder.final.correct != 1 {
		t.Fatalf("recorded totals: want questions=2 correct=1 got %+v", f.recorder.final)
	}

	snap := f.engine.Snapshot()
	if snap.Screen != types.ScreenComplete {
		t.Fatalf("final screen: want=%v got=%v", types.ScreenComplete, snap.Screen)
	}
	if snap.QuestionCount != 2 || snap.CorrectCount != 1 {
		t.Fatalf("final counts: want 2/1 got %d/%d", snap.QuestionCount, snap.CorrectCount)
	}

	introduced := false
	for _, line := range f.narr.lines() {
		if line == adventure.Introduction {
			introduced = true
		}
	}
	if !introduced {
		t.Fatalf("introduction was never narrated; lines=%v", f.narr.lines())
	}

	if events := f.sink.ofType(realtime.SSEEventCelebration); len(events) != 1 {
		t.Fatalf("Celebration events: want=1 got=%d", len(events))
	}
	if events := f.sink.ofType(realtime.SSEEventSessionComplete); len(events) != 1 {
		t.Fatalf("SessionComplete events: want=1 got=%d", len(events))
	}
}

func TestEngineRejectsSecondSessionWhileRunning(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "vocabulary", Title: "Farm Friends", SkipIntroduction: true}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0)}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err == nil {
		t.Fatalf("second SelectAdventure succeeded mid-session")
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)})
	f.recorder.waitComplete(t)
}

func TestEngineSceneSequencePlaysEveryBeat(t *testing.T) {
	adventure := &types.Adventure{
		ID:               uuid.New(),
		ActivityType:     "story",
		Title:            "The Lost Duckling",
		SkipIntroduction: true,
		IsSceneSequence:  true,
	}
	beat := func(seq int, prompt string) PoolItem {
		return PoolItem{Question: &types.Question{
			ID:     uuid.New(),
			Kind:   types.AnswerKindScene,
			Prompt: prompt,
			Scene:  &types.SceneSpec{SequenceNumber: seq, IsScene: true},
		}}
	}
	choice := PoolItem{Question: &types.Question{
		ID:     uuid.New(),
		Kind:   types.AnswerKindScene,
		Prompt: "Which way did the duckling go?",
		Scene: &types.SceneSpec{
			SequenceNumber: 2,
			Images:         []types.AssetRef{"left.png", "right.png"},
			CorrectIndex:   1,
		},
	}}

	// Pool arrives out of order; the sequence numbers decide playback order,
	// and the one-question cap must not cut the story short.
	pool := []PoolItem{beat(3, "They found her by the pond."), choice, beat(1, "A duckling wandered off.")}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: pool}, EngineConfig{MaxQuestions: 1})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(1)})
	f.recorder.waitComplete(t)

	var prompts []string
	f.narr.mu.Lock()
	for _, s := range f.narr.spoken {
		if s.Kind == NarrationPrompt {
			prompts = append(prompts, s.Text)
		}
	}
	f.narr.mu.Unlock()

	want := []string{"A duckling wandered off.", "Which way did the duckling go?", "They found her by the pond."}
	if len(prompts) != len(want) {
		t.Fatalf("narrated beats: want=%d got=%d (%v)", len(want), len(prompts), prompts)
	}
	for i := range want {
		if prompts[i] != want[i] {
			t.Fatalf("beat %d: want=%q got=%q", i, want[i], prompts[i])
		}
	}

	if f.recorder.final.questions != 1 || f.recorder.final.correct != 1 {
		t.Fatalf("scene totals: want questions=1 correct=1 got %+v", f.recorder.final)
	}
}

func TestEngineConfigErrorItemSurfacesAndSkips(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "vocabulary", Title: "Farm Friends", SkipIntroduction: true}
	pool := []PoolItem{
		{Err: errors.New("tap_image question must carry exactly two images")},
	}
	pool = append(pool, orderedTapPool(0)...)
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: pool}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)})
	f.recorder.waitComplete(t)

	if events := f.sink.ofType(realtime.SSEEventConfigError); len(events) != 1 {
		t.Fatalf("ConfigurationError events: want=1 got=%d", len(events))
	}
	// The bad row must not count against the session totals.
	if f.recorder.final.questions != 1 {
		t.Fatalf("questions recorded: want=1 got=%d", f.recorder.final.questions)
	}
}

func TestEngineResetAbandonsSession(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "vocabulary", Title: "Farm Friends", SkipIntroduction: true}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0, 1)}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	// Wait for the first question to be live, then bail out.
	deadline := time.Now().Add(2 * time.Second)
	for f.engine.Snapshot().Screen != types.ScreenQuestion {
		if time.Now().After(deadline) {
			t.Fatalf("question screen never reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.engine.Reset()

	if got := f.engine.Snapshot().Screen; got != types.ScreenHome {
		t.Fatalf("screen after reset: want=%v got=%v", types.ScreenHome, got)
	}
	if err := f.engine.SubmitAnswer(AnswerSubmission{Index: intPtr(0)}); err == nil {
		t.Fatalf("answer accepted after reset")
	}
}

func TestEngineSkipMovesToNextQuestion(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "vocabulary", Title: "Farm Friends", SkipIntroduction: true}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0, 1)}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	// Skip the first question as soon as it is live.
	firstID := f.content.pool[0].Question.ID
	deadline := time.Now().Add(2 * time.Second)
	for f.engine.Skip() != nil {
		if time.Now().After(deadline) {
			t.Fatalf("no question ever became skippable")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Wait for the second question before answering so the attempt cannot
	// land on the skipped controller while it unwinds.
	for {
		snap := f.engine.Snapshot()
		if snap.Question != nil && snap.Question.ID != firstID {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("second question never became active")
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.submit(t, AnswerSubmission{Index: intPtr(1)}) // correct

	f.recorder.waitComplete(t)
	snap := f.engine.Snapshot()
	if snap.Screen != types.ScreenComplete {
		t.Fatalf("final screen: want=%v got=%v", types.ScreenComplete, snap.Screen)
	}
	if snap.QuestionCount != 1 || snap.CorrectCount != 1 {
		t.Fatalf("final counts: want 1/1 got %d/%d", snap.QuestionCount, snap.CorrectCount)
	}
}

func TestEngineCelebrationPolicy(t *testing.T) {
	adventure := &types.Adventure{
		ID:                 uuid.New(),
		ActivityType:       "vocabulary",
		Title:              "Farm Friends",
		SkipIntroduction:   true,
		CelebrateByDefault: boolPtr(false),
	}

	t.Run("adventure default wins without a child preference", func(t *testing.T) {
		f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0)}, EngineConfig{})
		if err := f.engine.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
			t.Fatalf("SelectAdventure: %v", err)
		}
		f.submit(t, AnswerSubmission{Index: intPtr(0)})
		f.recorder.waitComplete(t)

		if events := f.sink.ofType(realtime.SSEEventCelebration); len(events) != 0 {
			t.Fatalf("celebration fired despite the adventure opting out")
		}
	})

	t.Run("child preference overrides the adventure", func(t *testing.T) {
		f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0)}, EngineConfig{})
		f.child.CelebrationEnabled = boolPtr(true)
		if err := f.engine.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
			t.Fatalf("SelectAdventure: %v", err)
		}
		f.submit(t, AnswerSubmission{Index: intPtr(0)})
		f.recorder.waitComplete(t)

		if events := f.sink.ofType(realtime.SSEEventCelebration); len(events) != 1 {
			t.Fatalf("Celebration events: want=1 got=%d", len(events))
		}
	})
}

func TestEngineCelebratesBetweenQuestions(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "vocabulary", Title: "Farm Friends", SkipIntroduction: true}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0, 0)}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)}) // correct
	f.submit(t, AnswerSubmission{Index: intPtr(0)}) // correct
	f.recorder.waitComplete(t)

	if events := f.sink.ofType(realtime.SSEEventCelebration); len(events) != 2 {
		t.Fatalf("Celebration events: want=2 got=%d", len(events))
	}

	// The celebration screen must show after the first correct answer and
	// before the second question, not only at the end of the session.
	secondID := f.content.pool[1].Question.ID
	celebrated, secondShown := -1, -1
	f.sink.mu.Lock()
	for i, ev := range f.sink.events {
		if ev.Event != realtime.SSEEventScreenChanged {
			continue
		}
		snap, ok := ev.Data.(types.Snapshot)
		if !ok {
			continue
		}
		if celebrated == -1 && snap.Screen == types.ScreenCelebration {
			celebrated = i
		}
		if secondShown == -1 && snap.Question != nil && snap.Question.ID == secondID {
			secondShown = i
		}
	}
	f.sink.mu.Unlock()
	if celebrated == -1 {
		t.Fatalf("celebration screen never shown")
	}
	if secondShown == -1 {
		t.Fatalf("second question never shown")
	}
	if celebrated > secondShown {
		t.Fatalf("celebration only showed after the second question: celebration=%d second=%d", celebrated, secondShown)
	}
}

func TestEngineRetryCountResetsPerQuestion(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "speech", Title: "Animal Sounds", SkipIntroduction: true}
	ft := freeTextQuestion("cow")
	ft.OrderIndex = intPtr(0)
	tap := tapQuestion(0)
	tap.OrderIndex = intPtr(1)
	pool := []PoolItem{{Question: ft}, {Question: tap}}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: pool}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	// A miss with an attempt left must bump the retry count while the same
	// question is still live.
	f.submit(t, AnswerSubmission{Text: "tractor"})
	f.waitSnapshot(t, "retry count after first miss", func(s types.Snapshot) bool {
		return s.RetryCount >= 1
	})

	f.submit(t, AnswerSubmission{Text: "cow"})
	snap := f.waitSnapshot(t, "second question", func(s types.Snapshot) bool {
		return s.Question != nil && s.Question.ID == tap.ID
	})
	if snap.RetryCount != 0 {
		t.Fatalf("retry count entering a new question: want=0 got=%d", snap.RetryCount)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)})
	f.recorder.waitComplete(t)
}

func TestEngineCountsQuestionAtSelection(t *testing.T) {
	adventure := &types.Adventure{ID: uuid.New(), ActivityType: "vocabulary", Title: "Farm Friends", SkipIntroduction: true}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0, 1)}, EngineConfig{})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	// The count moves with the asked set the instant a question is selected,
	// before any answer arrives.
	firstID := f.content.pool[0].Question.ID
	snap := f.waitSnapshot(t, "first question", func(s types.Snapshot) bool {
		return s.Question != nil && s.Question.ID == firstID
	})
	if snap.QuestionCount != 1 || snap.CorrectCount != 0 {
		t.Fatalf("counts at first selection: want 1/0 got %d/%d", snap.QuestionCount, snap.CorrectCount)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)}) // correct
	secondID := f.content.pool[1].Question.ID
	snap = f.waitSnapshot(t, "second question", func(s types.Snapshot) bool {
		return s.Question != nil && s.Question.ID == secondID
	})
	if snap.QuestionCount != 2 || snap.CorrectCount != 1 {
		t.Fatalf("counts at second selection: want 2/1 got %d/%d", snap.QuestionCount, snap.CorrectCount)
	}

	f.submit(t, AnswerSubmission{Index: intPtr(0)}) // wrong, correct is 1
	f.recorder.waitComplete(t)
	if f.recorder.final.questions != 2 || f.recorder.final.correct != 1 {
		t.Fatalf("recorded totals: want questions=2 correct=1 got %+v", f.recorder.final)
	}
}

func TestEngineRandomPoolAsksEachQuestionOnce(t *testing.T) {
	// Three loose questions without order indexes, so selection is random.
	// The session must visit each exactly once and stop when the pool is
	// exhausted, well short of the configured cap.
	pool := []PoolItem{
		{Question: tapQuestion(0)},
		{Question: tapQuestion(0)},
		{Question: tapQuestion(0)},
	}
	f := newEngineFixture(t, &fakeContent{pool: pool}, EngineConfig{MaxQuestions: 6})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), nil, "vocabulary"); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}

	for i := 0; i < len(pool); i++ {
		f.submit(t, AnswerSubmission{Index: intPtr(0)})
	}
	f.recorder.waitComplete(t)

	f.recorder.mu.Lock()
	answered := append([]AttemptSummary(nil), f.recorder.answered...)
	f.recorder.mu.Unlock()
	if len(answered) != len(pool) {
		t.Fatalf("questions answered: want=%d got=%d", len(pool), len(answered))
	}
	seen := map[uuid.UUID]bool{}
	for _, a := range answered {
		if seen[a.QuestionID] {
			t.Fatalf("question %s asked twice", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	for _, item := range pool {
		if !seen[item.Question.ID] {
			t.Fatalf("question %s never asked", item.Question.ID)
		}
	}
	if f.recorder.final.questions != 3 || f.recorder.final.correct != 3 {
		t.Fatalf("final totals: want 3/3 got %+v", f.recorder.final)
	}
}

func TestEngineConfigSkipsIntroductions(t *testing.T) {
	adventure := &types.Adventure{
		ID:           uuid.New(),
		ActivityType: "vocabulary",
		Title:        "Farm Friends",
		Introduction: "Welcome to the farm!",
	}
	f := newEngineFixture(t, &fakeContent{adventure: adventure, pool: orderedTapPool(0)}, EngineConfig{SkipIntroduction: true})

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.SelectAdventure(context.Background(), &adventure.ID, ""); err != nil {
		t.Fatalf("SelectAdventure: %v", err)
	}
	f.submit(t, AnswerSubmission{Index: intPtr(0)})
	f.recorder.waitComplete(t)

	for _, line := range f.narr.lines() {
		if line == adventure.Introduction {
			t.Fatalf("introduction narrated despite the skip setting")
		}
	}
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	for _, ev := range f.sink.events {
		if snap, ok := ev.Data.(types.Snapshot); ok && snap.Screen == types.ScreenIntroduction {
			t.Fatalf("introduction screen shown despite the skip setting")
		}
	}
}

func TestSessionManagerBuildsNarratorPerEngine(t *testing.T) {
	m := NewSessionManager(testLogger(t), EngineDeps{
		Log:         testLogger(t),
		NewNarrator: func() Narrator { return &fakeNarrator{} },
	})

	a := m.Engine(uuid.New())
	b := m.Engine(uuid.New())
	if a.deps.Narrator == nil || b.deps.Narrator == nil {
		t.Fatalf("engines built without narrators")
	}
	if a.deps.Narrator == b.deps.Narrator {
		t.Fatalf("two children share one narrator; stopping one would cut off the other")
	}
}
