package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/data/repos"
	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

type EngineConfig struct {
	MaxQuestions int
	// SkipIntroduction suppresses adventure introductions for every session,
	// regardless of what the adventure itself asks for.
	SkipIntroduction bool
	// ConfigErrorDwell is how long the configuration-error screen stays up
	// before the session moves on.
	ConfigErrorDwell time.Duration
	// CelebrationDwell is how long the celebration screen stays up after a
	// correct answer before the next question starts.
	CelebrationDwell time.Duration
	Interaction      InteractionConfig
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = 6
	}
	if c.ConfigErrorDwell <= 0 {
		c.ConfigErrorDwell = 3 * time.Second
	}
	if c.CelebrationDwell <= 0 {
		c.CelebrationDwell = 2 * time.Second
	}
	return c
}

type EngineDeps struct {
	Log      *logger.Logger
	Content  ContentService
	Children repos.ChildProfileRepo
	Narrator Narrator
	// NewNarrator builds a narrator owned by one engine, so one child's
	// playback slot never stops another child's clip. Used when Narrator is
	// nil.
	NewNarrator func() Narrator
	Evaluator   *Evaluator
	STT         Transcriber
	Assets      AssetResolver
	Recorder    ProgressRecorder
	Publish     func(realtime.SSEMessage)
	RNG         *rand.Rand
	Config      EngineConfig
}

// Engine is the per-child session state machine. Externally triggered
// transitions happen under its mutex; the session itself runs as a single
// goroutine that walks introduction, questions, celebration and completion in
// order. A reset cancels that goroutine's context, so whatever it was blocked
// on (narration, an answer wait, a dwell timer) unwinds immediately, and late
// input for the dead session is rejected because its controller is gone.
type Engine struct {
	deps EngineDeps
	cfg  EngineConfig
	log  *logger.Logger
	rng  *rand.Rand

	childID uuid.UUID

	mu            sync.Mutex
	screen        types.Screen
	sessionID     uuid.UUID
	child         *types.ChildProfile
	adventure     *types.Adventure
	activity      string
	pool          []PoolItem
	asked         []bool
	ordered       bool
	questionCount int
	correctCount  int
	retryCount    int
	lastResponse  string
	questionView  *types.QuestionView
	phase         types.Phase
	configError   string
	startedAt     time.Time
	controller    *QuestionController
	cancel        context.CancelFunc
	skipQuestion  context.CancelFunc
}

func NewEngine(childID uuid.UUID, deps EngineDeps) *Engine {
	rng := deps.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Narrator == nil && deps.NewNarrator != nil {
		deps.Narrator = deps.NewNarrator()
	}
	return &Engine{
		deps:    deps,
		cfg:     deps.Config.withDefaults(),
		log:     deps.Log.With("component", "Engine", "child_id", childID),
		rng:     rng,
		childID: childID,
		screen:  types.ScreenHome,
	}
}

func (e *Engine) Snapshot() types.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() types.Snapshot {
	snap := types.Snapshot{
		SessionID:     e.sessionID,
		ChildID:       e.childID,
		Screen:        e.screen,
		ActivityType:  e.activity,
		Question:      e.questionView,
		Phase:         e.phase,
		QuestionCount: e.questionCount,
		CorrectCount:  e.correctCount,
		RetryCount:    e.retryCount,
		LastResponse:  e.lastResponse,
		ConfigError:   e.configError,
	}
	if e.adventure != nil {
		id := e.adventure.ID
		snap.AdventureID = &id
	}
	return snap
}

// Start moves an idle engine to lesson selection. It is the "tap to begin"
// transition off the home or completion screen.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.screen != types.ScreenHome && e.screen != types.ScreenComplete {
		return fmt.Errorf("cannot start from screen %q", e.screen)
	}
	e.resetSessionStateLocked()
	e.screen = types.ScreenLessonSelection
	e.publishSnapshotLocked()
	return nil
}

// SelectAdventure begins a session against one adventure, or against the
// loose questions of an activity type when adventureID is nil (quick
// practice). The session goroutine takes over from here.
func (e *Engine) SelectAdventure(ctx context.Context, adventureID *uuid.UUID, activityType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return fmt.Errorf("a session is already running")
	}
	if e.screen != types.ScreenLessonSelection {
		return fmt.Errorf("cannot select a lesson from screen %q", e.screen)
	}

	child, err := e.deps.Children.GetByID(ctx, nil, e.childID)
	if err != nil {
		return fmt.Errorf("load child profile: %w", err)
	}
	if child == nil {
		return fmt.Errorf("child profile %s not found", e.childID)
	}

	var adventure *types.Adventure
	if adventureID != nil {
		adventure, err = e.deps.Content.GetAdventure(ctx, *adventureID)
		if err != nil {
			return fmt.Errorf("load adventure: %w", err)
		}
		if adventure == nil {
			return fmt.Errorf("adventure %s not found", *adventureID)
		}
		activityType = adventure.ActivityType
	}
	if activityType == "" {
		return fmt.Errorf("an adventure id or activity type is required")
	}

	pool, err := e.deps.Content.LoadPool(ctx, adventureID, activityType)
	if err != nil {
		return fmt.Errorf("load question pool: %w", err)
	}
	if len(pool) == 0 {
		return fmt.Errorf("no questions available for %q", activityType)
	}

	e.child = child
	e.adventure = adventure
	e.activity = activityType
	e.pool = orderPool(adventure, pool)
	e.asked = make([]bool, len(e.pool))
	e.ordered = poolIsOrdered(adventure, e.pool)
	e.sessionID = uuid.New()
	e.startedAt = time.Now().UTC()
	e.questionCount = 0
	e.correctCount = 0
	e.retryCount = 0
	e.lastResponse = ""

	record := &types.SessionRecord{
		ID:           e.sessionID,
		ChildID:      e.childID,
		AdventureID:  adventureID,
		ActivityType: activityType,
		StartedAt:    e.startedAt,
	}
	e.deps.Recorder.SessionStarted(record)

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.run(runCtx)
	return nil
}

// SubmitAnswer forwards a device answer to the active question.
func (e *Engine) SubmitAnswer(sub AnswerSubmission) error {
	e.mu.Lock()
	controller := e.controller
	e.mu.Unlock()

	if controller == nil {
		return fmt.Errorf("no active question")
	}
	if !controller.SubmitAnswer(sub) {
		return fmt.Errorf("not awaiting an answer")
	}
	return nil
}

// MediaEvent forwards an after-answer video signal to the active question.
func (e *Engine) MediaEvent(sig MediaSignal) error {
	e.mu.Lock()
	controller := e.controller
	e.mu.Unlock()

	if controller == nil {
		return fmt.Errorf("no active question")
	}
	if !controller.MediaEvent(sig) {
		return fmt.Errorf("no video is playing")
	}
	return nil
}

// Advance ends the after-answer image dwell of the active question early.
func (e *Engine) Advance() error {
	e.mu.Lock()
	controller := e.controller
	e.mu.Unlock()

	if controller == nil {
		return fmt.Errorf("no active question")
	}
	if !controller.Advance() {
		return fmt.Errorf("nothing to advance past")
	}
	return nil
}

// Skip abandons the active question: its narration stops, its controller is
// torn down, and the session moves on without counting it. Any answer or
// media report still in flight for the skipped question lands on a dead
// controller and is rejected.
func (e *Engine) Skip() error {
	e.mu.Lock()
	skip := e.skipQuestion
	active := e.controller != nil
	e.mu.Unlock()

	if !active || skip == nil {
		return fmt.Errorf("no active question")
	}
	skip()
	e.deps.Narrator.Stop()
	return nil
}

// AckNarration confirms the device finished playing a narration clip.
func (e *Engine) AckNarration(playbackID uuid.UUID) {
	e.deps.Narrator.Ack(playbackID)
}

// Reset abandons whatever is in flight and returns the engine to the home
// screen. Safe to call at any time.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.controller = nil
	e.skipQuestion = nil
	e.resetSessionStateLocked()
	e.screen = types.ScreenHome
	e.publishSnapshotLocked()
	e.mu.Unlock()

	e.deps.Narrator.Stop()
}

func (e *Engine) resetSessionStateLocked() {
	e.sessionID = uuid.Nil
	e.child = nil
	e.adventure = nil
	e.activity = ""
	e.pool = nil
	e.asked = nil
	e.questionCount = 0
	e.correctCount = 0
	e.retryCount = 0
	e.lastResponse = ""
	e.questionView = nil
	e.phase = ""
	e.configError = ""
}

func (e *Engine) run(ctx context.Context) {
	e.runIntroduction(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		e.mu.Lock()
		idx, ok := e.nextIndexLocked()
		if !ok {
			e.mu.Unlock()
			break
		}
		item := e.pool[idx]
		e.asked[idx] = true
		// The asked set and the session count move together, in one locked
		// step. Items the question never finishes (skips, narration-only
		// beats) hand the count back when they resolve.
		if item.Err == nil {
			e.questionCount++
		}
		e.mu.Unlock()

		if item.Err != nil {
			e.showConfigError(ctx, item.Err)
			continue
		}
		if err := e.runQuestion(ctx, item.Question); err != nil {
			return
		}
	}

	e.finish(ctx)
}

func (e *Engine) runIntroduction(ctx context.Context) {
	e.mu.Lock()
	adventure := e.adventure
	child := e.child
	e.mu.Unlock()

	if e.cfg.SkipIntroduction {
		return
	}
	if adventure == nil || adventure.SkipIntroduction || adventure.Introduction == "" {
		return
	}
	if child == nil || !child.NarrationEnabled {
		return
	}

	e.setScreen(types.ScreenIntroduction)
	e.deps.Narrator.Speak(ctx, SpeakRequest{
		ChildID: e.childID,
		Kind:    NarrationIntroduction,
		Text:    adventure.Introduction,
		VoiceID: child.VoiceID,
		Rate:    child.SpeechRate,
	})
}

func (e *Engine) runQuestion(ctx context.Context, q *types.Question) error {
	qctx, qcancel := context.WithCancel(ctx)
	defer qcancel()

	e.mu.Lock()
	e.skipQuestion = qcancel
	child := e.child
	sessionID := e.sessionID
	view := e.viewFor(q)
	e.questionView = &view
	e.configError = ""
	e.retryCount = 0
	if child != nil && !child.NarrationEnabled {
		e.phase = types.PhaseAwaitingAnswer
	} else {
		e.phase = types.PhaseReadingPrompt
	}
	e.screen = types.ScreenQuestion
	controller := NewQuestionController(q, child, QuestionControllerDeps{
		Log:       e.log,
		Narrator:  e.deps.Narrator,
		Evaluator: e.deps.Evaluator,
		STT:       e.deps.STT,
		Assets:    e.deps.Assets,
		Publish:   e.deps.Publish,
		OnPhase:   e.onPhase,
		OnAttempt: e.onAttempt,
		RNG:       e.rng,
		Config:    e.cfg.Interaction,
	})
	e.controller = controller
	e.publishSnapshotLocked()
	e.mu.Unlock()

	result, err := controller.Run(qctx)

	e.mu.Lock()
	if e.controller == controller {
		e.controller = nil
	}
	e.skipQuestion = nil
	// A reset may have wiped the session while the controller unwound; only
	// touch the counters when they still belong to this session.
	live := e.sessionID == sessionID
	if err != nil {
		// The question never resolved, so it hands its selection-time count
		// back. A skip cancels only the question context; the session goes on
		// to the next selection. A reset cancels the parent too.
		if live {
			e.questionCount--
		}
		e.mu.Unlock()
		if ctx.Err() == nil {
			e.log.Info("question skipped", "question_id", q.ID)
			return nil
		}
		return err
	}
	if result.Counted {
		if live && result.WasCorrect {
			e.correctCount++
		}
	} else if live {
		// Narration-only beats never score.
		e.questionCount--
	}
	questionIndex := e.questionCount - 1
	adventure := e.adventure
	e.mu.Unlock()

	if result.Counted {
		e.deps.Recorder.QuestionAnswered(sessionID, e.childID, q, questionIndex, result.WasCorrect, result.AttemptsUsed)
		if live && result.WasCorrect && celebrationEnabled(child, adventure) {
			e.celebrate(ctx, child)
		}
	}
	return nil
}

func (e *Engine) showConfigError(ctx context.Context, cause error) {
	e.mu.Lock()
	e.questionView = nil
	e.phase = ""
	e.configError = cause.Error()
	e.screen = types.ScreenQuestion
	e.publishSnapshotLocked()
	e.mu.Unlock()

	if e.deps.Publish != nil {
		e.deps.Publish(realtime.SSEMessage{
			Channel: realtime.SessionChannel(e.childID),
			Event:   realtime.SSEEventConfigError,
			Data:    map[string]any{"error": cause.Error()},
		})
	}

	select {
	case <-time.After(e.cfg.ConfigErrorDwell):
	case <-ctx.Done():
		return
	}

	e.mu.Lock()
	e.configError = ""
	e.mu.Unlock()
}

var celebrationLines = []string{
	"Hooray! You're doing amazing!",
	"Woohoo! High five!",
	"Fantastic! Keep it up!",
}

// celebrate shows the celebration screen after a correct answer, narrates a
// cheer, and holds it for the configured dwell before the session moves on.
// The caller has already applied the celebration policy.
func (e *Engine) celebrate(ctx context.Context, child *types.ChildProfile) {
	e.mu.Lock()
	questionCount := e.questionCount
	correctCount := e.correctCount
	e.mu.Unlock()

	e.setScreen(types.ScreenCelebration)
	if e.deps.Publish != nil {
		e.deps.Publish(realtime.SSEMessage{
			Channel: realtime.SessionChannel(e.childID),
			Event:   realtime.SSEEventCelebration,
			Data: map[string]any{
				"question_count": questionCount,
				"correct_count":  correctCount,
			},
		})
	}
	if child != nil && child.NarrationEnabled {
		e.deps.Narrator.Speak(ctx, SpeakRequest{
			ChildID: e.childID,
			Kind:    NarrationFeedback,
			Text:    pickLine(e.rng, celebrationLines),
			VoiceID: child.VoiceID,
			Rate:    child.SpeechRate,
		})
	}

	select {
	case <-time.After(e.cfg.CelebrationDwell):
	case <-ctx.Done():
	}
}

func (e *Engine) finish(ctx context.Context) {
	e.mu.Lock()
	adventure := e.adventure
	var adventureID *uuid.UUID
	if adventure != nil {
		id := adventure.ID
		adventureID = &id
	}
	sessionID := e.sessionID
	questionCount := e.questionCount
	correctCount := e.correctCount
	e.questionView = nil
	e.phase = ""
	e.mu.Unlock()

	e.setScreen(types.ScreenComplete)
	if e.deps.Publish != nil {
		e.deps.Publish(realtime.SSEMessage{
			Channel: realtime.SessionChannel(e.childID),
			Event:   realtime.SSEEventSessionComplete,
			Data: map[string]any{
				"session_id":     sessionID,
				"question_count": questionCount,
				"correct_count":  correctCount,
			},
		})
	}
	e.deps.Recorder.SessionCompleted(sessionID, e.childID, adventureID, questionCount, correctCount)

	e.mu.Lock()
	e.cancel = nil
	e.mu.Unlock()
}

// nextIndexLocked picks the next pool item, or reports the session done.
// Ordered pools advance front to back; unordered pools pick uniformly among
// the not-yet-asked items.
func (e *Engine) nextIndexLocked() (int, bool) {
	if e.questionCount >= e.effectiveMaxLocked() {
		return 0, false
	}
	var unasked []int
	for i := range e.pool {
		if !e.asked[i] {
			unasked = append(unasked, i)
		}
	}
	if len(unasked) == 0 {
		return 0, false
	}
	if e.ordered {
		return unasked[0], true
	}
	return unasked[e.rng.Intn(len(unasked))], true
}

// effectiveMaxLocked stretches the per-session cap for scene sequences so a
// story is never cut off mid-arc.
func (e *Engine) effectiveMaxLocked() int {
	maxQuestions := e.cfg.MaxQuestions
	if e.adventure != nil && e.adventure.IsSceneSequence && len(e.pool) > maxQuestions {
		maxQuestions = len(e.pool)
	}
	return maxQuestions
}

func (e *Engine) viewFor(q *types.Question) types.QuestionView {
	view := types.QuestionView{
		ID:     q.ID,
		Kind:   q.Kind,
		Prompt: q.Prompt,
	}
	switch q.Kind {
	case types.AnswerKindChoiceIndex:
		view.Choices = e.resolveAll(q.Choice.Choices)
	case types.AnswerKindTapImage:
		view.Images = e.resolveAll(q.TapImage.Images)
	case types.AnswerKindScene:
		view.IsScene = q.Scene.IsScene
		view.Background = e.deps.Assets.Resolve(q.Scene.BackgroundAsset)
		view.Images = e.resolveAll(q.Scene.Images)
	}
	view.AfterImage = e.deps.Assets.Resolve(q.After.Image)
	view.AfterVideo = e.deps.Assets.Resolve(q.After.Video)
	return view
}

func (e *Engine) resolveAll(refs []types.AssetRef) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = e.deps.Assets.Resolve(ref)
	}
	return out
}

func (e *Engine) onPhase(p types.Phase) {
	e.mu.Lock()
	e.phase = p
	e.publishSnapshotLocked()
	e.mu.Unlock()
}

func (e *Engine) onAttempt(rec AttemptRecord) {
	e.mu.Lock()
	e.lastResponse = rec.Answer
	if rec.WillRetry {
		e.retryCount++
	}
	e.mu.Unlock()
}

func (e *Engine) setScreen(screen types.Screen) {
	e.mu.Lock()
	e.screen = screen
	e.publishSnapshotLocked()
	e.mu.Unlock()
}

func (e *Engine) publishSnapshotLocked() {
	if e.deps.Publish == nil {
		return
	}
	e.deps.Publish(realtime.SSEMessage{
		Channel: realtime.SessionChannel(e.childID),
		Event:   realtime.SSEEventScreenChanged,
		Data:    e.snapshotLocked(),
	})
}

// celebrationEnabled resolves the celebration policy: an explicit child
// preference wins, then the adventure's default, then on.
func celebrationEnabled(child *types.ChildProfile, adventure *types.Adventure) bool {
	if child != nil && child.CelebrationEnabled != nil {
		return *child.CelebrationEnabled
	}
	if adventure != nil && adventure.CelebrateByDefault != nil {
		return *adventure.CelebrateByDefault
	}
	return true
}

// orderPool sorts scene sequences by their sequence numbers; every other pool
// keeps repository order.
func orderPool(adventure *types.Adventure, pool []PoolItem) []PoolItem {
	if adventure == nil || !adventure.IsSceneSequence {
		return pool
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return sceneSeq(pool[i]) < sceneSeq(pool[j])
	})
	return pool
}

func sceneSeq(item PoolItem) int {
	if item.Question != nil && item.Question.Scene != nil {
		return item.Question.Scene.SequenceNumber
	}
	return 1 << 30
}

// poolIsOrdered reports whether selection should be sequential: scene
// sequences always are, and so is any pool where every valid question carries
// an order index. A mixed pool falls back to random selection.
func poolIsOrdered(adventure *types.Adventure, pool []PoolItem) bool {
	if adventure != nil && adventure.IsSceneSequence {
		return true
	}
	for _, item := range pool {
		if item.Question != nil && item.Question.OrderIndex == nil {
			return false
		}
	}
	return true
}
