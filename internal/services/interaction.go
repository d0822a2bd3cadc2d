package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/sproutspeech/adventure-backend/internal/domain"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

// AnswerSubmission is one attempt coming off the device. Exactly one of the
// payload fields is meaningful for a given question kind: Index for taps and
// choices, Audio (or pre-transcribed Text) for spoken answers.
type AnswerSubmission struct {
	Index    *int
	Text     string
	Audio    []byte
	MimeType string
}

// MediaSignal is a device report about after-answer video playback.
type MediaSignal string

const (
	MediaVideoEnded MediaSignal = "video_ended"
	MediaVideoError MediaSignal = "video_error"
)

// AttemptRecord is what the controller reports per attempt so the session can
// persist it.
type AttemptRecord struct {
	QuestionID uuid.UUID
	Attempt    int
	Answer     string
	WasCorrect bool
	Score      float64
	// WillRetry marks a miss that gets another attempt at the same question.
	WillRetry bool
}

// InteractionResult is the terminal outcome of one question.
type InteractionResult struct {
	WasCorrect   bool
	AttemptsUsed int
	WasRetried   bool
	// Counted is false for narration-only beats, which never score.
	Counted bool
}

type InteractionConfig struct {
	FreeTextAttempts int
	ImageDwell       time.Duration
	VideoTimeout     time.Duration
}

func (c InteractionConfig) withDefaults() InteractionConfig {
	if c.FreeTextAttempts <= 0 {
		c.FreeTextAttempts = 2
	}
	if c.ImageDwell <= 0 {
		c.ImageDwell = 10 * time.Second
	}
	if c.VideoTimeout <= 0 {
		c.VideoTimeout = 60 * time.Second
	}
	return c
}

var (
	praiseLines = []string{
		"Great job!",
		"You did it!",
		"Awesome work!",
		"That's right, way to go!",
	}
	retryLines = []string{
		"Good try! Let's try one more time.",
		"Almost! Give it another go.",
	}
	missLines = []string{
		"Good try! Let's keep going.",
		"Nice effort! On to the next one.",
	}
)

// QuestionController drives one question from prompt to completion. Run is a
// blocking flow; SubmitAnswer and MediaEvent feed it from request handlers and
// are dropped whenever the controller is not waiting for them.
type QuestionController struct {
	log       *logger.Logger
	question  *types.Question
	child     *types.ChildProfile
	narrator  Narrator
	eval      *Evaluator
	stt       Transcriber
	assets    AssetResolver
	publish   func(realtime.SSEMessage)
	onPhase   func(types.Phase)
	onAttempt func(AttemptRecord)
	rng       *rand.Rand
	cfg       InteractionConfig

	answers chan AnswerSubmission
	media   chan MediaSignal
	advance chan struct{}

	mu              sync.Mutex
	acceptingAnswer bool
	awaitingVideo   bool
	awaitingDwell   bool
}

type QuestionControllerDeps struct {
	Log       *logger.Logger
	Narrator  Narrator
	Evaluator *Evaluator
	STT       Transcriber
	Assets    AssetResolver
	Publish   func(realtime.SSEMessage)
	OnPhase   func(types.Phase)
	OnAttempt func(AttemptRecord)
	RNG       *rand.Rand
	Config    InteractionConfig
}

func NewQuestionController(q *types.Question, child *types.ChildProfile, deps QuestionControllerDeps) *QuestionController {
	return &QuestionController{
		log:       deps.Log.With("component", "QuestionController", "question_id", q.ID),
		question:  q,
		child:     child,
		narrator:  deps.Narrator,
		eval:      deps.Evaluator,
		stt:       deps.STT,
		assets:    deps.Assets,
		publish:   deps.Publish,
		onPhase:   deps.OnPhase,
		onAttempt: deps.OnAttempt,
		rng:       deps.RNG,
		cfg:       deps.Config.withDefaults(),
		answers:   make(chan AnswerSubmission, 1),
		media:     make(chan MediaSignal, 1),
		advance:   make(chan struct{}, 1),
	}
}

// SubmitAnswer hands an attempt to the running flow. It reports false when the
// controller is not awaiting one, which covers both double-taps during
// processing and submissions after the question finished.
func (c *QuestionController) SubmitAnswer(sub AnswerSubmission) bool {
	c.mu.Lock()
	ok := c.acceptingAnswer
	if ok {
		c.acceptingAnswer = false
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.answers <- sub
	return true
}

// MediaEvent reports after-answer video completion or failure.
func (c *QuestionController) MediaEvent(sig MediaSignal) bool {
	c.mu.Lock()
	ok := c.awaitingVideo
	if ok {
		c.awaitingVideo = false
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.media <- sig
	return true
}

// Advance cuts the after-answer image dwell short. Video playback is not
// advanceable; it ends on the device's own ended or error report.
func (c *QuestionController) Advance() bool {
	c.mu.Lock()
	ok := c.awaitingDwell
	if ok {
		c.awaitingDwell = false
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.advance <- struct{}{}
	return true
}

// Run executes the question flow to completion. The context cancels the whole
// flow, used when a session resets mid-question.
func (c *QuestionController) Run(ctx context.Context) (InteractionResult, error) {
	// With narration off there is nothing to read aloud, so the question
	// starts straight at the answer wait.
	if c.narrationEnabled() {
		c.setPhase(types.PhaseReadingPrompt)
		c.speak(ctx, NarrationPrompt, c.question.Prompt)
	}

	if !c.expectsAnswer() {
		// Narration-only beat: auto-advance once the prompt has played.
		if err := c.runAfterMedia(ctx); err != nil {
			return InteractionResult{}, err
		}
		c.setPhase(types.PhaseDone)
		return InteractionResult{Counted: false, AttemptsUsed: 0}, nil
	}

	maxAttempts := c.maxAttempts()
	result := InteractionResult{Counted: true}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.setPhase(types.PhaseAwaitingAnswer)
		c.setAccepting(true)

		var sub AnswerSubmission
		select {
		case sub = <-c.answers:
		case <-ctx.Done():
			c.setAccepting(false)
			return InteractionResult{}, ctx.Err()
		}

		c.setPhase(types.PhaseProcessingAnswer)
		correct, answerText, score := c.evaluate(ctx, sub)
		result.AttemptsUsed = attempt
		willRetry := !correct && attempt < maxAttempts

		if c.onAttempt != nil {
			c.onAttempt(AttemptRecord{
				QuestionID: c.question.ID,
				Attempt:    attempt,
				Answer:     answerText,
				WasCorrect: correct,
				Score:      score,
				WillRetry:  willRetry,
			})
		}
		c.publishFeedback(correct, attempt, score)

		if correct {
			result.WasCorrect = true
			c.setPhase(types.PhaseFeedbackCorrect)
			c.speak(ctx, NarrationFeedback, pickLine(c.rng, praiseLines))
			break
		}

		if willRetry {
			result.WasRetried = true
			c.setPhase(types.PhaseFeedbackIncorrect)
			c.speak(ctx, NarrationFeedback, pickLine(c.rng, retryLines))
			// The prompt is read again only ahead of the second attempt so the
			// child hears what is being asked before retrying.
			c.speak(ctx, NarrationPrompt, c.question.Prompt)
			continue
		}

		c.setPhase(types.PhaseFeedbackIncorrect)
		c.speak(ctx, NarrationFeedback, c.finalMissLine())
	}

	if err := c.runAfterMedia(ctx); err != nil {
		return InteractionResult{}, err
	}
	c.setPhase(types.PhaseDone)
	return result, nil
}

func (c *QuestionController) expectsAnswer() bool {
	switch c.question.Kind {
	case types.AnswerKindNone:
		return false
	case types.AnswerKindScene:
		return !c.question.Scene.IsScene
	default:
		return true
	}
}

func (c *QuestionController) maxAttempts() int {
	if c.question.Kind == types.AnswerKindFreeText {
		return c.cfg.FreeTextAttempts
	}
	return 1
}

func (c *QuestionController) evaluate(ctx context.Context, sub AnswerSubmission) (correct bool, answerText string, score float64) {
	switch c.question.Kind {
	case types.AnswerKindFreeText:
		transcript := strings.TrimSpace(sub.Text)
		if transcript == "" && len(sub.Audio) > 0 && c.stt != nil {
			t, err := c.stt.Transcribe(ctx, sub.Audio, sub.MimeType)
			if err != nil {
				c.log.Warn("transcription failed; scoring attempt as a miss", "error", err)
			} else {
				transcript = t
			}
		}
		score, correct = c.eval.ScoreText(transcript, c.question.FreeText.CorrectAnswer, c.speechDelay())
		return correct, transcript, score
	case types.AnswerKindChoiceIndex:
		idx := submittedIndex(sub)
		correct = c.eval.ScoreIndex(idx, c.question.Choice.CorrectIndex)
		return correct, fmt.Sprintf("%d", idx), boolScore(correct)
	case types.AnswerKindTapImage:
		idx := submittedIndex(sub)
		correct = c.eval.ScoreIndex(idx, c.question.TapImage.CorrectIndex)
		return correct, fmt.Sprintf("%d", idx), boolScore(correct)
	case types.AnswerKindScene:
		idx := submittedIndex(sub)
		correct = c.eval.ScoreIndex(idx, c.question.Scene.CorrectIndex)
		return correct, fmt.Sprintf("%d", idx), boolScore(correct)
	}
	return false, "", 0
}

func (c *QuestionController) finalMissLine() string {
	if c.question.Kind == types.AnswerKindFreeText && c.question.FreeText.CorrectAnswer != "" {
		return fmt.Sprintf("Good try! The answer was %s.", c.question.FreeText.CorrectAnswer)
	}
	return pickLine(c.rng, missLines)
}

func (c *QuestionController) runAfterMedia(ctx context.Context) error {
	after := c.question.After
	if after.Empty() {
		return nil
	}
	c.setPhase(types.PhaseAfterAnswerMedia)

	imageURL := c.assets.Resolve(after.Image)
	videoURL := c.assets.Resolve(after.Video)
	if c.publish != nil {
		c.publish(realtime.SSEMessage{
			Channel: realtime.SessionChannel(c.child.ID),
			Event:   realtime.SSEEventAfterMedia,
			Data: map[string]any{
				"question_id": c.question.ID,
				"image":       imageURL,
				"line":        after.Line,
				"video":       videoURL,
			},
		})
	}

	c.speak(ctx, NarrationAfterLine, after.Line)

	switch {
	case videoURL != "":
		c.setAwaitingVideo(true)
		timer := time.NewTimer(c.cfg.VideoTimeout)
		defer timer.Stop()
		select {
		case sig := <-c.media:
			if sig == MediaVideoError {
				c.log.Warn("after-answer video failed on device", "question_id", c.question.ID)
				if c.publish != nil {
					c.publish(realtime.SSEMessage{
						Channel: realtime.SessionChannel(c.child.ID),
						Event:   realtime.SSEEventMediaError,
						Data: map[string]any{
							"question_id": c.question.ID,
							"reason":      "video_playback_failed",
						},
					})
				}
			}
		case <-timer.C:
			c.setAwaitingVideo(false)
			c.log.Warn("after-answer video never reported completion", "question_id", c.question.ID)
		case <-ctx.Done():
			c.setAwaitingVideo(false)
			return ctx.Err()
		}
	case imageURL != "":
		c.setAwaitingDwell(true)
		timer := time.NewTimer(c.cfg.ImageDwell)
		defer timer.Stop()
		select {
		case <-c.advance:
		case <-timer.C:
			c.setAwaitingDwell(false)
		case <-ctx.Done():
			c.setAwaitingDwell(false)
			return ctx.Err()
		}
	}
	return nil
}

func (c *QuestionController) publishFeedback(correct bool, attempt int, score float64) {
	if c.publish == nil {
		return
	}
	c.publish(realtime.SSEMessage{
		Channel: realtime.SessionChannel(c.child.ID),
		Event:   realtime.SSEEventFeedback,
		Data: map[string]any{
			"question_id": c.question.ID,
			"correct":     correct,
			"attempt":     attempt,
			"score":       score,
		},
	})
}

func (c *QuestionController) speak(ctx context.Context, kind NarrationKind, text string) {
	if text == "" || !c.narrationEnabled() {
		return
	}
	c.narrator.Speak(ctx, SpeakRequest{
		ChildID: c.child.ID,
		Kind:    kind,
		Text:    text,
		VoiceID: c.child.VoiceID,
		Rate:    c.speechRate(),
	})
}

func (c *QuestionController) narrationEnabled() bool {
	return c.child == nil || c.child.NarrationEnabled
}

func (c *QuestionController) speechDelay() bool {
	return c.child != nil && c.child.SpeechDelayMode
}

func (c *QuestionController) speechRate() float64 {
	if c.child == nil || c.child.SpeechRate <= 0 {
		return 1.0
	}
	return c.child.SpeechRate
}

func (c *QuestionController) setPhase(p types.Phase) {
	if c.onPhase != nil {
		c.onPhase(p)
	}
}

func (c *QuestionController) setAccepting(v bool) {
	c.mu.Lock()
	c.acceptingAnswer = v
	c.mu.Unlock()
}

func (c *QuestionController) setAwaitingVideo(v bool) {
	c.mu.Lock()
	c.awaitingVideo = v
	c.mu.Unlock()
}

func (c *QuestionController) setAwaitingDwell(v bool) {
	c.mu.Lock()
	c.awaitingDwell = v
	c.mu.Unlock()
}

func submittedIndex(sub AnswerSubmission) int {
	if sub.Index == nil {
		return -1
	}
	return *sub.Index
}

func boolScore(correct bool) float64 {
	if correct {
		return 1
	}
	return 0
}

func pickLine(rng *rand.Rand, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	if rng == nil {
		return lines[0]
	}
	return lines[rng.Intn(len(lines))]
}
