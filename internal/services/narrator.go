package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

type PlaybackOutcome string

const (
	PlaybackCompleted PlaybackOutcome = "completed"
	PlaybackFailed    PlaybackOutcome = "failed"
	PlaybackSkipped   PlaybackOutcome = "skipped"
)

// NarrationKind labels what a clip is for in the events sent to the device.
type NarrationKind string

const (
	NarrationPrompt       NarrationKind = "prompt"
	NarrationFeedback     NarrationKind = "feedback"
	NarrationAfterLine    NarrationKind = "after_line"
	NarrationIntroduction NarrationKind = "introduction"
	NarrationScene        NarrationKind = "scene"
)

type SpeakRequest struct {
	ChildID uuid.UUID
	Kind    NarrationKind
	Text    string
	VoiceID string
	Rate    float64
}

// Narrator owns the single active-audio-clip slot for a session. Speak blocks
// until the clip finishes, fails, or is superseded; callers never manage the
// stop-before-play discipline themselves.
type Narrator interface {
	Speak(ctx context.Context, req SpeakRequest) PlaybackOutcome
	Ack(playbackID uuid.UUID)
	Stop()
}

type utterance struct {
	id   uuid.UUID
	done chan PlaybackOutcome
	once sync.Once
}

func (u *utterance) finish(outcome PlaybackOutcome) {
	u.once.Do(func() {
		u.done <- outcome
	})
}

type narrator struct {
	log     *logger.Logger
	synth   Synthesizer
	publish func(realtime.SSEMessage)

	wordsPerMinute int
	minDuration    time.Duration
	ackGrace       time.Duration

	mu     sync.Mutex
	active *utterance
}

func NewNarrator(baseLog *logger.Logger, synth Synthesizer, publish func(realtime.SSEMessage), wordsPerMinute int, ackGrace time.Duration) Narrator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 140
	}
	if ackGrace <= 0 {
		ackGrace = 2 * time.Second
	}
	return &narrator{
		log:            baseLog.With("service", "Narrator"),
		synth:          synth,
		publish:        publish,
		wordsPerMinute: wordsPerMinute,
		minDuration:    time.Second,
		ackGrace:       ackGrace,
	}
}

func (n *narrator) Speak(ctx context.Context, req SpeakRequest) PlaybackOutcome {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return PlaybackCompleted
	}
	rate := req.Rate
	if rate <= 0 {
		rate = 1.0
	}

	// Stop-before-play: whatever is active is force-stopped before the new
	// clip can start.
	n.Stop()

	clipID, err := n.synth.Synthesize(ctx, text, req.VoiceID, rate)
	if err != nil {
		n.log.Warn("narration synthesis failed; continuing without audio", "kind", req.Kind, "error", err)
		return PlaybackFailed
	}

	u := &utterance{
		id:   uuid.New(),
		done: make(chan PlaybackOutcome, 1),
	}

	n.mu.Lock()
	n.active = u
	n.mu.Unlock()

	if n.publish != nil {
		n.publish(realtime.SSEMessage{
			Channel: realtime.SessionChannel(req.ChildID),
			Event:   realtime.SSEEventNarrationStarted,
			Data: map[string]any{
				"playback_id": u.id,
				"clip_id":     clipID,
				"kind":        req.Kind,
				"text":        text,
			},
		})
	}

	timer := time.NewTimer(n.estimateDuration(text, rate) + n.ackGrace)
	defer timer.Stop()

	var outcome PlaybackOutcome
	select {
	case outcome = <-u.done:
	case <-timer.C:
		// Device never acked; assume the clip ran its course.
		outcome = PlaybackCompleted
	case <-ctx.Done():
		outcome = PlaybackSkipped
	}

	n.mu.Lock()
	if n.active == u {
		n.active = nil
	}
	n.mu.Unlock()

	if n.publish != nil && outcome != PlaybackCompleted {
		n.publish(realtime.SSEMessage{
			Channel: realtime.SessionChannel(req.ChildID),
			Event:   realtime.SSEEventNarrationStopped,
			Data:    map[string]any{"playback_id": u.id, "outcome": outcome},
		})
	}
	return outcome
}

// Ack marks a clip as played to the end by the device. Acks for anything but
// the active utterance are stale and ignored.
func (n *narrator) Ack(playbackID uuid.UUID) {
	n.mu.Lock()
	u := n.active
	n.mu.Unlock()

	if u == nil || u.id != playbackID {
		return
	}
	u.finish(PlaybackCompleted)
}

func (n *narrator) Stop() {
	n.mu.Lock()
	u := n.active
	n.active = nil
	n.mu.Unlock()

	if u != nil {
		u.finish(PlaybackSkipped)
	}
}

func (n *narrator) estimateDuration(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return n.minDuration
	}
	perMinute := float64(n.wordsPerMinute) * rate
	d := time.Duration(float64(words) / perMinute * float64(time.Minute))
	if d < n.minDuration {
		d = n.minDuration
	}
	return d
}
