package app

import (
	"context"

	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
	"github.com/sproutspeech/adventure-backend/internal/services"
)

type Services struct {
	Content   services.ContentService
	Evaluator *services.Evaluator
	Assets    services.AssetResolver
	Synth     services.Synthesizer
	Recorder  services.ProgressRecorder
	Sessions  *services.SessionManager
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients, hub *realtime.SSEHub) (Services, error) {
	log.Info("wiring services")

	// Events go through the bus so every replica's SSE streams see them; the
	// forwarder delivers them back into the local hub.
	publish := func(msg realtime.SSEMessage) {
		if clients.Bus != nil {
			if err := clients.Bus.Publish(context.Background(), msg); err != nil {
				log.Warn("session bus publish failed; delivering locally", "error", err)
				hub.Broadcast(msg)
			}
			return
		}
		hub.Broadcast(msg)
	}

	synth, err := services.NewSynthesizer(log, clients.TTS, clients.AudioCache)
	if err != nil {
		return Services{}, err
	}

	// Each engine gets its own narrator so one child's playback slot never
	// cuts off another child's clip.
	newNarrator := func() services.Narrator {
		return services.NewNarrator(log, synth, publish, cfg.WordsPerMinute, cfg.AckGrace)
	}
	content := services.NewContentService(log, reposet.Adventure, reposet.Question)
	evaluator := services.NewEvaluator()
	assets := services.NewAssetResolver(log, clients.Bucket)
	recorder := services.NewProgressRecorder(log, reposet.SessionRecord, reposet.QuestionAttempt, reposet.LessonProgress)

	sessions := services.NewSessionManager(log, services.EngineDeps{
		Log:         log,
		Content:     content,
		Children:    reposet.Child,
		NewNarrator: newNarrator,
		Evaluator:   evaluator,
		STT:         clients.STT,
		Assets:      assets,
		Recorder:    recorder,
		Publish:     publish,
		Config: services.EngineConfig{
			MaxQuestions:     cfg.MaxQuestions,
			SkipIntroduction: cfg.SkipIntroductions,
			ConfigErrorDwell: cfg.ConfigErrorDwell,
			CelebrationDwell: cfg.CelebrationDwell,
			Interaction: services.InteractionConfig{
				FreeTextAttempts: cfg.FreeTextAttempts,
				ImageDwell:       cfg.ImageDwell,
				VideoTimeout:     cfg.VideoTimeout,
			},
		},
	})

	return Services{
		Content:   content,
		Evaluator: evaluator,
		Assets:    assets,
		Synth:     synth,
		Recorder:  recorder,
		Sessions:  sessions,
	}, nil
}
