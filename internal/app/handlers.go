package app

import (
	"github.com/sproutspeech/adventure-backend/internal/http/handlers"
	"github.com/sproutspeech/adventure-backend/internal/observability"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Child     *handlers.ChildHandler
	Adventure *handlers.AdventureHandler
	Session   *handlers.SessionHandler
	Realtime  *handlers.RealtimeHandler
	Narration *handlers.NarrationHandler
	Progress  *handlers.ProgressHandler
}

func wireHandlers(log *logger.Logger, cfg Config, reposet Repos, svcs Services, hub *realtime.SSEHub, metrics *observability.Metrics) Handlers {
	log.Info("wiring handlers")
	return Handlers{
		Health:    handlers.NewHealthHandler(metrics),
		Child:     handlers.NewChildHandler(log, reposet.Child, cfg.SpeechDelayDefault),
		Adventure: handlers.NewAdventureHandler(log, svcs.Content),
		Session:   handlers.NewSessionHandler(log, svcs.Sessions, metrics),
		Realtime:  handlers.NewRealtimeHandler(log, hub),
		Narration: handlers.NewNarrationHandler(log, svcs.Synth, metrics),
		Progress:  handlers.NewProgressHandler(log, reposet.LessonProgress, reposet.SessionRecord, reposet.QuestionAttempt),
	}
}
