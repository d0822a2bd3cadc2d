package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/sproutspeech/adventure-backend/internal/http/handlers"
	httpMW "github.com/sproutspeech/adventure-backend/internal/http/middleware"
	"github.com/sproutspeech/adventure-backend/internal/observability"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	HealthHandler    *httpH.HealthHandler
	ChildHandler     *httpH.ChildHandler
	AdventureHandler *httpH.AdventureHandler
	SessionHandler   *httpH.SessionHandler
	RealtimeHandler  *httpH.RealtimeHandler
	NarrationHandler *httpH.NarrationHandler
	ProgressHandler  *httpH.ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("adventure-backend"))
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/metrics", cfg.HealthHandler.Metrics)
	}

	api := r.Group("/api")
	{
		// Children
		if cfg.ChildHandler != nil {
			api.POST("/children", cfg.ChildHandler.CreateChild)
			api.GET("/children/:id", cfg.ChildHandler.GetChild)
			api.PATCH("/children/:id/settings", cfg.ChildHandler.UpdateSettings)
		}

		// Adventures (lesson catalog)
		if cfg.AdventureHandler != nil {
			api.GET("/adventures", cfg.AdventureHandler.ListAdventures)
			api.GET("/adventures/:id", cfg.AdventureHandler.GetAdventure)
		}

		// Session lifecycle
		if cfg.SessionHandler != nil {
			api.GET("/session", cfg.SessionHandler.GetState)
			api.POST("/session/start", cfg.SessionHandler.Start)
			api.POST("/session/select", cfg.SessionHandler.Select)
			api.POST("/session/answer", cfg.SessionHandler.Answer)
			api.POST("/session/advance", cfg.SessionHandler.Advance)
			api.POST("/session/skip", cfg.SessionHandler.Skip)
			api.POST("/session/ack", cfg.SessionHandler.AckNarration)
			api.POST("/session/media", cfg.SessionHandler.Media)
			api.POST("/session/reset", cfg.SessionHandler.Reset)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/session/events", cfg.RealtimeHandler.SessionEvents)
		}

		// Narration audio
		if cfg.NarrationHandler != nil {
			api.GET("/narration/:id/audio", cfg.NarrationHandler.GetAudio)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			api.GET("/children/:id/progress", cfg.ProgressHandler.ListChildProgress)
			api.GET("/sessions/:id", cfg.ProgressHandler.GetSessionRecord)
		}
	}

	return r
}
