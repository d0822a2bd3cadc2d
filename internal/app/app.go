package app

import (
	"context"
	"fmt"
	"os"
	"time"

	appHttp "github.com/sproutspeech/adventure-backend/internal/http"
	"github.com/sproutspeech/adventure-backend/internal/db"
	"github.com/sproutspeech/adventure-backend/internal/observability"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
	"github.com/sproutspeech/adventure-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.PostgresService
	Hub      *realtime.SSEHub
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers
	Server   *appHttp.Server

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)
	log.Info("starting adventure backend", "environment", cfg.Environment, "version", cfg.Version)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "adventure-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, err
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	hub := realtime.NewSSEHub(log)
	metrics := observability.NewMetrics()

	clients, err := wireClients(log, cfg)
	if err != nil {
		return nil, err
	}

	reposet := wireRepos(pg.DB(), log)

	svcs, err := wireServices(log, cfg, reposet, clients, hub)
	if err != nil {
		return nil, err
	}

	if cfg.ContentDir != "" {
		if err := svcs.Content.SeedFromDir(context.Background(), cfg.ContentDir); err != nil {
			log.Warn("content seeding failed", "dir", cfg.ContentDir, "error", err)
		}
	}

	hdlrs := wireHandlers(log, cfg, reposet, svcs, hub, metrics)

	server := appHttp.NewServer(appHttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		HealthHandler:    hdlrs.Health,
		ChildHandler:     hdlrs.Child,
		AdventureHandler: hdlrs.Adventure,
		SessionHandler:   hdlrs.Session,
		RealtimeHandler:  hdlrs.Realtime,
		NarrationHandler: hdlrs.Narration,
		ProgressHandler:  hdlrs.Progress,
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           pg,
		Hub:          hub,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     svcs,
		Handlers:     hdlrs,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run blocks serving HTTP until ctx is cancelled. The bus forwarder runs for
// the same lifetime so events published by other replicas reach local SSE
// streams.
func (a *App) Run(ctx context.Context) error {
	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			return fmt.Errorf("start session bus forwarder: %w", err)
		}
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close() {
	a.Log.Info("shutting down")

	if a.Services.Sessions != nil {
		a.Services.Sessions.Shutdown()
	}
	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.Close(); err != nil {
			a.Log.Warn("close session bus", "error", err)
		}
	}
	if a.Clients.Redis != nil {
		if err := a.Clients.Redis.Close(); err != nil {
			a.Log.Warn("close redis", "error", err)
		}
	}
	if a.Clients.STT != nil {
		if err := a.Clients.STT.Close(); err != nil {
			a.Log.Warn("close stt client", "error", err)
		}
	}
	if a.Clients.Bucket != nil {
		if err := a.Clients.Bucket.Close(); err != nil {
			a.Log.Warn("close bucket client", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}

	a.Log.Sync()
}
