package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sproutspeech/adventure-backend/internal/clients/gcp"
	redisclients "github.com/sproutspeech/adventure-backend/internal/clients/redis"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type Clients struct {
	Redis      *goredis.Client
	Bus        redisclients.SessionBus
	AudioCache redisclients.AudioCache
	TTS        gcp.TTSClient
	STT        gcp.STTClient
	Bucket     gcp.BucketClient
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("wiring clients")
	var clients Clients

	rdb, err := redisclients.NewClient()
	if err != nil {
		return clients, fmt.Errorf("init redis: %w", err)
	}
	clients.Redis = rdb

	bus, err := redisclients.NewSessionBus(log, rdb)
	if err != nil {
		return clients, fmt.Errorf("init session bus: %w", err)
	}
	clients.Bus = bus

	cache, err := redisclients.NewAudioCache(log, rdb, cfg.AudioCacheTTL)
	if err != nil {
		return clients, fmt.Errorf("init audio cache: %w", err)
	}
	clients.AudioCache = cache

	tts, err := gcp.NewTTSClient(log, cfg.LanguageCode)
	if err != nil {
		return clients, fmt.Errorf("init tts: %w", err)
	}
	clients.TTS = tts

	stt, err := gcp.NewSTTClient(log, cfg.LanguageCode)
	if err != nil {
		return clients, fmt.Errorf("init stt: %w", err)
	}
	clients.STT = stt

	// Assets degrade to raw identifiers without a bucket, so this one is
	// allowed to fail.
	bucket, err := gcp.NewBucketClient(log)
	if err != nil {
		log.Warn("assets bucket unavailable; serving raw asset refs", "error", err)
	} else {
		clients.Bucket = bucket
	}

	return clients, nil
}
