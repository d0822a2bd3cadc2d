package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// AudioCache stores synthesized narration clips so the same line is only
// synthesized once per voice and rate. Playback ids map to cache keys so the
// HTTP layer can serve the bytes back to the device.
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, audio []byte) error
}

type audioCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewAudioCache(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) (AudioCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &audioCache{
		log: log.With("service", "RedisAudioCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

// CacheKey is deterministic across replicas: the same line in the same voice
// at the same rate always maps to the same clip.
func CacheKey(text, voiceID string, rate float64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", voiceID, text, rate)))
	return "narration:" + hex.EncodeToString(h[:16])
}

func (c *audioCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *audioCache) Put(ctx context.Context, key string, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	return c.rdb.Set(ctx, key, audio, c.ttl).Err()
}
