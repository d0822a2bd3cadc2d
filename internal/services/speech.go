package services

import (
	"context"
	"fmt"

	"github.com/sproutspeech/adventure-backend/internal/clients/gcp"
	"github.com/sproutspeech/adventure-backend/internal/clients/redis"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// Synthesizer produces a playable narration clip for a line of text and
// returns the clip id the device fetches it by.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, rate float64) (clipID string, err error)
	GetClip(ctx context.Context, clipID string) ([]byte, bool, error)
}

// Transcriber turns captured answer audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type synthesizer struct {
	log   *logger.Logger
	tts   gcp.TTSClient
	cache redis.AudioCache
}

func NewSynthesizer(baseLog *logger.Logger, tts gcp.TTSClient, cache redis.AudioCache) (Synthesizer, error) {
	if tts == nil {
		return nil, fmt.Errorf("tts client required")
	}
	if cache == nil {
		return nil, fmt.Errorf("audio cache required")
	}
	return &synthesizer{
		log:   baseLog.With("service", "Synthesizer"),
		tts:   tts,
		cache: cache,
	}, nil
}

func (s *synthesizer) Synthesize(ctx context.Context, text, voiceID string, rate float64) (string, error) {
	key := redis.CacheKey(text, voiceID, rate)

	if _, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return key, nil
	} else if err != nil {
		s.log.Warn("audio cache read failed", "error", err)
	}

	audio, err := s.tts.Synthesize(ctx, text, voiceID, rate)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("synthesize: provider returned no audio")
	}
	if err := s.cache.Put(ctx, key, audio); err != nil {
		// Cache loss is not a playback failure; the clip will be resynthesized.
		s.log.Warn("audio cache write failed", "error", err)
	}
	return key, nil
}

func (s *synthesizer) GetClip(ctx context.Context, clipID string) ([]byte, bool, error) {
	return s.cache.Get(ctx, clipID)
}
