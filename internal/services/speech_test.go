package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sproutspeech/adventure-backend/internal/clients/redis"
)

type countingTTS struct {
	mu    sync.Mutex
	calls int
	audio []byte
	err   error
}

func (f *countingTTS) Synthesize(context.Context, string, string, float64) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.audio, f.err
}

type memAudioCache struct {
	mu    sync.Mutex
	clips map[string][]byte
}

func newMemAudioCache() *memAudioCache {
	return &memAudioCache{clips: make(map[string][]byte)}
}

func (m *memAudioCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clip, ok := m.clips[key]
	return clip, ok, nil
}

func (m *memAudioCache) Put(_ context.Context, key string, audio []byte) error {
	m.mu.Lock()
	m.clips[key] = audio
	m.mu.Unlock()
	return nil
}

func TestSynthesizerCachesClips(t *testing.T) {
	tts := &countingTTS{audio: []byte("mp3-bytes")}
	cache := newMemAudioCache()
	s, err := NewSynthesizer(testLogger(t), tts, cache)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}

	ctx := context.Background()
	first, err := s.Synthesize(ctx, "hello there", "en-US-Neural2-H", 1.0)
	if err != nil {
		t.Fatalf("first synthesize: %v", err)
	}
	second, err := s.Synthesize(ctx, "hello there", "en-US-Neural2-H", 1.0)
	if err != nil {
		t.Fatalf("second synthesize: %v", err)
	}

	if first != second {
		t.Fatalf("clip ids differ for identical input: %q vs %q", first, second)
	}
	if first != redis.CacheKey("hello there", "en-US-Neural2-H", 1.0) {
		t.Fatalf("clip id is not the deterministic cache key: %q", first)
	}
	if tts.calls != 1 {
		t.Fatalf("provider calls: want=1 got=%d", tts.calls)
	}

	clip, ok, err := s.GetClip(ctx, first)
	if err != nil || !ok {
		t.Fatalf("GetClip: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(clip, tts.audio) {
		t.Fatalf("GetClip returned different bytes")
	}
}

func TestSynthesizerDifferentVoicesDifferentClips(t *testing.T) {
	tts := &countingTTS{audio: []byte("mp3-bytes")}
	s, err := NewSynthesizer(testLogger(t), tts, newMemAudioCache())
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}

	ctx := context.Background()
	a, _ := s.Synthesize(ctx, "hello", "voice-a", 1.0)
	b, _ := s.Synthesize(ctx, "hello", "voice-b", 1.0)
	if a == b {
		t.Fatalf("different voices mapped to the same clip id")
	}
}

func TestSynthesizerProviderFailure(t *testing.T) {
	tts := &countingTTS{err: errors.New("quota exhausted")}
	s, err := NewSynthesizer(testLogger(t), tts, newMemAudioCache())
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}

	if _, err := s.Synthesize(context.Background(), "hello", "v", 1.0); err == nil {
		t.Fatalf("provider failure not surfaced")
	}
}
