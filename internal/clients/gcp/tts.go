package gcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// TTSClient synthesizes narration audio. A nil audio result with a nil error
// never happens: empty input short-circuits to an empty clip.
type TTSClient interface {
	Synthesize(ctx context.Context, text, voiceID string, speakingRate float64) ([]byte, error)
}

type ttsClient struct {
	log *logger.Logger
	svc *texttospeech.Service

	languageCode string
	maxRetries   int
}

func NewTTSClient(log *logger.Logger, languageCode string) (TTSClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(languageCode) == "" {
		languageCode = "en-US"
	}

	svc, err := texttospeech.NewService(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech service: %w", err)
	}

	return &ttsClient{
		log:          log.With("client", "TTSClient"),
		svc:          svc,
		languageCode: languageCode,
		maxRetries:   3,
	}, nil
}

func (c *ttsClient) Synthesize(ctx context.Context, text, voiceID string, speakingRate float64) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []byte{}, nil
	}
	if speakingRate <= 0 {
		speakingRate = 1.0
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         voiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  speakingRate,
		},
	}

	resp, err := c.retry(ctx, func() (*texttospeech.SynthesizeSpeechResponse, error) {
		return c.svc.Text.Synthesize(req).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("texttospeech synthesize: %w", err)
	}
	if resp == nil || resp.AudioContent == "" {
		return nil, fmt.Errorf("texttospeech synthesize: empty audio")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("texttospeech decode audio: %w", err)
	}
	return audio, nil
}

func (c *ttsClient) retry(ctx context.Context, fn func() (*texttospeech.SynthesizeSpeechResponse, error)) (*texttospeech.SynthesizeSpeechResponse, error) {
	backoff := 500 * time.Millisecond
	var last error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		if !retryableHTTP(err) {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
	return nil, last
}

func retryableHTTP(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
