package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

// STTClient transcribes short clips of child speech. Answers are a few words
// at most, so the synchronous Recognize path is enough.
type STTClient interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Close() error
}

type sttClient struct {
	log    *logger.Logger
	client *speech.Client

	languageCode string
	maxRetries   int
}

func NewSTTClient(log *logger.Logger, languageCode string) (STTClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(languageCode) == "" {
		languageCode = "en-US"
	}

	c, err := speech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	return &sttClient{
		log:          log.With("client", "STTClient"),
		client:       c,
		languageCode: languageCode,
		maxRetries:   3,
	}, nil
}

func (c *sttClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *sttClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if len(audio) == 0 {
		return "", nil
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               c.languageCode,
			Encoding:                   inferEncoding(mimeType),
			EnableAutomaticPunctuation: false,
			// Short-form children's speech; the default model handles it.
			Model: "latest_short",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := c.retry(ctx, func() (*speechpb.RecognizeResponse, error) {
		return c.client.Recognize(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	var full strings.Builder
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 || alts[0] == nil {
			continue
		}
		t := strings.TrimSpace(alts[0].GetTranscript())
		if t == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(t)
	}
	return strings.TrimSpace(full.String()), nil
}

func inferEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func (c *sttClient) retry(ctx context.Context, fn func() (*speechpb.RecognizeResponse, error)) (*speechpb.RecognizeResponse, error) {
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

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
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
