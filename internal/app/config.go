package app

import (
	"time"

	"github.com/sproutspeech/adventure-backend/internal/platform/envutil"
	"github.com/sproutspeech/adventure-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	// Session pacing
	MaxQuestions      int
	FreeTextAttempts  int
	SkipIntroductions bool
	ImageDwell        time.Duration
	VideoTimeout      time.Duration
	ConfigErrorDwell  time.Duration
	CelebrationDwell  time.Duration

	// Child profile defaults
	SpeechDelayDefault bool

	// Narration
	WordsPerMinute int
	AckGrace       time.Duration
	AudioCacheTTL  time.Duration
	LanguageCode   string

	// Content seeding
	ContentDir string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.Str("PORT", "8080"),
		Environment: envutil.Str("ENVIRONMENT", "development"),
		Version:     envutil.Str("SERVICE_VERSION", "dev"),

		MaxQuestions:      envutil.Int("SESSION_MAX_QUESTIONS", 6),
		FreeTextAttempts:  envutil.Int("FREE_TEXT_ATTEMPTS", 2),
		SkipIntroductions: envutil.Bool("SESSION_SKIP_INTRODUCTIONS", false),
		ImageDwell:        time.Duration(envutil.Int("AFTER_IMAGE_DWELL_SECONDS", 10)) * time.Second,
		VideoTimeout:      time.Duration(envutil.Int("AFTER_VIDEO_TIMEOUT_SECONDS", 60)) * time.Second,
		ConfigErrorDwell:  time.Duration(envutil.Int("CONFIG_ERROR_DWELL_SECONDS", 3)) * time.Second,
		CelebrationDwell:  time.Duration(envutil.Int("CELEBRATION_DWELL_SECONDS", 2)) * time.Second,

		SpeechDelayDefault: envutil.Bool("SPEECH_DELAY_DEFAULT", false),

		WordsPerMinute: envutil.Int("NARRATION_WORDS_PER_MINUTE", 140),
		AckGrace:       time.Duration(envutil.Int("NARRATION_ACK_GRACE_SECONDS", 2)) * time.Second,
		AudioCacheTTL:  time.Duration(envutil.Int("AUDIO_CACHE_TTL_MINUTES", 1440)) * time.Minute,
		LanguageCode:   envutil.Str("NARRATION_LANGUAGE", "en-US"),

		ContentDir: envutil.Str("CONTENT_PACK_DIR", ""),
	}
	log.Info("config loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"max_questions", cfg.MaxQuestions,
		"content_dir", cfg.ContentDir,
	)
	return cfg
}
