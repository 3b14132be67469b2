package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	SnapshotPath  string
	GeminiAPIKey  string
	GeminiBaseURL string
	ScriptModel   string
	ImageModel    string
	SpeechModel   string

	// Pipeline tuning. The defaults mirror product behavior; they are knobs,
	// not contracts.
	BatchSize         int
	MaxRetries        int
	RetryInitialDelay time.Duration
	SaveCooldown      time.Duration

	// Playback contract shared by the player and the exporter.
	PlaybackSpeed float64
	SafetyBuffer  time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Origins allowed to call the API from a browser. Empty disables CORS.
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The API credential is not validated here; the
// generation client rejects an empty key at construction time.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		SnapshotPath:      getEnv("SNAPSHOT_PATH", "./data/reelforge.db"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ScriptModel:       getEnv("SCRIPT_MODEL", "gemini-2.0-flash"),
		ImageModel:        getEnv("IMAGE_MODEL", "gemini-2.0-flash"),
		SpeechModel:       getEnv("SPEECH_MODEL", "gemini-2.0-flash"),
		BatchSize:         getEnvInt("PIPELINE_BATCH_SIZE", 3),
		MaxRetries:        getEnvInt("PIPELINE_MAX_RETRIES", 2),
		RetryInitialDelay: time.Millisecond * time.Duration(getEnvInt("PIPELINE_RETRY_DELAY_MS", 1500)),
		SaveCooldown:      time.Millisecond * time.Duration(getEnvInt("SAVE_COOLDOWN_MS", 500)),
		PlaybackSpeed:     getEnvFloat("PLAYBACK_SPEED", 1.5),
		SafetyBuffer:      time.Millisecond * time.Duration(getEnvInt("SCENE_SAFETY_BUFFER_MS", 200)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("PIPELINE_BATCH_SIZE must be at least 1")
	}

	if cfg.PlaybackSpeed <= 0 {
		return nil, fmt.Errorf("PLAYBACK_SPEED must be positive")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
