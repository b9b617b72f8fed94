package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice bot server
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Gemini API configuration
	GeminiAPIKey string  `envconfig:"GEMINI_API_KEY" required:"true"`
	ChatModel    string  `envconfig:"CHAT_MODEL" default:"gemini-2.0-flash"`
	TTSModel     string  `envconfig:"TTS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	MaxTokens    int     `envconfig:"MAX_TOKENS" default:"1000"`
	Temperature  float64 `envconfig:"TEMPERATURE" default:"0.7"`

	// Voice configuration
	DefaultVoice       string        `envconfig:"DEFAULT_VOICE" default:"Kore"`
	VoiceCacheCapacity int           `envconfig:"VOICE_CACHE_CAPACITY" default:"50"`
	CompletionTimeout  time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"30s"`
	SynthesisTimeout   time.Duration `envconfig:"SYNTHESIS_TIMEOUT" default:"30s"`

	// Chat activity log
	LogFile string `envconfig:"LOG_FILE" default:"chat_logs.csv"`

	// Observability configuration
	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// ClientConfig holds configuration for the terminal client
type ClientConfig struct {
	ServerURL string `envconfig:"WICARA_SERVER_URL" default:"ws://localhost:8080/ws"`

	// Voice output
	DefaultVoice string `envconfig:"DEFAULT_VOICE" default:"Kore"`
	FFPlayPath   string `envconfig:"FFPLAY_PATH" default:"ffplay"`

	// Speech capture (Google Cloud Speech streaming over a local mic)
	CaptureSampleRate int    `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"`
	CaptureLanguage   string `envconfig:"CAPTURE_LANGUAGE" default:"en-US"`
	FFmpegPath        string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`

	// Reconnect behavior: fixed backoff between attempts
	ReconnectBackoff    time.Duration `envconfig:"RECONNECT_BACKOFF" default:"2s"`
	ReconnectMaxRetries int           `envconfig:"RECONNECT_MAX_RETRIES" default:"5"`
}

// Load reads server configuration from environment variables. It first
// attempts to load from a .env file if one exists, then from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.VoiceCacheCapacity <= 0 {
		return nil, fmt.Errorf("VOICE_CACHE_CAPACITY must be positive, got %d", cfg.VoiceCacheCapacity)
	}

	return &cfg, nil
}

// LoadClient reads terminal-client configuration from environment
// variables, loading .env first when present.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	var cfg ClientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load client config: %w", err)
	}

	return &cfg, nil
}
