package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted in API_PROVIDER.
const (
	ProviderClaude   = "CLAUDE"
	ProviderOpenAI   = "OPENAI"
	ProviderDeepSeek = "DEEPSEEK"
	ProviderGemini   = "GEMINI"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth for the HTTP service
	APIKey string

	// Oracle provider
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	DeepSeekAPIKey  string
	DeepSeekModel   string
	DeepSeekBaseURL string
	GeminiAPIKey    string
	GeminiModel     string
	Temperature     float64
	RateLimit       float64 // requests per second, 0 disables
	MaxConcurrent   int

	// Retry policy
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryJitter      float64

	// Completion budget
	MaxTopicCalls         int
	MaxSubtopicCalls      int
	MaxDetailCalls        int
	MinTopics             int
	MinSubtopicsPerTopic  int
	MinDetailsPerSubtopic int
	WordCap               int

	// Extraction
	TopicFrequencyThreshold float64
	CacheSize               int

	// Grounding
	VerifyMinTopics int
	VerifyMinRatio  float64
	VerifyChunkSize int

	// Decorative labels
	LabelsEnabled  bool
	LabelCachePath string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// CLI output
	OutputDir string

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		APIKey: os.Getenv("API_KEY"),

		Provider:        strings.ToUpper(envOr("API_PROVIDER", ProviderClaude)),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini-2024-07-18"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:   envOr("DEEPSEEK_MODEL", "deepseek-chat"),
		DeepSeekBaseURL: envOr("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		Temperature:     envFloat("LLM_TEMPERATURE", 0.7),
		RateLimit:       envFloat("LLM_RATE_LIMIT", 0),
		MaxConcurrent:   envInt("LLM_MAX_CONCURRENT", 50),

		RetryMaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   envDuration("RETRY_BASE_DELAY", 1*time.Second),
		RetryMaxDelay:    envDuration("RETRY_MAX_DELAY", 10*time.Second),
		RetryJitter:      envFloat("RETRY_JITTER", 1.0),

		MaxTopicCalls:         envInt("MAX_TOPIC_CALLS", 20),
		MaxSubtopicCalls:      envInt("MAX_SUBTOPIC_CALLS", 30),
		MaxDetailCalls:        envInt("MAX_DETAIL_CALLS", 40),
		MinTopics:             envInt("MIN_TOPICS", 4),
		MinSubtopicsPerTopic:  envInt("MIN_SUBTOPICS_PER_TOPIC", 2),
		MinDetailsPerSubtopic: envInt("MIN_DETAILS_PER_SUBTOPIC", 3),
		WordCap:               envInt("WORD_CAP", 8000),

		TopicFrequencyThreshold: envFloat("TOPIC_FREQUENCY_THRESHOLD", 1.5),
		CacheSize:               envInt("EXTRACT_CACHE_SIZE", 1024),

		VerifyMinTopics: envInt("VERIFY_MIN_TOPICS", 3),
		VerifyMinRatio:  envFloat("VERIFY_MIN_RATIO", 0.4),
		VerifyChunkSize: envInt("VERIFY_CHUNK_SIZE", 8000),

		LabelsEnabled:  envBool("LABELS_ENABLED", true),
		LabelCachePath: envOr("LABEL_CACHE_PATH", "emoji_cache.json"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 20),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		OutputDir: envOr("OUTPUT_DIR", "."),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 50
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 1 * time.Second
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = 10 * cfg.RetryBaseDelay
	}
	if cfg.RetryJitter < 0 || cfg.RetryJitter > 1 {
		cfg.RetryJitter = 1.0
	}
	if cfg.MinTopics <= 0 {
		cfg.MinTopics = 4
	}
	if cfg.WordCap <= 0 {
		cfg.WordCap = 8000
	}
	if cfg.TopicFrequencyThreshold <= 0 {
		cfg.TopicFrequencyThreshold = 1.5
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.VerifyMinRatio < 0 || cfg.VerifyMinRatio > 1 {
		cfg.VerifyMinRatio = 0.4
	}
	if cfg.VerifyChunkSize <= 0 {
		cfg.VerifyChunkSize = 8000
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks that the selected provider is known and has credentials.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderClaude:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderDeepSeek:
		if c.DeepSeekAPIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown API_PROVIDER %q", c.Provider)
	}
	return nil
}

// ValidateServer additionally requires the bearer token for the HTTP service.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
