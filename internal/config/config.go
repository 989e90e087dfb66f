package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth; requests are open when empty.
	APIKey string

	// Upload limits
	MaxUploadBytes     int64
	MaxConcurrentFiles int

	// Heading correction
	LLMTimeout      time.Duration
	LLMDefaultModel string
	LLMRatePerSec   float64
	LLMBurst        int
	BreakerFailures int
	BreakerCooldown time.Duration

	// Chunk paths; 0 keeps full heading titles.
	HeadingTitleLimit int

	// PDF
	PDFFallbackPdftotext bool
}

// LoadEnvFile exports the variables of a dotenv file that are not already
// set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("CHUNKER_API_KEY"),

		MaxUploadBytes:     envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxConcurrentFiles: envInt("MAX_CONCURRENT_FILES", 4),

		LLMTimeout:      envDuration("LLM_TIMEOUT", 60*time.Second),
		LLMDefaultModel: envOr("LLM_DEFAULT_MODEL", "gpt-3.5-turbo"),
		LLMRatePerSec:   envFloat("LLM_RATE_PER_SEC", 2),
		LLMBurst:        envInt("LLM_BURST", 4),
		BreakerFailures: envInt("LLM_BREAKER_FAILURES", 5),
		BreakerCooldown: envDuration("LLM_BREAKER_COOLDOWN", 30*time.Second),

		HeadingTitleLimit: envInt("HEADING_TITLE_LIMIT", 0),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxConcurrentFiles <= 0 {
		cfg.MaxConcurrentFiles = 4
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	if cfg.LLMBurst <= 0 {
		cfg.LLMBurst = 4
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.LLMRatePerSec <= 0 {
		return fmt.Errorf("LLM_RATE_PER_SEC must be positive, got %v", c.LLMRatePerSec)
	}
	if c.LLMDefaultModel == "" {
		return fmt.Errorf("LLM_DEFAULT_MODEL must not be empty")
	}
	if c.HeadingTitleLimit < 0 {
		return fmt.Errorf("HEADING_TITLE_LIMIT must not be negative, got %d", c.HeadingTitleLimit)
	}
	return nil
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
