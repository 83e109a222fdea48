package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kitbuilder587/imagebot/internal/imagesearch"
)

var (
	ErrMissingToken         = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidThreshold     = errors.New("BING_QUERY_THRESHOLD must be non-negative")
	ErrInvalidTimeout       = errors.New("BING_TIMEOUT_SEC must be positive")
	ErrInvalidSafeSearch    = errors.New("BING_SAFE_SEARCH must be one of Off, Moderate, Strict")
	ErrInvalidRate          = errors.New("BING_REQUESTS_PER_SECOND must be non-negative")
	ErrInvalidConcurrency   = errors.New("BING_RESOLVE_CONCURRENCY must be at least 1")
	ErrInvalidBatchSize     = errors.New("BATCH_SIZE must be between 1 and 50")
	ErrInvalidSessionTTLSec = errors.New("SESSION_TTL_SEC must be positive")
)

const MaxBatchSize = 50

type Config struct {
	Bing     BingConfig
	Telegram TelegramConfig
	Log      LogConfig
	Session  SessionConfig
	Metrics  MetricsConfig
}

type BingConfig struct {
	APIKey             string
	BaseURL            string
	Timeout            time.Duration
	QueryThreshold     int
	SafeSearch         string
	RequestsPerSecond  float64
	ResolveConcurrency int
}

type TelegramConfig struct {
	Token     string
	Debug     bool
	BatchSize int
}

type LogConfig struct {
	Level string
}

type SessionConfig struct {
	TTL time.Duration
}

type MetricsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	cfg := &Config{
		Bing: BingConfig{
			APIKey:             os.Getenv("MICROSOFT_BING_SEARCH_KEY"),
			BaseURL:            getEnvOrDefault("BING_SEARCH_URL", "https://api.cognitive.microsoft.com/bing/v5.0/images/search"),
			Timeout:            time.Duration(getEnvIntOrDefault("BING_TIMEOUT_SEC", 30)) * time.Second,
			QueryThreshold:     getEnvIntOrDefault("BING_QUERY_THRESHOLD", 1000),
			SafeSearch:         os.Getenv("BING_SAFE_SEARCH"),
			RequestsPerSecond:  getEnvFloatOrDefault("BING_REQUESTS_PER_SECOND", 0),
			ResolveConcurrency: getEnvIntOrDefault("BING_RESOLVE_CONCURRENCY", 1),
		},
		Telegram: TelegramConfig{
			Token:     os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug:     getEnvBoolOrDefault("TELEGRAM_DEBUG", false),
			BatchSize: getEnvIntOrDefault("BATCH_SIZE", 5),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			TTL: time.Duration(getEnvIntOrDefault("SESSION_TTL_SEC", 3600)) * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет только то, что нужно самому клиенту.
// Отсутствие ключа - не ошибка, см. Warnings.
func (c *Config) Validate() error {
	if c.Bing.QueryThreshold < 0 {
		return ErrInvalidThreshold
	}
	// общий http.Client без таймаута повесит сессию чата на зависшем провайдере
	if c.Bing.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if _, err := imagesearch.ParseSafeSearch(c.Bing.SafeSearch); err != nil {
		return ErrInvalidSafeSearch
	}
	if c.Bing.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.Bing.ResolveConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.Telegram.BatchSize < 1 || c.Telegram.BatchSize > MaxBatchSize {
		return ErrInvalidBatchSize
	}
	if c.Session.TTL <= 0 {
		return ErrInvalidSessionTTLSec
	}
	return nil
}

// ValidateBot is the extra check for running the Telegram host.
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

func (c *Config) Warnings() []imagesearch.Warning {
	var warnings []imagesearch.Warning
	if c.Bing.APIKey == "" {
		warnings = append(warnings, imagesearch.Warning{
			Code:    imagesearch.WarnMissingAPIKey,
			Message: "MICROSOFT_BING_SEARCH_KEY not set in environment",
		})
	}
	return warnings
}

// SafeSearchMode - уже провалидированное значение.
func (c *Config) SafeSearchMode() imagesearch.SafeSearch {
	mode, _ := imagesearch.ParseSafeSearch(c.Bing.SafeSearch)
	return mode
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
