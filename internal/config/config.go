package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the browser-agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LLMAPIKey        string
	LLMBaseURL       string
	LLMModel         string
	LLMTimeout       time.Duration
	LLMMaxRetries    int
	LLMHTTPReferer   string
	LLMTitle         string
	ContextMaxTokens int

	SecurityLayerEnabled bool
	ExtraSafetyKeywords  []string

	BrowserDriver string
}

// Load reads a .env file when present, then environment variables, and
// applies safe defaults.
func Load() (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "webpilot"),
		ShutdownTimeout:  15 * time.Second,

		LLMAPIKey:        envTrimmed("OPENROUTER_API_KEY"),
		LLMBaseURL:       envOrDefault("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:         envOrDefault("LLM_MODEL_ID", "google/gemini-2.5-flash-lite"),
		LLMTimeout:       60 * time.Second,
		LLMMaxRetries:    3,
		LLMHTTPReferer:   envTrimmed("LLM_HTTP_REFERER"),
		LLMTitle:         envOrDefault("LLM_TITLE", "Autonomous Browser Agent"),
		ContextMaxTokens: 6000,

		SecurityLayerEnabled: true,
		BrowserDriver:        envOrDefault("BROWSER_DRIVER", "scripted"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_REQUEST_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxRetries, err = intFromEnv("LLM_MAX_RETRIES", cfg.LLMMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextMaxTokens, err = intFromEnv("CONTEXT_MAX_TOKENS", cfg.ContextMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SecurityLayerEnabled, err = boolFromEnv("SECURITY_LAYER_ENABLED", cfg.SecurityLayerEnabled)
	if err != nil {
		return Config{}, err
	}
	if raw := envTrimmed("SAFETY_EXTRA_KEYWORDS"); raw != "" {
		for _, kw := range strings.Split(raw, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				cfg.ExtraSafetyKeywords = append(cfg.ExtraSafetyKeywords, kw)
			}
		}
	}

	if cfg.LLMMaxRetries <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_RETRIES must be positive")
	}
	if cfg.ContextMaxTokens <= 0 {
		return Config{}, fmt.Errorf("CONTEXT_MAX_TOKENS must be positive")
	}
	switch cfg.BrowserDriver {
	case "scripted":
	default:
		return Config{}, fmt.Errorf("invalid BROWSER_DRIVER: %q (expected scripted)", cfg.BrowserDriver)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
