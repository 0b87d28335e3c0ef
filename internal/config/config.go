// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Submission sinks.
const (
	SinkSQLite = "sqlite"
	SinkLog    = "log"
)

// AI providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	DBPath             string
	AllowedOrigins     []string
	HealthCheckTimeout time.Duration
	SeedDemoDeal       bool
	Onboarding         OnboardingConfig
	AI                 AIConfig
	RateLimit          RateLimitConfig
}

// OnboardingConfig controls wizard sessions.
type OnboardingConfig struct {
	SessionTTL        time.Duration
	VerificationDelay time.Duration
	SubmissionSink    string
}

// AIConfig selects and configures the model provider.
type AIConfig struct {
	Provider        string
	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// RateLimitConfig bounds AI requests per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	frontendURL := getEnv("FRONTEND_URL", "")
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        frontendURL,
		DBPath:             getEnv("DB_PATH", "./data/dealflow.db"),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", defaultOrigins(frontendURL)),
		HealthCheckTimeout: getEnvDuration("HEALTH_CHECK_TIMEOUT", 2*time.Second),
		SeedDemoDeal:       getEnvBool("SEED_DEMO_DEAL", true),
		Onboarding: OnboardingConfig{
			SessionTTL:        getEnvDuration("WIZARD_SESSION_TTL", 60*time.Minute),
			VerificationDelay: getEnvDuration("VERIFICATION_DELAY", 2*time.Second),
			SubmissionSink:    strings.ToLower(getEnv("SUBMISSION_SINK", SinkSQLite)),
		},
		AI: AIConfig{
			Provider:        strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Onboarding.SessionTTL <= 0 {
		return fmt.Errorf("WIZARD_SESSION_TTL must be > 0")
	}
	if c.Onboarding.VerificationDelay < 0 {
		return fmt.Errorf("VERIFICATION_DELAY cannot be negative")
	}
	switch c.Onboarding.SubmissionSink {
	case SinkSQLite, SinkLog:
	default:
		return fmt.Errorf("SUBMISSION_SINK must be %q or %q", SinkSQLite, SinkLog)
	}
	switch c.AI.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q", ProviderGemini, ProviderAnthropic)
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AIKeyConfigured reports whether the selected provider has an API key. Without
// one every AI operation returns its fallback.
func (c *Config) AIKeyConfigured() bool {
	if c.AI.Provider == ProviderAnthropic {
		return c.AI.AnthropicAPIKey != ""
	}
	return c.AI.GeminiAPIKey != ""
}

func defaultOrigins(frontendURL string) []string {
	if frontendURL != "" {
		return []string{frontendURL}
	}
	return []string{"http://localhost:5173", "http://localhost:3000"}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
