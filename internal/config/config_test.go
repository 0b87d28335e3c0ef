package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Onboarding.VerificationDelay != 2*time.Second {
		t.Errorf("Expected 2s verification delay, got %v", cfg.Onboarding.VerificationDelay)
	}
	if cfg.RateLimit.RequestsPerWindow <= 0 {
		t.Errorf("Expected positive rate limit, got %d", cfg.RateLimit.RequestsPerWindow)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Error("Expected default allowed origins")
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode without FRONTEND_URL")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://deals.example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")
	t.Setenv("VERIFICATION_DELAY", "500ms")
	t.Setenv("WIZARD_SESSION_TTL", "15m")
	t.Setenv("AI_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("SUBMISSION_SINK", "log")
	t.Setenv("RATE_LIMIT_REQUESTS", "3")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("SEED_DEMO_DEAL", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if got := strings.Join(cfg.AllowedOrigins, "|"); got != "https://a.example.com|https://b.example.com" {
		t.Errorf("Unexpected origins %q", got)
	}
	if cfg.Onboarding.VerificationDelay != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", cfg.Onboarding.VerificationDelay)
	}
	if cfg.Onboarding.SessionTTL != 15*time.Minute {
		t.Errorf("Expected 15m TTL, got %v", cfg.Onboarding.SessionTTL)
	}
	if cfg.AI.Provider != ProviderAnthropic || !cfg.AIKeyConfigured() {
		t.Errorf("Expected anthropic provider with key, got %+v", cfg.AI)
	}
	if cfg.Onboarding.SubmissionSink != SinkLog {
		t.Errorf("Expected log sink, got %s", cfg.Onboarding.SubmissionSink)
	}
	if cfg.RateLimit.RequestsPerWindow != 3 || cfg.RateLimit.WindowDuration != 30*time.Second {
		t.Errorf("Unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.SeedDemoDeal {
		t.Error("Expected demo deal seeding disabled")
	}
	if cfg.IsDevelopment() {
		t.Error("Expected production mode for a public frontend URL")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:   "8080",
			DBPath: "x.db",
			Onboarding: OnboardingConfig{
				SessionTTL:     time.Minute,
				SubmissionSink: SinkSQLite,
			},
			AI:        AIConfig{Provider: ProviderGemini},
			RateLimit: RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"empty db", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"bad sink", func(c *Config) { c.Onboarding.SubmissionSink = "kafka" }, "SUBMISSION_SINK"},
		{"bad provider", func(c *Config) { c.AI.Provider = "openai" }, "AI_PROVIDER"},
		{"negative delay", func(c *Config) { c.Onboarding.VerificationDelay = -time.Second }, "VERIFICATION_DELAY"},
		{"zero ttl", func(c *Config) { c.Onboarding.SessionTTL = 0 }, "WIZARD_SESSION_TTL"},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerWindow = 0 }, "RATE_LIMIT_REQUESTS"},
	}
	for _, tt := range tests {
		c := valid()
		tt.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error mentioning %s, got %v", tt.name, tt.want, err)
		}
	}
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	if got := getEnvDuration("SOME_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback, got %v", got)
	}
}
