package config

import (
	"os"
	"testing"
	"time"
)

func clearObjectiveaiEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"OBJECTIVEAI_API_BASE", "OBJECTIVEAI_API_KEY",
		"OPENROUTER_API_BASE", "OPENROUTER_API_KEY",
		"USER_AGENT", "HTTP_REFERER", "X_TITLE",
		"CHAT_COMPLETIONS_BACKOFF_INITIAL_INTERVAL_MS",
		"CHAT_COMPLETIONS_BACKOFF_CURRENT_INTERVAL_MS",
		"CHAT_COMPLETIONS_BACKOFF_MAX_INTERVAL_MS",
		"CHAT_COMPLETIONS_BACKOFF_RANDOMIZATION_FACTOR",
		"CHAT_COMPLETIONS_BACKOFF_MULTIPLIER",
		"CHAT_COMPLETIONS_BACKOFF_MAX_ELAPSED_TIME_MS",
		"ADDRESS", "PORT",
		"OBJECTIVEAI_CACHE_DSN", "OBJECTIVEAI_CACHE_TTL_MS", "OBJECTIVEAI_CACHE_SWEEP_CRON",
		"OBJECTIVEAI_DEFINITIONS_DIR",
	}
	for _, k := range keys {
		original, had := os.LookupEnv(k)
		_ = os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, original)
			}
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearObjectiveaiEnv(t)

	cfg := FromEnv()
	if cfg.Address != "0.0.0.0" {
		t.Fatalf("Address = %q, want 0.0.0.0", cfg.Address)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Backoff.InitialInterval != 500*time.Millisecond {
		t.Fatalf("InitialInterval = %v, want 500ms", cfg.Backoff.InitialInterval)
	}
	if cfg.Backoff.CurrentInterval != cfg.Backoff.InitialInterval {
		t.Fatalf("CurrentInterval = %v, want InitialInterval default %v", cfg.Backoff.CurrentInterval, cfg.Backoff.InitialInterval)
	}
	if err := cfg.RequireUpstream(); err == nil {
		t.Fatal("RequireUpstream() = nil, want error when OPENROUTER_* unset")
	}
	if cfg.CacheDSN != "" {
		t.Fatalf("CacheDSN = %q, want empty (cache disabled by default)", cfg.CacheDSN)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Fatalf("CacheTTL = %v, want 24h", cfg.CacheTTL)
	}
	if cfg.CacheSweepCron != "*/5 * * * *" {
		t.Fatalf("CacheSweepCron = %q, want */5 * * * *", cfg.CacheSweepCron)
	}
	if cfg.DefinitionsDir != "" {
		t.Fatalf("DefinitionsDir = %q, want empty (remote fetches by default)", cfg.DefinitionsDir)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearObjectiveaiEnv(t)
	t.Setenv("OPENROUTER_API_BASE", "https://openrouter.example/v1")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("PORT", "9090")
	t.Setenv("CHAT_COMPLETIONS_BACKOFF_MULTIPLIER", "2.5")
	t.Setenv("CHAT_COMPLETIONS_BACKOFF_MAX_INTERVAL_MS", "not-a-number")
	t.Setenv("OBJECTIVEAI_CACHE_DSN", "cache.db")
	t.Setenv("OBJECTIVEAI_CACHE_TTL_MS", "60000")
	t.Setenv("OBJECTIVEAI_CACHE_SWEEP_CRON", "0 * * * *")
	t.Setenv("OBJECTIVEAI_DEFINITIONS_DIR", "/tmp/defs")

	cfg := FromEnv()
	if cfg.UpstreamBase != "https://openrouter.example/v1" {
		t.Fatalf("UpstreamBase = %q", cfg.UpstreamBase)
	}
	if cfg.Port != "9090" {
		t.Fatalf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.Backoff.Multiplier != 2.5 {
		t.Fatalf("Multiplier = %v, want 2.5", cfg.Backoff.Multiplier)
	}
	if cfg.Backoff.MaxInterval != 60*time.Second {
		t.Fatalf("MaxInterval = %v, want the 60s fallback for an unparsable override", cfg.Backoff.MaxInterval)
	}
	if err := cfg.RequireUpstream(); err != nil {
		t.Fatalf("RequireUpstream() = %v, want nil", err)
	}
	if cfg.CacheDSN != "cache.db" {
		t.Fatalf("CacheDSN = %q, want cache.db", cfg.CacheDSN)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("CacheTTL = %v, want 1m", cfg.CacheTTL)
	}
	if cfg.CacheSweepCron != "0 * * * *" {
		t.Fatalf("CacheSweepCron = %q, want 0 * * * *", cfg.CacheSweepCron)
	}
	if cfg.DefinitionsDir != "/tmp/defs" {
		t.Fatalf("DefinitionsDir = %q, want /tmp/defs", cfg.DefinitionsDir)
	}
}
