// Package config reads the runnable server's environment-variable
// configuration (spec.md §6 "Configuration"). No config/env library is
// introduced here — the teacher's own binaries (cli/run.go,
// tool/mcp_pool.go, server/provider_secrets.go) read individual settings
// straight off os.Getenv/os.LookupEnv at the point of use, and this
// package follows the same bare pattern, just collected into one struct
// so cmd/objectiveai and server can pass it around as a value instead of
// repeating os.Getenv calls.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backoff mirrors the CHAT_COMPLETIONS_BACKOFF_* table: the retry
// schedule cenkalti/backoff/v4's ExponentialBackOff is configured with
// when calling the upstream chat-completion provider.
type Backoff struct {
	InitialInterval     time.Duration
	CurrentInterval     time.Duration
	MaxInterval         time.Duration
	RandomizationFactor float64
	Multiplier          float64
	MaxElapsedTime      time.Duration
}

// Config is the runnable server's full set of recognized environment
// options, per spec.md §6.
type Config struct {
	APIBase      string
	APIKey       string
	UpstreamBase string
	UpstreamKey  string

	UserAgent   string
	HTTPReferer string
	XTitle      string

	Backoff Backoff

	Address string
	Port    string

	// CacheDSN, when set, enables the SQLite-backed vote cache (package
	// fetch/sqlitecache) and its scheduled expiry sweep (package daemon).
	// Empty means caching is disabled: from_cache requests fall through
	// to a live upstream call every time.
	CacheDSN       string
	CacheTTL       time.Duration
	CacheSweepCron string

	// DefinitionsDir, when set, resolves ensemble/profile references from
	// local JSON/YAML files under this directory (package loader) instead
	// of the HTTP-backed definitionclient. Empty means every remote
	// reference is fetched over the network as usual.
	DefinitionsDir string
}

// FromEnv reads Config from the process environment. Every field has a
// usable zero value or default, so FromEnv never fails; callers that
// require a given key to be set (e.g. UpstreamKey) check it themselves.
func FromEnv() Config {
	return Config{
		APIBase:      strings.TrimSpace(os.Getenv("OBJECTIVEAI_API_BASE")),
		APIKey:       strings.TrimSpace(os.Getenv("OBJECTIVEAI_API_KEY")),
		UpstreamBase: strings.TrimSpace(os.Getenv("OPENROUTER_API_BASE")),
		UpstreamKey:  strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),

		UserAgent:   os.Getenv("USER_AGENT"),
		HTTPReferer: os.Getenv("HTTP_REFERER"),
		XTitle:      os.Getenv("X_TITLE"),

		Backoff: backoffFromEnv(),

		Address: envOr("ADDRESS", "0.0.0.0"),
		Port:    envOr("PORT", "8080"),

		CacheDSN:       strings.TrimSpace(os.Getenv("OBJECTIVEAI_CACHE_DSN")),
		CacheTTL:       envDurationMS("OBJECTIVEAI_CACHE_TTL_MS", 24*time.Hour),
		CacheSweepCron: envOr("OBJECTIVEAI_CACHE_SWEEP_CRON", "*/5 * * * *"),

		DefinitionsDir: strings.TrimSpace(os.Getenv("OBJECTIVEAI_DEFINITIONS_DIR")),
	}
}

func backoffFromEnv() Backoff {
	initial := envDurationMS("CHAT_COMPLETIONS_BACKOFF_INITIAL_INTERVAL_MS", 500*time.Millisecond)
	return Backoff{
		InitialInterval:     initial,
		CurrentInterval:     envDurationMS("CHAT_COMPLETIONS_BACKOFF_CURRENT_INTERVAL_MS", initial),
		MaxInterval:         envDurationMS("CHAT_COMPLETIONS_BACKOFF_MAX_INTERVAL_MS", 60*time.Second),
		RandomizationFactor: envFloat("CHAT_COMPLETIONS_BACKOFF_RANDOMIZATION_FACTOR", 0.5),
		Multiplier:          envFloat("CHAT_COMPLETIONS_BACKOFF_MULTIPLIER", 1.5),
		MaxElapsedTime:      envDurationMS("CHAT_COMPLETIONS_BACKOFF_MAX_ELAPSED_TIME_MS", 15*time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func envDurationMS(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

// RequireUpstream validates the minimum config the chat-completion
// provider needs before a server can serve traffic.
func (c Config) RequireUpstream() error {
	if c.UpstreamBase == "" {
		return fmt.Errorf("config: OPENROUTER_API_BASE is required")
	}
	if c.UpstreamKey == "" {
		return fmt.Errorf("config: OPENROUTER_API_KEY is required")
	}
	return nil
}
