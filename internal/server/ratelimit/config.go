package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one route to Limit requests per Window per client, allowing
// bursts of up to Burst (Limit when zero).
type Rule struct {
	Name    string
	Method  string
	Pattern string
	Limit   int
	Window  time.Duration
	Burst   int
}

// Config holds rate limiting settings.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allowlist       map[string]bool
	Blocklist       map[string]bool
	Rules           []Rule
}

// DefaultConfig is the configuration used when no environment overrides apply.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Allowlist:       map[string]bool{},
		Blocklist:       map[string]bool{},
		Rules:           DefaultRules(),
	}
}

// DefaultRules are the per-route limits for the API.
func DefaultRules() []Rule {
	return []Rule{
		// Credential endpoints
		{Name: "login", Method: "POST", Pattern: "/v1/auth/login", Limit: 10, Window: time.Minute, Burst: 5},
		{Name: "register", Method: "POST", Pattern: "/v1/auth/register", Limit: 20, Window: time.Hour, Burst: 5},

		// Self-service writes
		{Name: "own-create", Method: "POST", Pattern: "/v1/applications", Limit: 30, Window: time.Hour, Burst: 5},
		{Name: "own-update", Method: "PATCH", Pattern: "/v1/applications/*", Limit: 120, Window: time.Minute, Burst: 20},

		// Admin writes
		{Name: "admin-approve", Method: "POST", Pattern: "/v1/admin/applications/*/approve", Limit: 300, Window: time.Minute, Burst: 50},
		{Name: "admin-create", Method: "POST", Pattern: "/v1/admin/applications", Limit: 300, Window: time.Minute, Burst: 50},
		{Name: "admin-exam-write", Method: "POST", Pattern: "/v1/admin/exams", Limit: 60, Window: time.Minute, Burst: 10},
		{Name: "admin-exam-write", Method: "PATCH", Pattern: "/v1/admin/exams/*", Limit: 60, Window: time.Minute, Burst: 10},
		{Name: "admin-exam-write", Method: "DELETE", Pattern: "/v1/admin/exams/*", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// LoadConfig applies RATE_LIMIT_* environment overrides to DefaultConfig.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool("RATE_LIMIT_ENABLED", cfg.Enabled)
	cfg.DefaultLimit = envInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = envDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = envDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Allowlist = parseIPList(os.Getenv("RATE_LIMIT_ALLOWLIST"))
	cfg.Blocklist = parseIPList(os.Getenv("RATE_LIMIT_BLOCKLIST"))
	return cfg
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// parseIPList parses a comma-separated list of client addresses.
func parseIPList(list string) map[string]bool {
	out := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			out[ip] = true
		}
	}
	return out
}
