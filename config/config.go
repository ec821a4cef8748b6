package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Render    RenderConfig
	Dispatch  DispatchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the per-session browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL applied to every session.
	Proxy string

	// Stealth injects anti-bot-detection JS before navigation.
	Stealth bool // default: false
}

// RenderConfig controls the render state machine.
type RenderConfig struct {
	// MaxTimeout caps the client-requested timeout.
	MaxTimeout time.Duration // default: 120s

	// TickInterval is the poll interval of the state machine.
	TickInterval time.Duration // default: 50ms
}

// DispatchConfig controls the in-process/worker dispatch policy.
type DispatchConfig struct {
	// GraceMargin is added to the render timeout before the dispatcher
	// gives up on (and force-kills) an executor. Must be strictly positive.
	GraceMargin time.Duration // default: 10s

	// ReadyTimeout bounds the wait for a worker's readiness signal.
	ReadyTimeout time.Duration // default: 10s

	// KillGrace bounds the wait for a worker to self-terminate after its
	// result (or after the dispatch deadline) before it is killed.
	KillGrace time.Duration // default: 3s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     // default: false
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// CacheConfig controls the render response cache.
type CacheConfig struct {
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("RENDERBRIDGE_HOST", "0.0.0.0"),
			Port: envIntOr("RENDERBRIDGE_PORT", 8080),
			Mode: envOr("RENDERBRIDGE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("RENDERBRIDGE_HEADLESS", true),
			NoSandbox:  envBoolOr("RENDERBRIDGE_NO_SANDBOX", false),
			BrowserBin: os.Getenv("RENDERBRIDGE_BROWSER_BIN"),
			Proxy:      os.Getenv("RENDERBRIDGE_PROXY"),
			Stealth:    envBoolOr("RENDERBRIDGE_STEALTH", false),
		},
		Render: RenderConfig{
			MaxTimeout:   envDurationOr("RENDERBRIDGE_MAX_TIMEOUT", 120*time.Second),
			TickInterval: envDurationOr("RENDERBRIDGE_TICK_INTERVAL", 50*time.Millisecond),
		},
		Dispatch: DispatchConfig{
			GraceMargin:  envDurationOr("RENDERBRIDGE_GRACE_MARGIN", 10*time.Second),
			ReadyTimeout: envDurationOr("RENDERBRIDGE_READY_TIMEOUT", 10*time.Second),
			KillGrace:    envDurationOr("RENDERBRIDGE_KILL_GRACE", 3*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RENDERBRIDGE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("RENDERBRIDGE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RENDERBRIDGE_RATE_RPS", 5.0),
			Burst:             envIntOr("RENDERBRIDGE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("RENDERBRIDGE_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("RENDERBRIDGE_LOG_LEVEL", "info"),
			Format: envOr("RENDERBRIDGE_LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects configurations the dispatcher cannot operate under.
func (c *Config) Validate() error {
	if c.Dispatch.GraceMargin <= 0 {
		return fmt.Errorf("config: dispatch grace margin must be strictly positive, got %s", c.Dispatch.GraceMargin)
	}
	if c.Dispatch.ReadyTimeout <= 0 {
		return fmt.Errorf("config: dispatch ready timeout must be strictly positive, got %s", c.Dispatch.ReadyTimeout)
	}
	if c.Render.TickInterval <= 0 {
		return fmt.Errorf("config: render tick interval must be strictly positive, got %s", c.Render.TickInterval)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
