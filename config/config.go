package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is built once at startup
// and passed by value into each component; nothing mutates it afterwards.
type Config struct {
	Server  ServerConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	CORS    CORSConfig
	Auth    AuthConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownGrace is how long in-flight scrapes may run after SIGTERM.
	// It should exceed the worst case of one scrape (launch + navigation +
	// extraction + browser close, 75s with defaults) so a draining request
	// can still finish and close its browser.
	ShutdownGrace time.Duration // default: 90s
}

// BrowserConfig controls how each per-request Chromium process is launched.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in containers without
	// the privileges the setuid sandbox requires).
	NoSandbox bool // default: true

	// DisableDevShm makes Chrome write shared memory to /tmp instead of
	// the often tiny /dev/shm of a container.
	DisableDevShm bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to Chromium as --proxy-server.
	Proxy string

	// Stealth injects go-rod/stealth evasions before navigation.
	Stealth bool // default: false

	// ExtraHeaders are sent with every request the page makes.
	// Read from a JSON object, e.g. {"Accept-Language":"en-US,en;q=0.9"}.
	ExtraHeaders map[string]string
}

// ScraperConfig controls the navigation and extraction deadlines.
type ScraperConfig struct {
	// NavigationTimeout bounds navigation plus the network-idle wait.
	NavigationTimeout time.Duration // default: 30s

	// IdleWindow is how long the page must have zero in-flight requests
	// before it counts as idle.
	IdleWindow time.Duration // default: 500ms

	// LaunchTimeout bounds starting and connecting to Chromium.
	LaunchTimeout time.Duration // default: 30s

	// ExtractTimeout bounds the innerText evaluation.
	ExtractTimeout time.Duration // default: 10s
}

// CORSConfig controls the cross-origin headers on /scrape.
type CORSConfig struct {
	AllowOrigin string // default: "*"
}

// AuthConfig controls optional API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// The defaults reproduce the fixed constants of the original service:
// port 3000, 30s navigation timeout, headless without sandbox or /dev/shm.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          envOr("RENDERTEXT_HOST", "0.0.0.0"),
			Port:          envIntOr("RENDERTEXT_PORT", 3000),
			Mode:          envOr("RENDERTEXT_MODE", "release"),
			ShutdownGrace: envDurationOr("RENDERTEXT_SHUTDOWN_GRACE", 90*time.Second),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("RENDERTEXT_HEADLESS", true),
			NoSandbox:     envBoolOr("RENDERTEXT_NO_SANDBOX", true),
			DisableDevShm: envBoolOr("RENDERTEXT_DISABLE_DEV_SHM", true),
			BrowserBin:    os.Getenv("RENDERTEXT_BROWSER_BIN"),
			Proxy:         os.Getenv("RENDERTEXT_PROXY"),
			Stealth:       envBoolOr("RENDERTEXT_STEALTH", false),
			ExtraHeaders:  envHeadersOr("RENDERTEXT_EXTRA_HEADERS", nil),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("RENDERTEXT_NAV_TIMEOUT", 30*time.Second),
			IdleWindow:        envDurationOr("RENDERTEXT_IDLE_WINDOW", 500*time.Millisecond),
			LaunchTimeout:     envDurationOr("RENDERTEXT_LAUNCH_TIMEOUT", 30*time.Second),
			ExtractTimeout:    envDurationOr("RENDERTEXT_EXTRACT_TIMEOUT", 10*time.Second),
		},
		CORS: CORSConfig{
			AllowOrigin: envOr("RENDERTEXT_CORS_ORIGIN", "*"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("RENDERTEXT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("RENDERTEXT_API_KEYS", nil),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("RENDERTEXT_METRICS_ENABLED", true),
			Path:    envOr("RENDERTEXT_METRICS_PATH", "/metrics"),
		},
		Log: LogConfig{
			Level:  envOr("RENDERTEXT_LOG_LEVEL", "info"),
			Format: envOr("RENDERTEXT_LOG_FORMAT", "json"),
		},
	}
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
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

// envHeadersOr parses a JSON object of header names to values. Header values
// routinely contain commas and semicolons, so the comma-list format used by
// envSliceOr does not fit here.
func envHeadersOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(v), &headers); err != nil || len(headers) == 0 {
		return fallback
	}
	return headers
}
