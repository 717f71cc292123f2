package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Render    RenderConfig    `yaml:"render"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Invoice   InvoiceConfig   `yaml:"invoice"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 3000
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"

	// MaxBodyBytes caps the JSON request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"` // default: 5 MiB

	// ShutdownGrace is how long in-flight requests get on SIGTERM.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"` // default: 10s
}

// BrowserConfig controls the Chromium process.
type BrowserConfig struct {
	// BrowserBin overrides the Chromium binary path. Empty lets rod find
	// or download one.
	BrowserBin string `yaml:"bin"`

	Headless bool `yaml:"headless"` // default: true

	// WindowWidth and WindowHeight fix the browser window (and viewport).
	WindowWidth  int `yaml:"window_width"`  // default: 1920
	WindowHeight int `yaml:"window_height"` // default: 1080

	// Leakless runs Chromium under rod's leakless guard so it dies with us.
	Leakless bool `yaml:"leakless"` // default: true

	// IdleWindow is how long the network must stay quiet before a loaded
	// document is considered settled.
	IdleWindow time.Duration `yaml:"idle_window"` // default: 500ms
}

// RenderConfig controls conversions.
type RenderConfig struct {
	// Timeout bounds one conversion (load + export). The tab is closed
	// when it expires.
	Timeout time.Duration `yaml:"timeout"` // default: 30s
}

// RateLimitConfig controls per-IP rate limiting.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"` // default: true

	// Requests per Window per client IP.
	Requests int           `yaml:"requests"` // default: 100
	Window   time.Duration `yaml:"window"`   // default: 15m

	// Burst is the token bucket size. Defaults to Requests.
	Burst int `yaml:"burst"`
}

// CORSConfig controls cross-origin access.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"` // default: ["*"]
}

// InvoiceConfig controls the outstanding-invoice statement.
type InvoiceConfig struct {
	// Currency prefixes every amount, separated by a space.
	Currency string `yaml:"currency"` // default: "₹"

	// Rows due in more than RedDays are flagged red, more than YellowDays
	// yellow, the rest green. Callers may override both per request.
	RedDays    int `yaml:"red_days"`    // default: 30
	YellowDays int `yaml:"yellow_days"` // default: 15
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          3000,
			Mode:          "release",
			MaxBodyBytes:  5 << 20,
			ShutdownGrace: 10 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
			Leakless:     true,
			IdleWindow:   500 * time.Millisecond,
		},
		Render: RenderConfig{
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   15 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Invoice: InvoiceConfig{
			Currency:   "₹",
			RedDays:    30,
			YellowDays: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Server.Host = envOr("RENDER_HOST", c.Server.Host)
	c.Server.Port = envIntOr("PORT", c.Server.Port)
	c.Server.Port = envIntOr("RENDER_PORT", c.Server.Port)
	c.Server.Mode = envOr("RENDER_MODE", c.Server.Mode)
	c.Server.MaxBodyBytes = int64(envIntOr("RENDER_MAX_BODY_BYTES", int(c.Server.MaxBodyBytes)))
	c.Server.ShutdownGrace = envDurationOr("RENDER_SHUTDOWN_GRACE", c.Server.ShutdownGrace)

	c.Browser.BrowserBin = envOr("RENDER_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.Headless = envBoolOr("RENDER_HEADLESS", c.Browser.Headless)
	c.Browser.WindowWidth = envIntOr("RENDER_WINDOW_WIDTH", c.Browser.WindowWidth)
	c.Browser.WindowHeight = envIntOr("RENDER_WINDOW_HEIGHT", c.Browser.WindowHeight)
	c.Browser.Leakless = envBoolOr("RENDER_LEAKLESS", c.Browser.Leakless)
	c.Browser.IdleWindow = envDurationOr("RENDER_IDLE_WINDOW", c.Browser.IdleWindow)

	c.Render.Timeout = envDurationOr("RENDER_TIMEOUT", c.Render.Timeout)

	c.RateLimit.Enabled = envBoolOr("RENDER_RATE_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.Requests = envIntOr("RENDER_RATE_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = envDurationOr("RENDER_RATE_WINDOW", c.RateLimit.Window)
	c.RateLimit.Burst = envIntOr("RENDER_RATE_BURST", c.RateLimit.Burst)

	c.CORS.AllowedOrigins = envSliceOr("RENDER_CORS_ORIGINS", c.CORS.AllowedOrigins)

	c.Invoice.Currency = envOr("RENDER_INVOICE_CURRENCY", c.Invoice.Currency)
	c.Invoice.RedDays = envIntOr("RENDER_INVOICE_RED_DAYS", c.Invoice.RedDays)
	c.Invoice.YellowDays = envIntOr("RENDER_INVOICE_YELLOW_DAYS", c.Invoice.YellowDays)

	c.Log.Level = envOr("RENDER_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("RENDER_LOG_FORMAT", c.Log.Format)
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: max body bytes must be positive")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("config: invalid window size %dx%d", c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("config: render timeout must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("config: rate limit needs positive requests and window")
	}
	if c.Invoice.YellowDays < 0 || c.Invoice.RedDays < c.Invoice.YellowDays {
		return fmt.Errorf("config: invoice thresholds need 0 <= yellow_days <= red_days, got %d and %d",
			c.Invoice.YellowDays, c.Invoice.RedDays)
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
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
