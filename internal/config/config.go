package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"github.com/dgnsrekt/pcr_agent/internal/history"
	"github.com/dgnsrekt/pcr_agent/internal/market"
	"github.com/joho/godotenv"
)

const (
	minLiveRefresh = 60 * time.Second
	maxLiveRefresh = 300 * time.Second
)

// Config holds all configuration for the PCR agent.
type Config struct {
	// HTTP surface
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Logging
	LogLevel string
	LogFile  string

	// Polling
	Source          string
	Indices         []string
	DefaultIndex    string
	RefreshInterval time.Duration
	ErrorBackoff    time.Duration
	HistoryCap      int
	Timezone        string

	// Analysis features, overridable by the YAML profile
	ProfilePath      string
	ProfileName      string
	WindowRadius     int
	MaxPainEnabled   bool
	Thresholds       analyzer.Thresholds
	AlertsEnabled    bool
	AlertOnAnyChange bool
	NTFYEndpoint     string

	// NSE session
	NSEBaseURL       string
	HandshakeMin     time.Duration
	HandshakeMax     time.Duration
	RequestTimeout   time.Duration
	BrowserBootstrap bool
	BrowserLaunch    bool
	BrowserHeadless  bool
	BrowserProfile   string
	CDPAddress       string
	CDPPort          int

	// Simulation
	SimSeed uint64
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("PCR_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("PCR_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192"}),
		PortAutoFallback: getEnvBoolOrDefault("PCR_PORT_AUTO_FALLBACK", true),
		LogLevel:         strings.ToLower(getEnvOrDefault("PCR_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("PCR_LOG_FILE", "logs/pcr_controller.log"),
		Source:           strings.ToLower(getEnvOrDefault("PCR_SOURCE", market.KindNSE)),
		Indices:          getEnvListOrDefault("PCR_INDICES", market.Indices),
		DefaultIndex:     strings.ToUpper(getEnvOrDefault("PCR_INDEX", "NIFTY")),
		RefreshInterval:  getEnvDurationOrDefault("PCR_REFRESH_INTERVAL", 120*time.Second),
		ErrorBackoff:     getEnvDurationOrDefault("PCR_ERROR_BACKOFF", 20*time.Second),
		HistoryCap:       getEnvIntOrDefault("PCR_HISTORY_CAP", history.DefaultCap),
		Timezone:         getEnvOrDefault("PCR_TIMEZONE", "Asia/Kolkata"),
		ProfilePath:      getEnvOrDefault("PCR_PROFILE_PATH", "./config/profile.yaml"),
		WindowRadius:     getEnvIntOrDefault("PCR_WINDOW_RADIUS", 5),
		MaxPainEnabled:   getEnvBoolOrDefault("PCR_MAX_PAIN", true),
		Thresholds:       analyzer.DefaultThresholds(),
		AlertsEnabled:    getEnvBoolOrDefault("PCR_ALERTS", false),
		AlertOnAnyChange: getEnvBoolOrDefault("PCR_ALERT_ANY_CHANGE", false),
		NTFYEndpoint:     getEnvOrDefault("PCR_NTFY_ENDPOINT", ""),
		NSEBaseURL:       getEnvOrDefault("PCR_NSE_BASE_URL", market.DefaultNSEBaseURL),
		HandshakeMin:     getEnvDurationOrDefault("PCR_HANDSHAKE_MIN", 2*time.Second),
		HandshakeMax:     getEnvDurationOrDefault("PCR_HANDSHAKE_MAX", 3500*time.Millisecond),
		RequestTimeout:   getEnvDurationOrDefault("PCR_REQUEST_TIMEOUT", 15*time.Second),
		BrowserBootstrap: getEnvBoolOrDefault("PCR_BROWSER_BOOTSTRAP", false),
		BrowserLaunch:    getEnvBoolOrDefault("PCR_BROWSER_LAUNCH", false),
		BrowserHeadless:  getEnvBoolOrDefault("PCR_BROWSER_HEADLESS", true),
		BrowserProfile:   getEnvOrDefault("PCR_BROWSER_PROFILE_DIR", "./browser_profile"),
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		SimSeed:          uint64(getEnvIntOrDefault("PCR_SIM_SEED", int(time.Now().UnixNano()&0x7fffffff))),
	}

	profile, err := LoadProfile(cfg.ProfilePath)
	switch {
	case err == nil:
		cfg.applyProfile(profile)
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("no signal profile, using env defaults", "path", cfg.ProfilePath)
	default:
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	for i, idx := range c.Indices {
		c.Indices[i] = strings.ToUpper(strings.TrimSpace(idx))
	}
	if !contains(c.Indices, c.DefaultIndex) {
		return fmt.Errorf("config: PCR_INDEX %q not in PCR_INDICES %v", c.DefaultIndex, c.Indices)
	}
	if c.Source != market.KindNSE && c.Source != market.KindSim {
		return fmt.Errorf("config: PCR_SOURCE must be %q or %q, got %q", market.KindNSE, market.KindSim, c.Source)
	}
	if c.Source == market.KindNSE {
		if c.RefreshInterval < minLiveRefresh {
			slog.Warn("refresh interval below 60s gets the IP blocked, clamping", "requested", c.RefreshInterval)
			c.RefreshInterval = minLiveRefresh
		}
		if c.RefreshInterval > maxLiveRefresh {
			c.RefreshInterval = maxLiveRefresh
		}
	}
	if c.RefreshInterval < time.Second {
		c.RefreshInterval = time.Second
	}
	if c.WindowRadius < 1 {
		c.WindowRadius = 1
	}
	if c.HistoryCap < 1 {
		c.HistoryCap = history.DefaultCap
	}
	if c.AlertsEnabled && c.NTFYEndpoint == "" {
		return fmt.Errorf("config: PCR_ALERTS requires PCR_NTFY_ENDPOINT")
	}
	return c.Thresholds.Validate()
}

// AnalyzerOptions returns the enabled analysis features.
func (c *Config) AnalyzerOptions() analyzer.Options {
	return analyzer.Options{
		Radius:     c.WindowRadius,
		MaxPain:    c.MaxPainEnabled,
		Thresholds: c.Thresholds,
	}
}

// MarketOptions returns the data-source settings. cookies may be nil.
func (c *Config) MarketOptions(cookies market.CookieSource) market.Options {
	return market.Options{
		Kind: c.Source,
		NSE: market.NSEConfig{
			BaseURL:      c.NSEBaseURL,
			HandshakeMin: c.HandshakeMin,
			HandshakeMax: c.HandshakeMax,
			APITimeout:   c.RequestTimeout,
			MinInterval:  minLiveRefresh / 2,
			CookieSource: cookies,
		},
		SimSeed: c.SimSeed,
	}
}

// CDPURL returns the Chromium remote-debugging endpoint.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDurationOrDefault accepts Go durations ("90s") or bare seconds ("90").
func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
