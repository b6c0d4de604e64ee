package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PCR_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultIndex != "NIFTY" || cfg.Source != "nse" {
		t.Fatalf("defaults = index %q source %q", cfg.DefaultIndex, cfg.Source)
	}
	if cfg.RefreshInterval != 120*time.Second {
		t.Fatalf("RefreshInterval = %v; want 2m", cfg.RefreshInterval)
	}
	if cfg.WindowRadius != 5 || !cfg.MaxPainEnabled || cfg.HistoryCap != 50 {
		t.Fatalf("analysis defaults = radius %d maxpain %v cap %d", cfg.WindowRadius, cfg.MaxPainEnabled, cfg.HistoryCap)
	}
	if len(cfg.Indices) != 4 {
		t.Fatalf("Indices = %v", cfg.Indices)
	}
}

func TestLoadClampsLiveRefresh(t *testing.T) {
	t.Setenv("PCR_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PCR_REFRESH_INTERVAL", "10")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Fatalf("RefreshInterval = %v; want 1m", cfg.RefreshInterval)
	}

	t.Setenv("PCR_REFRESH_INTERVAL", "1h")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RefreshInterval != 5*time.Minute {
		t.Fatalf("RefreshInterval = %v; want 5m", cfg.RefreshInterval)
	}
}

func TestLoadSimAllowsFastRefresh(t *testing.T) {
	t.Setenv("PCR_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PCR_SOURCE", "sim")
	t.Setenv("PCR_REFRESH_INTERVAL", "2s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RefreshInterval != 2*time.Second {
		t.Fatalf("RefreshInterval = %v; want 2s", cfg.RefreshInterval)
	}
}

func TestLoadRejectsUnknownIndex(t *testing.T) {
	t.Setenv("PCR_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PCR_INDEX", "SENSEX")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error; want unknown index")
	}
}

func TestLoadAlertsRequireEndpoint(t *testing.T) {
	t.Setenv("PCR_PROFILE_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PCR_ALERTS", "true")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error; want missing endpoint")
	}
}

func TestLoadAppliesProfile(t *testing.T) {
	path := writeProfile(t, `
name: tight
window_radius: 8
max_pain: false
thresholds:
  strong_bullish: 1.3
  bullish: 1.05
  bearish: 0.95
  strong_bearish: 0.7
alerts:
  enabled: true
  endpoint: http://ntfy.local/pcr
`)
	t.Setenv("PCR_PROFILE_PATH", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProfileName != "tight" || cfg.WindowRadius != 8 || cfg.MaxPainEnabled {
		t.Fatalf("profile not applied: %+v", cfg)
	}
	if cfg.Thresholds.Bullish != 1.05 || cfg.Thresholds.StrongBearish != 0.7 {
		t.Fatalf("Thresholds = %+v", cfg.Thresholds)
	}
	if !cfg.AlertsEnabled || cfg.NTFYEndpoint != "http://ntfy.local/pcr" {
		t.Fatalf("alerts = %v %q", cfg.AlertsEnabled, cfg.NTFYEndpoint)
	}
	opts := cfg.AnalyzerOptions()
	if opts.Radius != 8 || opts.MaxPain {
		t.Fatalf("AnalyzerOptions() = %+v", opts)
	}
}

func TestLoadProfileMissing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadProfile() error = %v; want os.ErrNotExist", err)
	}
}

func TestLoadProfileRejectsUnorderedThresholds(t *testing.T) {
	path := writeProfile(t, `
thresholds:
  strong_bullish: 1.0
  bullish: 1.2
  bearish: 0.8
  strong_bearish: 0.6
`)
	if _, err := LoadProfile(path); err == nil {
		t.Fatal("LoadProfile() = nil error; want threshold ordering error")
	}
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("PCR_TEST_DURATION", "90")
	if got := getEnvDurationOrDefault("PCR_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("bare seconds = %v; want 90s", got)
	}
	t.Setenv("PCR_TEST_DURATION", "1m30s")
	if got := getEnvDurationOrDefault("PCR_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("duration = %v; want 90s", got)
	}
	t.Setenv("PCR_TEST_DURATION", "soon")
	if got := getEnvDurationOrDefault("PCR_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("invalid = %v; want default", got)
	}
}

func TestLoadEnvOverridesProfile(t *testing.T) {
	path := writeProfile(t, `
name: default
window_radius: 5
max_pain: true
alerts:
  enabled: true
  endpoint: http://ntfy.local/profile
`)
	t.Setenv("PCR_PROFILE_PATH", path)
	t.Setenv("PCR_WINDOW_RADIUS", "8")
	t.Setenv("PCR_MAX_PAIN", "false")
	t.Setenv("PCR_ALERTS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WindowRadius != 8 || cfg.MaxPainEnabled {
		t.Fatalf("env lost to profile: radius %d maxpain %v", cfg.WindowRadius, cfg.MaxPainEnabled)
	}
	if cfg.AlertsEnabled {
		t.Fatal("AlertsEnabled = true; PCR_ALERTS=false should win")
	}
	if cfg.ProfileName != "default" || cfg.NTFYEndpoint != "http://ntfy.local/profile" {
		t.Fatalf("unset fields should still come from the profile: name %q endpoint %q", cfg.ProfileName, cfg.NTFYEndpoint)
	}
}

func TestLoadPartialThresholds(t *testing.T) {
	path := writeProfile(t, `
thresholds:
  bullish: 1.2
`)
	t.Setenv("PCR_PROFILE_PATH", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := analyzer.DefaultThresholds()
	want.Bullish = 1.2
	if cfg.Thresholds != want {
		t.Fatalf("Thresholds = %+v; want %+v", cfg.Thresholds, want)
	}

	bad := writeProfile(t, `
thresholds:
  bullish: 1.5
`)
	if _, err := LoadProfile(bad); err == nil {
		t.Fatal("LoadProfile() = nil error; bullish above the default strong_bullish must fail")
	}
}
