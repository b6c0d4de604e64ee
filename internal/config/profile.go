package config

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"gopkg.in/yaml.v3"
)

// Profile describes one dashboard variant: which optional features run and
// where the signal bands sit. Unset fields keep the env value, and an env
// variable that is set always wins over the profile.
type Profile struct {
	Name         string            `yaml:"name"`
	WindowRadius *int              `yaml:"window_radius"`
	MaxPain      *bool             `yaml:"max_pain"`
	Thresholds   *ThresholdProfile `yaml:"thresholds"`
	Alerts       *AlertProfile     `yaml:"alerts"`
}

// ThresholdProfile overrides individual band cutoffs.
type ThresholdProfile struct {
	StrongBullish *float64 `yaml:"strong_bullish"`
	Bullish       *float64 `yaml:"bullish"`
	Bearish       *float64 `yaml:"bearish"`
	StrongBearish *float64 `yaml:"strong_bearish"`
}

// Merge returns base with the set cutoffs replaced.
func (tp *ThresholdProfile) Merge(base analyzer.Thresholds) analyzer.Thresholds {
	if tp == nil {
		return base
	}
	if tp.StrongBullish != nil {
		base.StrongBullish = *tp.StrongBullish
	}
	if tp.Bullish != nil {
		base.Bullish = *tp.Bullish
	}
	if tp.Bearish != nil {
		base.Bearish = *tp.Bearish
	}
	if tp.StrongBearish != nil {
		base.StrongBearish = *tp.StrongBearish
	}
	return base
}

// AlertProfile toggles band-change notifications.
type AlertProfile struct {
	Enabled     bool   `yaml:"enabled"`
	OnAnyChange bool   `yaml:"on_any_change"`
	Endpoint    string `yaml:"endpoint"`
}

// LoadProfile reads and validates a profile YAML file. Returns an
// os.ErrNotExist-wrapped error if the file is absent (caller silently skips
// in that case).
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if p.WindowRadius != nil && *p.WindowRadius < 1 {
		return nil, fmt.Errorf("profile: window_radius must be >= 1, got %d", *p.WindowRadius)
	}
	if err := p.Thresholds.Merge(analyzer.DefaultThresholds()).Validate(); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &p, nil
}

func (c *Config) applyProfile(p *Profile) {
	c.ProfileName = p.Name
	if p.WindowRadius != nil && !envSet("PCR_WINDOW_RADIUS") {
		c.WindowRadius = *p.WindowRadius
	}
	if p.MaxPain != nil && !envSet("PCR_MAX_PAIN") {
		c.MaxPainEnabled = *p.MaxPain
	}
	c.Thresholds = p.Thresholds.Merge(c.Thresholds)
	if p.Alerts != nil {
		if !envSet("PCR_ALERTS") {
			c.AlertsEnabled = p.Alerts.Enabled
		}
		if !envSet("PCR_ALERT_ANY_CHANGE") {
			c.AlertOnAnyChange = p.Alerts.OnAnyChange
		}
		if p.Alerts.Endpoint != "" && !envSet("PCR_NTFY_ENDPOINT") {
			c.NTFYEndpoint = p.Alerts.Endpoint
		}
	}
}

func envSet(key string) bool {
	return os.Getenv(key) != ""
}
