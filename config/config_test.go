package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration should validate, got: %s", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %s", err)
	}
	if cfg.Rate.Default != 75 {
		t.Errorf("expected default rate 75, got %d", cfg.Rate.Default)
	}
	if cfg.BandMHz.Min != 2400.0 || cfg.BandMHz.Max != 2500.0 {
		t.Errorf("expected band [2400, 2500], got [%v, %v]", cfg.BandMHz.Min, cfg.BandMHz.Max)
	}
	if cfg.BufferSize != 300 {
		t.Errorf("expected buffer size 300, got %d", cfg.BufferSize)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pltapp.yaml")
	doc := `
packetsPerSecond:
  default: 50
  min: 10
  max: 200
bufferSize: 100
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.Rate.Default != 50 || cfg.Rate.Max != 200 {
		t.Errorf("rate not merged: %+v", cfg.Rate)
	}
	if cfg.BufferSize != 100 {
		t.Errorf("bufferSize not merged: %d", cfg.BufferSize)
	}
	// Untouched sections keep their defaults.
	if len(cfg.WiFi.Channels) != 13 {
		t.Errorf("expected 13 default WiFi channels, got %d", len(cfg.WiFi.Channels))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/pltapp.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted band", func(c *Config) { c.BandMHz = Range{Min: 2500, Max: 2400} }},
		{"inverted power", func(c *Config) { c.PowerDBm = Range{Min: -30, Max: -100} }},
		{"zero rate min", func(c *Config) { c.Rate.Min = 0 }},
		{"rate default below min", func(c *Config) { c.Rate.Default = 5 }},
		{"rate default above max", func(c *Config) { c.Rate.Default = 1000 }},
		{"weights not summing to 1", func(c *Config) { c.Mixture = Mixture{WiFi: 0.5, Bluetooth: 0.5, Other: 0.5} }},
		{"negative weight", func(c *Config) { c.Mixture = Mixture{WiFi: 1.5, Bluetooth: -0.5, Other: 0} }},
		{"no wifi channels", func(c *Config) { c.WiFi.Channels = nil }},
		{"wifi channel outside band", func(c *Config) { c.WiFi.Channels = append(c.WiFi.Channels, 5180) }},
		{"no wifi widths", func(c *Config) { c.WiFi.CommonWidths = nil }},
		{"zero hop count", func(c *Config) { c.Bluetooth.HopCount = 0 }},
		{"zero hop spacing", func(c *Config) { c.Bluetooth.SpacingMHz = 0 }},
		{"bluetooth base outside band", func(c *Config) { c.Bluetooth.BaseMHz = 900 }},
		{"strong signal prob above 1", func(c *Config) { c.Variation.StrongSignalProb = 1.5 }},
		{"negative jitter", func(c *Config) { c.Variation.TimingJitterMS = -1 }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"bad port", func(c *Config) { c.Server.PortStart = 0 }},
		{"zero window", func(c *Config) { c.Window.Width = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestRangeClamp(t *testing.T) {
	r := Range{Min: -100, Max: -30}
	tests := []struct {
		in   float64
		want float64
	}{
		{-65, -65},
		{-200, -100},
		{0, -30},
		{-100, -100},
		{-30, -30},
	}
	for _, tc := range tests {
		if got := r.Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
