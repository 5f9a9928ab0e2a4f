// Package config holds the process-wide configuration for pltapp. It is
// loaded once at startup, validated, and read-only afterwards.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Range is a closed interval. Generated values are clamped into it.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp forces v into the closed interval.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Min
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Rate bounds the packets-per-second setting.
type Rate struct {
	Default int `yaml:"default"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// Mixture holds the protocol draw probabilities. They must sum to 1.
type Mixture struct {
	WiFi      float64 `yaml:"wifi"`
	Bluetooth float64 `yaml:"bluetooth"`
	Other     float64 `yaml:"other"`
}

// WiFi describes the emulated 2.4GHz WiFi channel plan.
type WiFi struct {
	// Channels are the channel center frequencies in MHz.
	Channels []float64 `yaml:"channels"`
	// ChannelSpreadMHz is the max offset from a channel center, emulating
	// energy across the channel width.
	ChannelSpreadMHz float64 `yaml:"channelSpreadMHz"`
	// CommonWidths are the bandwidths most transmissions use.
	CommonWidths []float64 `yaml:"commonWidths"`
	// RareWidths are occasionally seen bandwidths.
	RareWidths []float64 `yaml:"rareWidths"`
	// CommonWidthProb is the probability of drawing from CommonWidths.
	CommonWidthProb float64 `yaml:"commonWidthProb"`
}

// Bluetooth describes the emulated frequency hopping plan.
type Bluetooth struct {
	BaseMHz    float64   `yaml:"baseMHz"`
	HopCount   int       `yaml:"hopCount"`
	SpacingMHz float64   `yaml:"spacingMHz"`
	Widths     []float64 `yaml:"widths"`
}

// Variation holds the signal variation parameters.
type Variation struct {
	PowerVariationDB float64 `yaml:"powerVariationDB"`
	StrongSignalProb float64 `yaml:"strongSignalProb"`
	WeakSignalProb   float64 `yaml:"weakSignalProb"`
	TimingJitterMS   float64 `yaml:"timingJitterMS"`
}

// Server holds the loopback HTTP server settings.
type Server struct {
	Host         string `yaml:"host"`
	PortStart    int    `yaml:"portStart"`
	PortAttempts int    `yaml:"portAttempts"`
}

// Window holds the native window launch settings.
type Window struct {
	Title   string `yaml:"title"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Backend string `yaml:"backend"` // empty means probe in priority order
}

// Config is the full configuration document.
type Config struct {
	Rate         Rate      `yaml:"packetsPerSecond"`
	BandMHz      Range     `yaml:"bandMHz"`
	PowerDBm     Range     `yaml:"powerDBm"`
	BandwidthMHz Range     `yaml:"bandwidthMHz"`
	Mixture      Mixture   `yaml:"mixture"`
	WiFi         WiFi      `yaml:"wifi"`
	Bluetooth    Bluetooth `yaml:"bluetooth"`
	Variation    Variation `yaml:"variation"`

	// BufferSize is the max number of measurements retained for plotting.
	BufferSize int `yaml:"bufferSize"`

	Server Server `yaml:"server"`
	Window Window `yaml:"window"`
}

// Default returns the built-in configuration emulating the 2.4-2.5GHz ISM band.
func Default() *Config {
	return &Config{
		Rate:         Rate{Default: 75, Min: 10, Max: 500},
		BandMHz:      Range{Min: 2400.0, Max: 2500.0},
		PowerDBm:     Range{Min: -100.0, Max: -30.0},
		BandwidthMHz: Range{Min: 1.0, Max: 80.0},
		Mixture:      Mixture{WiFi: 0.6, Bluetooth: 0.3, Other: 0.1},
		WiFi: WiFi{
			Channels: []float64{
				2412, 2417, 2422, 2427, 2432, 2437, 2442,
				2447, 2452, 2457, 2462, 2467, 2472,
			},
			ChannelSpreadMHz: 11.0,
			CommonWidths:     []float64{20.0, 40.0},
			RareWidths:       []float64{5.0, 10.0, 80.0},
			CommonWidthProb:  0.8,
		},
		Bluetooth: Bluetooth{
			BaseMHz:    2402.0,
			HopCount:   79,
			SpacingMHz: 1.0,
			Widths:     []float64{1.0, 1.0, 1.0, 2.0},
		},
		Variation: Variation{
			PowerVariationDB: 3.0,
			StrongSignalProb: 0.05,
			WeakSignalProb:   0.1,
			TimingJitterMS:   100.0,
		},
		BufferSize: 300,
		Server: Server{
			Host:         "127.0.0.1",
			PortStart:    8000,
			PortAttempts: 100,
		},
		Window: Window{
			Title:  "ISM Band Scanner",
			Width:  1000,
			Height: 700,
		},
	}
}

// Load reads a YAML document from path and merges it over the defaults.
// An empty path returns the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file %q: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed or out-of-range configuration. It is the only
// place where generation parameters are checked; the generator itself trusts
// a validated config.
func (c *Config) Validate() error {
	for _, iv := range []struct {
		name string
		r    Range
	}{
		{"bandMHz", c.BandMHz},
		{"powerDBm", c.PowerDBm},
		{"bandwidthMHz", c.BandwidthMHz},
	} {
		if iv.r.Min >= iv.r.Max {
			return fmt.Errorf("%s: min (%v) must be below max (%v)", iv.name, iv.r.Min, iv.r.Max)
		}
	}

	if c.Rate.Min < 1 {
		return fmt.Errorf("packetsPerSecond.min must be at least 1, got %d", c.Rate.Min)
	}
	if c.Rate.Min > c.Rate.Max {
		return fmt.Errorf("packetsPerSecond: min (%d) must not exceed max (%d)", c.Rate.Min, c.Rate.Max)
	}
	if c.Rate.Default < c.Rate.Min || c.Rate.Default > c.Rate.Max {
		return fmt.Errorf("packetsPerSecond.default (%d) outside [%d, %d]", c.Rate.Default, c.Rate.Min, c.Rate.Max)
	}

	for name, p := range map[string]float64{
		"mixture.wifi":               c.Mixture.WiFi,
		"mixture.bluetooth":          c.Mixture.Bluetooth,
		"mixture.other":              c.Mixture.Other,
		"variation.strongSignalProb": c.Variation.StrongSignalProb,
		"variation.weakSignalProb":   c.Variation.WeakSignalProb,
		"wifi.commonWidthProb":       c.WiFi.CommonWidthProb,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be a probability in [0, 1], got %v", name, p)
		}
	}
	if sum := c.Mixture.WiFi + c.Mixture.Bluetooth + c.Mixture.Other; math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("mixture weights must sum to 1.0, got %v", sum)
	}

	if len(c.WiFi.Channels) == 0 {
		return fmt.Errorf("wifi.channels must not be empty")
	}
	for _, ch := range c.WiFi.Channels {
		if !c.BandMHz.Contains(ch) {
			return fmt.Errorf("wifi channel %v MHz outside band [%v, %v]", ch, c.BandMHz.Min, c.BandMHz.Max)
		}
	}
	if len(c.WiFi.CommonWidths) == 0 {
		return fmt.Errorf("wifi.commonWidths must not be empty")
	}
	if c.WiFi.ChannelSpreadMHz < 0 {
		return fmt.Errorf("wifi.channelSpreadMHz must not be negative, got %v", c.WiFi.ChannelSpreadMHz)
	}

	if c.Bluetooth.HopCount < 1 {
		return fmt.Errorf("bluetooth.hopCount must be at least 1, got %d", c.Bluetooth.HopCount)
	}
	if c.Bluetooth.SpacingMHz <= 0 {
		return fmt.Errorf("bluetooth.spacingMHz must be positive, got %v", c.Bluetooth.SpacingMHz)
	}
	if len(c.Bluetooth.Widths) == 0 {
		return fmt.Errorf("bluetooth.widths must not be empty")
	}
	if !c.BandMHz.Contains(c.Bluetooth.BaseMHz) {
		return fmt.Errorf("bluetooth.baseMHz %v outside band [%v, %v]", c.Bluetooth.BaseMHz, c.BandMHz.Min, c.BandMHz.Max)
	}

	if c.Variation.PowerVariationDB < 0 {
		return fmt.Errorf("variation.powerVariationDB must not be negative, got %v", c.Variation.PowerVariationDB)
	}
	if c.Variation.TimingJitterMS < 0 {
		return fmt.Errorf("variation.timingJitterMS must not be negative, got %v", c.Variation.TimingJitterMS)
	}

	if c.BufferSize < 1 {
		return fmt.Errorf("bufferSize must be at least 1, got %d", c.BufferSize)
	}
	if c.Server.PortStart < 1 || c.Server.PortStart > 65535 {
		return fmt.Errorf("server.portStart must be a valid port, got %d", c.Server.PortStart)
	}
	if c.Server.PortAttempts < 1 {
		return fmt.Errorf("server.portAttempts must be at least 1, got %d", c.Server.PortAttempts)
	}
	if c.Window.Width < 1 || c.Window.Height < 1 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
