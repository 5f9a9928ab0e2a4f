// Package sensor synthesizes measurements emulating packet activity in the
// 2.4-2.5GHz ISM band (WiFi channels, Bluetooth hopping and other devices).
package sensor

import (
	"math/rand"
	"time"

	"github.com/sallai/pltapp/config"
)

const SourceName = "synthetic"

// wifiProximityMHz is the distance from a WiFi channel center within which a
// frequency is treated as WiFi traffic when picking a bandwidth.
const wifiProximityMHz = 15.0

// Measurement is a single synthetic packet observation. It is immutable once
// created; every numeric field lies within its configured closed interval.
type Measurement struct {
	Identifier string `json:"identifier"`
	Source     string `json:"source"`

	Time         time.Time `json:"time"`
	FrequencyMHz float64   `json:"frequencyMHz"`
	BandwidthMHz float64   `json:"bandwidthMHz"`
	PowerDBm     float64   `json:"powerDBm"`
}

// Generator produces measurement batches from a validated configuration.
// It is not safe for concurrent use; each caller owns its own instance.
type Generator struct {
	Identifier string

	cfg *config.Config
	rng *rand.Rand
}

// New returns a generator for the given configuration. A nil rng gets a
// time-seeded source; tests pass a seeded one for determinism.
func New(cfg *config.Config, identifier string, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		Identifier: identifier,
		cfg:        cfg,
		rng:        rng,
	}
}

// Batch generates exactly n measurements stamped around now. The protocol of
// each measurement is drawn from the configured mixture; all fields are
// clamped into their configured intervals regardless of distribution tails.
func (g *Generator) Batch(n int, now time.Time) []Measurement {
	if n < 0 {
		n = 0
	}
	batch := make([]Measurement, 0, n)
	for i := 0; i < n; i++ {
		freq := g.frequency()
		batch = append(batch, Measurement{
			Identifier:   g.Identifier,
			Source:       SourceName,
			Time:         g.arrival(now),
			FrequencyMHz: freq,
			BandwidthMHz: g.bandwidth(freq),
			PowerDBm:     g.power(),
		})
	}
	return batch
}

// frequency draws a center frequency following the configured mixture:
// near a WiFi channel, on a Bluetooth hop channel, or anywhere in the band.
func (g *Generator) frequency() float64 {
	cfg := g.cfg
	r := g.rng.Float64()
	switch {
	case r < cfg.Mixture.WiFi:
		center := cfg.WiFi.Channels[g.rng.Intn(len(cfg.WiFi.Channels))]
		offset := g.uniform(-cfg.WiFi.ChannelSpreadMHz, cfg.WiFi.ChannelSpreadMHz)
		return cfg.BandMHz.Clamp(center + offset)
	case r < cfg.Mixture.WiFi+cfg.Mixture.Bluetooth:
		hop := g.rng.Intn(cfg.Bluetooth.HopCount)
		return cfg.BandMHz.Clamp(cfg.Bluetooth.BaseMHz + float64(hop)*cfg.Bluetooth.SpacingMHz)
	default:
		return g.uniform(cfg.BandMHz.Min, cfg.BandMHz.Max)
	}
}

// bandwidth picks a width characteristic for the protocol implied by freq.
func (g *Generator) bandwidth(freq float64) float64 {
	cfg := g.cfg

	for _, center := range cfg.WiFi.Channels {
		if freq >= center-wifiProximityMHz && freq <= center+wifiProximityMHz {
			widths := cfg.WiFi.CommonWidths
			if g.rng.Float64() >= cfg.WiFi.CommonWidthProb && len(cfg.WiFi.RareWidths) > 0 {
				widths = cfg.WiFi.RareWidths
			}
			return cfg.BandwidthMHz.Clamp(widths[g.rng.Intn(len(widths))])
		}
	}

	btHigh := cfg.Bluetooth.BaseMHz + float64(cfg.Bluetooth.HopCount-1)*cfg.Bluetooth.SpacingMHz
	if freq >= cfg.Bluetooth.BaseMHz && freq <= btHigh {
		return cfg.BandwidthMHz.Clamp(cfg.Bluetooth.Widths[g.rng.Intn(len(cfg.Bluetooth.Widths))])
	}

	// Other ISM devices span narrower widths than WiFi.
	return cfg.BandwidthMHz.Clamp(g.uniform(cfg.BandwidthMHz.Min, cfg.BandwidthMHz.Min+19.0))
}

// power draws a received power level: a typical mid-range reading most of the
// time, occasionally an anomalously strong or weak one, plus Gaussian noise.
func (g *Generator) power() float64 {
	cfg := g.cfg
	span := cfg.PowerDBm.Max - cfg.PowerDBm.Min

	base := g.uniform(cfg.PowerDBm.Min+0.2*span, cfg.PowerDBm.Max-0.2*span)
	if g.rng.Float64() < cfg.Variation.StrongSignalProb {
		base = g.uniform(cfg.PowerDBm.Max-0.15*span, cfg.PowerDBm.Max)
	}
	if g.rng.Float64() < cfg.Variation.WeakSignalProb {
		base = g.uniform(cfg.PowerDBm.Min, cfg.PowerDBm.Min+0.2*span)
	}
	noise := g.rng.NormFloat64() * cfg.Variation.PowerVariationDB
	return cfg.PowerDBm.Clamp(base + noise)
}

// arrival jitters now by the configured timing jitter to emulate imprecise
// packet arrival times.
func (g *Generator) arrival(now time.Time) time.Time {
	jitter := g.uniform(-g.cfg.Variation.TimingJitterMS, g.cfg.Variation.TimingJitterMS)
	return now.Add(time.Duration(jitter * float64(time.Millisecond)))
}

func (g *Generator) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Float64()*(hi-lo)
}
