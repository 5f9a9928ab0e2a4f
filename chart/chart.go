// Package chart builds renderer-independent chart descriptions from
// measurement batches. The builders are pure: same batch and configuration,
// same spec. Axis ranges are fixed from the configuration so the charts do
// not rescale between ticks.
package chart

import (
	"fmt"

	"github.com/sallai/pltapp/config"
	"github.com/sallai/pltapp/sensor"
)

const (
	defaultPointSize = 6.0
	minMarkerSize    = 4.0
	maxMarkerSize    = 15.0
)

// Axis describes one chart axis with a fixed display range.
type Axis struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Point is a single marker. Color carries the third dimension (the value the
// marker is colored by); Size is the marker diameter in display units.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color float64 `json:"c"`
	Size  float64 `json:"s"`
}

// RefLine is a fixed vertical reference line, e.g. a WiFi channel center.
type RefLine struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// Spec is a full chart description independent of any rendering technology.
type Spec struct {
	Title      string    `json:"title"`
	XAxis      Axis      `json:"xAxis"`
	YAxis      Axis      `json:"yAxis"`
	ColorLabel string    `json:"colorLabel"`
	Points     []Point   `json:"points"`
	RefLines   []RefLine `json:"refLines,omitempty"`
}

// FrequencyBandwidth maps each measurement to (frequency, bandwidth) with the
// marker colored by received power. An empty batch yields an empty chart.
func FrequencyBandwidth(batch []sensor.Measurement, cfg *config.Config) Spec {
	points := make([]Point, 0, len(batch))
	for _, m := range batch {
		points = append(points, Point{
			X:     m.FrequencyMHz,
			Y:     m.BandwidthMHz,
			Color: m.PowerDBm,
			Size:  defaultPointSize,
		})
	}
	return Spec{
		Title: "Frequency vs. Bandwidth Distribution",
		XAxis: Axis{
			Label: "Frequency (MHz)",
			Min:   cfg.BandMHz.Min - 10,
			Max:   cfg.BandMHz.Max + 10,
		},
		YAxis: Axis{
			Label: "Bandwidth (MHz)",
			Min:   0,
			Max:   cfg.BandwidthMHz.Max + 5,
		},
		ColorLabel: "Power (dBm)",
		Points:     points,
	}
}

// Scanner maps each measurement to (frequency, power) like a spectrum
// analyzer display. Markers are sized and colored by bandwidth, and fixed
// reference lines mark the configured WiFi channel centers.
func Scanner(batch []sensor.Measurement, cfg *config.Config) Spec {
	points := make([]Point, 0, len(batch))
	for _, m := range batch {
		points = append(points, Point{
			X:     m.FrequencyMHz,
			Y:     m.PowerDBm,
			Color: m.BandwidthMHz,
			Size:  markerSize(m.BandwidthMHz),
		})
	}
	refs := make([]RefLine, 0, len(cfg.WiFi.Channels))
	for i, center := range cfg.WiFi.Channels {
		refs = append(refs, RefLine{
			X:     center,
			Label: fmt.Sprintf("Ch%d", i+1),
		})
	}
	return Spec{
		Title: "Spectrum Scanner - Frequency vs. Signal Strength",
		XAxis: Axis{
			Label: "Frequency (MHz)",
			Min:   cfg.BandMHz.Min - 10,
			Max:   cfg.BandMHz.Max + 10,
		},
		YAxis: Axis{
			Label: "Received Power (dBm)",
			Min:   cfg.PowerDBm.Min - 5,
			Max:   cfg.PowerDBm.Max + 5,
		},
		ColorLabel: "Bandwidth (MHz)",
		Points:     points,
		RefLines:   refs,
	}
}

// markerSize scales a bandwidth to a bounded marker diameter.
func markerSize(bandwidthMHz float64) float64 {
	s := bandwidthMHz / 4
	if s < minMarkerSize {
		return minMarkerSize
	}
	if s > maxMarkerSize {
		return maxMarkerSize
	}
	return s
}
