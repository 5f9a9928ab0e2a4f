// Package filter drops measurements from an export stream before they reach
// an exporter.
package filter

import "github.com/sallai/pltapp/sensor"

type Filterer interface {
	ShouldIgnore(*sensor.Measurement) bool
}

// Filter forwards measurements from input to output, skipping those any
// filter wants ignored. It returns once input is closed and closes output.
func Filter(input <-chan sensor.Measurement, output chan<- sensor.Measurement, filters []Filterer) error {
	defer close(output)
	for m := range input {
		skip := false
		for _, f := range filters {
			if f.ShouldIgnore(&m) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		output <- m
	}
	return nil
}

// FreqRange ignores measurements whose center frequency lies outside the
// window.
type FreqRange struct {
	LowMHz  float64
	HighMHz float64
}

func (f *FreqRange) ShouldIgnore(m *sensor.Measurement) bool {
	if m.FrequencyMHz > f.HighMHz {
		return true
	}
	if m.FrequencyMHz < f.LowMHz {
		return true
	}
	return false
}

// MinPower ignores measurements weaker than the threshold.
type MinPower struct {
	DBm float64
}

func (f *MinPower) ShouldIgnore(m *sensor.Measurement) bool {
	return m.PowerDBm < f.DBm
}
