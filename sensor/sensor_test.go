package sensor

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/sallai/pltapp/config"
)

func testGenerator(seed int64) *Generator {
	return New(config.Default(), "test-run", rand.New(rand.NewSource(seed)))
}

func TestBatchCount(t *testing.T) {
	g := testGenerator(1)
	now := time.Now()
	for _, n := range []int{0, 1, 10, 75, 500} {
		if got := len(g.Batch(n, now)); got != n {
			t.Errorf("Batch(%d) returned %d measurements", n, got)
		}
	}
}

func TestBatchNegativeCount(t *testing.T) {
	g := testGenerator(1)
	if got := len(g.Batch(-5, time.Now())); got != 0 {
		t.Errorf("Batch(-5) returned %d measurements, want 0", got)
	}
}

func TestBatchBounds(t *testing.T) {
	cfg := config.Default()
	g := testGenerator(42)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	jitter := time.Duration(cfg.Variation.TimingJitterMS * float64(time.Millisecond))

	for _, m := range g.Batch(10000, now) {
		if m.Identifier != "test-run" || m.Source != SourceName {
			t.Fatalf("bad identity fields: %+v", m)
		}
		if !cfg.BandMHz.Contains(m.FrequencyMHz) {
			t.Fatalf("frequency %v outside band [%v, %v]", m.FrequencyMHz, cfg.BandMHz.Min, cfg.BandMHz.Max)
		}
		if !cfg.BandwidthMHz.Contains(m.BandwidthMHz) {
			t.Fatalf("bandwidth %v outside [%v, %v]", m.BandwidthMHz, cfg.BandwidthMHz.Min, cfg.BandwidthMHz.Max)
		}
		if !cfg.PowerDBm.Contains(m.PowerDBm) {
			t.Fatalf("power %v outside [%v, %v]", m.PowerDBm, cfg.PowerDBm.Min, cfg.PowerDBm.Max)
		}
		if d := m.Time.Sub(now); d < -jitter || d > jitter {
			t.Fatalf("arrival %v jittered by %v, max is %v", m.Time, d, jitter)
		}
	}
}

func TestBatchDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	a := testGenerator(7).Batch(100, now)
	b := testGenerator(7).Batch(100, now)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("measurement %d differs between identically seeded generators:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

// TestMixtureFractions uses a configuration where the three protocol draws
// produce disjoint frequencies, so each measurement's protocol can be read
// back off its frequency.
func TestMixtureFractions(t *testing.T) {
	cfg := config.Default()
	cfg.WiFi.Channels = []float64{2412}
	cfg.WiFi.ChannelSpreadMHz = 0 // WiFi draws land exactly on 2412.
	cfg.Bluetooth.BaseMHz = 2450  // Bluetooth hops cover [2450, 2459].
	cfg.Bluetooth.HopCount = 10
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %s", err)
	}

	const n = 20000
	g := New(cfg, "test-run", rand.New(rand.NewSource(99)))
	var wifi, bt int
	for _, m := range g.Batch(n, time.Now()) {
		f := m.FrequencyMHz
		switch {
		case f == 2412:
			wifi++
		case f >= 2450 && f <= 2459 && f == math.Trunc(f):
			bt++
		}
	}

	// A uniform "other" draw hits an exact integer with probability zero, so
	// the counts only reflect the mixture weights.
	if frac := float64(wifi) / n; math.Abs(frac-cfg.Mixture.WiFi) > 0.05 {
		t.Errorf("WiFi fraction %.3f, want %.2f +- 0.05", frac, cfg.Mixture.WiFi)
	}
	if frac := float64(bt) / n; math.Abs(frac-cfg.Mixture.Bluetooth) > 0.05 {
		t.Errorf("Bluetooth fraction %.3f, want %.2f +- 0.05", frac, cfg.Mixture.Bluetooth)
	}
}

// TestBluetoothHopsAreDiscrete checks that Bluetooth-only generation emits
// frequencies on the hop grid rather than anywhere in the band.
func TestBluetoothHopsAreDiscrete(t *testing.T) {
	cfg := config.Default()
	cfg.Mixture = config.Mixture{WiFi: 0, Bluetooth: 1, Other: 0}

	g := New(cfg, "test-run", rand.New(rand.NewSource(3)))
	seen := map[float64]bool{}
	for _, m := range g.Batch(5000, time.Now()) {
		offset := m.FrequencyMHz - cfg.Bluetooth.BaseMHz
		hop := offset / cfg.Bluetooth.SpacingMHz
		if hop != math.Trunc(hop) || hop < 0 || int(hop) >= cfg.Bluetooth.HopCount {
			t.Fatalf("frequency %v is not on the hop grid", m.FrequencyMHz)
		}
		seen[m.FrequencyMHz] = true
	}
	if len(seen) < cfg.Bluetooth.HopCount/2 {
		t.Errorf("only %d of %d hop channels seen in 5000 draws", len(seen), cfg.Bluetooth.HopCount)
	}
}

// TestWiFiBandwidths checks that measurements near a WiFi channel draw from
// the configured channel width lists.
func TestWiFiBandwidths(t *testing.T) {
	cfg := config.Default()
	cfg.Mixture = config.Mixture{WiFi: 1, Bluetooth: 0, Other: 0}

	allowed := map[float64]bool{}
	for _, w := range append(cfg.WiFi.CommonWidths, cfg.WiFi.RareWidths...) {
		allowed[cfg.BandwidthMHz.Clamp(w)] = true
	}

	g := New(cfg, "test-run", rand.New(rand.NewSource(5)))
	for _, m := range g.Batch(2000, time.Now()) {
		if !allowed[m.BandwidthMHz] {
			t.Fatalf("WiFi measurement has unexpected bandwidth %v", m.BandwidthMHz)
		}
	}
}

func TestNilRNG(t *testing.T) {
	g := New(config.Default(), "test-run", nil)
	if got := len(g.Batch(10, time.Now())); got != 10 {
		t.Errorf("Batch with time-seeded rng returned %d measurements, want 10", got)
	}
}
