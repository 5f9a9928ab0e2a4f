package controller

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sallai/pltapp/buffer"
	"github.com/sallai/pltapp/chart"
	"github.com/sallai/pltapp/config"
	"github.com/sallai/pltapp/sensor"
)

// fakeView records every pushed chart pair. Safe for concurrent use because
// the ticker goroutine calls Update.
type fakeView struct {
	mu      sync.Mutex
	err     error
	updates int
	lastFB  chart.Spec
	lastSC  chart.Spec
}

func (v *fakeView) Update(freqBW, scanner chart.Spec) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updates++
	v.lastFB = freqBW
	v.lastSC = scanner
	return v.err
}

func (v *fakeView) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.updates
}

func (v *fakeView) last() (chart.Spec, chart.Spec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastFB, v.lastSC
}

func newTestController(view View, sink chan<- sensor.Measurement, interval time.Duration) *Controller {
	cfg := config.Default()
	gen := sensor.New(cfg, "test-run", rand.New(rand.NewSource(17)))
	return New(cfg, gen, buffer.New(cfg.BufferSize), view, sink, interval)
}

func TestTick(t *testing.T) {
	view := &fakeView{}
	c := newTestController(view, nil, time.Hour)
	c.Tick()

	if got := len(c.Snapshot()); got != c.Rate() {
		t.Errorf("expected %d buffered measurements after a tick, got %d", c.Rate(), got)
	}
	fb, sc := view.last()
	if len(fb.Points) != c.Rate() || len(sc.Points) != c.Rate() {
		t.Errorf("expected %d points in each chart, got %d and %d", c.Rate(), len(fb.Points), len(sc.Points))
	}
	for i := range fb.Points {
		if fb.Points[i].X != sc.Points[i].X {
			t.Fatalf("point %d frequency differs between the pushed charts", i)
		}
	}
}

func TestTickReplacesBuffer(t *testing.T) {
	view := &fakeView{}
	c := newTestController(view, nil, time.Hour)
	c.Tick()
	first := c.Snapshot()
	c.Tick()
	second := c.Snapshot()

	if len(second) != c.Rate() {
		t.Fatalf("expected %d measurements after second tick, got %d", c.Rate(), len(second))
	}
	if first[0] == second[0] {
		t.Error("second tick should have replaced the first batch")
	}
}

func TestViewErrorDoesNotStopTicking(t *testing.T) {
	view := &fakeView{err: errors.New("render broke")}
	c := newTestController(view, nil, time.Hour)
	c.Tick()
	c.Tick()
	if view.count() != 2 {
		t.Errorf("expected 2 updates despite view errors, got %d", view.count())
	}
	if got := len(c.Snapshot()); got != c.Rate() {
		t.Errorf("buffer should still be updated, got %d measurements", got)
	}
}

func TestSetRate(t *testing.T) {
	c := newTestController(&fakeView{}, nil, time.Hour)

	if err := c.SetRate(200); err != nil {
		t.Fatalf("SetRate(200) failed: %s", err)
	}
	if c.Rate() != 200 {
		t.Fatalf("rate not updated: %d", c.Rate())
	}

	for _, n := range []int{0, 9, 501, -1} {
		if err := c.SetRate(n); err == nil {
			t.Errorf("SetRate(%d) should be rejected", n)
		}
	}
	if c.Rate() != 200 {
		t.Errorf("rejected SetRate changed the rate to %d", c.Rate())
	}
}

func TestStartStop(t *testing.T) {
	view := &fakeView{}
	c := newTestController(view, nil, 20*time.Millisecond)

	if c.Running() {
		t.Fatal("controller should start stopped")
	}
	c.Stop() // no-op while stopped
	c.Start()
	c.Start() // no-op while running, must not double the tick frequency
	if !c.Running() {
		t.Fatal("controller should be running after Start")
	}

	time.Sleep(210 * time.Millisecond)
	c.Stop()
	if c.Running() {
		t.Fatal("controller should be stopped after Stop")
	}

	// ~10 ticks at 20ms over 210ms; a doubled ticker would push ~20.
	got := view.count()
	if got < 5 || got > 14 {
		t.Errorf("expected roughly 10 updates, got %d", got)
	}

	after := view.count()
	time.Sleep(60 * time.Millisecond)
	if view.count() != after {
		t.Error("ticks continued after Stop")
	}
}

func TestClear(t *testing.T) {
	view := &fakeView{}
	c := newTestController(view, nil, time.Hour)
	c.Tick()
	c.Clear()

	if got := len(c.Snapshot()); got != 0 {
		t.Errorf("expected empty buffer after Clear, got %d measurements", got)
	}
	fb, sc := view.last()
	if len(fb.Points) != 0 || len(sc.Points) != 0 {
		t.Errorf("Clear should push empty charts, got %d and %d points", len(fb.Points), len(sc.Points))
	}
}

func TestForwardToSink(t *testing.T) {
	sink := make(chan sensor.Measurement, 1000)
	c := newTestController(&fakeView{}, sink, time.Hour)
	c.Tick()
	if got := len(sink); got != c.Rate() {
		t.Errorf("expected %d measurements in the sink, got %d", c.Rate(), got)
	}
}

func TestForwardNeverBlocks(t *testing.T) {
	sink := make(chan sensor.Measurement, 5) // much smaller than the batch
	c := newTestController(&fakeView{}, sink, time.Hour)

	done := make(chan struct{})
	go func() {
		c.Tick()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick blocked on a full export sink")
	}
	if got := len(sink); got != 5 {
		t.Errorf("expected the sink to hold its capacity of 5, got %d", got)
	}
}
