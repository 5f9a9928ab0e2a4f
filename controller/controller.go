// Package controller drives the generate -> buffer -> chart cycle. It owns
// the periodic tick, the measurement buffer and the packets-per-second
// setting, and pushes rebuilt chart specs to an injected view.
package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sallai/pltapp/buffer"
	"github.com/sallai/pltapp/chart"
	"github.com/sallai/pltapp/config"
	"github.com/sallai/pltapp/sensor"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pltapp_ticks_total",
		Help: "Total number of generation ticks",
	})

	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pltapp_tick_errors_total",
		Help: "Total number of ticks where the chart update failed",
	})

	measurementsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pltapp_measurements_generated_total",
		Help: "Total number of synthetic measurements generated",
	})

	measurementsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pltapp_measurements_dropped_total",
		Help: "Total number of measurements dropped because the export sink was full",
	})

	currentRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pltapp_packets_per_second",
		Help: "Current packets-per-second setting",
	})
)

// View receives the rebuilt chart specs after every tick. Implementations
// must not block; an error is logged and the tick loop continues.
type View interface {
	Update(freqBandwidth, scanner chart.Spec) error
}

// Controller is safe for concurrent use; the ticker goroutine and HTTP
// handlers share it.
type Controller struct {
	mu   sync.Mutex
	cfg  *config.Config
	gen  *sensor.Generator
	buf  *buffer.Buffer
	view View
	sink chan<- sensor.Measurement

	rate     int
	running  bool
	stopCh   chan struct{}
	interval time.Duration
	now      func() time.Time
}

// New wires a controller from its dependencies. The sink may be nil when no
// exporter is configured. An interval <= 0 defaults to one second.
func New(cfg *config.Config, gen *sensor.Generator, buf *buffer.Buffer, view View, sink chan<- sensor.Measurement, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = time.Second
	}
	currentRate.Set(float64(cfg.Rate.Default))
	return &Controller{
		cfg:      cfg,
		gen:      gen,
		buf:      buf,
		view:     view,
		sink:     sink,
		rate:     cfg.Rate.Default,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins periodic ticking. Calling it while already running is a no-op;
// the tick frequency never doubles.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	go c.loop(c.stopCh)
	glog.V(1).Infoln("generation started")
}

// Stop cancels the periodic tick. Calling it while stopped is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	glog.V(1).Infoln("generation stopped")
}

// Close stops the controller. The export sink channel is owned and closed by
// the caller that created it.
func (c *Controller) Close() {
	c.Stop()
}

func (c *Controller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A slow tick delays the next firing; missed ticks are
			// not queued.
			c.Tick()
		}
	}
}

// Tick runs one generate -> buffer -> chart cycle. Chart update failures are
// logged and swallowed so the next tick runs normally.
func (c *Controller) Tick() {
	c.mu.Lock()
	batch := c.gen.Batch(c.rate, c.now())
	c.buf.Replace(batch)
	freqBW := chart.FrequencyBandwidth(batch, c.cfg)
	scanner := chart.Scanner(batch, c.cfg)
	c.mu.Unlock()

	ticksTotal.Inc()
	measurementsGenerated.Add(float64(len(batch)))

	if err := c.view.Update(freqBW, scanner); err != nil {
		tickErrors.Inc()
		glog.Warningf("chart update failed, continuing: %s\n", err)
	}
	c.forward(batch)
}

// forward hands the batch to the export sink without ever blocking the tick.
func (c *Controller) forward(batch []sensor.Measurement) {
	if c.sink == nil {
		return
	}
	dropped := 0
	for _, m := range batch {
		select {
		case c.sink <- m:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		measurementsDropped.Add(float64(dropped))
		glog.Warningf("export sink full, dropped %d of %d measurements\n", dropped, len(batch))
	}
}

// SetRate updates the packets-per-second setting for subsequent ticks. An
// out-of-range value is rejected and leaves the setting unchanged.
func (c *Controller) SetRate(n int) error {
	if n < c.cfg.Rate.Min || n > c.cfg.Rate.Max {
		return fmt.Errorf("packets per second %d outside [%d, %d]", n, c.cfg.Rate.Min, c.cfg.Rate.Max)
	}
	c.mu.Lock()
	c.rate = n
	c.mu.Unlock()
	currentRate.Set(float64(n))
	return nil
}

// Rate returns the current packets-per-second setting.
func (c *Controller) Rate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// Running reports whether the periodic tick is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Clear empties the buffer and pushes empty charts. Valid in either state.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.buf.Clear()
	freqBW := chart.FrequencyBandwidth(nil, c.cfg)
	scanner := chart.Scanner(nil, c.cfg)
	c.mu.Unlock()

	if err := c.view.Update(freqBW, scanner); err != nil {
		glog.Warningf("chart clear failed: %s\n", err)
	}
}

// Snapshot returns a copy of the currently buffered measurements.
func (c *Controller) Snapshot() []sensor.Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Snapshot()
}
