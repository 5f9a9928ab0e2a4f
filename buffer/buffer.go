// Package buffer keeps the most recent measurement batch for plotting.
//
// The update policy is replace-each-tick: a new batch discards the previous
// one instead of accumulating with eviction. The batch size is bounded by the
// packets-per-second setting, so the capacity cap only matters when the
// configured rate exceeds the retained plot size.
package buffer

import (
	"github.com/sallai/pltapp/sensor"
)

// Buffer is not safe for concurrent use; the owning controller serializes
// access to it.
type Buffer struct {
	cap  int
	data []sensor.Measurement
}

// New returns a buffer retaining at most capacity measurements.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{cap: capacity}
}

// Replace discards the previous contents and stores batch. If the batch
// exceeds the capacity, only the most recent measurements are kept.
func (b *Buffer) Replace(batch []sensor.Measurement) {
	if len(batch) > b.cap {
		batch = batch[len(batch)-b.cap:]
	}
	b.data = append(b.data[:0:0], batch...)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.data = nil
}

// Snapshot returns a copy of the current contents in insertion order.
// Callers may hold and read it freely; it never aliases the buffer.
func (b *Buffer) Snapshot() []sensor.Measurement {
	out := make([]sensor.Measurement, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the number of retained measurements.
func (b *Buffer) Len() int {
	return len(b.data)
}
