// Package history provides the bounded, append-only record of closed candles.
//
// The store is a fixed-capacity circular buffer: appending beyond capacity
// evicts the single oldest entry. It is shared between the stream coordinator
// goroutine and the REST query/overwrite handlers, so access is mutex-guarded.
package history

import (
	"sync"

	"signalstreamv1/internal/model"
)

// DefaultCapacity is the retained closed-candle window.
const DefaultCapacity = 500

// History is a bounded FIFO of closed candles.
//
// Thread-safe for concurrent appends, snapshots and overwrites.
type History struct {
	mu   sync.RWMutex
	buf  []model.Candle
	cap  int
	pos  int // next write position
	full bool
}

// New creates a history with the given capacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		buf: make([]model.Candle, capacity),
		cap: capacity,
	}
}

// Append adds the newest candle, evicting the oldest entry when full.
// At most one entry is evicted per call; Append runs once per closed candle.
func (h *History) Append(c model.Candle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.pos] = c
	h.pos = (h.pos + 1) % h.cap
	if h.pos == 0 && !h.full {
		h.full = true
	}
}

// Snapshot returns a copy of the last n candles in arrival order.
// n <= 0 or n larger than the current length returns everything retained.
func (h *History) Snapshot(n int) []model.Candle {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.len()
	if n <= 0 || n > count {
		n = count
	}

	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = h.buf[h.index(count-n+i)]
	}
	return out
}

// Closes returns the close-price series of all retained candles in arrival
// order. Used by the indicator recompute on every closed candle.
func (h *History) Closes() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.len()
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = h.buf[h.index(i)].Close
	}
	return out
}

// Overwrite replaces the entire history with the given candles, truncated to
// the newest `capacity` entries. Used only by the bulk-set REST path.
func (h *History) Overwrite(candles []model.Candle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(candles) > h.cap {
		candles = candles[len(candles)-h.cap:]
	}

	h.buf = make([]model.Candle, h.cap)
	copy(h.buf, candles)
	h.pos = len(candles) % h.cap
	h.full = len(candles) == h.cap
}

// Len returns the number of retained candles.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.len()
}

// Cap returns the history capacity.
func (h *History) Cap() int {
	return h.cap
}

func (h *History) len() int {
	if h.full {
		return h.cap
	}
	return h.pos
}

// index converts a logical index (0 = oldest) to a physical buffer index.
func (h *History) index(logical int) int {
	if h.full {
		return (h.pos + logical) % h.cap
	}
	return logical
}
