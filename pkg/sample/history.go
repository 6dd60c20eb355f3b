package sample

import (
	"sync"
	"time"
)

// History keeps the samples of a sliding time window and notifies
// subscribers after every added sample.
type History struct {
	mu       sync.RWMutex
	window   time.Duration
	samples  []Sample
	onUpdate []func([]Sample)
}

// NewHistory creates a History covering window. A non-positive window keeps
// ten seconds.
func NewHistory(window time.Duration) *History {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &History{window: window}
}

// OnUpdate registers a callback. Callbacks get a copy of the window and run
// on the goroutine calling Add.
func (h *History) OnUpdate(cb func([]Sample)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUpdate = append(h.onUpdate, cb)
}

// Add appends s and drops samples older than the window.
func (h *History) Add(s Sample) {
	h.mu.Lock()
	h.samples = append(h.samples, s)
	cutoff := s.Timestamp.Add(-h.window)
	drop := 0
	for drop < len(h.samples) && h.samples[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		h.samples = append(h.samples[:0], h.samples[drop:]...)
	}
	callbacks := h.onUpdate
	var snapshot []Sample
	if len(callbacks) > 0 {
		snapshot = append([]Sample(nil), h.samples...)
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(snapshot)
	}
}

// SetWindow changes the window. Samples already outside it are dropped on
// the next Add.
func (h *History) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	h.mu.Lock()
	h.window = window
	h.mu.Unlock()
}

// Samples returns a copy of the window.
func (h *History) Samples() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Sample(nil), h.samples...)
}

// Reset drops all samples.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}

// Process adds every sample from in until it is closed.
func (h *History) Process(in <-chan Sample) {
	for s := range in {
		h.Add(s)
	}
}
