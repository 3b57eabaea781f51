// Package buffer provides a bounded line buffer for console backlog replay.
package buffer

import (
	"sync"
)

// LineRing is a thread-safe circular buffer holding the most recent lines
// up to a fixed count. When the ring is full the oldest line is discarded
// to make room for the new one.
//
// The console hub uses it to replay recent output to clients that connect
// after the lines were published.
type LineRing struct {
	lines    []string
	start    int
	count    int
	capacity int
	mu       sync.RWMutex
}

// NewLineRing creates a LineRing that keeps at most capacity lines.
// A capacity of 0 or less yields a ring that stores nothing.
func NewLineRing(capacity int) *LineRing {
	if capacity < 0 {
		capacity = 0
	}
	return &LineRing{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Push appends a line, evicting the oldest one when the ring is full.
func (r *LineRing) Push(line string) {
	if r.capacity == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.capacity {
		r.lines[(r.start+r.count)%r.capacity] = line
		r.count++
		return
	}

	r.lines[r.start] = line
	r.start = (r.start + 1) % r.capacity
}

// Lines returns a copy of the buffered lines, oldest first.
func (r *LineRing) Lines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	out := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.lines[(r.start+i)%r.capacity]
	}
	return out
}

// Clear removes all lines from the ring.
func (r *LineRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.lines {
		r.lines[i] = ""
	}
	r.start = 0
	r.count = 0
}

// Len returns the number of buffered lines.
func (r *LineRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the capacity of the ring.
func (r *LineRing) Cap() int {
	return r.capacity
}
