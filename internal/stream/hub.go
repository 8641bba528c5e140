// Package stream carries the textual output of background pipeline runs to
// dashboard subscribers. Each run gets its own bounded channel and an
// explicit completion sentinel, so a subscriber can detect the end of a run
// deterministically and a slow subscriber can never grow memory without
// bound (the oldest lines are dropped instead).
package stream

import (
	"fmt"
	"sync"
	"time"
)

// DefaultBuffer is the per-run line buffer used when none is configured.
const DefaultBuffer = 256

// Event is one line of run output. Done marks the final event of a run; no
// further events follow it.
type Event struct {
	Message string `json:"message,omitempty"`
	Done    bool   `json:"done"`
}

// RunLog is the output channel for a single pipeline run.
type RunLog struct {
	id string

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// ID returns the run identifier.
func (r *RunLog) ID() string {
	return r.id
}

// Events returns the receive side of the run's channel. The channel is
// closed after the Done sentinel is delivered.
func (r *RunLog) Events() <-chan Event {
	return r.ch
}

// Printf appends a formatted line. It never blocks: when the buffer is full
// the oldest line is discarded to make room. Lines written after Close are
// dropped.
func (r *RunLog) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.push(Event{Message: fmt.Sprintf(format, args...)})
}

// Close emits the completion sentinel and closes the channel. Safe to call
// once per run; subsequent writes are dropped.
func (r *RunLog) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.push(Event{Done: true})
	r.closed = true
	close(r.ch)
}

// push must be called with the mutex held.
func (r *RunLog) push(ev Event) {
	for {
		select {
		case r.ch <- ev:
			return
		default:
			// Buffer full: drop the oldest line.
			select {
			case <-r.ch:
			default:
			}
		}
	}
}

// Hub tracks the logs of in-flight runs by run ID.
type Hub struct {
	mu     sync.Mutex
	buffer int
	runs   map[string]*RunLog
}

// NewHub creates a Hub whose run logs buffer up to buffer lines each.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		runs:   map[string]*RunLog{},
	}
}

// Open registers a new run log under the given ID, replacing any previous
// log with the same ID.
func (h *Hub) Open(id string) *RunLog {
	h.mu.Lock()
	defer h.mu.Unlock()
	log := &RunLog{
		id: id,
		ch: make(chan Event, h.buffer),
	}
	h.runs[id] = log
	return log
}

// Get returns the run log for an ID, if it exists.
func (h *Hub) Get(id string) (*RunLog, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	log, ok := h.runs[id]
	return log, ok
}

// Release removes a finished run's log from the hub. The log's channel
// remains readable until drained.
func (h *Hub) Release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.runs, id)
}

// ReleaseAfter schedules a Release once the grace period elapses, so a run
// nobody ever subscribes to does not stay registered forever. A subscriber
// that drains the log first makes the scheduled release a no-op. The timer
// is returned for tests.
func (h *Hub) ReleaseAfter(id string, grace time.Duration) *time.Timer {
	return time.AfterFunc(grace, func() { h.Release(id) })
}
