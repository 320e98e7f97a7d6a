// Package audit keeps a bounded, in-memory history of diagram edits.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of events kept when none is configured.
const DefaultCapacity = 1024

// Status is the outcome of an edit.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event records one operation applied to a diagram.
type Event struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	DiagramID        string    `json:"diagramId"`
	Operation        string    `json:"operation"`
	Status           Status    `json:"status"`
	Error            string    `json:"error,omitempty"`
	Nodes            int       `json:"nodes"`
	Edges            int       `json:"edges"`
	TopEventResidual float64   `json:"topEventResidual"`
}

func (e *Event) String() string {
	return fmt.Sprintf("[%s] %s %s %s (residual %.2f)",
		e.Timestamp.Format(time.RFC3339), e.DiagramID, e.Operation, e.Status, e.TopEventResidual)
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	DiagramID string
	Operation string
	Status    Status
	Since     time.Time
}

func (f *Filter) match(e *Event) bool {
	if f == nil {
		return true
	}
	if f.DiagramID != "" && e.DiagramID != f.DiagramID {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// History is a circular buffer of events. Once full, the oldest event is
// overwritten.
type History struct {
	mu       sync.RWMutex
	events   []*Event
	capacity int
	index    int
	count    int
	now      func() time.Time
}

// NewHistory creates a history holding at most capacity events.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		events:   make([]*Event, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Record stores e, filling in ID and Timestamp when unset.
func (h *History) Record(e *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	h.events[h.index] = e
	h.index = (h.index + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// Events returns the stored events matching f, oldest first.
func (h *History) Events(f *Filter) []*Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Event, 0, h.count)
	for i := 0; i < h.count; i++ {
		e := h.events[(h.index-h.count+i+h.capacity)%h.capacity]
		if e != nil && f.match(e) {
			result = append(result, e)
		}
	}
	return result
}

// Recent returns up to n events matching f, newest first.
func (h *History) Recent(f *Filter, n int) []*Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Event, 0)
	for i := 0; i < h.count && (n <= 0 || len(result) < n); i++ {
		e := h.events[(h.index-1-i+h.capacity)%h.capacity]
		if e != nil && f.match(e) {
			result = append(result, e)
		}
	}
	return result
}

// Count returns the number of events currently stored.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Clear removes all events.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = make([]*Event, h.capacity)
	h.index = 0
	h.count = 0
}
