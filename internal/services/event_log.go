package services

import (
	"sync"

	"onu-map/internal/domain"
)

const (
	// EventLogCapacity is the number of transitions each log retains
	EventLogCapacity = 50
	// RecentEventsLimit is the number of transitions returned per log
	RecentEventsLimit = 20
)

// EventLog is a bounded transition log, newest first
type EventLog struct {
	mu       sync.RWMutex
	capacity int
	events   []domain.StatusEvent
}

// NewEventLog creates a log that keeps at most capacity events
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = EventLogCapacity
	}
	return &EventLog{
		capacity: capacity,
		events:   make([]domain.StatusEvent, 0, capacity),
	}
}

// Push inserts the event at the head, evicting the oldest when full
func (l *EventLog) Push(e domain.StatusEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) < l.capacity {
		l.events = append(l.events, domain.StatusEvent{})
	}
	copy(l.events[1:], l.events[:len(l.events)-1])
	l.events[0] = e
}

// Recent returns a copy of the newest n events
func (l *EventLog) Recent(n int) []domain.StatusEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]domain.StatusEvent, n)
	copy(out, l.events[:n])
	return out
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.events)
}
