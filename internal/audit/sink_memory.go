package audit

import (
	"context"
	"sync"
)

// InMemorySink keeps events per report. Used in development and tests.
type InMemorySink struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemorySink() *InMemorySink {
	return &InMemorySink{events: make(map[string][]Event)}
}

func (s *InMemorySink) Append(_ context.Context, events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.events[e.ReportID] = append(s.events[e.ReportID], e)
	}
	return nil
}

// ListByReport returns the events recorded for reportID in arrival order.
func (s *InMemorySink) ListByReport(_ context.Context, reportID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[reportID]...), nil
}

func (s *InMemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]Event)
}
