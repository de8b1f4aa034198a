package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"creditlens/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu      sync.RWMutex
	reports map[string]Record
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{reports: make(map[string]Record)}
}

// Create inserts or replaces a whole report row.
func (s *InMemory) Create(_ context.Context, reportID string, rec Record) error {
	if reportID == "" {
		return fmt.Errorf("report id is required")
	}
	row := make(Record, len(rec)+1)
	for col, v := range rec {
		if !ValidColumn(col) {
			return fmt.Errorf("unknown column %q", col)
		}
		row[col] = clone(v)
	}
	row[ColumnID] = reportID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[reportID] = row
	return nil
}

func (s *InMemory) GetColumns(_ context.Context, reportID string, columns []string) (Record, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.reports[reportID]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", reportID, sentinel.ErrNotFound)
	}
	out := make(Record, len(columns))
	for _, c := range columns {
		out[c] = clone(row[c])
	}
	return out, nil
}

func (s *InMemory) UpdateColumns(_ context.Context, reportID string, rec Record) error {
	if len(rec) == 0 {
		return nil
	}
	for col := range rec {
		if !ValidColumn(col) || col == ColumnID {
			return fmt.Errorf("column %q cannot be updated", col)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.reports[reportID]
	if !ok {
		return fmt.Errorf("report %s: %w", reportID, sentinel.ErrNotFound)
	}
	for col, v := range rec {
		row[col] = clone(v)
	}
	return nil
}

// clone copies mutable column values so callers never share backing arrays
// with the store.
func clone(v any) any {
	switch t := v.(type) {
	case json.RawMessage:
		if t == nil {
			return nil
		}
		return append(json.RawMessage(nil), t...)
	case []byte:
		if t == nil {
			return nil
		}
		return append(json.RawMessage(nil), t...)
	case []string:
		return append([]string(nil), t...)
	case *int:
		if t == nil {
			return nil
		}
		n := *t
		return &n
	default:
		return v
	}
}
