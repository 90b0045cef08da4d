package store

import (
	"context"
	"fmt"
	"sync"

	"promoreg/internal/registration/models"
)

// Error Contract:
// All store methods follow this pattern:
// - Return ErrNotFound (wrapped) when the requested row does not exist
// - Return *WriteError for write failures so callers can classify them
// - Return nil for successful operations

// InMemoryStore keeps records in memory. It backs tests and local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows []*models.Record
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

// Append adds a copy of the record at the next position.
func (s *InMemoryStore) Append(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, copyRecord(record))
	return nil
}

// FindLatestByUserID returns the highest-position row for the user id.
func (s *InMemoryStore) FindLatestByUserID(_ context.Context, userID string) (*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].PlatformUserID == userID {
			return &Row{Record: copyRecord(s.rows[i]), Position: int64(i + 1)}, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

// UpdateAssignment rewrites the assignment columns of the row at row.Position.
func (s *InMemoryStore) UpdateAssignment(_ context.Context, row *Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := int(row.Position) - 1
	if idx < 0 || idx >= len(s.rows) {
		return fmt.Errorf("position %d: %w", row.Position, ErrNotFound)
	}
	s.rows[idx].AssignedDestination = row.Record.AssignedDestination
	s.rows[idx].DestinationHistory = append([]string(nil), row.Record.DestinationHistory...)
	return nil
}

// Stats reports the total row count.
func (s *InMemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Stats{Backend: "memory", TotalRecords: len(s.rows)}, nil
}

// Records returns a copy of all rows in append order, for tests and the
// operator surface.
func (s *InMemoryStore) Records() []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, len(s.rows))
	for i, r := range s.rows {
		out[i] = copyRecord(r)
	}
	return out
}

func copyRecord(r *models.Record) *models.Record {
	dup := *r
	dup.DestinationHistory = append([]string(nil), r.DestinationHistory...)
	return &dup
}
