package store

import (
	"sync"

	"github.com/axonbase/extcore/types"
)

// MemoryStore is an in-process Store for tests and ephemeral profiles.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*types.Record)}
}

// Get returns the record for the id, or ErrNotFound.
func (s *MemoryStore) Get(id string) (*types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Put writes the record.
func (s *MemoryStore) Put(rec *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Delete removes the record for the id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// List returns every stored record.
func (s *MemoryStore) List() ([]*types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*types.Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec.Clone())
	}
	return records, nil
}

// Update atomically applies fn to the record for the id.
func (s *MemoryStore) Update(id string, fn func(*types.Record) (*types.Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *types.Record
	if rec, ok := s.records[id]; ok {
		current = rec.Clone()
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}
	if updated == nil {
		delete(s.records, id)
		return nil
	}
	s.records[id] = updated.Clone()
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
