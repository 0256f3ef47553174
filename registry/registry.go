package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/axonbase/extcore/store"
	"github.com/axonbase/extcore/types"
)

// Registry is the authoritative in-memory view of every known extension,
// hydrated from a durable store at startup and written through on every
// mutation. The install coordinator is the sole writer; readers may query
// concurrently but get point-in-time copies.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*types.Record
	store   store.Store
}

// Open hydrates a registry from the durable store. A failing read here
// aborts profile initialization: running with partial state is worse than
// not running.
func Open(s store.Store) (*Registry, error) {
	records, err := s.List()
	if err != nil {
		return nil, fmt.Errorf("hydrate extension registry: %w", err)
	}
	r := &Registry{
		records: make(map[string]*types.Record, len(records)),
		store:   s,
	}
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	return r, nil
}

// Get returns a copy of the record for the id, nil when unknown.
func (r *Registry) Get(id string) *types.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id].Clone()
}

// Put writes the record through to the durable store and publishes it to
// readers only after the write succeeded.
func (r *Registry) Put(rec *types.Record) error {
	clone := rec.Clone()
	if err := r.store.Put(clone); err != nil {
		return fmt.Errorf("persist record %s: %w", rec.ID, err)
	}
	r.mu.Lock()
	r.records[clone.ID] = clone
	r.mu.Unlock()
	return nil
}

// Delete removes the record entirely, durable state first.
func (r *Registry) Delete(id string) error {
	if err := r.store.Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
	return nil
}

// All returns a copy of every record, tombstones included, sorted by id for
// deterministic iteration.
func (r *Registry) All() []*types.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*types.Record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Installed returns every live installation (tombstones excluded).
func (r *Registry) Installed() []*types.Record {
	var records []*types.Record
	for _, rec := range r.All() {
		if rec.IsInstalled() {
			records = append(records, rec)
		}
	}
	return records
}

// Enabled returns every enabled extension.
func (r *Registry) Enabled() []*types.Record {
	var records []*types.Record
	for _, rec := range r.All() {
		if rec.State == types.StateEnabled {
			records = append(records, rec)
		}
	}
	return records
}

// IsExternallyUninstalled reports whether the id carries the external
// uninstall tombstone.
func (r *Registry) IsExternallyUninstalled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return ok && rec.State == types.StateExternallyUninstalled
}

// ClearTombstone removes an external-uninstall tombstone, re-opening the id
// to external sources. A no-op when the id has no tombstone.
func (r *Registry) ClearTombstone(id string) error {
	r.mu.RLock()
	rec, ok := r.records[id]
	tombstoned := ok && rec.State == types.StateExternallyUninstalled
	r.mu.RUnlock()
	if !tombstoned {
		return nil
	}
	return r.Delete(id)
}

// Count returns the number of live installations.
func (r *Registry) Count() int {
	return len(r.Installed())
}
