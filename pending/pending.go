package pending

import (
	"sync"

	"github.com/axonbase/extcore/types"
)

// Install is one in-flight install request: received but not yet fetched,
// validated and applied. At most one Install exists per extension id.
type Install struct {
	ID        string
	Version   *types.Version // nil means "latest", which counts as newest
	Location  types.Location
	Path      string
	UpdateURL string

	FromSync        bool
	InstallSilently bool

	// Token identifies this occupancy of the pending slot. A completion
	// report carrying a stale token is discarded: its request was
	// superseded while the fetch was in flight.
	Token uint64
}

// Manager tracks the single pending install slot per extension id and
// arbitrates between competing sources per the location priority ranking.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*Install
	token   uint64
}

// NewManager creates an empty pending-install manager.
func NewManager() *Manager {
	return &Manager{pending: make(map[string]*Install)}
}

// AddFromSync requests an install on behalf of a sync change. Sync-sourced
// requests never displace an existing pending entry of any kind.
func (m *Manager) AddFromSync(id string, version *types.Version, installSilently bool) (*Install, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pending[id]; exists {
		return nil, false
	}
	return m.put(&Install{
		ID:              id,
		Version:         version,
		Location:        types.LocationInternal,
		FromSync:        true,
		InstallSilently: installSilently,
	}), true
}

// AddFromExternalUpdateURL requests an install from an update-URL provider.
func (m *Manager) AddFromExternalUpdateURL(id, updateURL string, location types.Location) (*Install, bool) {
	return m.add(&Install{
		ID:              id,
		Location:        location,
		UpdateURL:       updateURL,
		InstallSilently: true,
	})
}

// AddFromExternalFile requests an install from a file-based external
// provider at a known version.
func (m *Manager) AddFromExternalFile(id string, location types.Location, version *types.Version, path string) (*Install, bool) {
	return m.add(&Install{
		ID:              id,
		Version:         version,
		Location:        location,
		Path:            path,
		InstallSilently: true,
	})
}

// Add requests an install with an explicit descriptor (user action,
// developer load).
func (m *Manager) Add(install *Install) (*Install, bool) {
	clone := *install
	return m.add(&clone)
}

// add arbitrates the pending slot: a request wins when its source ranks
// strictly higher than the occupant's, or ranks equal and targets a strictly
// newer version. A nil requested version counts as newest. A sync-sourced
// occupant yields to any non-sync request of equal or better rank.
func (m *Manager) add(candidate *Install) (*Install, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.pending[candidate.ID]
	if !exists {
		return m.put(candidate), true
	}

	candidateRank := candidate.Location.Rank()
	existingRank := existing.Location.Rank()

	switch {
	case candidateRank > existingRank:
		return m.put(candidate), true
	case candidateRank < existingRank:
		return nil, false
	}

	// Equal rank. A local source displaces a sync placeholder outright.
	if existing.FromSync && !candidate.FromSync {
		return m.put(candidate), true
	}
	if newerThan(candidate.Version, existing.Version) {
		return m.put(candidate), true
	}
	return nil, false
}

func (m *Manager) put(install *Install) *Install {
	m.token++
	install.Token = m.token
	m.pending[install.ID] = install
	return install
}

// newerThan reports whether a is strictly newer than b, treating nil as
// newest.
func newerThan(a, b *types.Version) bool {
	if b == nil {
		return false
	}
	if a == nil {
		return true
	}
	return a.NewerThan(b)
}

// Remove clears the pending slot for the id unconditionally.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

// IsIDPending reports whether the id has an in-flight install.
func (m *Manager) IsIDPending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[id]
	return ok
}

// GetByID returns a copy of the pending entry for the id, or nil.
func (m *Manager) GetByID(id string) *Install {
	m.mu.Lock()
	defer m.mu.Unlock()
	install, ok := m.pending[id]
	if !ok {
		return nil
	}
	clone := *install
	return &clone
}

// Matches reports whether the given token still owns the id's pending slot.
func (m *Manager) Matches(id string, token uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	install, ok := m.pending[id]
	return ok && install.Token == token
}

// IDs returns the ids with pending installs.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	return ids
}
