package policy

import (
	"fmt"
	"sync"

	"github.com/axonbase/extcore/types"
)

// ComponentProvider enforces the standard component-extension rules:
// components are part of the host, must remain enabled, and may not be
// modified or uninstalled by the user.
type ComponentProvider struct {
	BaseProvider
}

// NewComponentProvider returns the standard component rule provider.
func NewComponentProvider() *ComponentProvider {
	return &ComponentProvider{}
}

// Name identifies the provider.
func (*ComponentProvider) Name() string { return "component policy" }

// UserMayModifySettings denies modification for component extensions.
func (*ComponentProvider) UserMayModifySettings(rec *types.Record, err *string) bool {
	if rec != nil && rec.Location == types.LocationComponent {
		setError(err, fmt.Sprintf("extension %s is a component of the host and cannot be modified", rec.ID))
		return false
	}
	return true
}

// MustRemainEnabled pins component extensions enabled.
func (*ComponentProvider) MustRemainEnabled(rec *types.Record, err *string) bool {
	if rec != nil && rec.Location == types.LocationComponent {
		setError(err, fmt.Sprintf("extension %s is a component of the host and must remain enabled", rec.ID))
		return true
	}
	return false
}

// BlocklistProvider vetoes loading of administratively blocked extensions.
// A blocked pattern of "*" blocks every extension that is not explicitly
// allowed; component extensions are always exempt.
type BlocklistProvider struct {
	BaseProvider

	mu      sync.RWMutex
	blocked map[string]struct{}
	allowed map[string]struct{}
	all     bool
}

// NewBlocklistProvider builds a provider from blocked and allowed id lists.
func NewBlocklistProvider(blocked, allowed []string) *BlocklistProvider {
	p := &BlocklistProvider{
		blocked: make(map[string]struct{}),
		allowed: make(map[string]struct{}),
	}
	p.Update(blocked, allowed)
	return p
}

// Update replaces the blocked and allowed sets wholesale.
func (p *BlocklistProvider) Update(blocked, allowed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked = make(map[string]struct{}, len(blocked))
	p.allowed = make(map[string]struct{}, len(allowed))
	p.all = false
	for _, id := range blocked {
		if id == "*" {
			p.all = true
			continue
		}
		p.blocked[id] = struct{}{}
	}
	for _, id := range allowed {
		p.allowed[id] = struct{}{}
	}
}

// Name identifies the provider.
func (*BlocklistProvider) Name() string { return "admin blocklist" }

// UserMayLoad denies blocked extensions.
func (p *BlocklistProvider) UserMayLoad(rec *types.Record, err *string) bool {
	if rec == nil {
		return true
	}
	if rec.Location == types.LocationComponent {
		return true
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.allowed[rec.ID]; ok {
		return true
	}
	_, blocked := p.blocked[rec.ID]
	if blocked || p.all {
		setError(err, fmt.Sprintf("extension %s is blocked by the administrator", rec.ID))
		return false
	}
	return true
}

func setError(err *string, message string) {
	if err != nil {
		*err = message
	}
}
