package policy

import (
	"sync"

	"github.com/axonbase/extcore/types"
)

// Policy aggregates registered providers and answers management questions by
// consensus: the first restrictive answer wins. The empty provider set is
// fully permissive.
//
// Policy holds non-owning references; providers are owned by their
// subsystems and must unregister before they go away.
type Policy struct {
	mu        sync.RWMutex
	providers map[Provider]struct{}
}

// NewPolicy creates an empty policy.
func NewPolicy() *Policy {
	return &Policy{providers: make(map[Provider]struct{})}
}

// RegisterProvider adds a provider to the set. Registering an already
// registered provider is a no-op.
func (p *Policy) RegisterProvider(provider Provider) {
	if provider == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.providers[provider] = struct{}{}
}

// UnregisterProvider removes a provider from the set. Unregistering a
// provider that is not registered is a no-op.
func (p *Policy) UnregisterProvider(provider Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.providers, provider)
}

// UnregisterAllProviders clears the provider set.
func (p *Policy) UnregisterAllProviders() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.providers = make(map[Provider]struct{})
}

// ProviderCount returns the number of registered providers.
func (p *Policy) ProviderCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.providers)
}

func (p *Policy) snapshot() []Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	providers := make([]Provider, 0, len(p.providers))
	for provider := range p.providers {
		providers = append(providers, provider)
	}
	return providers
}

// UserMayLoad reports whether every provider allows loading the extension.
// The first denying provider short-circuits the scan and supplies the error
// message when err is non-nil.
func (p *Policy) UserMayLoad(rec *types.Record, err *string) bool {
	for _, provider := range p.snapshot() {
		if !provider.UserMayLoad(rec, err) {
			return false
		}
	}
	return true
}

// UserMayModifySettings reports whether every provider allows the user to
// change the extension's state.
func (p *Policy) UserMayModifySettings(rec *types.Record, err *string) bool {
	for _, provider := range p.snapshot() {
		if !provider.UserMayModifySettings(rec, err) {
			return false
		}
	}
	return true
}

// MustRemainEnabled reports whether any provider pins the extension enabled.
// The first pinning provider short-circuits the scan.
func (p *Policy) MustRemainEnabled(rec *types.Record, err *string) bool {
	for _, provider := range p.snapshot() {
		if provider.MustRemainEnabled(rec, err) {
			return true
		}
	}
	return false
}
