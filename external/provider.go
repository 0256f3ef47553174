package external

import (
	"context"

	"github.com/axonbase/extcore/types"
)

// Provider enumerates extension installs demanded by one external source.
// Enumerate is called on demand during reconciliation and must return the
// source's complete current candidate set: an id the provider stops
// reporting is treated as an implicit external uninstall.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Location is the install location this provider's candidates carry.
	Location() types.Location

	// Enumerate returns the source's current candidates.
	Enumerate(ctx context.Context) ([]types.Candidate, error)
}

// StaticProvider serves a fixed, swappable candidate set. It backs the
// component loader and tests.
type StaticProvider struct {
	name       string
	location   types.Location
	candidates []types.Candidate
}

// NewStaticProvider builds a provider serving the given candidates.
func NewStaticProvider(name string, location types.Location, candidates []types.Candidate) *StaticProvider {
	return &StaticProvider{name: name, location: location, candidates: candidates}
}

// Name identifies the provider.
func (p *StaticProvider) Name() string { return p.name }

// Location returns the provider's install location.
func (p *StaticProvider) Location() types.Location { return p.location }

// Enumerate returns the current candidate set.
func (p *StaticProvider) Enumerate(ctx context.Context) ([]types.Candidate, error) {
	out := make([]types.Candidate, len(p.candidates))
	copy(out, p.candidates)
	return out, nil
}

// SetCandidates replaces the candidate set.
func (p *StaticProvider) SetCandidates(candidates []types.Candidate) {
	p.candidates = candidates
}
