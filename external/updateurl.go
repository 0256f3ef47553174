package external

import (
	"context"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/types"
)

// UpdateFetcher resolves the latest published version for an extension
// served from an update URL. Implementations typically hit a remote
// update service.
type UpdateFetcher interface {
	FetchLatest(ctx context.Context, id, updateURL string) (*types.Version, error)
}

// UpdateURLProvider serves candidates for extensions pinned to update URLs,
// such as enterprise policy force-installs. When a fetcher is configured,
// each id's latest version is resolved through a per-id circuit breaker so
// a flapping update service cannot stall enumeration; while a breaker is
// open the candidate is emitted without a version, which means "latest".
type UpdateURLProvider struct {
	name     string
	location types.Location
	urls     map[string]string
	fetcher  UpdateFetcher
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewUpdateURLProvider builds a provider over an id to update-URL map.
// fetcher may be nil, in which case candidates always request the latest
// version. Breakers are created up front: the id set is fixed, and
// overlapping reconciliation scans may enumerate concurrently.
func NewUpdateURLProvider(name string, location types.Location, urls map[string]string, fetcher UpdateFetcher) *UpdateURLProvider {
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(urls))
	for id := range urls {
		breakers[id] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name + "/" + id,
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		})
	}
	return &UpdateURLProvider{
		name:     name,
		location: location,
		urls:     urls,
		fetcher:  fetcher,
		breakers: breakers,
	}
}

// Name identifies the provider.
func (p *UpdateURLProvider) Name() string { return p.name }

// Location returns the provider's install location.
func (p *UpdateURLProvider) Location() types.Location { return p.location }

// Enumerate returns one candidate per configured id, in id order.
func (p *UpdateURLProvider) Enumerate(ctx context.Context) ([]types.Candidate, error) {
	ids := make([]string, 0, len(p.urls))
	for id := range p.urls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]types.Candidate, 0, len(ids))
	for _, id := range ids {
		cand := types.Candidate{
			ID:              id,
			Location:        p.location,
			UpdateURL:       p.urls[id],
			InstallSilently: true,
		}
		if p.fetcher != nil {
			if version, err := p.fetchLatest(ctx, id); err != nil {
				logger.Warnf(ctx, "external: version lookup for %s via %s failed: %v", id, p.urls[id], err)
			} else {
				cand.Version = version
			}
		}
		out = append(out, cand)
	}
	return out, nil
}

func (p *UpdateURLProvider) fetchLatest(ctx context.Context, id string) (*types.Version, error) {
	result, err := p.breakers[id].Execute(func() (any, error) {
		return p.fetcher.FetchLatest(ctx, id, p.urls[id])
	})
	if err != nil {
		return nil, err
	}
	version, _ := result.(*types.Version)
	return version, nil
}
