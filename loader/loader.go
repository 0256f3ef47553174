package loader

import (
	"context"
	"fmt"

	"github.com/axonbase/extcore/crx"
	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/pending"
	"github.com/axonbase/extcore/types"
)

// Reporter receives exactly one completion report per applied install.
// The coordinator implements it.
type Reporter interface {
	OnInstallCompleted(ctx context.Context, id string, token uint64, manifest *types.Manifest) error
	OnInstallFailed(ctx context.Context, id string, token uint64, cause error)
}

// Loader applies accepted pending installs: it validates the package off
// the coordinator thread and reports the outcome back with the pending
// token, so a superseded apply is discarded on arrival rather than here.
type Loader struct {
	pool      *Pool
	validator crx.Validator
	reporter  Reporter
}

// New creates a started loader over the given validator and reporter.
func New(cfg *Config, validator crx.Validator, reporter Reporter) (*Loader, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Loader{
		pool:      NewPool(cfg),
		validator: validator,
		reporter:  reporter,
	}
	l.pool.Start()
	return l, nil
}

// Apply queues the pending install for validation and application.
// Update-URL installs have no local package yet and are not appliable
// here; fetching them is the updater's concern.
func (l *Loader) Apply(install *pending.Install) error {
	if install == nil {
		return fmt.Errorf("nil pending install")
	}
	if install.Path == "" {
		return fmt.Errorf("pending install of %s has no local package", install.ID)
	}

	id, token, path := install.ID, install.Token, install.Path
	return l.pool.Submit(func(ctx context.Context) error {
		manifest, err := l.validator.Validate(ctx, path)
		if err != nil {
			logger.Warnf(ctx, "loader: validation of %s (%s) failed: %v", id, path, err)
			l.reporter.OnInstallFailed(ctx, id, token, err)
			return err
		}
		return l.reporter.OnInstallCompleted(ctx, id, token, manifest)
	})
}

// Metrics returns the underlying pool counters.
func (l *Loader) Metrics() map[string]int64 {
	return l.pool.GetMetrics()
}

// Stop drains the loader, waiting for in-flight applies until ctx expires.
func (l *Loader) Stop(ctx context.Context) {
	l.pool.Stop(ctx)
}
