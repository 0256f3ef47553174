package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/axonbase/extcore/config"
	"github.com/axonbase/extcore/crx"
	"github.com/axonbase/extcore/event"
	"github.com/axonbase/extcore/external"
	"github.com/axonbase/extcore/loader"
	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/metrics"
	"github.com/axonbase/extcore/pending"
	"github.com/axonbase/extcore/policy"
	"github.com/axonbase/extcore/registry"
	"github.com/axonbase/extcore/service"
	"github.com/axonbase/extcore/store"
	"github.com/axonbase/extcore/types"
)

// System is the per-profile composition root. It owns exactly one instance
// each of the durable store, registry, pending manager, management policy,
// event dispatcher, metrics collector and coordinator, and tears them down
// in reverse construction order. There is no ambient global state: every
// collaborator hangs off the System that built it.
type System struct {
	cfg *config.Config

	store       store.Store
	registry    *registry.Registry
	pending     *pending.Manager
	policy      *policy.Policy
	blocklist   *policy.BlocklistProvider
	bus         *event.Bus
	dispatcher  *event.Dispatcher
	collector   *metrics.Collector
	coordinator *service.Coordinator
	validator   crx.Validator
	loader      *loader.Loader

	prefProviders []*external.PrefFileProvider

	mu       sync.Mutex
	stopScan chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// New constructs the subsystem in strict dependency order: durable store,
// then registry hydration, then policy with the standard providers, then
// the coordinator, then the external providers. A store that cannot be
// read aborts construction outright.
func New(cfg *config.Config) (*System, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open extension store: %w", err)
	}

	reg, err := registry.Open(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	pol := policy.NewPolicy()
	pol.RegisterProvider(policy.NewComponentProvider())
	var blocklist *policy.BlocklistProvider
	if ext := cfg.Extension; ext != nil && (len(ext.BlockedIDs) > 0 || len(ext.AllowedIDs) > 0) {
		blocklist = policy.NewBlocklistProvider(ext.BlockedIDs, ext.AllowedIDs)
		pol.RegisterProvider(blocklist)
	}

	bus := event.NewBus()
	dispatcher, err := event.NewDispatcherFromConfig(cfg.Events, bus)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("wire event queue: %w", err)
	}

	collector, err := metrics.NewFromConfig(cfg.Metrics)
	if err != nil {
		_ = dispatcher.Close()
		_ = st.Close()
		return nil, err
	}

	var supported []string
	if cfg.Extension != nil {
		supported = cfg.Extension.SupportedRequirements
	}
	pend := pending.NewManager()
	coordinator := service.NewCoordinator(reg, pend, pol, dispatcher, collector, supported)

	s := &System{
		cfg:         cfg,
		store:       st,
		registry:    reg,
		pending:     pend,
		policy:      pol,
		blocklist:   blocklist,
		bus:         bus,
		dispatcher:  dispatcher,
		collector:   collector,
		coordinator: coordinator,
		validator:   crx.NewDirValidator(),
		stopScan:    make(chan struct{}),
	}

	s.loader, err = loader.New(nil, s.validator, coordinator)
	if err != nil {
		_ = dispatcher.Close()
		_ = st.Close()
		return nil, fmt.Errorf("start install loader: %w", err)
	}

	s.wireExternalProviders()
	return s, nil
}

func (s *System) wireExternalProviders() {
	ext := s.cfg.Extension
	if ext == nil {
		return
	}

	for _, path := range ext.ExternalPrefFiles {
		p := external.NewPrefFileProvider("prefs:"+path, path,
			types.LocationExternalPref, types.LocationExternalPrefDownload)
		s.prefProviders = append(s.prefProviders, p)
		s.coordinator.AddExternalProvider(p)
	}
	if ext.RegistryFile != "" {
		p := external.NewPrefFileProvider("registry", ext.RegistryFile,
			types.LocationExternalRegistry, types.LocationExternalPrefDownload)
		s.prefProviders = append(s.prefProviders, p)
		s.coordinator.AddExternalProvider(p)
	}
	if len(ext.PolicyUpdateURLs) > 0 {
		s.coordinator.AddExternalProvider(external.NewUpdateURLProvider(
			"policy", types.LocationExternalPolicyDownload, ext.PolicyUpdateURLs, nil))
	}
}

// Coordinator exposes the lifecycle state machine.
func (s *System) Coordinator() *service.Coordinator { return s.coordinator }

// Policy exposes the management policy for provider registration.
func (s *System) Policy() *policy.Policy { return s.policy }

// Bus exposes the in-process event bus for subscribers.
func (s *System) Bus() *event.Bus { return s.bus }

// Metrics exposes the lifecycle metrics collector.
func (s *System) Metrics() *metrics.Collector { return s.collector }

// Validator exposes the package validator collaborator.
func (s *System) Validator() crx.Validator { return s.validator }

// Loader exposes the install apply pool.
func (s *System) Loader() *loader.Loader { return s.loader }

// InstallFromPath requests an install of a local package and, when the
// request wins the pending slot, queues it for validation and application.
func (s *System) InstallFromPath(ctx context.Context, cand *types.Candidate) error {
	accepted, err := s.coordinator.RequestInstall(ctx, cand)
	if err != nil {
		return err
	}
	if !accepted {
		return nil
	}
	return s.loader.Apply(s.coordinator.PendingInstall(cand.ID))
}

// Start runs the initial load pass over installed extensions, performs the
// first external reconciliation, and begins watching external sources.
func (s *System) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("extension system already started")
	}
	s.started = true
	s.mu.Unlock()

	loaded, err := s.coordinator.LoadInstalledExtensions(ctx)
	if err != nil {
		return fmt.Errorf("initial extension load: %w", err)
	}
	logger.Infof(ctx, "extension system started, %d extension(s) loaded", loaded)

	if err := s.coordinator.CheckForExternalUpdates(ctx); err != nil {
		logger.Warnf(ctx, "initial external reconciliation failed: %v", err)
	}

	for _, p := range s.prefProviders {
		provider := p
		if err := provider.Watch(func() {
			if cerr := s.coordinator.CheckForExternalUpdates(context.Background()); cerr != nil {
				logger.Warnf(context.Background(), "reconciliation after %s change failed: %v", provider.Name(), cerr)
			}
		}); err != nil {
			logger.Warnf(ctx, "cannot watch %s: %v", provider.Name(), err)
		}
	}

	if s.cfg.Extension != nil && s.cfg.Extension.CheckInterval != "" {
		interval, err := time.ParseDuration(s.cfg.Extension.CheckInterval)
		if err == nil && interval > 0 {
			s.wg.Add(1)
			go s.scanLoop(interval)
		}
	}
	return nil
}

func (s *System) scanLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.coordinator.CheckForExternalUpdates(context.Background()); err != nil {
				logger.Warnf(context.Background(), "periodic external reconciliation failed: %v", err)
			}
		case <-s.stopScan:
			return
		}
	}
}

// Shutdown releases everything in reverse construction order. In-flight
// installs are aborted by clearing their pending slots, so a completion
// report arriving after shutdown matches nothing and writes nothing.
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopScan != nil {
		close(s.stopScan)
		s.stopScan = nil
	}
	s.mu.Unlock()
	s.wg.Wait()

	for _, p := range s.prefProviders {
		if err := p.Close(); err != nil {
			logger.Warnf(ctx, "closing provider %s: %v", p.Name(), err)
		}
	}

	s.loader.Stop(ctx)

	for _, id := range s.pending.IDs() {
		logger.Infof(ctx, "aborting in-flight install of %s at shutdown", id)
		s.pending.Remove(id)
	}

	s.collector.Stop()
	if err := s.dispatcher.Close(); err != nil {
		logger.Warnf(ctx, "closing event dispatcher: %v", err)
	}
	s.policy.UnregisterAllProviders()

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close extension store: %w", err)
	}
	logger.Infof(ctx, "extension system shut down")
	return nil
}
