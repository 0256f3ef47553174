package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/axonbase/extcore/ecode"
	"github.com/axonbase/extcore/event"
	"github.com/axonbase/extcore/external"
	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/metrics"
	"github.com/axonbase/extcore/pending"
	"github.com/axonbase/extcore/policy"
	"github.com/axonbase/extcore/registry"
	"github.com/axonbase/extcore/types"
)

// Coordinator is the extension lifecycle state machine. Every state
// mutation for one profile goes through one Coordinator, serialized behind
// a single mutex: install arbitration, enable/disable, uninstall, external
// reconciliation and blacklist updates.
//
// Fetching and unpacking packages is exogenous: RequestInstall only claims
// the pending slot, and the applying party reports back exactly once via
// OnInstallCompleted or OnInstallFailed, carrying the slot token it was
// issued. Stale tokens are discarded.
type Coordinator struct {
	mu       sync.Mutex
	registry *registry.Registry
	pending  *pending.Manager
	policy   *policy.Policy

	dispatcher *event.Dispatcher
	collector  *metrics.Collector
	tracer     trace.Tracer

	providers     []external.Provider
	supportedReqs map[string]struct{}

	// blacklist is the current updater-supplied set; component ids never
	// enter it.
	blacklist map[string]struct{}

	// pendingGrants remembers, per escalated id, the permission set the
	// updated manifest declared, so an explicit re-grant can apply it.
	pendingGrants map[string]types.PermissionSet

	errs    []string
	errSeen map[string]struct{}
}

// NewCoordinator wires a coordinator over its collaborators. collector may
// be a disabled collector but must not be nil.
func NewCoordinator(reg *registry.Registry, pend *pending.Manager, pol *policy.Policy,
	dispatcher *event.Dispatcher, collector *metrics.Collector, supportedRequirements []string) *Coordinator {
	reqs := make(map[string]struct{}, len(supportedRequirements))
	for _, req := range supportedRequirements {
		reqs[req] = struct{}{}
	}
	return &Coordinator{
		registry:      reg,
		pending:       pend,
		policy:        pol,
		dispatcher:    dispatcher,
		collector:     collector,
		tracer:        otel.Tracer("extcore/service"),
		supportedReqs: reqs,
		blacklist:     make(map[string]struct{}),
		pendingGrants: make(map[string]types.PermissionSet),
		errSeen:       make(map[string]struct{}),
	}
}

// AddExternalProvider registers a provider for CheckForExternalUpdates.
func (c *Coordinator) AddExternalProvider(p external.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = append(c.providers, p)
}

func (c *Coordinator) startSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "coordinator."+op)
	if id != "" {
		span.SetAttributes(attribute.String("extension.id", id))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RequestInstall arbitrates an install request and, when accepted, claims
// the pending slot for the id. Returns true iff the request now owns the
// slot; the returned error explains rejections that are worth surfacing
// (policy veto, version conflict, malformed descriptor). A false result
// with a nil error is a deliberate no-op, such as re-offering an already
// installed version.
func (c *Coordinator) RequestInstall(ctx context.Context, cand *types.Candidate) (accepted bool, err error) {
	if verr := cand.Validate(); verr != nil {
		return false, ecode.NewCandidateError(candidateID(cand), verr)
	}

	ctx, span := c.startSpan(ctx, "request_install", cand.ID)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestInstallLocked(ctx, cand)
}

func candidateID(cand *types.Candidate) string {
	if cand == nil {
		return ""
	}
	return cand.ID
}

func (c *Coordinator) requestInstallLocked(ctx context.Context, cand *types.Candidate) (bool, error) {
	id := cand.ID

	// The killbit: the user uninstalled this id after an external source
	// installed it. External sources do not get to bring it back.
	if cand.Location.IsExternal() && c.registry.IsExternallyUninstalled(id) {
		logger.Debugf(ctx, "install of %s from %s suppressed by uninstall tombstone", id, cand.Location)
		return false, nil
	}

	// Blacklisted ids do not install. Component ids never enter the
	// blacklist, so components are unaffected.
	if _, blocked := c.blacklist[id]; blocked {
		perr := ecode.NewPolicyError(id, "extension is blacklisted")
		c.addErrorLocked(perr.Error())
		c.collector.PolicyRejection(id, "blacklist")
		return false, perr
	}

	probe := &types.Record{ID: id, Version: cand.Version, Location: cand.Location}
	var policyMsg string
	if !c.policy.UserMayLoad(probe, &policyMsg) {
		perr := ecode.NewPolicyError(id, policyMsg)
		c.addErrorLocked(perr.Error())
		c.collector.PolicyRejection(id, policyMsg)
		return false, perr
	}

	if installed := c.registry.Get(id); installed.IsInstalled() {
		if accepted, err := c.arbitrateInstalled(ctx, cand, installed); !accepted {
			return false, err
		}
	}

	var install *pending.Install
	var ok bool
	if cand.FromSync {
		install, ok = c.pending.AddFromSync(id, cand.Version, cand.InstallSilently)
	} else {
		install, ok = c.pending.Add(&pending.Install{
			ID:              id,
			Version:         cand.Version,
			Location:        cand.Location,
			Path:            cand.Path,
			UpdateURL:       cand.UpdateURL,
			InstallSilently: cand.InstallSilently,
		})
	}
	if !ok {
		occupant := c.pending.GetByID(id)
		c.collector.VersionConflict(id)
		return false, ecode.NewConflictError(id,
			"pending install from %s outranks request from %s", occupant.Location, cand.Location)
	}

	logger.Infof(ctx, "install of %s from %s accepted pending (token %d)", id, cand.Location, install.Token)
	return true, nil
}

// arbitrateInstalled decides whether a candidate may supersede a live
// installation. A higher-ranked source always may; at same or lower rank
// only a strictly newer version passes, with two carve-outs: unpacked
// loads may downgrade freely, and an internal same-version request is a
// reinstall, not a conflict.
func (c *Coordinator) arbitrateInstalled(ctx context.Context, cand *types.Candidate, installed *types.Record) (bool, error) {
	id := cand.ID
	if cand.Location.Rank() > installed.Location.Rank() {
		return true, nil
	}

	// An update-url candidate without a pinned version means "keep this id
	// installed"; with the id already present there is nothing to do.
	if cand.UpdateURL != "" && cand.Version == nil {
		return false, nil
	}

	switch {
	case cand.Version == nil: // unpinned counts as newest
		return true, nil
	case cand.Version.NewerThan(installed.Version):
		return true, nil
	case cand.Version.Equal(installed.Version):
		if cand.Location == types.LocationInternal && !cand.FromSync {
			return true, nil // user-driven reinstall of the same version
		}
		logger.Debugf(ctx, "%s version %s already installed, ignoring re-offer from %s",
			id, cand.Version, cand.Location)
		return false, nil
	default: // downgrade
		if cand.Location == types.LocationUnpacked {
			return true, nil
		}
		cerr := ecode.NewConflictError(id, "would downgrade from %s to %s", installed.Version, cand.Version)
		c.addErrorLocked(cerr.Error())
		c.collector.VersionConflict(id)
		return false, cerr
	}
}

// OnInstallCompleted applies a fetched, validated package to the registry.
// token must be the one RequestInstall's accepted pending entry carries; a
// report whose token no longer owns the slot was superseded in flight and
// is discarded without any state change.
func (c *Coordinator) OnInstallCompleted(ctx context.Context, id string, token uint64, manifest *types.Manifest) (err error) {
	ctx, span := c.startSpan(ctx, "install_completed", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending.Matches(id, token) {
		logger.Debugf(ctx, "discarding stale install completion for %s (token %d)", id, token)
		return nil
	}
	install := c.pending.GetByID(id)
	c.pending.Remove(id)

	if manifest == nil || manifest.Version == nil {
		verr := ecode.NewValidationError(id, install.Path, fmt.Errorf("manifest missing version"))
		c.recordInstallFailureLocked(ctx, id, verr)
		return verr
	}

	unsupported := c.unsupportedRequirements(manifest)
	if len(unsupported) > 0 && install.Location == types.LocationUnpacked {
		// Developer loads fail loudly instead of installing disabled.
		verr := ecode.NewValidationError(id, install.Path,
			fmt.Errorf("unsupported requirements %v", unsupported))
		c.recordInstallFailureLocked(ctx, id, verr)
		return verr
	}

	existing := c.registry.Get(id)
	if !existing.IsInstalled() {
		existing = nil
	}

	rec := c.buildRecord(id, install, manifest, existing, unsupported)
	if err := c.registry.Put(rec); err != nil {
		return err
	}

	now := time.Now()
	if existing != nil {
		c.collector.Update(id, existing.Version.String(), rec.Version.String())
		if existing.State == types.StateEnabled {
			c.dispatchLocked(ctx, types.Event{Kind: types.EventUnloaded, ExtensionID: id, Location: rec.Location})
		}
		c.dispatchLocked(ctx, types.Event{
			Kind: types.EventInstalled, ExtensionID: id, Location: rec.Location,
			OldVersion: existing.Version, NewVersion: rec.Version, Time: now,
		})
	} else {
		c.collector.Install(id)
		c.dispatchLocked(ctx, types.Event{
			Kind: types.EventInstalled, ExtensionID: id, Location: rec.Location,
			NewVersion: rec.Version, Time: now,
		})
	}

	if rec.State == types.StateEnabled {
		c.dispatchLocked(ctx, types.Event{Kind: types.EventLoaded, ExtensionID: id, Location: rec.Location})
	} else {
		c.dispatchLocked(ctx, types.Event{
			Kind: types.EventDisabled, ExtensionID: id, Location: rec.Location, Reason: rec.DisableReasons,
		})
	}
	return nil
}

// buildRecord computes the post-install record for a completed package.
func (c *Coordinator) buildRecord(id string, install *pending.Install, manifest *types.Manifest,
	existing *types.Record, unsupported []string) *types.Record {
	now := time.Now()
	rec := &types.Record{
		ID:          id,
		Version:     manifest.Version,
		Location:    install.Location,
		InstallTime: now,
		UpdateTime:  now,
	}

	if existing == nil {
		rec.GrantedPermissions = manifest.Permissions.Clone()
		if len(unsupported) > 0 {
			rec.State = types.StateDisabled
			rec.DisableReasons = types.DisableUnsupportedRequirement
		}
	} else {
		rec.InstallTime = existing.InstallTime
		rec.Acknowledged = existing.Acknowledged
		rec.FromBookmark = existing.FromBookmark
		rec.FromWebstore = existing.FromWebstore
		rec.WasInstalledByDefault = existing.WasInstalledByDefault
		rec.PriorState = existing.PriorState

		reasons := existing.DisableReasons.Without(types.DisableReload)

		if manifest.Permissions.IsSubsetOf(existing.GrantedPermissions) {
			rec.GrantedPermissions = manifest.Permissions.Clone()
			reasons = reasons.Without(types.DisablePermissionsIncrease)
			delete(c.pendingGrants, id)
		} else {
			// The update wants more than was granted. Keep the old grant
			// and park the extension until an explicit re-grant.
			rec.GrantedPermissions = existing.GrantedPermissions.Clone()
			reasons |= types.DisablePermissionsIncrease
			c.pendingGrants[id] = manifest.Permissions.Clone()
			c.collector.Escalation(id)
		}

		if len(unsupported) > 0 {
			reasons |= types.DisableUnsupportedRequirement
		} else {
			reasons = reasons.Without(types.DisableUnsupportedRequirement)
		}

		rec.DisableReasons = reasons
		if reasons != types.DisableReasonNone {
			rec.State = types.StateDisabled
		}
		if _, blacklisted := c.blacklist[id]; blacklisted && existing.State == types.StateBlacklisted {
			rec.State = types.StateBlacklisted
		}
	}

	if install.InstallSilently && rec.Location.IsExternal() {
		rec.Acknowledged = true
	}

	// A policy pin overrides every disable heuristic except the blacklist,
	// which components never enter anyway.
	if rec.State == types.StateDisabled && c.policy.MustRemainEnabled(rec, nil) {
		rec.State = types.StateEnabled
		rec.DisableReasons = types.DisableReasonNone
		rec.GrantedPermissions = manifest.Permissions.Clone()
		delete(c.pendingGrants, id)
	}
	return rec
}

// OnInstallFailed reports that fetching or validating a pending install
// failed. Stale tokens are discarded; the failure is never retried here.
func (c *Coordinator) OnInstallFailed(ctx context.Context, id string, token uint64, cause error) {
	ctx, span := c.startSpan(ctx, "install_failed", id)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending.Matches(id, token) {
		logger.Debugf(ctx, "discarding stale install failure for %s (token %d)", id, token)
		return
	}
	c.pending.Remove(id)
	c.recordInstallFailureLocked(ctx, id, cause)
}

func (c *Coordinator) recordInstallFailureLocked(ctx context.Context, id string, cause error) {
	msg := fmt.Sprintf("%s failed to install: %v", id, cause)
	c.addErrorLocked(msg)
	c.collector.InstallError(id, cause.Error())
	c.dispatchLocked(ctx, types.Event{Kind: types.EventInstallError, ExtensionID: id, Error: cause.Error()})
	logger.Warnf(ctx, "install of %s failed: %v", id, cause)
}

func (c *Coordinator) unsupportedRequirements(manifest *types.Manifest) []string {
	var unsupported []string
	for _, req := range manifest.Requirements {
		if _, ok := c.supportedReqs[req]; !ok {
			unsupported = append(unsupported, req)
		}
	}
	return unsupported
}

// LoadInstalledExtensions runs the startup load pass over every installed
// extension, re-checking load policy against the current provider set.
// Extensions a provider now prohibits are parked disabled instead of
// loaded. Returns the number of extensions that came up running.
func (c *Coordinator) LoadInstalledExtensions(ctx context.Context) (loaded int, err error) {
	ctx, span := c.startSpan(ctx, "load_installed", "")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.registry.Installed() {
		if rec.State != types.StateEnabled {
			continue
		}
		var policyMsg string
		if !c.policy.UserMayLoad(rec, &policyMsg) {
			perr := ecode.NewPolicyError(rec.ID, policyMsg)
			c.addErrorLocked(perr.Error())
			c.collector.PolicyRejection(rec.ID, policyMsg)

			rec.State = types.StateDisabled
			rec.DisableReasons |= types.DisableBlockedByPolicy
			if perr := c.registry.Put(rec); perr != nil {
				return loaded, perr
			}
			c.dispatchLocked(ctx, types.Event{
				Kind: types.EventDisabled, ExtensionID: rec.ID, Location: rec.Location, Reason: rec.DisableReasons,
			})
			continue
		}
		c.dispatchLocked(ctx, types.Event{Kind: types.EventLoaded, ExtensionID: rec.ID, Location: rec.Location})
		loaded++
	}
	return loaded, nil
}

// Enable transitions a disabled extension back to enabled, clearing its
// disable reasons. A permissions-increase disable also applies the parked
// grant, which makes Enable equivalent to an explicit re-grant.
func (c *Coordinator) Enable(ctx context.Context, id string) (err error) {
	ctx, span := c.startSpan(ctx, "enable", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return ecode.NotInstalled(id)
	}
	if rec.State == types.StateEnabled {
		return nil
	}
	if rec.State == types.StateBlacklisted {
		return ecode.NewPolicyError(id, "extension is blacklisted")
	}
	var policyMsg string
	if !c.policy.UserMayModifySettings(rec, &policyMsg) {
		c.collector.PolicyRejection(id, policyMsg)
		return ecode.NewPolicyError(id, policyMsg)
	}

	if rec.DisableReasons.Has(types.DisablePermissionsIncrease) {
		if grant, ok := c.pendingGrants[id]; ok {
			rec.GrantedPermissions = grant.Clone()
			delete(c.pendingGrants, id)
		}
	}
	rec.State = types.StateEnabled
	rec.DisableReasons = types.DisableReasonNone
	if err := c.registry.Put(rec); err != nil {
		return err
	}
	c.dispatchLocked(ctx, types.Event{Kind: types.EventEnabled, ExtensionID: id, Location: rec.Location})
	c.dispatchLocked(ctx, types.Event{Kind: types.EventLoaded, ExtensionID: id, Location: rec.Location})
	return nil
}

// Disable transitions an extension to disabled, ORing reason into its
// disable mask. A no-op when policy pins the extension enabled.
func (c *Coordinator) Disable(ctx context.Context, id string, reason types.DisableReason) (err error) {
	ctx, span := c.startSpan(ctx, "disable", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disableLocked(ctx, id, reason)
}

func (c *Coordinator) disableLocked(ctx context.Context, id string, reason types.DisableReason) error {
	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return ecode.NotInstalled(id)
	}
	if c.policy.MustRemainEnabled(rec, nil) {
		logger.Debugf(ctx, "disable of %s suppressed, policy pins it enabled", id)
		return nil
	}

	wasRunning := rec.State == types.StateEnabled
	rec.State = types.StateDisabled
	rec.DisableReasons |= reason
	if err := c.registry.Put(rec); err != nil {
		return err
	}
	if wasRunning {
		c.dispatchLocked(ctx, types.Event{Kind: types.EventUnloaded, ExtensionID: id, Location: rec.Location})
	}
	c.dispatchLocked(ctx, types.Event{
		Kind: types.EventDisabled, ExtensionID: id, Location: rec.Location, Reason: rec.DisableReasons,
	})
	return nil
}

// GrantPermissionsAndEnable applies the parked permission grant for an
// escalated extension and enables it if no other disable reason remains.
func (c *Coordinator) GrantPermissionsAndEnable(ctx context.Context, id string) (err error) {
	ctx, span := c.startSpan(ctx, "grant_permissions", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return ecode.NotInstalled(id)
	}
	var policyMsg string
	if !c.policy.UserMayModifySettings(rec, &policyMsg) {
		c.collector.PolicyRejection(id, policyMsg)
		return ecode.NewPolicyError(id, policyMsg)
	}

	if grant, ok := c.pendingGrants[id]; ok {
		rec.GrantedPermissions = grant.Clone()
		delete(c.pendingGrants, id)
	}
	rec.DisableReasons = rec.DisableReasons.Without(types.DisablePermissionsIncrease)
	if rec.DisableReasons == types.DisableReasonNone && rec.State == types.StateDisabled {
		rec.State = types.StateEnabled
	}
	if err := c.registry.Put(rec); err != nil {
		return err
	}
	if rec.State == types.StateEnabled {
		c.dispatchLocked(ctx, types.Event{Kind: types.EventEnabled, ExtensionID: id, Location: rec.Location})
		c.dispatchLocked(ctx, types.Event{Kind: types.EventLoaded, ExtensionID: id, Location: rec.Location})
	}
	return nil
}

// Uninstall removes an extension. A user uninstall of an externally sourced
// extension leaves a tombstone so reconciliation cannot silently reinstall
// it; externalUninstall marks the source itself withdrawing the extension,
// which removes all trace and bypasses the settings policy check.
func (c *Coordinator) Uninstall(ctx context.Context, id string, externalUninstall bool) (err error) {
	ctx, span := c.startSpan(ctx, "uninstall", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uninstallLocked(ctx, id, externalUninstall)
}

func (c *Coordinator) uninstallLocked(ctx context.Context, id string, externalUninstall bool) error {
	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		logger.Warnf(ctx, "attempted uninstall of unknown extension %s", id)
		return ecode.NotInstalled(id)
	}
	if !externalUninstall {
		var policyMsg string
		if !c.policy.UserMayModifySettings(rec, &policyMsg) {
			c.collector.PolicyRejection(id, policyMsg)
			return ecode.NewPolicyError(id, policyMsg)
		}
	}

	c.pending.Remove(id)
	delete(c.pendingGrants, id)
	wasRunning := rec.State == types.StateEnabled

	if rec.Location.IsExternal() && !externalUninstall {
		tombstone := &types.Record{ID: id, Location: rec.Location, State: types.StateExternallyUninstalled}
		if err := c.registry.Put(tombstone); err != nil {
			return err
		}
	} else {
		if err := c.registry.Delete(id); err != nil {
			return err
		}
	}

	if externalUninstall {
		c.collector.ExternalUninstall(id)
	} else {
		c.collector.Uninstall(id)
	}
	if wasRunning {
		c.dispatchLocked(ctx, types.Event{Kind: types.EventUnloaded, ExtensionID: id, Location: rec.Location})
	}
	c.dispatchLocked(ctx, types.Event{
		Kind: types.EventUninstalled, ExtensionID: id, Location: rec.Location, OldVersion: rec.Version,
	})
	return nil
}

// ClearExternalUninstallTombstone lifts the killbit for an id, re-opening
// it to external sources.
func (c *Coordinator) ClearExternalUninstallTombstone(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.ClearTombstone(id)
}

// CheckForExternalUpdates reconciles the registry against every registered
// external provider. Extensions a provider stops enumerating are implicitly
// uninstalled; everything enumerated goes through normal install
// arbitration, so re-running a scan with unchanged provider state produces
// no additional transitions.
func (c *Coordinator) CheckForExternalUpdates(ctx context.Context) (err error) {
	ctx, span := c.startSpan(ctx, "check_external_updates", "")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	providers := make([]external.Provider, len(c.providers))
	copy(providers, c.providers)
	c.mu.Unlock()

	// Enumeration may hit the filesystem or remote services; keep it
	// outside the state lock.
	type enumeration struct {
		provider   external.Provider
		candidates []types.Candidate
	}
	var enumerations []enumeration
	allReady := true
	for _, p := range providers {
		candidates, eerr := p.Enumerate(ctx)
		if eerr != nil {
			logger.Warnf(ctx, "external provider %s enumeration failed: %v", p.Name(), eerr)
			allReady = false
			continue
		}
		enumerations = append(enumerations, enumeration{provider: p, candidates: candidates})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Withdrawal is decided collectively: an external-location record is
	// uninstalled only when no provider still offers its id. Providers may
	// share a location, so a per-provider check would see each other's
	// extensions as withdrawn. Skipped entirely while any provider failed
	// to enumerate, since its extensions would look withdrawn too.
	if allReady {
		seen := make(map[string]struct{})
		for _, e := range enumerations {
			for _, cand := range e.candidates {
				seen[cand.ID] = struct{}{}
			}
		}
		for _, rec := range c.registry.Installed() {
			if !rec.Location.IsExternal() {
				continue
			}
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			logger.Infof(ctx, "no external provider still offers %s, uninstalling", rec.ID)
			if uerr := c.uninstallLocked(ctx, rec.ID, true); uerr != nil {
				logger.Warnf(ctx, "implicit uninstall of %s failed: %v", rec.ID, uerr)
			}
		}
	}

	for _, e := range enumerations {
		for i := range e.candidates {
			cand := e.candidates[i]
			if _, rerr := c.requestInstallLocked(ctx, &cand); rerr != nil {
				logger.Debugf(ctx, "external candidate %s from %s rejected: %v", cand.ID, e.provider.Name(), rerr)
			}
		}
	}
	return nil
}

// SetBlacklist replaces the updater-supplied blacklist wholesale.
// versionTag identifies the blacklist data version for the audit trail.
// Installed extensions entering the set are unloaded but their records are
// retained; extensions leaving the set return to the disposition they had
// before, not forcibly enabled. Component extensions and malformed ids are
// dropped from the incoming list.
func (c *Coordinator) SetBlacklist(ctx context.Context, ids []string, versionTag string) (err error) {
	ctx, span := c.startSpan(ctx, "set_blacklist", "")
	span.SetAttributes(attribute.String("blacklist.version", versionTag))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !types.IsValidID(id) {
			logger.Debugf(ctx, "dropping malformed blacklist entry %q", id)
			continue
		}
		if rec := c.registry.Get(id); rec != nil && rec.Location == types.LocationComponent {
			continue
		}
		next[id] = struct{}{}
	}

	// Newly blacklisted ids unload.
	for id := range next {
		if _, already := c.blacklist[id]; already {
			continue
		}
		rec := c.registry.Get(id)
		if !rec.IsInstalled() || rec.State == types.StateBlacklisted {
			continue
		}
		wasRunning := rec.State == types.StateEnabled
		rec.PriorState = rec.State
		rec.State = types.StateBlacklisted
		if perr := c.registry.Put(rec); perr != nil {
			return perr
		}
		if wasRunning {
			c.dispatchLocked(ctx, types.Event{Kind: types.EventUnloaded, ExtensionID: id, Location: rec.Location})
		}
	}

	// Ids leaving the set restore their prior disposition.
	for id := range c.blacklist {
		if _, still := next[id]; still {
			continue
		}
		rec := c.registry.Get(id)
		if rec == nil || rec.State != types.StateBlacklisted {
			continue
		}
		rec.State = rec.PriorState
		rec.PriorState = types.StateEnabled
		if perr := c.registry.Put(rec); perr != nil {
			return perr
		}
		if rec.State == types.StateEnabled {
			c.dispatchLocked(ctx, types.Event{Kind: types.EventLoaded, ExtensionID: id, Location: rec.Location})
		}
	}

	c.blacklist = next
	logger.Infof(ctx, "blacklist replaced, %d entries, version %q", len(next), versionTag)
	c.dispatchLocked(ctx, types.Event{Kind: types.EventBlacklistUpdated})
	return nil
}

// ReloadExtension tears the extension down with a reload marker and
// re-claims its pending slot so the loader can apply it again. The reload
// marker clears when the reinstall completes.
func (c *Coordinator) ReloadExtension(ctx context.Context, id string) (token uint64, err error) {
	ctx, span := c.startSpan(ctx, "reload", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return 0, ecode.NotInstalled(id)
	}
	if rec.State == types.StateEnabled || rec.State == types.StateTerminated {
		if derr := c.disableLocked(ctx, id, types.DisableReload); derr != nil {
			return 0, derr
		}
	}

	install, ok := c.pending.Add(&pending.Install{ID: id, Location: rec.Location})
	if !ok {
		return 0, ecode.NewConflictError(id, "reload blocked by pending install from higher-priority source")
	}
	c.collector.Reload(id)
	return install.Token, nil
}

// TerminateExtension records that the extension's process went away. The
// install record survives; the extension just stops counting as running.
func (c *Coordinator) TerminateExtension(ctx context.Context, id string) (err error) {
	ctx, span := c.startSpan(ctx, "terminate", id)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return ecode.NotInstalled(id)
	}
	if rec.State != types.StateEnabled {
		return nil
	}
	rec.State = types.StateTerminated
	if err := c.registry.Put(rec); err != nil {
		return err
	}
	c.dispatchLocked(ctx, types.Event{Kind: types.EventUnloaded, ExtensionID: id, Location: rec.Location})
	return nil
}

// UntrackTerminated drops the terminated marker, restoring the enabled
// disposition the extension had when its process went away.
func (c *Coordinator) UntrackTerminated(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.registry.Get(id)
	if rec == nil || rec.State != types.StateTerminated {
		return nil
	}
	rec.State = types.StateEnabled
	return c.registry.Put(rec)
}

// AcknowledgeExternalExtension records that the user dismissed the
// "installed by another program" notice for the id.
func (c *Coordinator) AcknowledgeExternalExtension(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return ecode.NotInstalled(id)
	}
	rec.Acknowledged = true
	return c.registry.Put(rec)
}

// IsExternalExtensionAcknowledged reports whether the id's notice was
// dismissed.
func (c *Coordinator) IsExternalExtensionAcknowledged(id string) bool {
	rec := c.registry.Get(id)
	return rec != nil && rec.Acknowledged
}

// Queries. All return point-in-time copies; the registry may move on
// between two calls.

// GetExtensionByID returns the record for the id, tombstones included.
func (c *Coordinator) GetExtensionByID(id string) *types.Record {
	return c.registry.Get(id)
}

// GetInstalledExtension returns the live record for the id, nil when the
// id is absent or tombstoned.
func (c *Coordinator) GetInstalledExtension(id string) *types.Record {
	rec := c.registry.Get(id)
	if !rec.IsInstalled() {
		return nil
	}
	return rec
}

// IsExtensionEnabled reports whether the id is installed and enabled.
func (c *Coordinator) IsExtensionEnabled(id string) bool {
	rec := c.registry.Get(id)
	return rec != nil && rec.State == types.StateEnabled
}

// DisableReasons returns the id's disable mask, zero when absent or
// enabled.
func (c *Coordinator) DisableReasons(id string) types.DisableReason {
	rec := c.registry.Get(id)
	if rec == nil {
		return types.DisableReasonNone
	}
	return rec.DisableReasons
}

// IsIDPending reports whether an install is in flight for the id.
func (c *Coordinator) IsIDPending(id string) bool {
	return c.pending.IsIDPending(id)
}

// PendingInstall returns a copy of the id's pending entry, or nil.
func (c *Coordinator) PendingInstall(id string) *pending.Install {
	return c.pending.GetByID(id)
}

// Errors returns the collected load errors, de-duplicated and sorted for
// deterministic assertions.
func (c *Coordinator) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.errs))
	copy(out, c.errs)
	sort.Strings(out)
	return out
}

// ClearErrors drops the collected load errors.
func (c *Coordinator) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = nil
	c.errSeen = make(map[string]struct{})
}

func (c *Coordinator) addErrorLocked(msg string) {
	if _, dup := c.errSeen[msg]; dup {
		return
	}
	c.errSeen[msg] = struct{}{}
	c.errs = append(c.errs, msg)
}

func (c *Coordinator) dispatchLocked(ctx context.Context, evt types.Event) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Dispatch(ctx, evt)
}
