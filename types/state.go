package types

// State is the current disposition of an installed extension. The states are
// mutually exclusive.
type State int

const (
	// StateEnabled indicates the extension is installed and running.
	StateEnabled State = iota
	// StateDisabled indicates the extension is installed but not running;
	// the record's disable reasons say why.
	StateDisabled
	// StateTerminated indicates the extension's process crashed and it has
	// not been reloaded yet.
	StateTerminated
	// StateBlacklisted indicates the extension was unloaded by a blacklist
	// update; the install record is retained for a potential un-blacklist.
	StateBlacklisted
	// StateExternallyUninstalled is the tombstone state for an extension the
	// user uninstalled after it arrived from an external source.
	StateExternallyUninstalled
)

var stateNames = map[State]string{
	StateEnabled:               "enabled",
	StateDisabled:              "disabled",
	StateTerminated:            "terminated",
	StateBlacklisted:           "blacklisted",
	StateExternallyUninstalled: "externally_uninstalled",
}

// String returns the stable textual name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// DisableReason is a bitmask explaining why an extension is disabled. The
// mask is non-empty only when the state is StateDisabled.
type DisableReason int

const (
	// DisableReasonNone is the empty mask.
	DisableReasonNone DisableReason = 0
	// DisableUserAction means the user disabled the extension explicitly.
	DisableUserAction DisableReason = 1 << iota
	// DisablePermissionsIncrease means an update requested permissions beyond
	// the granted set and is waiting for an explicit re-grant.
	DisablePermissionsIncrease
	// DisableReload means the extension is mid-reload.
	DisableReload
	// DisableUnsupportedRequirement means the manifest declares a requirement
	// the host cannot satisfy.
	DisableUnsupportedRequirement
	// DisableSyncPending means sync delivered the extension disabled and the
	// local grant has not happened yet.
	DisableSyncPending
	// DisableBlockedByPolicy means a management policy provider refused to
	// load the extension after it was already installed.
	DisableBlockedByPolicy
)

// Has reports whether the mask contains the given reason.
func (d DisableReason) Has(reason DisableReason) bool {
	return d&reason != 0
}

// Without returns the mask with the given reason cleared.
func (d DisableReason) Without(reason DisableReason) DisableReason {
	return d &^ reason
}
