package types

import "time"

// EventKind enumerates the lifecycle transitions the core announces to
// in-process subscribers.
type EventKind int

const (
	EventInstalled EventKind = iota
	EventUninstalled
	EventLoaded
	EventUnloaded
	EventEnabled
	EventDisabled
	EventBlacklistUpdated
	EventInstallError
)

var eventKindNames = map[EventKind]string{
	EventInstalled:        "installed",
	EventUninstalled:      "uninstalled",
	EventLoaded:           "loaded",
	EventUnloaded:         "unloaded",
	EventEnabled:          "enabled",
	EventDisabled:         "disabled",
	EventBlacklistUpdated: "blacklist_updated",
	EventInstallError:     "install_error",
}

// String returns the stable textual name of the event kind.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one completed lifecycle transition. Delivery to in-process
// subscribers is at-least-once per transition.
type Event struct {
	EventID string    `json:"event_id"`
	Kind    EventKind `json:"kind"`
	Time    time.Time `json:"time"`

	ExtensionID string   `json:"extension_id,omitempty"`
	Location    Location `json:"location,omitempty"`

	// OldVersion/NewVersion are set on update-shaped transitions.
	OldVersion *Version `json:"old_version,omitempty"`
	NewVersion *Version `json:"new_version,omitempty"`

	// Reason carries the disable-reason mask on EventDisabled.
	Reason DisableReason `json:"reason,omitempty"`

	// Error carries the human-readable message on EventInstallError.
	Error string `json:"error,omitempty"`
}
