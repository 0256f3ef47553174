package types

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// IDLength is the length of an extension ID.
const IDLength = 32

// IsValidID reports whether the given string is a well-formed extension ID:
// exactly 32 characters drawn from the 'a'..'p' alphabet.
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 'a' || id[i] > 'p' {
			return false
		}
	}
	return true
}

// GenerateID derives a well-formed extension ID from arbitrary seed bytes,
// mapping a SHA-256 digest into the a..p alphabet. Used for unpacked loads
// whose manifest carries no key.
func GenerateID(seed []byte) string {
	digest := sha256.Sum256(seed)
	id := make([]byte, IDLength)
	for i := 0; i < IDLength; i++ {
		id[i] = 'a' + (digest[i/2]>>uint(4*(1-i%2)))&0x0f
	}
	return string(id)
}

// Record is the durable per-extension state: everything the management core
// must remember about one extension ID across restarts.
type Record struct {
	ID       string   `json:"id"`
	Version  *Version `json:"version,omitempty"`
	Location Location `json:"location"`

	State          State         `json:"state"`
	DisableReasons DisableReason `json:"disable_reasons,omitempty"`

	// PriorState remembers the enabled/disabled disposition an extension had
	// before a blacklist update unloaded it, so leaving the blacklist
	// restores rather than force-enables.
	PriorState State `json:"prior_state,omitempty"`

	GrantedPermissions PermissionSet `json:"granted_permissions,omitempty"`

	// Provenance flags, preserved verbatim across updates.
	FromBookmark          bool `json:"from_bookmark,omitempty"`
	FromWebstore          bool `json:"from_webstore,omitempty"`
	WasInstalledByDefault bool `json:"was_installed_by_default,omitempty"`

	// Acknowledged records that the user dismissed the "installed by another
	// program" notice for this id.
	Acknowledged bool `json:"acknowledged,omitempty"`

	InstallTime time.Time `json:"install_time,omitempty"`
	UpdateTime  time.Time `json:"update_time,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.GrantedPermissions = r.GrantedPermissions.Clone()
	return &clone
}

// IsInstalled reports whether the record represents a live installation
// rather than a tombstone.
func (r *Record) IsInstalled() bool {
	return r != nil && r.State != StateExternallyUninstalled
}

// Marshal encodes the record for durable storage.
func (r *Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", r.ID, err)
	}
	return data, nil
}

// UnmarshalRecord decodes a record from durable storage.
func UnmarshalRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// ManifestPermissions returns the granted permission set, never nil.
func (r *Record) ManifestPermissions() PermissionSet {
	if r.GrantedPermissions == nil {
		return PermissionSet{}
	}
	return r.GrantedPermissions
}
