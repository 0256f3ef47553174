package types

import "fmt"

// Candidate describes one proposed install: who wants which extension at
// which version from where. Version may be nil, meaning "latest"; a nil
// version always counts as newest during pending arbitration.
type Candidate struct {
	ID       string   `json:"id"`
	Version  *Version `json:"version,omitempty"`
	Location Location `json:"location"`

	// Path points at a local crx or unpacked directory; UpdateURL points at
	// an update manifest. At most one of the two is set.
	Path      string `json:"path,omitempty"`
	UpdateURL string `json:"update_url,omitempty"`

	// FromSync marks candidates that originate from a sync change rather
	// than a local source. Sync candidates never displace non-sync pending
	// entries.
	FromSync bool `json:"from_sync,omitempty"`

	// InstallSilently suppresses any install-time user prompt; silent
	// external installs are acknowledged on arrival.
	InstallSilently bool `json:"install_silently,omitempty"`
}

// Validate checks the candidate for structural problems before any state is
// touched. A failing candidate must cause no mutation anywhere.
func (c *Candidate) Validate() error {
	if c == nil {
		return fmt.Errorf("nil candidate")
	}
	if !IsValidID(c.ID) {
		return fmt.Errorf("malformed extension id %q", c.ID)
	}
	if c.Location == LocationInvalid {
		return fmt.Errorf("candidate %s has no install location", c.ID)
	}
	if c.Path != "" && c.UpdateURL != "" {
		return fmt.Errorf("candidate %s has both path and update url", c.ID)
	}
	return nil
}

// Manifest is the decoded view of an extension package that the management
// core needs: identity, declared permissions and host requirements. The
// full manifest schema belongs to the validator collaborator.
type Manifest struct {
	ID          string        `json:"id"`
	Version     *Version      `json:"version"`
	Name        string        `json:"name,omitempty"`
	Permissions PermissionSet `json:"permissions,omitempty"`

	// Requirements lists host capabilities the extension cannot run without,
	// e.g. "3d". Unsatisfiable requirements disable the install.
	Requirements []string `json:"requirements,omitempty"`
}
