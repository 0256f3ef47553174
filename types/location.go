package types

// Location identifies which source an extension was installed from. The
// location doubles as the install-source priority used for conflict
// arbitration between competing providers.
type Location int

const (
	// LocationInvalid is the zero value and never stored.
	LocationInvalid Location = iota
	// LocationInternal is a user-initiated install (webstore or local crx).
	LocationInternal
	// LocationUnpacked is a developer-mode load from an unpacked directory.
	LocationUnpacked
	// LocationExternalPref comes from an external preferences file pointing
	// at a local crx.
	LocationExternalPref
	// LocationExternalPrefDownload comes from an external preferences file
	// pointing at an update URL.
	LocationExternalPrefDownload
	// LocationExternalRegistry comes from the system registry.
	LocationExternalRegistry
	// LocationExternalPolicyDownload is force-installed by enterprise policy.
	LocationExternalPolicyDownload
	// LocationComponent is a built-in component extension.
	LocationComponent
)

var locationNames = map[Location]string{
	LocationInternal:               "internal",
	LocationUnpacked:               "unpacked",
	LocationExternalPref:           "external_pref",
	LocationExternalPrefDownload:   "external_pref_download",
	LocationExternalRegistry:       "external_registry",
	LocationExternalPolicyDownload: "external_policy_download",
	LocationComponent:              "component",
}

// String returns the stable textual name of the location.
func (l Location) String() string {
	if name, ok := locationNames[l]; ok {
		return name
	}
	return "invalid"
}

// ParseLocation resolves a textual location name, returning LocationInvalid
// for unknown names.
func ParseLocation(s string) Location {
	for loc, name := range locationNames {
		if name == s {
			return loc
		}
	}
	return LocationInvalid
}

// Rank returns the arbitration priority of the location. A higher rank
// always wins a same-id conflict. Component extensions cannot be overridden
// by any other source; policy-controlled extensions may only be overridden
// by components; a developer load overrides anything a user can disable;
// the relative order of the external sources is not itself important, but
// having one keeps arbitration deterministic.
func (l Location) Rank() int {
	switch l {
	case LocationComponent:
		return 7
	case LocationExternalPolicyDownload:
		return 6
	case LocationUnpacked:
		return 5
	case LocationExternalRegistry:
		return 4
	case LocationExternalPref:
		return 3
	case LocationExternalPrefDownload:
		return 2
	case LocationInternal:
		return 1
	default:
		return 0
	}
}

// HigherPriorityLocation returns whichever of the two locations outranks the
// other. Ties resolve to the first argument.
func HigherPriorityLocation(a, b Location) Location {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// IsExternal reports whether the location is one of the external provider
// sources. Externally sourced extensions leave a tombstone when uninstalled
// so providers cannot silently reinstall them.
func (l Location) IsExternal() bool {
	switch l {
	case LocationExternalPref, LocationExternalPrefDownload,
		LocationExternalRegistry, LocationExternalPolicyDownload:
		return true
	default:
		return false
	}
}
