package types

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// Version is a dotted extension version. Extension versions use up to four
// numeric components ("1.0.0.0"), which rules out strict semver parsers.
type Version struct {
	v *goversion.Version
}

// ParseVersion parses a dotted version string.
func ParseVersion(s string) (*Version, error) {
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}
	v, err := goversion.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return &Version{v: v}, nil
}

// MustParseVersion parses a dotted version string and panics on failure.
// Only for use with literal versions in tests and component manifests.
func MustParseVersion(s string) *Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version string.
func (v *Version) String() string {
	if v == nil || v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Compare returns -1, 0 or 1 when v is older than, equal to, or newer than
// other. A nil version compares older than any non-nil version.
func (v *Version) Compare(other *Version) int {
	switch {
	case v == nil && other == nil:
		return 0
	case v == nil:
		return -1
	case other == nil:
		return 1
	}
	return v.v.Compare(other.v)
}

// Equal reports whether the two versions compare equal.
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}

// NewerThan reports whether v is strictly newer than other.
func (v *Version) NewerThan(other *Version) bool {
	return v.Compare(other) > 0
}

// OlderThan reports whether v is strictly older than other.
func (v *Version) OlderThan(other *Version) bool {
	return v.Compare(other) < 0
}

// MarshalJSON encodes the version as its original string.
func (v *Version) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", v.String())), nil
}

// UnmarshalJSON decodes a version from a JSON string.
func (v *Version) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("version must be a JSON string")
	}
	parsed, err := ParseVersion(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	v.v = parsed.v
	return nil
}
