package types

import "sort"

// PermissionSet is a set of named API permissions. The zero value is the
// empty set.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given permission names.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether the set holds the named permission.
func (p PermissionSet) Contains(name string) bool {
	_, ok := p[name]
	return ok
}

// IsSubsetOf reports whether every permission in p is also in other.
func (p PermissionSet) IsSubsetOf(other PermissionSet) bool {
	for name := range p {
		if !other.Contains(name) {
			return false
		}
	}
	return true
}

// Equal reports whether the two sets hold exactly the same permissions.
func (p PermissionSet) Equal(other PermissionSet) bool {
	return len(p) == len(other) && p.IsSubsetOf(other)
}

// Union returns a new set holding every permission from both sets.
func (p PermissionSet) Union(other PermissionSet) PermissionSet {
	union := make(PermissionSet, len(p)+len(other))
	for name := range p {
		union[name] = struct{}{}
	}
	for name := range other {
		union[name] = struct{}{}
	}
	return union
}

// Clone returns an independent copy of the set.
func (p PermissionSet) Clone() PermissionSet {
	clone := make(PermissionSet, len(p))
	for name := range p {
		clone[name] = struct{}{}
	}
	return clone
}

// Names returns the sorted permission names, for stable serialization and
// deterministic error messages.
func (p PermissionSet) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
