package policy

import "github.com/axonbase/extcore/types"

// Provider is one pluggable rule source consulted by the Policy. Providers
// must be side-effect free: the policy may call them zero, one or many times
// per logical decision, including re-entrantly.
//
// A provider that only cares about one of the three checks embeds
// BaseProvider so the others keep their permissive defaults.
type Provider interface {
	// Name identifies the provider in logs and error messages.
	Name() string

	// UserMayLoad reports whether the extension may be loaded at all. A
	// denying provider may write its reason to err when non-nil.
	UserMayLoad(rec *types.Record, err *string) bool

	// UserMayModifySettings reports whether the user may enable, disable or
	// uninstall the extension.
	UserMayModifySettings(rec *types.Record, err *string) bool

	// MustRemainEnabled reports whether the extension is pinned enabled;
	// true is the restrictive answer.
	MustRemainEnabled(rec *types.Record, err *string) bool
}

// BaseProvider supplies the permissive default for every check. Embed it and
// override only what the provider cares about.
type BaseProvider struct{}

// Name returns the default provider name.
func (BaseProvider) Name() string { return "unnamed provider" }

// UserMayLoad defaults to allowing the load.
func (BaseProvider) UserMayLoad(*types.Record, *string) bool { return true }

// UserMayModifySettings defaults to allowing modification.
func (BaseProvider) UserMayModifySettings(*types.Record, *string) bool { return true }

// MustRemainEnabled defaults to not pinning the extension.
func (BaseProvider) MustRemainEnabled(*types.Record, *string) bool { return false }
