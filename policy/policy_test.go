package policy

import (
	"strings"
	"testing"

	"github.com/axonbase/extcore/types"
)

const testID = "behllobkkfkfnphdnhnkndlbkcpglgmj"

func testRecord(loc types.Location) *types.Record {
	return &types.Record{
		ID:       testID,
		Version:  types.MustParseVersion("1.0.0.0"),
		Location: loc,
		State:    types.StateEnabled,
	}
}

// restrictiveProvider denies or pins according to its flags.
type restrictiveProvider struct {
	BaseProvider
	denyLoad   bool
	denyModify bool
	pinEnabled bool
	message    string
}

func (p *restrictiveProvider) Name() string { return "test provider" }

func (p *restrictiveProvider) UserMayLoad(rec *types.Record, err *string) bool {
	if p.denyLoad {
		if err != nil {
			*err = p.message
		}
		return false
	}
	return true
}

func (p *restrictiveProvider) UserMayModifySettings(rec *types.Record, err *string) bool {
	if p.denyModify {
		if err != nil {
			*err = p.message
		}
		return false
	}
	return true
}

func (p *restrictiveProvider) MustRemainEnabled(rec *types.Record, err *string) bool {
	if p.pinEnabled {
		if err != nil {
			*err = p.message
		}
		return true
	}
	return false
}

func TestRegisterAndUnregister(t *testing.T) {
	p := NewPolicy()
	a := &restrictiveProvider{}
	b := &restrictiveProvider{}

	p.RegisterProvider(a)
	p.RegisterProvider(b)
	if got := p.ProviderCount(); got != 2 {
		t.Fatalf("ProviderCount = %d, want 2", got)
	}

	// Registering the same provider again is a no-op.
	p.RegisterProvider(a)
	if got := p.ProviderCount(); got != 2 {
		t.Errorf("duplicate registration changed count to %d", got)
	}

	p.UnregisterProvider(a)
	if got := p.ProviderCount(); got != 1 {
		t.Errorf("ProviderCount after unregister = %d, want 1", got)
	}

	// Unregistering an absent provider is a no-op.
	p.UnregisterProvider(a)
	if got := p.ProviderCount(); got != 1 {
		t.Errorf("double unregister changed count to %d", got)
	}

	p.UnregisterAllProviders()
	if got := p.ProviderCount(); got != 0 {
		t.Errorf("ProviderCount after UnregisterAllProviders = %d, want 0", got)
	}
}

func TestUserMayLoad(t *testing.T) {
	p := NewPolicy()
	rec := testRecord(types.LocationInternal)

	// An empty provider set is permissive.
	if !p.UserMayLoad(rec, nil) {
		t.Fatal("empty policy should allow load")
	}

	allower := &restrictiveProvider{}
	denier := &restrictiveProvider{denyLoad: true, message: "load prohibited"}
	p.RegisterProvider(allower)
	p.RegisterProvider(denier)

	var errMsg string
	if p.UserMayLoad(rec, &errMsg) {
		t.Error("policy with a denying provider should deny load")
	}
	if !strings.Contains(errMsg, "load prohibited") {
		t.Errorf("error message not propagated, got %q", errMsg)
	}

	// A nil error slot must not crash and must not skip the computation.
	if p.UserMayLoad(rec, nil) {
		t.Error("denial should hold without an error slot")
	}

	// Removing the denier restores permissiveness with no other change.
	p.UnregisterProvider(denier)
	if !p.UserMayLoad(rec, nil) {
		t.Error("removing the denying provider should restore load permission")
	}
}

func TestUserMayModifySettings(t *testing.T) {
	p := NewPolicy()
	rec := testRecord(types.LocationInternal)

	denier := &restrictiveProvider{denyModify: true, message: "managed by policy"}
	p.RegisterProvider(denier)

	var errMsg string
	if p.UserMayModifySettings(rec, &errMsg) {
		t.Error("policy should deny settings modification")
	}
	if errMsg != "managed by policy" {
		t.Errorf("error message = %q", errMsg)
	}
}

func TestMustRemainEnabled(t *testing.T) {
	p := NewPolicy()
	rec := testRecord(types.LocationInternal)

	if p.MustRemainEnabled(rec, nil) {
		t.Fatal("empty policy should not pin anything enabled")
	}

	pinner := &restrictiveProvider{pinEnabled: true, message: "pinned"}
	p.RegisterProvider(pinner)
	p.RegisterProvider(&restrictiveProvider{})

	var errMsg string
	if !p.MustRemainEnabled(rec, &errMsg) {
		t.Error("policy with a pinning provider should pin")
	}
	if errMsg != "pinned" {
		t.Errorf("error message = %q", errMsg)
	}
}

func TestComponentProvider(t *testing.T) {
	p := NewPolicy()
	p.RegisterProvider(NewComponentProvider())

	component := testRecord(types.LocationComponent)
	regular := testRecord(types.LocationInternal)

	if p.UserMayModifySettings(component, nil) {
		t.Error("component extensions must not be modifiable")
	}
	if !p.MustRemainEnabled(component, nil) {
		t.Error("component extensions must remain enabled")
	}
	if !p.UserMayLoad(component, nil) {
		t.Error("component extensions must be loadable")
	}

	if !p.UserMayModifySettings(regular, nil) {
		t.Error("regular extensions should be modifiable")
	}
	if p.MustRemainEnabled(regular, nil) {
		t.Error("regular extensions should not be pinned")
	}
}

func TestBlocklistProvider(t *testing.T) {
	provider := NewBlocklistProvider([]string{testID}, nil)
	p := NewPolicy()
	p.RegisterProvider(provider)

	var errMsg string
	if p.UserMayLoad(testRecord(types.LocationInternal), &errMsg) {
		t.Error("blocked id should not load")
	}
	if !strings.Contains(errMsg, "blocked by the administrator") {
		t.Errorf("error message = %q", errMsg)
	}

	// Wildcard blocks everything except allowed and component extensions.
	provider.Update([]string{"*"}, nil)
	if p.UserMayLoad(testRecord(types.LocationInternal), nil) {
		t.Error("wildcard should block regular extensions")
	}
	if !p.UserMayLoad(testRecord(types.LocationComponent), nil) {
		t.Error("wildcard must not block component extensions")
	}

	provider.Update([]string{"*"}, []string{testID})
	if !p.UserMayLoad(testRecord(types.LocationInternal), nil) {
		t.Error("explicitly allowed id should load despite wildcard")
	}
}
