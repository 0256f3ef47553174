package types

import "testing"

func TestLocationRanking(t *testing.T) {
	// The arbitration ordering the coordinator depends on.
	if got := HigherPriorityLocation(LocationExternalRegistry, LocationExternalPref); got != LocationExternalRegistry {
		t.Errorf("registry should outrank external pref, got %s", got)
	}
	if got := HigherPriorityLocation(LocationExternalRegistry, LocationInternal); got != LocationExternalRegistry {
		t.Errorf("registry should outrank internal, got %s", got)
	}
	if got := HigherPriorityLocation(LocationExternalPref, LocationInternal); got != LocationExternalPref {
		t.Errorf("external pref should outrank internal, got %s", got)
	}
	if got := HigherPriorityLocation(LocationInternal, LocationExternalPolicyDownload); got != LocationExternalPolicyDownload {
		t.Errorf("policy download should outrank internal, got %s", got)
	}
	if got := HigherPriorityLocation(LocationExternalPolicyDownload, LocationComponent); got != LocationComponent {
		t.Errorf("component should outrank policy download, got %s", got)
	}
	// Ties resolve to the first argument.
	if got := HigherPriorityLocation(LocationInternal, LocationInternal); got != LocationInternal {
		t.Errorf("tie should resolve to first argument, got %s", got)
	}
}

func TestLocationIsExternal(t *testing.T) {
	external := []Location{
		LocationExternalPref, LocationExternalPrefDownload,
		LocationExternalRegistry, LocationExternalPolicyDownload,
	}
	for _, loc := range external {
		if !loc.IsExternal() {
			t.Errorf("%s should be external", loc)
		}
	}
	for _, loc := range []Location{LocationInternal, LocationUnpacked, LocationComponent} {
		if loc.IsExternal() {
			t.Errorf("%s should not be external", loc)
		}
	}
}

func TestLocationRoundTrip(t *testing.T) {
	for _, loc := range []Location{
		LocationInternal, LocationUnpacked, LocationExternalPref,
		LocationExternalPrefDownload, LocationExternalRegistry,
		LocationExternalPolicyDownload, LocationComponent,
	} {
		if got := ParseLocation(loc.String()); got != loc {
			t.Errorf("ParseLocation(%q) = %s, want %s", loc.String(), got, loc)
		}
	}
	if got := ParseLocation("nonsense"); got != LocationInvalid {
		t.Errorf("unknown location name should parse invalid, got %s", got)
	}
}

func TestVersionCompare(t *testing.T) {
	older := MustParseVersion("0.1.0.0")
	v1 := MustParseVersion("1.0.0.0")
	v1again := MustParseVersion("1.0.0.0")
	newer := MustParseVersion("2.0.0.0")

	if !older.OlderThan(v1) {
		t.Error("0.1.0.0 should be older than 1.0.0.0")
	}
	if !newer.NewerThan(v1) {
		t.Error("2.0.0.0 should be newer than 1.0.0.0")
	}
	if !v1.Equal(v1again) {
		t.Error("identical versions should compare equal")
	}
	if (*Version)(nil).Compare(v1) != -1 {
		t.Error("nil version should compare older than any version")
	}
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "not-a-version", "1.0.0.0.0.beta!"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) should fail", bad)
		}
	}
}

func TestDisableReasonMask(t *testing.T) {
	mask := DisableUserAction | DisablePermissionsIncrease
	if !mask.Has(DisableUserAction) || !mask.Has(DisablePermissionsIncrease) {
		t.Error("mask should contain both reasons")
	}
	mask = mask.Without(DisablePermissionsIncrease)
	if mask.Has(DisablePermissionsIncrease) {
		t.Error("permissions increase should be cleared")
	}
	if !mask.Has(DisableUserAction) {
		t.Error("user action should survive clearing another bit")
	}
}

func TestPermissionSet(t *testing.T) {
	granted := NewPermissionSet("tabs")
	declared := NewPermissionSet("tabs", "management")

	if declared.IsSubsetOf(granted) {
		t.Error("declared exceeds granted, should not be a subset")
	}
	if !granted.IsSubsetOf(declared) {
		t.Error("granted should be a subset of declared")
	}
	union := granted.Union(declared)
	if !union.Equal(declared) {
		t.Errorf("union should equal declared set, got %v", union.Names())
	}
}

func TestIDValidation(t *testing.T) {
	valid := "behllobkkfkfnphdnhnkndlbkcpglgmj"
	if !IsValidID(valid) {
		t.Errorf("%q should be valid", valid)
	}
	for _, bad := range []string{"", "short", valid + "a", "zehllobkkfkfnphdnhnkndlbkcpglgmj"} {
		if IsValidID(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID([]byte("/tmp/my-unpacked-extension"))
	if !IsValidID(id) {
		t.Errorf("generated id %q is not well formed", id)
	}
	if again := GenerateID([]byte("/tmp/my-unpacked-extension")); again != id {
		t.Error("id generation should be deterministic")
	}
	if other := GenerateID([]byte("/tmp/other")); other == id {
		t.Error("distinct seeds should produce distinct ids")
	}
}

func TestRecordMarshalRoundTrip(t *testing.T) {
	rec := &Record{
		ID:                 "behllobkkfkfnphdnhnkndlbkcpglgmj",
		Version:            MustParseVersion("1.0.0.0"),
		Location:           LocationExternalPref,
		State:              StateDisabled,
		DisableReasons:     DisablePermissionsIncrease,
		GrantedPermissions: NewPermissionSet("tabs"),
		FromWebstore:       true,
	}
	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != rec.ID || got.Location != rec.Location || got.State != rec.State {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Version.Equal(rec.Version) {
		t.Errorf("version mismatch: %s", got.Version)
	}
	if !got.DisableReasons.Has(DisablePermissionsIncrease) {
		t.Error("disable reasons lost in round trip")
	}
	if !got.GrantedPermissions.Contains("tabs") {
		t.Error("granted permissions lost in round trip")
	}
}

func TestCandidateValidate(t *testing.T) {
	good := &Candidate{
		ID:       "behllobkkfkfnphdnhnkndlbkcpglgmj",
		Location: LocationInternal,
		Path:     "/tmp/good.crx",
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid candidate rejected: %v", err)
	}

	bad := &Candidate{ID: "nope", Location: LocationInternal}
	if err := bad.Validate(); err == nil {
		t.Error("malformed id should be rejected")
	}

	conflicted := &Candidate{
		ID:        "behllobkkfkfnphdnhnkndlbkcpglgmj",
		Location:  LocationExternalPrefDownload,
		Path:      "/tmp/x.crx",
		UpdateURL: "https://example.com/updates.xml",
	}
	if err := conflicted.Validate(); err == nil {
		t.Error("candidate with both path and update url should be rejected")
	}
}
