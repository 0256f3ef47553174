package registry

import (
	"testing"

	"github.com/axonbase/extcore/store"
	"github.com/axonbase/extcore/types"
)

const testID = "behllobkkfkfnphdnhnkndlbkcpglgmj"

func testRecord(id string, state types.State) *types.Record {
	return &types.Record{
		ID:       id,
		Version:  types.MustParseVersion("1.0.0.0"),
		Location: types.LocationExternalPref,
		State:    state,
	}
}

func TestHydrateFromStore(t *testing.T) {
	s := store.NewMemoryStore()
	_ = s.Put(testRecord(testID, types.StateEnabled))

	r, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rec := r.Get(testID); rec == nil || rec.State != types.StateEnabled {
		t.Errorf("hydrated record missing or wrong: %+v", rec)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestWriteThrough(t *testing.T) {
	s := store.NewMemoryStore()
	r, _ := Open(s)

	if err := r.Put(testRecord(testID, types.StateEnabled)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// The durable store must already see the write.
	stored, err := s.Get(testID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if stored.State != types.StateEnabled {
		t.Errorf("stored state = %s", stored.State)
	}

	// A reopened registry sees the same state.
	reopened, err := Open(s)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if rec := reopened.Get(testID); rec == nil {
		t.Error("record should survive reopen")
	}
}

func TestTombstone(t *testing.T) {
	s := store.NewMemoryStore()
	r, _ := Open(s)

	_ = r.Put(testRecord(testID, types.StateExternallyUninstalled))
	if !r.IsExternallyUninstalled(testID) {
		t.Fatal("tombstone not visible")
	}
	if got := len(r.Installed()); got != 0 {
		t.Errorf("tombstones must not count as installed, got %d", got)
	}

	if err := r.ClearTombstone(testID); err != nil {
		t.Fatalf("ClearTombstone: %v", err)
	}
	if r.IsExternallyUninstalled(testID) {
		t.Error("tombstone should be cleared")
	}
	if rec := r.Get(testID); rec != nil {
		t.Error("cleared tombstone should remove the record")
	}

	// Clearing a non-tombstone is a no-op.
	_ = r.Put(testRecord(testID, types.StateEnabled))
	if err := r.ClearTombstone(testID); err != nil {
		t.Fatalf("ClearTombstone on live record: %v", err)
	}
	if rec := r.Get(testID); rec == nil {
		t.Error("live record must survive ClearTombstone")
	}
}

func TestReadersGetCopies(t *testing.T) {
	s := store.NewMemoryStore()
	r, _ := Open(s)
	_ = r.Put(testRecord(testID, types.StateEnabled))

	rec := r.Get(testID)
	rec.State = types.StateBlacklisted
	if r.Get(testID).State != types.StateEnabled {
		t.Error("mutating a returned record must not affect the registry")
	}
}

func TestEnabledFiltering(t *testing.T) {
	s := store.NewMemoryStore()
	r, _ := Open(s)

	_ = r.Put(testRecord(testID, types.StateEnabled))
	_ = r.Put(testRecord("aehllobkkfkfnphdnhnkndlbkcpglgmj", types.StateDisabled))

	if got := len(r.Enabled()); got != 1 {
		t.Errorf("Enabled = %d records, want 1", got)
	}
	if got := len(r.Installed()); got != 2 {
		t.Errorf("Installed = %d records, want 2", got)
	}
}
