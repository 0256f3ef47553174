package external

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/axonbase/extcore/types"
)

const (
	goodID  = "behllobkkfkfnphdnhnkndlbkcpglgmj"
	otherID = "cccccccccccccccccccccccccccccccc"
)

func TestStaticProviderReturnsCopy(t *testing.T) {
	p := NewStaticProvider("static", types.LocationExternalPref, []types.Candidate{
		{ID: goodID, Location: types.LocationExternalPref, Path: "/tmp/a.crx"},
	})

	got, err := p.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	got[0].ID = "mutated"

	again, _ := p.Enumerate(context.Background())
	if again[0].ID != goodID {
		t.Errorf("caller mutation leaked into provider state: id = %q", again[0].ID)
	}
}

func TestPrefFileProviderParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "external_extensions.json")
	content := `{
		"` + goodID + `": {"external_crx": "/opt/ext/good.crx", "external_version": "1.2.0.0"},
		"` + otherID + `": {"external_update_url": "https://updates.example.com/service"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPrefFileProvider("prefs", path, types.LocationExternalPref, types.LocationExternalPrefDownload)
	got, err := p.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Enumerate() returned %d candidates, want 2", len(got))
	}

	// Sorted by id, so goodID (b...) comes before otherID (c...).
	crx := got[0]
	if crx.ID != goodID || crx.Location != types.LocationExternalPref || crx.Path != "/opt/ext/good.crx" {
		t.Errorf("crx candidate = %+v", crx)
	}
	if crx.Version == nil || crx.Version.String() != "1.2.0.0" {
		t.Errorf("crx candidate version = %v, want 1.2.0.0", crx.Version)
	}

	download := got[1]
	if download.ID != otherID || download.Location != types.LocationExternalPrefDownload {
		t.Errorf("download candidate = %+v", download)
	}
	if download.UpdateURL != "https://updates.example.com/service" {
		t.Errorf("download candidate update url = %q", download.UpdateURL)
	}
	if download.Version != nil {
		t.Errorf("download candidate version = %v, want nil (latest)", download.Version)
	}
}

func TestPrefFileProviderSkipsMalformedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "external_extensions.json")
	content := `{
		"not-a-valid-id": {"external_crx": "/opt/ext/bad.crx", "external_version": "1.0"},
		"` + goodID + `": {"external_crx": "/opt/ext/both.crx", "external_version": "1.0", "external_update_url": "https://example.com"},
		"` + otherID + `": {"external_crx": "/opt/ext/good.crx", "external_version": "2.0"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPrefFileProvider("prefs", path, types.LocationExternalPref, types.LocationExternalPrefDownload)
	got, err := p.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != otherID {
		t.Errorf("Enumerate() = %+v, want only the well-formed entry", got)
	}
}

func TestPrefFileProviderMissingFile(t *testing.T) {
	p := NewPrefFileProvider("prefs", filepath.Join(t.TempDir(), "absent.json"),
		types.LocationExternalPref, types.LocationExternalPrefDownload)

	got, err := p.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v, want nil for missing file", err)
	}
	if len(got) != 0 {
		t.Errorf("Enumerate() = %+v, want empty", got)
	}
}

type fakeFetcher struct {
	versions map[string]string
	err      error
	calls    int
}

func (f *fakeFetcher) FetchLatest(_ context.Context, id, _ string) (*types.Version, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return types.ParseVersion(f.versions[id])
}

func TestUpdateURLProviderResolvesVersions(t *testing.T) {
	fetcher := &fakeFetcher{versions: map[string]string{goodID: "3.1.0.0"}}
	p := NewUpdateURLProvider("policy", types.LocationExternalPolicyDownload,
		map[string]string{goodID: "https://updates.example.com/service"}, fetcher)

	got, err := p.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Enumerate() returned %d candidates, want 1", len(got))
	}
	if got[0].Version == nil || got[0].Version.String() != "3.1.0.0" {
		t.Errorf("candidate version = %v, want 3.1.0.0", got[0].Version)
	}
	if !got[0].InstallSilently {
		t.Error("policy candidates should install silently")
	}
}

func TestUpdateURLProviderSurvivesFetcherFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("update service down")}
	p := NewUpdateURLProvider("policy", types.LocationExternalPolicyDownload,
		map[string]string{goodID: "https://updates.example.com/service"}, fetcher)

	// Repeated failures trip the per-id breaker; enumeration must keep
	// emitting the candidate either way, just without a pinned version.
	for i := 0; i < 6; i++ {
		got, err := p.Enumerate(context.Background())
		if err != nil {
			t.Fatalf("Enumerate() #%d error = %v", i, err)
		}
		if len(got) != 1 || got[0].Version != nil {
			t.Fatalf("Enumerate() #%d = %+v, want one versionless candidate", i, got)
		}
	}
	if fetcher.calls >= 6 {
		t.Errorf("fetcher called %d times, breaker never opened", fetcher.calls)
	}
}

func TestUpdateURLProviderWithoutFetcher(t *testing.T) {
	p := NewUpdateURLProvider("policy", types.LocationExternalPolicyDownload,
		map[string]string{goodID: "https://updates.example.com/service"}, nil)

	got, err := p.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != 1 || got[0].Version != nil {
		t.Errorf("Enumerate() = %+v, want one versionless candidate", got)
	}
}

// countingFetcher is safe for concurrent use.
type countingFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *countingFetcher) FetchLatest(_ context.Context, _, _ string) (*types.Version, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return types.ParseVersion("2.0.0.0")
}

func TestUpdateURLProviderConcurrentEnumerate(t *testing.T) {
	fetcher := &countingFetcher{}
	p := NewUpdateURLProvider("policy", types.LocationExternalPolicyDownload, map[string]string{
		goodID:  "https://updates.example.com/a",
		otherID: "https://updates.example.com/b",
	}, fetcher)

	// Overlapping reconciliation scans enumerate the same provider at once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Enumerate(context.Background()); err != nil {
				t.Errorf("Enumerate() error = %v", err)
			}
		}()
	}
	wg.Wait()

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if fetcher.calls != 16 {
		t.Errorf("fetcher calls = %d, want 16", fetcher.calls)
	}
}
