package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/axonbase/extcore/crx"
	"github.com/axonbase/extcore/pending"
	"github.com/axonbase/extcore/types"
)

const testID = "behllobkkfkfnphdnhnkndlbkcpglgmj"

type recordingReporter struct {
	mu        sync.Mutex
	completed []uint64
	failed    []uint64
	manifest  *types.Manifest
	done      chan struct{}
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{done: make(chan struct{}, 4)}
}

func (r *recordingReporter) OnInstallCompleted(_ context.Context, _ string, token uint64, manifest *types.Manifest) error {
	r.mu.Lock()
	r.completed = append(r.completed, token)
	r.manifest = manifest
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingReporter) OnInstallFailed(_ context.Context, _ string, token uint64, _ error) {
	r.mu.Lock()
	r.failed = append(r.failed, token)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingReporter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for apply report")
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoaderAppliesValidPackage(t *testing.T) {
	dir := writeManifest(t, `{"name": "Good", "version": "1.0.0.0", "permissions": ["tabs"]}`)

	reporter := newRecordingReporter()
	l, err := New(nil, crx.NewDirValidator(), reporter)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Stop(context.Background())

	err = l.Apply(&pending.Install{ID: testID, Location: types.LocationUnpacked, Path: dir, Token: 7})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	reporter.wait(t)

	if len(reporter.completed) != 1 || reporter.completed[0] != 7 {
		t.Errorf("completed tokens = %v, want [7]", reporter.completed)
	}
	if reporter.manifest == nil || reporter.manifest.Version.String() != "1.0.0.0" {
		t.Errorf("reported manifest = %+v", reporter.manifest)
	}
}

func TestLoaderReportsValidationFailure(t *testing.T) {
	dir := writeManifest(t, `{"name": "Broken"}`) // no version

	reporter := newRecordingReporter()
	l, err := New(nil, crx.NewDirValidator(), reporter)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Stop(context.Background())

	if err := l.Apply(&pending.Install{ID: testID, Location: types.LocationUnpacked, Path: dir, Token: 3}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	reporter.wait(t)

	if len(reporter.failed) != 1 || reporter.failed[0] != 3 {
		t.Errorf("failed tokens = %v, want [3]", reporter.failed)
	}
	if len(reporter.completed) != 0 {
		t.Errorf("completed tokens = %v, want none", reporter.completed)
	}
}

func TestLoaderRejectsPathlessInstall(t *testing.T) {
	reporter := newRecordingReporter()
	l, err := New(nil, crx.NewDirValidator(), reporter)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Stop(context.Background())

	err = l.Apply(&pending.Install{ID: testID, Location: types.LocationExternalPolicyDownload, UpdateURL: "https://x"})
	if err == nil {
		t.Error("Apply() of update-url install should fail synchronously")
	}
}

func TestPoolQueueFull(t *testing.T) {
	cfg := &Config{MaxWorkers: 1, QueueSize: 1, TaskTimeout: time.Minute}
	p := NewPool(cfg)
	// Not started: queued tasks stay queued.
	if err := p.Submit(func(context.Context) error { return nil }); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := p.Submit(func(context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Submit() error = %v, want ErrQueueFull", err)
	}
	p.Stop(context.Background())
}
