package metrics

import (
	"testing"
	"time"
)

const testID = "behllobkkfkfnphdnhnkndlbkcpglgmj"

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(NewMemoryStorage(), true, time.Minute)
	defer c.Stop()

	c.Install(testID)
	c.Install(testID)
	c.Update(testID, "1.0.0.0", "2.0.0.0")
	c.Uninstall(testID)
	c.PolicyRejection(testID, "blocklist")
	c.VersionConflict(testID)
	c.Escalation(testID)

	got := c.Totals()
	if got.Installs != 2 {
		t.Errorf("Installs = %d, want 2", got.Installs)
	}
	if got.Updates != 1 || got.Uninstalls != 1 {
		t.Errorf("Updates = %d, Uninstalls = %d, want 1 each", got.Updates, got.Uninstalls)
	}
	if got.PolicyRejections != 1 || got.VersionConflicts != 1 || got.Escalations != 1 {
		t.Errorf("rejection counters = %d/%d/%d, want 1 each",
			got.PolicyRejections, got.VersionConflicts, got.Escalations)
	}
}

func TestCollectorDisabledIsInert(t *testing.T) {
	c := NewCollector(nil, false, 0)
	defer c.Stop()

	c.Install(testID)
	c.PolicyRejection(testID, "blocklist")

	if _, err := c.QueryLatest(MetricInstall, 5); err == nil {
		t.Error("QueryLatest() without storage should error")
	}
	if stats := c.GetStorageStats(); stats["status"] != "not_configured" {
		t.Errorf("GetStorageStats() = %v", stats)
	}
}

func TestCollectorFlushOnStop(t *testing.T) {
	storage := NewMemoryStorage()
	c := NewCollector(storage, true, time.Hour)

	c.Install(testID)
	c.Update(testID, "1.0.0.0", "1.1.0.0")
	c.Stop()

	got, err := storage.QueryLatest(MetricInstall, 10)
	if err != nil {
		t.Fatalf("QueryLatest() error = %v", err)
	}
	if len(got) != 1 || got[0].ExtensionID != testID {
		t.Errorf("install snapshots after Stop = %+v, want 1 for %s", got, testID)
	}

	updates, _ := storage.QueryLatest(MetricUpdate, 10)
	if len(updates) != 1 || updates[0].Labels["to"] != "1.1.0.0" {
		t.Errorf("update snapshots = %+v", updates)
	}
}

func TestMemoryStorageQueryWindow(t *testing.T) {
	storage := NewMemoryStorage()
	now := time.Now()

	batch := []*Snapshot{
		{Metric: MetricInstall, ExtensionID: testID, Value: 1, Timestamp: now.Add(-2 * time.Hour)},
		{Metric: MetricInstall, ExtensionID: testID, Value: 1, Timestamp: now.Add(-time.Minute)},
	}
	if err := storage.StoreBatch(batch); err != nil {
		t.Fatalf("StoreBatch() error = %v", err)
	}

	got, err := storage.Query(MetricInstall, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Query() returned %d snapshots, want 1 inside the window", len(got))
	}

	if err := storage.Cleanup(now.Add(-time.Hour)); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	remaining, _ := storage.QueryLatest(MetricInstall, 10)
	if len(remaining) != 1 {
		t.Errorf("Cleanup() left %d snapshots, want 1", len(remaining))
	}
}

func TestNewFromConfigDisabled(t *testing.T) {
	c, err := NewFromConfig(nil)
	if err != nil {
		t.Fatalf("NewFromConfig(nil) error = %v", err)
	}
	if c.IsEnabled() {
		t.Error("nil config should produce a disabled collector")
	}
	c.Stop()
}
