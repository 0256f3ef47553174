package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/axonbase/extcore/config"
	"github.com/axonbase/extcore/logging/logger"
)

const defaultFlushInterval = 30 * time.Second

// Collector tallies lifecycle operation outcomes and batches snapshots
// into a Storage backend. A disabled collector is safe to call and does
// nothing, so call sites never need a nil check.
type Collector struct {
	counters  counters
	storage   Storage
	enabled   bool
	startTime time.Time

	mu          sync.Mutex
	batchBuffer []*Snapshot
	batchSize   int
	flushTicker *time.Ticker
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewCollector creates a collector over the given storage. storage may be
// nil, in which case counters still work but no snapshots are persisted.
func NewCollector(storage Storage, enabled bool, flushInterval time.Duration) *Collector {
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	c := &Collector{
		storage:   storage,
		enabled:   enabled,
		startTime: time.Now(),
		batchSize: 100,
		stopChan:  make(chan struct{}),
	}

	if enabled && storage != nil {
		c.flushTicker = time.NewTicker(flushInterval)
		c.wg.Add(1)
		go c.flushRoutine(c.stopChan)
	}
	return c
}

// NewFromConfig builds a collector from the metrics configuration,
// choosing memory or Redis snapshot storage.
func NewFromConfig(cfg *config.Metrics) (*Collector, error) {
	if cfg == nil || !cfg.Enabled {
		return NewCollector(nil, false, 0), nil
	}

	flushInterval, _ := time.ParseDuration(cfg.FlushInterval)

	var storage Storage
	switch cfg.Storage {
	case "", "memory":
		storage = NewMemoryStorage()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		retention, err := time.ParseDuration(cfg.Retention)
		if err != nil || retention <= 0 {
			retention = 7 * 24 * time.Hour
		}
		keyPrefix := cfg.KeyPrefix
		if keyPrefix == "" {
			keyPrefix = "extcore"
		}
		storage = NewRedisStorage(client, keyPrefix, retention)
	default:
		return nil, fmt.Errorf("unknown metrics storage %q", cfg.Storage)
	}

	return NewCollector(storage, true, flushInterval), nil
}

// Stop flushes buffered snapshots and stops the background routine.
func (c *Collector) Stop() {
	c.mu.Lock()
	if c.stopChan != nil {
		close(c.stopChan)
		c.stopChan = nil
	}
	if c.flushTicker != nil {
		c.flushTicker.Stop()
	}
	c.flush()
	c.mu.Unlock()

	c.wg.Wait()
}

// IsEnabled reports whether the collector records anything.
func (c *Collector) IsEnabled() bool { return c.enabled }

// Recording methods, one per lifecycle outcome.

func (c *Collector) Install(id string) {
	c.counters.installs.Add(1)
	c.record(MetricInstall, id, nil)
}

func (c *Collector) Update(id, oldVersion, newVersion string) {
	c.counters.updates.Add(1)
	c.record(MetricUpdate, id, map[string]string{"from": oldVersion, "to": newVersion})
}

func (c *Collector) Uninstall(id string) {
	c.counters.uninstalls.Add(1)
	c.record(MetricUninstall, id, nil)
}

func (c *Collector) Reload(id string) {
	c.counters.reloads.Add(1)
	c.record(MetricReload, id, nil)
}

func (c *Collector) PolicyRejection(id, provider string) {
	c.counters.policyRejections.Add(1)
	c.record(MetricPolicyRejection, id, map[string]string{"provider": provider})
}

func (c *Collector) VersionConflict(id string) {
	c.counters.versionConflicts.Add(1)
	c.record(MetricVersionConflict, id, nil)
}

func (c *Collector) Escalation(id string) {
	c.counters.escalations.Add(1)
	c.record(MetricEscalation, id, nil)
}

func (c *Collector) ExternalUninstall(id string) {
	c.counters.externalUninstalls.Add(1)
	c.record(MetricExternalUninstall, id, nil)
}

func (c *Collector) InstallError(id, reason string) {
	c.counters.installErrors.Add(1)
	c.record(MetricInstallError, id, map[string]string{"reason": reason})
}

// Totals returns a copy of the live counters.
func (c *Collector) Totals() Totals {
	return Totals{
		Installs:           c.counters.installs.Load(),
		Updates:            c.counters.updates.Load(),
		Uninstalls:         c.counters.uninstalls.Load(),
		Reloads:            c.counters.reloads.Load(),
		PolicyRejections:   c.counters.policyRejections.Load(),
		VersionConflicts:   c.counters.versionConflicts.Load(),
		Escalations:        c.counters.escalations.Load(),
		ExternalUninstalls: c.counters.externalUninstalls.Load(),
		InstallErrors:      c.counters.installErrors.Load(),
		StartTime:          c.startTime,
	}
}

// Query proxies a time-range query to the storage backend.
func (c *Collector) Query(metric string, start, end time.Time) ([]*Snapshot, error) {
	if c.storage == nil {
		return nil, fmt.Errorf("metrics storage not configured")
	}
	return c.storage.Query(metric, start, end)
}

// QueryLatest proxies a latest-n query to the storage backend.
func (c *Collector) QueryLatest(metric string, limit int) ([]*Snapshot, error) {
	if c.storage == nil {
		return nil, fmt.Errorf("metrics storage not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	return c.storage.QueryLatest(metric, limit)
}

// GetStorageStats reports the storage backend's self-description.
func (c *Collector) GetStorageStats() map[string]any {
	if c.storage == nil {
		return map[string]any{"status": "not_configured"}
	}
	return c.storage.GetStats()
}

// CleanupOldMetrics drops snapshots older than maxAge.
func (c *Collector) CleanupOldMetrics(maxAge time.Duration) error {
	if c.storage == nil {
		return fmt.Errorf("metrics storage not configured")
	}
	return c.storage.Cleanup(time.Now().Add(-maxAge))
}

func (c *Collector) record(metric, id string, labels map[string]string) {
	if !c.enabled || c.storage == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.batchBuffer = append(c.batchBuffer, &Snapshot{
		Metric:      metric,
		ExtensionID: id,
		Value:       1,
		Labels:      labels,
		Timestamp:   time.Now(),
	})
	if len(c.batchBuffer) >= c.batchSize {
		c.flush()
	}
}

// flush writes the buffered batch. Caller must hold c.mu.
func (c *Collector) flush() {
	if c.storage == nil || len(c.batchBuffer) == 0 {
		return
	}
	if err := c.storage.StoreBatch(c.batchBuffer); err != nil {
		logger.Errorf(nil, "metrics: flush failed: %v", err)
	}
	c.batchBuffer = c.batchBuffer[:0]
}

func (c *Collector) flushRoutine(stop <-chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-c.flushTicker.C:
			c.mu.Lock()
			c.flush()
			c.mu.Unlock()
		case <-stop:
			return
		}
	}
}
