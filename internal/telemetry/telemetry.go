// Package telemetry collects local-only usage counters for diagnostics.
// Workout data is health data: nothing in this package ever leaves the
// process. Counters live in memory and reset on restart.
package telemetry

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of the collected counters.
type Stats struct {
	SyncCycles        int64 `json:"sync_cycles"`
	SyncFailures      int64 `json:"sync_failures"`
	RecordsUploaded   int64 `json:"records_uploaded"`
	RecordsDownloaded int64 `json:"records_downloaded"`
	TombstonesApplied int64 `json:"tombstones_applied"`
	ConflictsResolved int64 `json:"conflicts_resolved"`
	LastCycleMillis   int64 `json:"last_cycle_ms"`
}

// Collector accumulates counters behind a mutex.
type Collector struct {
	mu    sync.Mutex
	stats Stats
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordCycle notes a completed sync cycle and its outcome counts.
func (c *Collector) RecordCycle(uploaded, downloaded, deleted, conflicts int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.SyncCycles++
	c.stats.RecordsUploaded += int64(uploaded)
	c.stats.RecordsDownloaded += int64(downloaded)
	c.stats.TombstonesApplied += int64(deleted)
	c.stats.ConflictsResolved += int64(conflicts)
	c.stats.LastCycleMillis = duration.Milliseconds()
}

// RecordFailure notes a sync cycle that ended in an error.
func (c *Collector) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.SyncFailures++
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset clears all counters.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}
