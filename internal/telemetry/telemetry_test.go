package telemetry

import (
	"sync"
	"testing"
	"time"
)

func TestCollector_RecordCycle(t *testing.T) {
	c := NewCollector()

	c.RecordCycle(3, 2, 1, 1, 250*time.Millisecond)
	c.RecordCycle(1, 0, 0, 0, 100*time.Millisecond)
	c.RecordFailure()

	stats := c.Snapshot()
	if stats.SyncCycles != 2 {
		t.Errorf("SyncCycles = %d, want 2", stats.SyncCycles)
	}
	if stats.RecordsUploaded != 4 {
		t.Errorf("RecordsUploaded = %d, want 4", stats.RecordsUploaded)
	}
	if stats.RecordsDownloaded != 2 {
		t.Errorf("RecordsDownloaded = %d, want 2", stats.RecordsDownloaded)
	}
	if stats.TombstonesApplied != 1 {
		t.Errorf("TombstonesApplied = %d, want 1", stats.TombstonesApplied)
	}
	if stats.ConflictsResolved != 1 {
		t.Errorf("ConflictsResolved = %d, want 1", stats.ConflictsResolved)
	}
	if stats.SyncFailures != 1 {
		t.Errorf("SyncFailures = %d, want 1", stats.SyncFailures)
	}
	if stats.LastCycleMillis != 100 {
		t.Errorf("LastCycleMillis = %d, want 100", stats.LastCycleMillis)
	}
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.RecordCycle(1, 1, 0, 0, time.Millisecond)
	c.Reset()

	if stats := c.Snapshot(); stats != (Stats{}) {
		t.Errorf("Expected zeroed stats after reset, got %+v", stats)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordCycle(1, 0, 0, 0, time.Millisecond)
		}()
	}
	wg.Wait()

	if stats := c.Snapshot(); stats.SyncCycles != 50 {
		t.Errorf("SyncCycles = %d, want 50", stats.SyncCycles)
	}
}
