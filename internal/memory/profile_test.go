// Package memory provides memory profiling and leak detection tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"testing"

	"github.com/kbradley/liftlog/internal/cloud"
	"github.com/kbradley/liftlog/internal/db"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/platform"
	"github.com/kbradley/liftlog/internal/syncer"
)

// getMemoryStats returns current memory statistics after a GC pass.
func getMemoryStats() runtime.MemStats {
	runtime.GC()
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats
}

// formatBytes formats bytes to a human-readable string.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func float64p(v float64) *float64 { return &v }

// TestMemoryLeakStoreCycle checks that repeated save/delete cycles do not
// accumulate heap. The SQL store runs against in-memory sqlite.
func TestMemoryLeakStoreCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory profile in short mode")
	}

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	if err := db.NewMigrator(database.DB).Up(); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	store := db.NewSQLStore(database)

	before := getMemoryStats()

	for i := 0; i < 500; i++ {
		m := &models.BodyMeasurement{Weight: float64p(80), MeasuredAt: int64(1000 + i)}
		if err := store.Save(m); err != nil {
			t.Fatalf("Save failed at iteration %d: %v", i, err)
		}
		if err := store.SoftDelete(models.TypeBodyMeasurements, m.ID); err != nil {
			t.Fatalf("SoftDelete failed at iteration %d: %v", i, err)
		}
		if err := store.HardDelete(models.TypeBodyMeasurements, m.ID); err != nil {
			t.Fatalf("HardDelete failed at iteration %d: %v", i, err)
		}
	}

	after := getMemoryStats()
	var growth uint64
	if after.HeapAlloc > before.HeapAlloc {
		growth = after.HeapAlloc - before.HeapAlloc
	}
	t.Logf("heap growth after 500 store cycles: %s", formatBytes(growth))

	// 10 MiB of retained heap after GC indicates a leak, not churn.
	if growth > 10*1024*1024 {
		t.Errorf("heap grew by %s across store cycles", formatBytes(growth))
	}
}

// TestMemoryLeakSyncCycle checks repeated full sync cycles over fakes.
func TestMemoryLeakSyncCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory profile in short mode")
	}

	store := db.NewMemStore()
	bucket := cloud.NewMemObjectStore()
	quiet := logging.New(io.Discard, logging.LevelError)
	mirror := cloud.NewMirror(bucket, "u1", quiet)
	orch := syncer.NewOrchestrator(
		store, mirror,
		&platform.StaticAuth{UserID: "u1"},
		platform.NewManualConnectivity(true),
		quiet,
	)
	ctx := context.Background()

	before := getMemoryStats()

	for i := 0; i < 200; i++ {
		m := &models.BodyMeasurement{Weight: float64p(80), MeasuredAt: int64(1000 + i)}
		if err := store.Save(m); err != nil {
			t.Fatalf("Save failed at iteration %d: %v", i, err)
		}
		if _, err := orch.PerformFullSync(ctx); err != nil {
			t.Fatalf("PerformFullSync failed at iteration %d: %v", i, err)
		}
	}

	after := getMemoryStats()
	var growth uint64
	if after.HeapAlloc > before.HeapAlloc {
		growth = after.HeapAlloc - before.HeapAlloc
	}
	t.Logf("heap growth after 200 sync cycles: %s", formatBytes(growth))

	// The stores legitimately hold the accumulated records; anything
	// far beyond that points at a listener or buffer leak.
	if growth > 20*1024*1024 {
		t.Errorf("heap grew by %s across sync cycles", formatBytes(growth))
	}
}

// BenchmarkSyncCycle measures allocations per full sync over fakes.
func BenchmarkSyncCycle(b *testing.B) {
	store := db.NewMemStore()
	bucket := cloud.NewMemObjectStore()
	quiet := logging.New(io.Discard, logging.LevelError)
	mirror := cloud.NewMirror(bucket, "u1", quiet)
	orch := syncer.NewOrchestrator(
		store, mirror,
		&platform.StaticAuth{UserID: "u1"},
		platform.NewManualConnectivity(true),
		quiet,
	)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		m := &models.BodyMeasurement{Weight: float64p(80), MeasuredAt: int64(1000 + i)}
		if err := store.Save(m); err != nil {
			b.Fatalf("Save failed: %v", err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := orch.PerformFullSync(ctx); err != nil {
			b.Fatalf("PerformFullSync failed: %v", err)
		}
	}
}
