package export

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbradley/liftlog/internal/db"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
)

func newTestService(t *testing.T) (*Service, db.Store) {
	t.Helper()
	store := db.NewMemStore()
	quiet := logging.New(io.Discard, logging.LevelError)
	return NewService(store, quiet), store
}

func float64p(v float64) *float64 { return &v }

func seedRecords(t *testing.T, store db.Store) {
	t.Helper()
	records := []models.Record{
		&models.BodyMeasurement{Weight: float64p(80), MeasuredAt: 1000},
		&models.BodyMeasurement{Weight: float64p(81), MeasuredAt: 2000},
		&models.Exercise{Name: "Cable Fly", IsCustom: true},
	}
	for _, rec := range records {
		if err := store.Save(rec); err != nil {
			t.Fatalf("Failed to seed record: %v", err)
		}
	}
}

func TestService_ExportRoundTrip(t *testing.T) {
	svc, store := newTestService(t)
	seedRecords(t, store)

	path := filepath.Join(t.TempDir(), "backup.tar.gz")
	result, err := svc.Export(&Config{OutputPath: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.RecordCount != 3 {
		t.Errorf("Expected 3 records exported, got %d", result.RecordCount)
	}
	if result.Encrypted {
		t.Error("Expected unencrypted backup")
	}
	if result.SizeBytes <= 0 {
		t.Error("Expected non-empty backup file")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Backup file missing: %v", err)
	}

	// Restore into a fresh store.
	fresh, target := newTestService(t)
	imported, err := fresh.Import(&ImportConfig{ArchivePath: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported.ImportedCount != 3 {
		t.Errorf("Expected 3 records imported, got %d", imported.ImportedCount)
	}

	measurements, err := target.GetActive(models.TypeBodyMeasurements)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if len(measurements) != 2 {
		t.Errorf("Expected 2 restored measurements, got %d", len(measurements))
	}
}

func TestService_ImportSkipsExisting(t *testing.T) {
	svc, store := newTestService(t)
	seedRecords(t, store)

	path := filepath.Join(t.TempDir(), "backup.tar.gz")
	if _, err := svc.Export(&Config{OutputPath: path}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Import back into the same store: every record already exists.
	result, err := svc.Import(&ImportConfig{ArchivePath: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.ImportedCount != 0 {
		t.Errorf("Expected 0 imported, got %d", result.ImportedCount)
	}
	if result.SkippedCount != 3 {
		t.Errorf("Expected 3 skipped, got %d", result.SkippedCount)
	}
}

func TestService_EncryptedBackup(t *testing.T) {
	svc, store := newTestService(t)
	seedRecords(t, store)

	path := filepath.Join(t.TempDir(), "backup.sealed")
	result, err := svc.Export(&Config{OutputPath: path, Password: "hunter2"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !result.Encrypted {
		t.Error("Expected encrypted backup")
	}

	fresh, _ := newTestService(t)

	// Missing password is rejected.
	if _, err := fresh.Import(&ImportConfig{ArchivePath: path}); err == nil {
		t.Error("Expected error importing sealed backup without password")
	}

	// Wrong password is rejected.
	if _, err := fresh.Import(&ImportConfig{ArchivePath: path, Password: "wrong"}); err == nil {
		t.Error("Expected error importing sealed backup with wrong password")
	}

	imported, err := fresh.Import(&ImportConfig{ArchivePath: path, Password: "hunter2"})
	if err != nil {
		t.Fatalf("Import with correct password failed: %v", err)
	}
	if imported.ImportedCount != 3 {
		t.Errorf("Expected 3 records imported, got %d", imported.ImportedCount)
	}
}

func TestService_ExportIncludesTombstones(t *testing.T) {
	svc, store := newTestService(t)
	seedRecords(t, store)

	measurements, err := store.GetActive(models.TypeBodyMeasurements)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if err := store.SoftDelete(models.TypeBodyMeasurements, measurements[0].Meta().ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "backup.tar.gz")
	result, err := svc.Export(&Config{OutputPath: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.RecordCount != 3 {
		t.Errorf("Expected tombstone included, got %d records", result.RecordCount)
	}

	fresh, target := newTestService(t)
	if _, err := fresh.Import(&ImportConfig{ArchivePath: path}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	restored, err := target.Get(models.TypeBodyMeasurements, measurements[0].Meta().ID)
	if err != nil {
		t.Fatalf("Restored tombstone missing: %v", err)
	}
	if !restored.Meta().Deleted {
		t.Error("Restored record should remain soft-deleted")
	}
}

func TestService_ImportRejectsTamperedData(t *testing.T) {
	svc, store := newTestService(t)
	seedRecords(t, store)

	path := filepath.Join(t.TempDir(), "backup.tar.gz")
	if _, err := svc.Export(&Config{OutputPath: path}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	files, err := readArchive(payload)
	if err != nil {
		t.Fatalf("Failed to unpack backup: %v", err)
	}
	files["data.json"] = append(files["data.json"], ' ')
	tampered, err := buildArchive(files)
	if err != nil {
		t.Fatalf("Failed to rebuild archive: %v", err)
	}
	if err := os.WriteFile(path, tampered, 0644); err != nil {
		t.Fatalf("Failed to write tampered backup: %v", err)
	}

	fresh, _ := newTestService(t)
	if _, err := fresh.Import(&ImportConfig{ArchivePath: path}); err == nil {
		t.Error("Expected checksum mismatch error for tampered backup")
	}
}
