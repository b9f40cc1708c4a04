package cloud

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
)

func newTestMirror() (*Mirror, *MemObjectStore) {
	store := NewMemObjectStore()
	m := NewMirror(store, "u1", logging.New(io.Discard, logging.LevelDebug))
	m.now = func() int64 { return 9000 }
	return m, store
}

func TestMirrorUploadStampsSyncedAt(t *testing.T) {
	m, store := newTestMirror()

	sess := &models.WorkoutSession{TemplateName: "Push Day", StartedAt: 1000}
	sess.ID = "sess-1"
	sess.UpdatedAt = 1000

	syncedAt, err := m.Upload(context.Background(), sess)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if syncedAt != 9000 {
		t.Errorf("syncedAt = %d, want 9000", syncedAt)
	}

	// Local record is untouched; the stamp applies to the stored copy.
	if sess.SyncedAt != nil {
		t.Error("Upload must not mutate the caller's record")
	}

	data, err := store.Download(context.Background(), "users/u1/sessions/sess-1.json")
	if err != nil {
		t.Fatalf("stored object missing: %v", err)
	}
	var stored models.WorkoutSession
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if stored.SyncedAt == nil || *stored.SyncedAt != 9000 {
		t.Errorf("stored syncedAt = %v, want 9000", stored.SyncedAt)
	}
}

func TestMirrorFetchAllSkipsGarbage(t *testing.T) {
	m, store := newTestMirror()
	ctx := context.Background()

	pr := &models.PersonalRecord{ExerciseID: "builtin-squat", Weight: 180, Reps: 1}
	pr.ID = "pr-1"
	if _, err := m.Upload(ctx, pr); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	store.Upload(ctx, "users/u1/personal_records/broken.json", []byte("not json"))
	store.Upload(ctx, "users/u1/personal_records/readme.txt", []byte("ignore me"))
	// Another user's data must stay invisible.
	store.Upload(ctx, "users/u2/personal_records/theirs.json", []byte("{}"))

	records, err := m.FetchAll(ctx, models.TypePersonalRecords)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0].(*models.PersonalRecord)
	if got.ID != "pr-1" || got.Weight != 180 {
		t.Errorf("fetched %+v", got)
	}
}

func TestMirrorMarkDeletedSession(t *testing.T) {
	m, store := newTestMirror()
	ctx := context.Background()

	sess := &models.WorkoutSession{StartedAt: 1000}
	sess.ID = "sess-1"
	if _, err := m.Upload(ctx, sess); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	sess.MarkDeleted()
	if err := m.MarkDeleted(ctx, sess); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected session object removed, %d objects remain", store.Len())
	}

	// Deleting again is a no-op.
	if err := m.MarkDeleted(ctx, sess); err != nil {
		t.Errorf("second MarkDeleted failed: %v", err)
	}
}

func TestMirrorMarkDeletedTombstonesOtherTypes(t *testing.T) {
	m, store := newTestMirror()
	ctx := context.Background()

	meas := &models.BodyMeasurement{MeasuredAt: 1000}
	meas.ID = "bm-1"
	if _, err := m.Upload(ctx, meas); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	meas.MarkDeleted()
	if err := m.MarkDeleted(ctx, meas); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	data, err := store.Download(ctx, "users/u1/body_measurements/bm-1.json")
	if err != nil {
		t.Fatalf("tombstone object missing: %v", err)
	}
	var stored models.BodyMeasurement
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !stored.Deleted || stored.DeletedAt == nil {
		t.Errorf("stored tombstone = deleted:%v deletedAt:%v", stored.Deleted, stored.DeletedAt)
	}
}

func TestMirrorMarkDeletedRejectsLiveRecord(t *testing.T) {
	m, _ := newTestMirror()

	meas := &models.BodyMeasurement{MeasuredAt: 1000}
	meas.ID = "bm-1"

	err := m.MarkDeleted(context.Background(), meas)
	if apperrors.CodeOf(err) != apperrors.ErrInvalid {
		t.Errorf("expected ErrInvalid for live record, got %v", err)
	}
}

func TestMemObjectStoreListPrefix(t *testing.T) {
	store := NewMemObjectStore()
	ctx := context.Background()
	store.Upload(ctx, "users/u1/sessions/b.json", []byte("{}"))
	store.Upload(ctx, "users/u1/sessions/a.json", []byte("{}"))
	store.Upload(ctx, "users/u1/templates/c.json", []byte("{}"))

	keys, err := store.List(ctx, "users/u1/sessions/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "users/u1/sessions/a.json" {
		t.Errorf("keys = %v", keys)
	}
}
