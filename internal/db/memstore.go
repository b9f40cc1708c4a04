// Package db provides the in-memory fallback store.
package db

import (
	"sort"
	"sync"
	"time"

	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/uuid"
)

// MemStore implements Store with plain maps. It backs devices without a
// persistent engine (e.g. browser contexts) and most tests. The
// contract is identical to SQLStore, including the built-in/preset sync
// exclusions and the tombstone lifecycle.
type MemStore struct {
	mu          sync.RWMutex
	records     map[models.EntityType]map[models.UUID]models.Record
	conflicts   []*models.ConflictLog
	credentials *models.SyncCredential
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	records := make(map[models.EntityType]map[models.UUID]models.Record)
	for _, t := range models.SyncedTypes() {
		records[t] = make(map[models.UUID]models.Record)
	}
	return &MemStore{records: records}
}

// NewSeededMemStore creates an in-memory store pre-populated with the
// deterministic sample catalog, so a fresh fallback device behaves like
// a migrated SQLite one.
func NewSeededMemStore() *MemStore {
	s := NewMemStore()
	s.seed()
	return s
}

func (s *MemStore) seed() {
	seedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	builtins := []struct {
		id, name, muscle, equipment string
	}{
		{"builtin-bench-press", "Bench Press", "chest", "barbell"},
		{"builtin-squat", "Squat", "legs", "barbell"},
		{"builtin-deadlift", "Deadlift", "back", "barbell"},
		{"builtin-overhead-press", "Overhead Press", "shoulders", "barbell"},
		{"builtin-barbell-row", "Barbell Row", "back", "barbell"},
		{"builtin-pull-up", "Pull Up", "back", "bodyweight"},
	}
	for _, b := range builtins {
		ex := &models.Exercise{Name: b.name, MuscleGroup: b.muscle, Equipment: b.equipment}
		ex.ID = models.UUID(b.id)
		ex.CreatedAt = seedAt
		ex.UpdatedAt = seedAt
		s.records[models.TypeExercises][ex.ID] = ex
	}

	preset := &models.WorkoutTemplate{
		Name:     "Push Day",
		IsPreset: true,
		Exercises: []models.TemplateExercise{
			{ID: "preset-push-1", TemplateID: "preset-push-day", ExerciseID: "builtin-bench-press", Position: 0},
			{ID: "preset-push-2", TemplateID: "preset-push-day", ExerciseID: "builtin-overhead-press", Position: 1},
		},
	}
	preset.ID = "preset-push-day"
	preset.CreatedAt = seedAt
	preset.UpdatedAt = seedAt
	s.records[models.TypeTemplates][preset.ID] = preset
}

// put stores a copy so callers cannot mutate store state.
func (s *MemStore) put(rec models.Record) error {
	cloned, err := models.Clone(rec)
	if err != nil {
		return storageErr("failed to store record", err)
	}
	s.records[rec.EntityType()][rec.Meta().ID] = cloned
	return nil
}

// Save upserts a record, marking it dirty.
func (s *MemStore) Save(rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.EntityType()]; !ok {
		return apperrors.New(apperrors.ErrInvalid, "unknown entity type: "+string(rec.EntityType()))
	}

	meta := rec.Meta()
	if meta.ID == "" {
		meta.ID = models.UUID(uuid.New())
	}
	if meta.CreatedAt == 0 {
		meta.InitTimestamps()
	}
	meta.Touch()
	ensureChildIDs(rec)

	return s.put(rec)
}

// SaveRemote upserts a merged remote record as-is.
func (s *MemStore) SaveRemote(rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Meta().ID == "" {
		return apperrors.New(apperrors.ErrInvalid, "remote record has no id")
	}
	if _, ok := s.records[rec.EntityType()]; !ok {
		return apperrors.New(apperrors.ErrInvalid, "unknown entity type: "+string(rec.EntityType()))
	}
	ensureChildIDs(rec)
	return s.put(rec)
}

// Get returns one record by id, tombstones included.
func (s *MemStore) Get(t models.EntityType, id models.UUID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[t][id]
	if !ok {
		return nil, notFound(t, id)
	}
	return models.Clone(rec)
}

// GetActive returns all non-deleted records, newest-first for ordered types.
func (s *MemStore) GetActive(t models.EntityType) ([]models.Record, error) {
	return s.filter(t, func(m *models.Syncable, rec models.Record) bool {
		return !m.Deleted
	}, true)
}

// GetTombstones returns soft-deleted records awaiting propagation.
func (s *MemStore) GetTombstones(t models.EntityType) ([]models.Record, error) {
	return s.filter(t, func(m *models.Syncable, rec models.Record) bool {
		return m.Deleted && m.IsDirty() && syncEligible(rec)
	}, false)
}

// GetPending returns dirty, non-deleted records awaiting upload.
func (s *MemStore) GetPending(t models.EntityType) ([]models.Record, error) {
	return s.filter(t, func(m *models.Syncable, rec models.Record) bool {
		return !m.Deleted && m.IsDirty() && syncEligible(rec)
	}, false)
}

func (s *MemStore) filter(t models.EntityType, keep func(*models.Syncable, models.Record) bool, ordered bool) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.records[t]
	if !ok {
		return nil, apperrors.New(apperrors.ErrInvalid, "unknown entity type: "+string(t))
	}

	var out []models.Record
	for _, rec := range byID {
		if keep(rec.Meta(), rec) {
			cloned, err := models.Clone(rec)
			if err != nil {
				return nil, storageErr("failed to copy record", err)
			}
			out = append(out, cloned)
		}
	}

	if ordered {
		sortActive(t, out)
	}
	return out, nil
}

// sortActive mirrors the SQL ORDER BY clauses.
func sortActive(t models.EntityType, records []models.Record) {
	switch t {
	case models.TypeSessions:
		sort.Slice(records, func(i, j int) bool {
			return records[i].(*models.WorkoutSession).StartedAt > records[j].(*models.WorkoutSession).StartedAt
		})
	case models.TypePersonalRecords:
		sort.Slice(records, func(i, j int) bool {
			return records[i].(*models.PersonalRecord).AchievedAt > records[j].(*models.PersonalRecord).AchievedAt
		})
	case models.TypeBodyMeasurements:
		sort.Slice(records, func(i, j int) bool {
			return records[i].(*models.BodyMeasurement).MeasuredAt > records[j].(*models.BodyMeasurement).MeasuredAt
		})
	case models.TypeTemplates:
		sort.Slice(records, func(i, j int) bool {
			return records[i].(*models.WorkoutTemplate).Name < records[j].(*models.WorkoutTemplate).Name
		})
	case models.TypeExercises:
		sort.Slice(records, func(i, j int) bool {
			return records[i].(*models.Exercise).Name < records[j].(*models.Exercise).Name
		})
	}
}

// syncEligible mirrors the SQL syncFilter predicates.
func syncEligible(rec models.Record) bool {
	switch r := rec.(type) {
	case *models.Exercise:
		return r.IsCustom
	case *models.WorkoutTemplate:
		return !r.IsPreset
	}
	return true
}

// MarkSynced stamps a record as uploaded.
func (s *MemStore) MarkSynced(t models.EntityType, id models.UUID, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[t][id]
	if !ok {
		return notFound(t, id)
	}
	rec.Meta().MarkSynced(at)
	return nil
}

// SoftDelete turns a record into a tombstone.
func (s *MemStore) SoftDelete(t models.EntityType, id models.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[t][id]
	if !ok || rec.Meta().Deleted || !syncEligible(rec) {
		return notFound(t, id)
	}
	rec.Meta().MarkDeleted()
	return nil
}

// HardDelete physically removes a record and its children (children are
// embedded, so removing the aggregate removes them).
func (s *MemStore) HardDelete(t models.EntityType, id models.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[t][id]; !ok {
		return notFound(t, id)
	}
	delete(s.records[t], id)
	return nil
}

// PendingUploads counts dirty records across all synced types.
func (s *MemStore) PendingUploads() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, t := range models.SyncedTypes() {
		for _, rec := range s.records[t] {
			m := rec.Meta()
			if !m.Deleted && m.IsDirty() && syncEligible(rec) {
				total++
			}
		}
	}
	return total, nil
}

// LogConflict appends a resolved-conflict audit row.
func (s *MemStore) LogConflict(entry *models.ConflictLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = models.UUID(uuid.New())
	}
	if entry.DetectedAt == 0 {
		entry.DetectedAt = time.Now().Unix()
	}
	copied := *entry
	s.conflicts = append(s.conflicts, &copied)
	return nil
}

// Conflicts returns the most recent conflict rows, newest first.
func (s *MemStore) Conflicts(limit int) ([]*models.ConflictLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ConflictLog, 0, len(s.conflicts))
	for i := len(s.conflicts) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *s.conflicts[i]
		out = append(out, &copied)
	}
	return out, nil
}

// SyncCredential returns the enabled cloud credential.
func (s *MemStore) SyncCredential() (*models.SyncCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credentials == nil || !s.credentials.IsEnabled {
		return nil, apperrors.New(apperrors.ErrSyncNotConfigured, "no cloud credentials configured")
	}
	copied := *s.credentials
	return &copied, nil
}

// SaveSyncCredential stores a credential, replacing any previous one.
func (s *MemStore) SaveSyncCredential(cred *models.SyncCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred.ID = models.UUID(uuid.New())
	now := time.Now().Unix()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	cred.IsEnabled = true

	copied := *cred
	s.credentials = &copied
	return nil
}

// DeleteSyncCredentials removes all stored credentials.
func (s *MemStore) DeleteSyncCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = nil
	return nil
}

// Close releases nothing for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}
