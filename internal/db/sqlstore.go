// Package db provides the SQLite-backed local store.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/uuid"
)

// SQLStore implements Store over SQLite. Statements are prepared on
// first use and cached for reuse.
type SQLStore struct {
	db *DB

	// Prepared statement cache keyed by query string.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewSQLStore creates a Store over an opened database. The caller is
// expected to have run migrations (Migrator.Up) first.
func NewSQLStore(database *DB) *SQLStore {
	return &SQLStore{db: database}
}

// OpenStore opens the database at dataDir, applies migrations, and
// returns a ready store.
func OpenStore(dataDir string) (*SQLStore, error) {
	database, err := Open(dataDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to open local store", err)
	}
	if err := NewMigrator(database.DB).Up(); err != nil {
		database.Close()
		return nil, apperrors.Wrap(apperrors.ErrMigration, "failed to migrate local store", err)
	}
	return NewSQLStore(database), nil
}

// prepareStmt gets or creates a prepared statement from cache.
func (s *SQLStore) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate.
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached statements and the underlying database.
func (s *SQLStore) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Save upserts a record, assigning an id on first save and marking it
// dirty on every save.
func (s *SQLStore) Save(rec models.Record) error {
	meta := rec.Meta()
	if meta.ID == "" {
		meta.ID = models.UUID(uuid.New())
	}
	if meta.CreatedAt == 0 {
		meta.InitTimestamps()
	}
	meta.Touch()
	ensureChildIDs(rec)

	return s.upsert(rec)
}

// SaveRemote upserts a merged remote record as-is, preserving its
// synced_at stamp.
func (s *SQLStore) SaveRemote(rec models.Record) error {
	if rec.Meta().ID == "" {
		return apperrors.New(apperrors.ErrInvalid, "remote record has no id")
	}
	ensureChildIDs(rec)
	return s.upsert(rec)
}

func (s *SQLStore) upsert(rec models.Record) error {
	spec, err := specFor(rec.EntityType())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "save failed", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("failed to begin save", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(spec.upsertSQL(), spec.args(rec)...); err != nil {
		return storageErr("failed to save "+spec.table+" record", err)
	}

	if spec.saveChildren != nil {
		if err := spec.saveChildren(tx, rec); err != nil {
			return storageErr("failed to save "+spec.table+" children", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("failed to commit save", err)
	}
	return nil
}

// Get returns one record by id, tombstones included.
func (s *SQLStore) Get(t models.EntityType, id models.UUID) (models.Record, error) {
	spec, err := specFor(t)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "get failed", err)
	}

	stmt, err := s.prepareStmt(spec.selectSQL("id = ?", ""))
	if err != nil {
		return nil, storageErr("failed to prepare get", err)
	}

	rec, err := spec.scan(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, notFound(t, id)
	}
	if err != nil {
		return nil, storageErr("failed to read "+spec.table+" record", err)
	}

	if spec.loadChildren != nil {
		if err := spec.loadChildren(s.db, rec); err != nil {
			return nil, storageErr("failed to load "+spec.table+" children", err)
		}
	}
	return rec, nil
}

// GetActive returns all non-deleted records.
func (s *SQLStore) GetActive(t models.EntityType) ([]models.Record, error) {
	return s.list(t, "deleted = 0", true)
}

// GetTombstones returns soft-deleted records awaiting propagation.
func (s *SQLStore) GetTombstones(t models.EntityType) ([]models.Record, error) {
	spec, err := specFor(t)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "list failed", err)
	}
	return s.listWhere(spec, "deleted = 1 AND synced_at IS NULL"+spec.syncFilter, "")
}

// GetPending returns dirty, non-deleted records awaiting upload.
func (s *SQLStore) GetPending(t models.EntityType) ([]models.Record, error) {
	spec, err := specFor(t)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "list failed", err)
	}
	return s.listWhere(spec, "deleted = 0 AND synced_at IS NULL"+spec.syncFilter, "")
}

func (s *SQLStore) list(t models.EntityType, where string, ordered bool) ([]models.Record, error) {
	spec, err := specFor(t)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "list failed", err)
	}
	order := ""
	if ordered {
		order = spec.activeOrder
	}
	return s.listWhere(spec, where, order)
}

func (s *SQLStore) listWhere(spec *tableSpec, where, order string) ([]models.Record, error) {
	stmt, err := s.prepareStmt(spec.selectSQL(where, order))
	if err != nil {
		return nil, storageErr("failed to prepare list", err)
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, storageErr("failed to list "+spec.table, err)
	}

	var records []models.Record
	for rows.Next() {
		rec, err := spec.scan(rows)
		if err != nil {
			rows.Close()
			return nil, storageErr("failed to scan "+spec.table+" row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storageErr("failed to iterate "+spec.table, err)
	}
	// Single connection: release it before loading children.
	rows.Close()

	if spec.loadChildren != nil {
		for _, rec := range records {
			if err := spec.loadChildren(s.db, rec); err != nil {
				return nil, storageErr("failed to load "+spec.table+" children", err)
			}
		}
	}
	return records, nil
}

// MarkSynced stamps a record as uploaded.
func (s *SQLStore) MarkSynced(t models.EntityType, id models.UUID, at int64) error {
	spec, err := specFor(t)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "mark synced failed", err)
	}

	result, err := s.db.Exec("UPDATE "+spec.table+" SET synced_at = ? WHERE id = ?", at, id)
	if err != nil {
		return storageErr("failed to mark "+spec.table+" record synced", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound(t, id)
	}
	return nil
}

// SoftDelete turns a record into a tombstone. Built-ins and presets are
// excluded by the same predicate that keeps them out of sync traffic.
func (s *SQLStore) SoftDelete(t models.EntityType, id models.UUID) error {
	spec, err := specFor(t)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "delete failed", err)
	}

	now := time.Now().Unix()
	result, err := s.db.Exec(
		"UPDATE "+spec.table+" SET deleted = 1, deleted_at = ?, updated_at = ?, synced_at = NULL WHERE id = ? AND deleted = 0"+spec.syncFilter,
		now, now, id)
	if err != nil {
		return storageErr("failed to delete "+spec.table+" record", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound(t, id)
	}
	return nil
}

// HardDelete physically removes a record; owned children cascade.
func (s *SQLStore) HardDelete(t models.EntityType, id models.UUID) error {
	spec, err := specFor(t)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "delete failed", err)
	}

	result, err := s.db.Exec("DELETE FROM "+spec.table+" WHERE id = ?", id)
	if err != nil {
		return storageErr("failed to hard-delete "+spec.table+" record", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound(t, id)
	}
	return nil
}

// PendingUploads counts dirty records across all synced types.
func (s *SQLStore) PendingUploads() (int, error) {
	total := 0
	for _, t := range models.SyncedTypes() {
		spec, err := specFor(t)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInvalid, "count failed", err)
		}
		var n int
		err = s.db.QueryRow(
			"SELECT COUNT(*) FROM " + spec.table + " WHERE deleted = 0 AND synced_at IS NULL" + spec.syncFilter,
		).Scan(&n)
		if err != nil {
			return 0, storageErr("failed to count pending "+spec.table, err)
		}
		total += n
	}
	return total, nil
}

// LogConflict appends a resolved-conflict audit row.
func (s *SQLStore) LogConflict(entry *models.ConflictLog) error {
	if entry.ID == "" {
		entry.ID = models.UUID(uuid.New())
	}
	if entry.DetectedAt == 0 {
		entry.DetectedAt = time.Now().Unix()
	}

	_, err := s.db.Exec(`
	INSERT INTO conflict_log (id, entity_type, record_id, local_timestamp, remote_timestamp, resolution, rule, detected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EntityType, entry.RecordID, entry.LocalTimestamp,
		entry.RemoteTimestamp, entry.Resolution, entry.Rule, entry.DetectedAt)
	if err != nil {
		return storageErr("failed to log conflict", err)
	}
	return nil
}

// Conflicts returns the most recent conflict rows, newest first.
func (s *SQLStore) Conflicts(limit int) ([]*models.ConflictLog, error) {
	rows, err := s.db.Query(`
	SELECT id, entity_type, record_id, local_timestamp, remote_timestamp, resolution, rule, detected_at
	FROM conflict_log ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("failed to list conflicts", err)
	}
	defer rows.Close()

	var entries []*models.ConflictLog
	for rows.Next() {
		var e models.ConflictLog
		if err := rows.Scan(&e.ID, &e.EntityType, &e.RecordID, &e.LocalTimestamp,
			&e.RemoteTimestamp, &e.Resolution, &e.Rule, &e.DetectedAt); err != nil {
			return nil, storageErr("failed to scan conflict row", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SyncCredential returns the enabled cloud credential.
func (s *SQLStore) SyncCredential() (*models.SyncCredential, error) {
	var cred models.SyncCredential
	err := s.db.QueryRow(`
	SELECT id, endpoint, bucket_name, region, access_key_encrypted, secret_key_encrypted,
	       force_path_style, is_enabled, created_at, updated_at
	FROM sync_credentials WHERE is_enabled = 1 LIMIT 1`).Scan(
		&cred.ID, &cred.Endpoint, &cred.BucketName, &cred.Region,
		&cred.AccessKeyEncrypted, &cred.SecretKeyEncrypted,
		&cred.ForcePathStyle, &cred.IsEnabled, &cred.CreatedAt, &cred.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrSyncNotConfigured, "no cloud credentials configured")
	}
	if err != nil {
		return nil, storageErr("failed to read sync credentials", err)
	}
	return &cred, nil
}

// SaveSyncCredential stores a credential, disabling any previous one.
func (s *SQLStore) SaveSyncCredential(cred *models.SyncCredential) error {
	cred.ID = models.UUID(uuid.New())
	now := time.Now().Unix()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	cred.IsEnabled = true

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("failed to begin credential save", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE sync_credentials SET is_enabled = 0 WHERE is_enabled = 1"); err != nil {
		return storageErr("failed to disable previous credentials", err)
	}

	_, err = tx.Exec(`
	INSERT INTO sync_credentials (id, endpoint, bucket_name, region, access_key_encrypted,
		secret_key_encrypted, force_path_style, is_enabled, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cred.ID, cred.Endpoint, cred.BucketName, cred.Region,
		cred.AccessKeyEncrypted, cred.SecretKeyEncrypted,
		cred.ForcePathStyle, cred.IsEnabled, cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		return storageErr("failed to save sync credentials", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("failed to commit credential save", err)
	}
	return nil
}

// DeleteSyncCredentials removes all stored credentials.
func (s *SQLStore) DeleteSyncCredentials() error {
	if _, err := s.db.Exec("DELETE FROM sync_credentials"); err != nil {
		return storageErr("failed to delete sync credentials", err)
	}
	return nil
}

// ensureChildIDs assigns ids to aggregate children created without one.
func ensureChildIDs(rec models.Record) {
	switch r := rec.(type) {
	case *models.WorkoutSession:
		for i := range r.ExerciseLogs {
			l := &r.ExerciseLogs[i]
			if l.ID == "" {
				l.ID = models.UUID(uuid.New())
			}
			for j := range l.Sets {
				if l.Sets[j].ID == "" {
					l.Sets[j].ID = models.UUID(uuid.New())
				}
			}
		}
	case *models.WorkoutTemplate:
		for i := range r.Exercises {
			if r.Exercises[i].ID == "" {
				r.Exercises[i].ID = models.UUID(uuid.New())
			}
		}
	}
}
