// Package db provides the local store contract shared by the SQLite
// and in-memory implementations.
package db

import (
	"github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/models"
)

// Store is the device-local source of truth. Both implementations
// (SQLStore, MemStore) honor the same contract so upper layers stay
// agnostic to the backing engine.
//
// Failure semantics: engine-level failures surface as STORAGE_ERROR
// AppErrors. A failed write aborts that record only; callers treat
// store errors per-record, never as fatal.
type Store interface {
	// Save upserts a record by id, assigning an id and timestamps on
	// first save and marking the record dirty (synced_at cleared) on
	// every call. Aggregate children are replaced wholesale.
	Save(rec models.Record) error

	// SaveRemote upserts a record received from the cloud mirror as-is,
	// preserving its synced_at stamp so the merge does not re-dirty it.
	SaveRemote(rec models.Record) error

	// Get returns one record by id, tombstones included.
	// Returns a NOT_FOUND AppError when the id is unknown.
	Get(t models.EntityType, id models.UUID) (models.Record, error)

	// GetActive returns all non-deleted records, newest-first where
	// order matters (sessions, measurements).
	GetActive(t models.EntityType) ([]models.Record, error)

	// GetTombstones returns soft-deleted records awaiting cloud
	// propagation. Built-in exercises and preset templates never appear.
	GetTombstones(t models.EntityType) ([]models.Record, error)

	// GetPending returns dirty (synced_at IS NULL), non-deleted records
	// awaiting upload. Built-ins and presets never appear.
	GetPending(t models.EntityType) ([]models.Record, error)

	// MarkSynced stamps a record as uploaded at the given time.
	MarkSynced(t models.EntityType, id models.UUID, at int64) error

	// SoftDelete turns a record into a tombstone.
	SoftDelete(t models.EntityType, id models.UUID) error

	// HardDelete physically removes a record and its owned children
	// (sessions cascade to logs and sets, templates to their entries).
	HardDelete(t models.EntityType, id models.UUID) error

	// PendingUploads counts dirty records across all synced types.
	PendingUploads() (int, error)

	// LogConflict appends a resolved-conflict audit row.
	LogConflict(entry *models.ConflictLog) error

	// Conflicts returns the most recent conflict rows, newest first.
	Conflicts(limit int) ([]*models.ConflictLog, error)

	// SyncCredential returns the enabled cloud credential, or a
	// SYNC_NOT_CONFIGURED AppError when none is set.
	SyncCredential() (*models.SyncCredential, error)

	// SaveSyncCredential stores a credential and disables any previous one.
	SaveSyncCredential(cred *models.SyncCredential) error

	// DeleteSyncCredentials removes all stored credentials.
	DeleteSyncCredentials() error

	// Close releases the store's resources.
	Close() error
}

// IsNotFound reports whether err is the store's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrNotFound)
}

// notFound builds the canonical missing-record error.
func notFound(t models.EntityType, id models.UUID) error {
	return errors.New(errors.ErrNotFound, string(t)+" record not found: "+string(id))
}

// storageErr wraps an engine-level failure.
func storageErr(op string, err error) error {
	return errors.Wrap(errors.ErrStorage, op, err)
}
