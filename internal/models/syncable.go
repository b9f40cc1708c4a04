// Package models provides data model definitions for LiftLog.
package models

import "time"

// Syncable provides the common fields for entities that participate in
// synchronization. It gets embedded in every synced domain type.
type Syncable struct {
	ID        UUID   `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id,omitempty"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	SyncedAt  *int64 `db:"synced_at" json:"synced_at,omitempty"`
	Deleted   bool   `db:"deleted" json:"deleted"`
	DeletedAt *int64 `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Meta returns the Syncable itself so embedding types satisfy Record.
func (s *Syncable) Meta() *Syncable {
	return s
}

// InitTimestamps sets CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (s *Syncable) InitTimestamps() {
	now := time.Now().Unix()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch bumps UpdatedAt and clears SyncedAt, marking the record dirty.
// Call this whenever the underlying entity changes.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now().Unix()
	s.SyncedAt = nil
}

// MarkSynced records a confirmed upload at the given timestamp.
func (s *Syncable) MarkSynced(at int64) {
	s.SyncedAt = &at
}

// MarkDeleted turns the record into a tombstone. The tombstone is kept
// locally until its deletion has been propagated to the cloud.
func (s *Syncable) MarkDeleted() {
	now := time.Now().Unix()
	s.Deleted = true
	s.DeletedAt = &now
	s.UpdatedAt = now
	s.SyncedAt = nil
}

// IsDirty reports whether the record has local changes pending upload.
func (s *Syncable) IsDirty() bool {
	return s.SyncedAt == nil
}

// SyncedAtTime returns SyncedAt as time.Time, or the zero time when unset.
func (s *Syncable) SyncedAtTime() time.Time {
	if s.SyncedAt == nil {
		return time.Time{}
	}
	return time.Unix(*s.SyncedAt, 0)
}
