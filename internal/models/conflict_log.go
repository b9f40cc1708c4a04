// Package models provides data model definitions for LiftLog.
package models

import "time"

// ConflictLog records resolved sync conflicts for user awareness. Rows
// are local only; they never travel to the cloud.
type ConflictLog struct {
	ID              UUID       `db:"id" json:"id"`
	EntityType      EntityType `db:"entity_type" json:"entity_type"`
	RecordID        UUID       `db:"record_id" json:"record_id"`
	LocalTimestamp  int64      `db:"local_timestamp" json:"local_timestamp"`
	RemoteTimestamp int64      `db:"remote_timestamp" json:"remote_timestamp"`
	Resolution      string     `db:"resolution" json:"resolution"` // local_wins, remote_wins
	Rule            string     `db:"rule" json:"rule"`             // completed_at, pr_weight, updated_at
	DetectedAt      int64      `db:"detected_at" json:"detected_at"`
}

// TableName returns the table name for ConflictLog.
func (ConflictLog) TableName() string {
	return "conflict_log"
}

// DetectedAtTime returns DetectedAt as time.Time.
func (c *ConflictLog) DetectedAtTime() time.Time {
	return time.Unix(c.DetectedAt, 0)
}
