// Package models provides data model definitions for LiftLog.
package models

import "time"

// PersonalRecord tracks the best lift for one exercise. A PR is
// monotonic by definition: between two candidates for the same exercise
// the higher weight wins, regardless of timestamps. Duplicates with
// different ids may transiently exist across devices until a sync cycle
// collapses them.
type PersonalRecord struct {
	Syncable
	ExerciseID   UUID    `db:"exercise_id" json:"exercise_id"`
	ExerciseName string  `db:"exercise_name" json:"exercise_name"`
	Weight       float64 `db:"weight" json:"weight"`
	Reps         int     `db:"reps" json:"reps"`
	AchievedAt   int64   `db:"achieved_at" json:"achieved_at"`
	SessionID    UUID    `db:"session_id" json:"session_id,omitempty"`
}

// EntityType implements Record.
func (PersonalRecord) EntityType() EntityType {
	return TypePersonalRecords
}

// TableName returns the table name for PersonalRecord.
func (PersonalRecord) TableName() string {
	return "personal_records"
}

// Beats reports whether this record supersedes other for the same
// exercise. Strictly-greater weight wins; equal weight keeps the
// incumbent.
func (p *PersonalRecord) Beats(other *PersonalRecord) bool {
	return p.Weight > other.Weight
}

// AchievedAtTime returns AchievedAt as time.Time.
func (p *PersonalRecord) AchievedAtTime() time.Time {
	return time.Unix(p.AchievedAt, 0)
}
