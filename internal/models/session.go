// Package models provides data model definitions for LiftLog.
package models

import "time"

// WorkoutSession is an aggregate root. Its exercise logs and their sets
// are never synchronized independently; they travel with the session.
type WorkoutSession struct {
	Syncable
	TemplateID      UUID          `db:"template_id" json:"template_id,omitempty"`
	TemplateName    string        `db:"template_name" json:"template_name,omitempty"`
	StartedAt       int64         `db:"started_at" json:"started_at"`
	CompletedAt     *int64        `db:"completed_at" json:"completed_at,omitempty"`
	DurationSeconds int           `db:"duration_seconds" json:"duration_seconds"`
	TotalVolume     float64       `db:"total_volume" json:"total_volume"`
	ExerciseLogs    []ExerciseLog `json:"exercise_logs,omitempty"`
}

// EntityType implements Record.
func (WorkoutSession) EntityType() EntityType {
	return TypeSessions
}

// TableName returns the table name for WorkoutSession.
func (WorkoutSession) TableName() string {
	return "workout_sessions"
}

// InProgress reports whether the session has not been completed yet.
func (s *WorkoutSession) InProgress() bool {
	return s.CompletedAt == nil
}

// Complete finishes the session at the given time, computing duration
// from StartedAt.
func (s *WorkoutSession) Complete(at time.Time) {
	unix := at.Unix()
	s.CompletedAt = &unix
	if unix > s.StartedAt {
		s.DurationSeconds = int(unix - s.StartedAt)
	}
	s.Touch()
}

// ExerciseLog groups the sets performed for one exercise within a session.
type ExerciseLog struct {
	ID           UUID       `db:"id" json:"id"`
	SessionID    UUID       `db:"session_id" json:"session_id"`
	ExerciseID   UUID       `db:"exercise_id" json:"exercise_id"`
	ExerciseName string     `db:"exercise_name" json:"exercise_name"`
	Position     int        `db:"position" json:"position"`
	Sets         []SetEntry `json:"sets,omitempty"`
}

// TableName returns the table name for ExerciseLog.
func (ExerciseLog) TableName() string {
	return "exercise_logs"
}

// SetEntry is a single set within an exercise log.
type SetEntry struct {
	ID        UUID     `db:"id" json:"id"`
	LogID     UUID     `db:"log_id" json:"log_id"`
	SetNumber int      `db:"set_number" json:"set_number"`
	Weight    float64  `db:"weight" json:"weight"`
	Reps      int      `db:"reps" json:"reps"`
	RPE       *float64 `db:"rpe" json:"rpe,omitempty"` // 1-10 when present
	IsPR      bool     `db:"is_pr" json:"is_pr"`
}

// TableName returns the table name for SetEntry.
func (SetEntry) TableName() string {
	return "sets"
}

// Volume returns weight * reps for this set.
func (s *SetEntry) Volume() float64 {
	return s.Weight * float64(s.Reps)
}
