// Package models provides data model definitions for LiftLog.
package models

// Exercise is either a built-in catalog entry (IsCustom=false, seeded,
// never synced) or a user-created custom exercise (synced, deletable,
// unique by case-insensitive name per user).
type Exercise struct {
	Syncable
	Name        string `db:"name" json:"name"`
	MuscleGroup string `db:"muscle_group" json:"muscle_group,omitempty"`
	Equipment   string `db:"equipment" json:"equipment,omitempty"`
	IsCustom    bool   `db:"is_custom" json:"is_custom"`
}

// EntityType implements Record.
func (Exercise) EntityType() EntityType {
	return TypeExercises
}

// Synced reports whether this exercise participates in cloud sync.
// Built-in catalog entries never do.
func (e *Exercise) Synced() bool {
	return e.IsCustom
}

// TableName returns the table name for Exercise.
func (Exercise) TableName() string {
	return "exercises"
}
