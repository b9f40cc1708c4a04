// Package models provides data model definitions for LiftLog.
package models

// WorkoutTemplate is an aggregate root owning an ordered list of
// TemplateExercise entries. Preset templates ship with the app and are
// excluded from sync in both directions.
type WorkoutTemplate struct {
	Syncable
	Name      string             `db:"name" json:"name"`
	IsPreset  bool               `db:"is_preset" json:"is_preset"`
	Exercises []TemplateExercise `json:"exercises,omitempty"`
}

// EntityType implements Record.
func (WorkoutTemplate) EntityType() EntityType {
	return TypeTemplates
}

// Synced reports whether this template participates in cloud sync.
func (t *WorkoutTemplate) Synced() bool {
	return !t.IsPreset
}

// TableName returns the table name for WorkoutTemplate.
func (WorkoutTemplate) TableName() string {
	return "workout_templates"
}

// TemplateExercise is a child row referencing an exercise with a display
// position. It never syncs on its own; it travels with its template.
type TemplateExercise struct {
	ID         UUID   `db:"id" json:"id"`
	TemplateID UUID   `db:"template_id" json:"template_id"`
	ExerciseID UUID   `db:"exercise_id" json:"exercise_id"`
	Position   int    `db:"position" json:"position"`
	Note       string `db:"note" json:"note,omitempty"`
}

// TableName returns the table name for TemplateExercise.
func (TemplateExercise) TableName() string {
	return "template_exercises"
}
