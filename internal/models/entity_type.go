// Package models provides data model definitions for LiftLog.
package models

// EntityType identifies a synchronizable entity collection. The value
// doubles as the local table-group key and the cloud collection segment.
type EntityType string

const (
	TypeSessions         EntityType = "sessions"
	TypePersonalRecords  EntityType = "personal_records"
	TypeBodyMeasurements EntityType = "body_measurements"
	TypeTemplates        EntityType = "templates"
	TypeExercises        EntityType = "exercises"
)

// SyncedTypes returns every entity type that participates in cloud sync,
// in the order sync cycles process them. Sessions go first so that
// personal records referencing a session never land before it.
func SyncedTypes() []EntityType {
	return []EntityType{
		TypeSessions,
		TypePersonalRecords,
		TypeBodyMeasurements,
		TypeTemplates,
		TypeExercises,
	}
}

// String returns the collection name.
func (t EntityType) String() string {
	return string(t)
}
