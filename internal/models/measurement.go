// Package models provides data model definitions for LiftLog.
package models

// BodyMeasurement is a dated snapshot of body metrics. Every numeric
// field is optional; absent values stay nil rather than zero so a
// missing measurement is distinguishable from a measured zero.
type BodyMeasurement struct {
	Syncable
	Weight     *float64 `db:"weight" json:"weight,omitempty"`
	Chest      *float64 `db:"chest" json:"chest,omitempty"`
	Waist      *float64 `db:"waist" json:"waist,omitempty"`
	Hips       *float64 `db:"hips" json:"hips,omitempty"`
	Arms       *float64 `db:"arms" json:"arms,omitempty"`
	Thighs     *float64 `db:"thighs" json:"thighs,omitempty"`
	MeasuredAt int64    `db:"measured_at" json:"measured_at"`
	Notes      string   `db:"notes" json:"notes,omitempty"`
}

// EntityType implements Record.
func (BodyMeasurement) EntityType() EntityType {
	return TypeBodyMeasurements
}

// TableName returns the table name for BodyMeasurement.
func (BodyMeasurement) TableName() string {
	return "body_measurements"
}
