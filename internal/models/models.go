// Package models provides data model definitions for LiftLog.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case []byte:
		*u = UUID(v)
	case string:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// Record is implemented by every entity that participates in sync.
type Record interface {
	// Meta returns the embedded sync bookkeeping fields.
	Meta() *Syncable

	// EntityType returns the entity type this record belongs to.
	EntityType() EntityType
}

// New returns a zero-value record of the given type.
func New(t EntityType) (Record, error) {
	switch t {
	case TypeSessions:
		return &WorkoutSession{}, nil
	case TypePersonalRecords:
		return &PersonalRecord{}, nil
	case TypeBodyMeasurements:
		return &BodyMeasurement{}, nil
	case TypeTemplates:
		return &WorkoutTemplate{}, nil
	case TypeExercises:
		return &Exercise{}, nil
	}
	return nil, fmt.Errorf("unknown entity type: %q", t)
}

// Decode unmarshals a JSON payload into a record of the given type.
func Decode(t EntityType, data []byte) (Record, error) {
	rec, err := New(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", t, err)
	}
	return rec, nil
}

// Clone returns a deep copy of a record via its JSON form.
func Clone(rec Record) (Record, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return Decode(rec.EntityType(), data)
}
