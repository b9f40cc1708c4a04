// Package uuid generates the v4 identifiers used for record ids.
package uuid

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Strict v4 shape: version nibble 4, variant nibble in [89ab].
var v4Pattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New returns a fresh v4 identifier in canonical dashed form.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether s is a well-formed v4 identifier. Seeded
// preset ids use their own naming and are not expected to pass.
func IsValid(s string) bool {
	return v4Pattern.MatchString(s)
}

// Validate wraps IsValid with an error carrying the rejected value.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}
