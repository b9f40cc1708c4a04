// Package platform holds the device-level collaborators the sync engine
// depends on: identity, connectivity, and storage capabilities.
package platform

import (
	apperrors "github.com/kbradley/liftlog/internal/errors"
)

// Auth reports the signed-in user. Sync is scoped to one user's prefix
// in the cloud mirror and never runs signed out.
type Auth interface {
	// CurrentUserID returns the signed-in user's id, or an
	// ErrNotAuthenticated AppError when signed out.
	CurrentUserID() (string, error)

	// IsAuthenticated reports whether a user is signed in.
	IsAuthenticated() bool
}

// StaticAuth is an Auth fixed to one user id. The desktop build signs in
// once at startup and stays signed in for the process lifetime.
type StaticAuth struct {
	UserID string
}

// CurrentUserID returns the configured user id.
func (a *StaticAuth) CurrentUserID() (string, error) {
	if a.UserID == "" {
		return "", apperrors.New(apperrors.ErrNotAuthenticated, "no user signed in")
	}
	return a.UserID, nil
}

// IsAuthenticated reports whether a user id is configured.
func (a *StaticAuth) IsAuthenticated() bool {
	return a.UserID != ""
}
