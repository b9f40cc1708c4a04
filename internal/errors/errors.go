// Package errors provides typed error codes shared across the sync stack.
package errors

import "fmt"

// ErrorCode identifies a class of failure. Every code here is
// recoverable by retrying the operation later.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrDuplicate  ErrorCode = "DUPLICATE"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Local store errors
	ErrStorage    ErrorCode = "STORAGE_ERROR"
	ErrMigration  ErrorCode = "MIGRATION_FAILED"
	ErrConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// Sync precondition errors
	ErrNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrOffline          ErrorCode = "OFFLINE"
	ErrSyncInProgress   ErrorCode = "SYNC_IN_PROGRESS"

	// Cloud mirror errors
	ErrRemote            ErrorCode = "REMOTE_ERROR"
	ErrSyncNotConfigured ErrorCode = "SYNC_NOT_CONFIGURED"
	ErrSyncAuthFailed    ErrorCode = "SYNC_AUTH_FAILED"

	// Credential errors
	ErrCryptoFailed    ErrorCode = "CRYPTO_FAILED"
	ErrInvalidPassword ErrorCode = "INVALID_PASSWORD"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of an AppError, or ErrInternal for any other
// non-nil error.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}
