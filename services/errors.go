package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	ErrStageNotFound      = errors.New("stage not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")

	// Two round-generation calls raced on the same stage. The caller
	// should retry the whole call after a short delay, never resume a
	// partial one.
	ErrConcurrentModification = errors.New("stage is being modified by another operation")

	ErrValidationFailed      = errors.New("validation failed")
	ErrMatchAlreadyCompleted = errors.New("match is already completed")
	ErrInvalidStatusChange   = errors.New("invalid match status transition")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrUserEmailConflict  = errors.New("email address is already in use")

	ErrStorageNotConfigured = errors.New("object storage is not configured")
)
