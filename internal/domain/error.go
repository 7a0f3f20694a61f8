package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrValidation         = errors.New("activity payload failed validation")
	ErrConflict           = errors.New("client and server versions diverged")
	ErrToolFailure        = errors.New("external media tool failed")
	ErrNoAudioStream      = errors.New("source has no usable audio stream")
	ErrIntegrity          = errors.New("bundle archive integrity failure")
	ErrBundleNotReady     = errors.New("bundle is not completed yet")
	ErrRetriesExhausted   = errors.New("activity retry limit reached")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
