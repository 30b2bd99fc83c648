// Package common defines shared constants and sentinel errors used across
// the LiveOn server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// The identity provider could not be reached or failed on its side.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidState = errors.New("invalid state")

	// Backup lifecycle errors.
	ErrBackupRunning = errors.New("backup already running")
	ErrLeaseLost     = errors.New("backup lease lost")
	ErrQueueFull     = errors.New("backup queue full")

	// Payment errors.
	ErrPaymentRequired = errors.New("payment required")
	ErrRunMismatch     = errors.New("run does not belong to user")
)
