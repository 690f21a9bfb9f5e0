package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrConfigRequired = errors.New("config is required")
	ErrPINRequired    = errors.New("PIN is required")
	ErrPINFormat      = errors.New("PIN must be exactly 4 digits")
)

// Errors for input validation.
var (
	ErrNoIDs     = errors.New("no file ids provided")
	ErrEmptyID   = errors.New("file id is required")
	ErrEmptyPath = errors.New("path is required")
	ErrEmptyName = errors.New("new name is required")
)
