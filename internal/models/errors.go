package models

import "errors"

var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidUserID    = errors.New("user ID is required")
	ErrValidation       = errors.New("invalid settings")
	// ErrVersionConflict means the settings changed between read and write.
	ErrVersionConflict = errors.New("settings were modified concurrently")
)
