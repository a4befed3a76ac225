package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrThemeIDRequired indicates a required theme id field is empty.
	ErrThemeIDRequired = errors.New("theme_id is required")

	// ErrSnapshotCSSRequired indicates a snapshot without a stylesheet body.
	ErrSnapshotCSSRequired = errors.New("snapshot css is required")

	// ErrSnapshotNotFound indicates a snapshot was not found.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrThemeNotFound indicates a theme id is not in the catalogue.
	ErrThemeNotFound = errors.New("theme not found")
)
