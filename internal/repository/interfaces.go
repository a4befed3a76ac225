// Package repository defines data access interfaces for mcsstheme entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"

	"github.com/jmylchreest/mcsstheme/internal/models"
)

// ThemeSnapshotRepository defines operations for resolved theme snapshot persistence.
type ThemeSnapshotRepository interface {
	// Create stores a new snapshot.
	Create(ctx context.Context, snapshot *models.ThemeSnapshot) error
	// GetByID retrieves a snapshot by ID. Returns nil, nil if not found.
	GetByID(ctx context.Context, id models.ULID) (*models.ThemeSnapshot, error)
	// GetLatest retrieves the newest snapshot of a theme. Returns nil, nil if none exist.
	GetLatest(ctx context.Context, themeID string) (*models.ThemeSnapshot, error)
	// ListByTheme retrieves snapshots of a theme, newest first, without CSS bodies.
	// A limit of zero or less returns all snapshots.
	ListByTheme(ctx context.Context, themeID string, limit int) ([]*models.ThemeSnapshot, error)
	// ListThemeIDs returns the distinct theme ids that have snapshots.
	ListThemeIDs(ctx context.Context) ([]string, error)
	// CountByTheme returns the number of snapshots of a theme.
	CountByTheme(ctx context.Context, themeID string) (int64, error)
	// Delete permanently deletes a snapshot by ID.
	Delete(ctx context.Context, id models.ULID) error
	// Prune deletes all but the newest keep snapshots of a theme and
	// returns the number deleted.
	Prune(ctx context.Context, themeID string, keep int) (int64, error)
}
