package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/mcsstheme/internal/models"
	"gorm.io/gorm"
)

// newestFirst orders snapshots by creation time with the id as a tiebreaker.
const newestFirst = "created_at DESC, id DESC"

// themeSnapshotRepo implements ThemeSnapshotRepository using GORM.
type themeSnapshotRepo struct {
	db *gorm.DB
}

// NewThemeSnapshotRepository creates a new ThemeSnapshotRepository.
func NewThemeSnapshotRepository(db *gorm.DB) *themeSnapshotRepo {
	return &themeSnapshotRepo{db: db}
}

// Create stores a new snapshot.
func (r *themeSnapshotRepo) Create(ctx context.Context, snapshot *models.ThemeSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("creating theme snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by ID.
func (r *themeSnapshotRepo) GetByID(ctx context.Context, id models.ULID) (*models.ThemeSnapshot, error) {
	var snapshot models.ThemeSnapshot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting theme snapshot by ID: %w", err)
	}
	return &snapshot, nil
}

// GetLatest retrieves the newest snapshot of a theme.
func (r *themeSnapshotRepo) GetLatest(ctx context.Context, themeID string) (*models.ThemeSnapshot, error) {
	var snapshot models.ThemeSnapshot
	err := r.db.WithContext(ctx).
		Where("theme_id = ?", themeID).
		Order(newestFirst).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest theme snapshot: %w", err)
	}
	return &snapshot, nil
}

// ListByTheme retrieves snapshots of a theme, newest first, without CSS bodies.
func (r *themeSnapshotRepo) ListByTheme(ctx context.Context, themeID string, limit int) ([]*models.ThemeSnapshot, error) {
	var snapshots []*models.ThemeSnapshot
	query := r.db.WithContext(ctx).
		Omit("css").
		Where("theme_id = ?", themeID).
		Order(newestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("listing theme snapshots: %w", err)
	}
	return snapshots, nil
}

// ListThemeIDs returns the distinct theme ids that have snapshots.
func (r *themeSnapshotRepo) ListThemeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.ThemeSnapshot{}).
		Distinct("theme_id").
		Order("theme_id ASC").
		Pluck("theme_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing snapshot theme ids: %w", err)
	}
	return ids, nil
}

// CountByTheme returns the number of snapshots of a theme.
func (r *themeSnapshotRepo) CountByTheme(ctx context.Context, themeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ThemeSnapshot{}).Where("theme_id = ?", themeID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting theme snapshots: %w", err)
	}
	return count, nil
}

// Delete permanently deletes a snapshot by ID.
func (r *themeSnapshotRepo) Delete(ctx context.Context, id models.ULID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ThemeSnapshot{})
	if result.Error != nil {
		return fmt.Errorf("deleting theme snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrSnapshotNotFound
	}
	return nil
}

// Prune deletes all but the newest keep snapshots of a theme.
func (r *themeSnapshotRepo) Prune(ctx context.Context, themeID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []models.ULID
		if err := tx.Model(&models.ThemeSnapshot{}).
			Where("theme_id = ?", themeID).
			Order(newestFirst).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) <= keep {
			return nil
		}

		result := tx.Where("id IN ?", ids[keep:]).Delete(&models.ThemeSnapshot{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning theme snapshots: %w", err)
	}
	return deleted, nil
}
