package migrations

import (
	"github.com/jmylchreest/mcsstheme/internal/models"
	"gorm.io/gorm"
)

// snapshotTimelineIndex speeds up newest-first listing and pruning per theme.
const snapshotTimelineIndex = "idx_theme_snapshots_theme_created"

// AllMigrations returns all registered migrations in order.
// - 001: Schema creation using GORM AutoMigrate
// - 002: Composite (theme_id, created_at) index for snapshot listing and pruning
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002SnapshotTimelineIndex(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create theme_snapshots table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.ThemeSnapshot{})
		},
		Down: func(tx *gorm.DB) error {
			if tx.Migrator().HasTable("theme_snapshots") {
				return tx.Migrator().DropTable("theme_snapshots")
			}
			return nil
		},
	}
}

// migration002SnapshotTimelineIndex adds the composite snapshot index.
func migration002SnapshotTimelineIndex() Migration {
	return Migration{
		Version:     "002",
		Description: "Add (theme_id, created_at) index to theme_snapshots",
		Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasIndex(&models.ThemeSnapshot{}, snapshotTimelineIndex) {
				return nil
			}
			return tx.Exec("CREATE INDEX " + snapshotTimelineIndex + " ON theme_snapshots (theme_id, created_at)").Error
		},
		Down: func(tx *gorm.DB) error {
			if !tx.Migrator().HasIndex(&models.ThemeSnapshot{}, snapshotTimelineIndex) {
				return nil
			}
			return tx.Migrator().DropIndex(&models.ThemeSnapshot{}, snapshotTimelineIndex)
		},
	}
}
