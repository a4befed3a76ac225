package service

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/repository"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

func setupSnapshotService(t *testing.T) (*SnapshotService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ThemeSnapshot{}))

	cfg := config.SnapshotConfig{
		Schedule: config.SnapshotScheduleConfig{Cron: "0 0 3 * * *", Retention: 2},
	}
	svc := NewSnapshotService(repository.NewThemeSnapshotRepository(db), setupThemeService(t), cfg)
	return svc, db
}

func TestSnapshotService_CreateSnapshot(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	snapshot, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{Note: "first"})
	require.NoError(t, err)
	assert.False(t, snapshot.ID.IsZero())
	assert.Equal(t, "m-light-sepia", snapshot.ThemeID)
	assert.Equal(t, "preserve", snapshot.ColorFormat)
	assert.Equal(t, models.SnapshotTriggerManual, snapshot.Trigger)
	assert.Equal(t, "first", snapshot.Note)
	assert.Len(t, snapshot.Checksum, 64)
	assert.Equal(t, Checksum(snapshot.CSS), snapshot.Checksum)
	assert.Contains(t, snapshot.CSS, "--colorBG-l-lighter: 90%;")
	assert.Contains(t, snapshot.CSS, "--colorAccent2-h: 278;")

	// The resolved stylesheet parses back into an equivalent theme.
	reparsed, err := theme.ParseCSS("snapshot", []byte(snapshot.CSS))
	require.NoError(t, err)
	assert.Equal(t, snapshot.TokenCount, reparsed.Len())
}

func TestSnapshotService_CreateSnapshot_Deterministic(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	first, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{ColorFormat: "hex"})
	require.NoError(t, err)
	second, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{ColorFormat: "hex"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Equal(t, "hex", second.ColorFormat)
	assert.Contains(t, second.CSS, "--colorBG: #e4d2b4;")
}

func TestSnapshotService_CreateSnapshot_SkipUnchanged(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	first, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{Trigger: models.SnapshotTriggerScheduled})
	require.NoError(t, err)
	again, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{
		Trigger:       models.SnapshotTriggerScheduled,
		SkipUnchanged: true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// A different color format changes the stylesheet.
	hex, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{
		ColorFormat:   "hex",
		SkipUnchanged: true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, hex.ID)
}

func TestSnapshotService_CreateSnapshot_Errors(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	_, err := svc.CreateSnapshot(ctx, "missing-theme", SnapshotOptions{})
	assert.ErrorIs(t, err, models.ErrThemeNotFound)

	writeCustomTheme(t, svc.themes, "cyclic.css", ":root { --a: var(--b); --b: var(--a); }")
	_, err = svc.CreateSnapshot(ctx, "cyclic", SnapshotOptions{})
	assert.ErrorIs(t, err, theme.ErrCyclicDependency)

	_, err = svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{Trigger: "hourly"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger")
}

func TestSnapshotService_ListAndGet(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	var created []*models.ThemeSnapshot
	for _, note := range []string{"one", "two", "three"} {
		s, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{Note: note})
		require.NoError(t, err)
		created = append(created, s)
	}

	summaries, err := svc.ListSnapshots(ctx, "m-light-sepia", 0)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "three", summaries[0].Note)
	assert.Equal(t, "one", summaries[2].Note)

	limited, err := svc.ListSnapshots(ctx, "m-light-sepia", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	got, err := svc.GetSnapshot(ctx, created[1].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "two", got.Note)
	assert.NotEmpty(t, got.CSS)

	latest, err := svc.GetLatestSnapshot(ctx, "m-light-sepia")
	require.NoError(t, err)
	assert.Equal(t, created[2].ID, latest.ID)
}

func TestSnapshotService_NotFound(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, models.NewULID().String())
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)

	_, err = svc.GetLatestSnapshot(ctx, "m-light-sepia")
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)

	_, err = svc.GetSnapshot(ctx, "not-a-ulid")
	var verr models.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)

	err = svc.DeleteSnapshot(ctx, models.NewULID().String())
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)
}

func TestSnapshotService_DeleteSnapshot(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()

	snapshot, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSnapshot(ctx, snapshot.ID.String()))
	_, err = svc.GetSnapshot(ctx, snapshot.ID.String())
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)
}

func TestSnapshotService_VerifySnapshot(t *testing.T) {
	svc, db := setupSnapshotService(t)
	ctx := context.Background()

	snapshot, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{})
	require.NoError(t, err)
	require.NoError(t, svc.VerifySnapshot(ctx, snapshot.ID.String()))

	tampered := strings.Replace(snapshot.CSS, "90%", "91%", 1)
	require.NoError(t, db.Model(&models.ThemeSnapshot{}).
		Where("id = ?", snapshot.ID).
		Update("css", tampered).Error)

	err = svc.VerifySnapshot(ctx, snapshot.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestSnapshotService_PruneAndCleanup(t *testing.T) {
	svc, _ := setupSnapshotService(t)
	ctx := context.Background()
	writeCustomTheme(t, svc.themes, "ocean.yaml", customYAML)

	for i := 0; i < 4; i++ {
		_, err := svc.CreateSnapshot(ctx, "m-light-sepia", SnapshotOptions{})
		require.NoError(t, err)
		_, err = svc.CreateSnapshot(ctx, "ocean", SnapshotOptions{})
		require.NoError(t, err)
	}

	deleted, err := svc.PruneSnapshots(ctx, "m-light-sepia", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	// Retention of 2 applies to every theme.
	deleted, err = svc.CleanupOldSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	sepia, err := svc.ListSnapshots(ctx, "m-light-sepia", 0)
	require.NoError(t, err)
	assert.Len(t, sepia, 1)
	ocean, err := svc.ListSnapshots(ctx, "ocean", 0)
	require.NoError(t, err)
	assert.Len(t, ocean, 2)
}

func TestSnapshotService_GetScheduleInfo(t *testing.T) {
	svc, _ := setupSnapshotService(t)

	info := svc.GetScheduleInfo()
	assert.False(t, info.Enabled)
	assert.Equal(t, "0 0 3 * * *", info.Cron)
	assert.Equal(t, 2, info.Retention)
	assert.Equal(t, []string{"m-light-sepia"}, info.Themes)
	assert.Nil(t, info.NextRun)
}
