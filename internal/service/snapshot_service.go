package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/repository"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

// SnapshotOptions configures a snapshot.
type SnapshotOptions struct {
	// ColorFormat overrides the configured color format.
	ColorFormat string
	Trigger     models.SnapshotTrigger
	Note        string
	// SkipUnchanged returns the latest snapshot instead of storing a new one
	// when the resolved stylesheet has not changed.
	SkipUnchanged bool
}

// SnapshotService persists fully resolved themes.
type SnapshotService struct {
	repo   repository.ThemeSnapshotRepository
	themes *ThemeService
	cfg    config.SnapshotConfig
	logger *slog.Logger
}

// NewSnapshotService creates a new snapshot service.
func NewSnapshotService(repo repository.ThemeSnapshotRepository, themes *ThemeService, cfg config.SnapshotConfig) *SnapshotService {
	return &SnapshotService{
		repo:   repo,
		themes: themes,
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the service.
func (s *SnapshotService) WithLogger(logger *slog.Logger) *SnapshotService {
	s.logger = logger
	return s
}

// GetScheduleInfo returns the snapshot schedule configuration.
func (s *SnapshotService) GetScheduleInfo() models.SnapshotScheduleInfo {
	themes := s.cfg.Themes
	if len(themes) == 0 {
		themes = []string{s.themes.DefaultThemeID()}
	}
	return models.SnapshotScheduleInfo{
		Enabled:   s.cfg.Schedule.Enabled,
		Cron:      s.cfg.Schedule.Cron,
		Retention: s.cfg.Schedule.Retention,
		Themes:    themes,
	}
}

// CreateSnapshot resolves a theme and stores the resolved stylesheet.
func (s *SnapshotService) CreateSnapshot(ctx context.Context, themeID string, opts SnapshotOptions) (*models.ThemeSnapshot, error) {
	resolved, err := s.themes.Resolve(ctx, themeID, opts.ColorFormat)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := theme.Export(&buf, resolved.Theme(), resolved, theme.FormatCSS); err != nil {
		return nil, fmt.Errorf("rendering snapshot: %w", err)
	}
	css := buf.String()
	checksum := Checksum(css)

	colorFormat := opts.ColorFormat
	if colorFormat == "" {
		colorFormat = s.themes.DefaultColorFormat()
	}

	if opts.SkipUnchanged {
		latest, err := s.repo.GetLatest(ctx, themeID)
		if err != nil {
			return nil, fmt.Errorf("getting latest snapshot: %w", err)
		}
		if latest != nil && latest.Checksum == checksum {
			s.logger.DebugContext(ctx, "theme unchanged since last snapshot",
				slog.String("theme_id", themeID),
				slog.String("snapshot_id", latest.ID.String()))
			return latest, nil
		}
	}

	snapshot := &models.ThemeSnapshot{
		ThemeID:     themeID,
		ThemeName:   resolved.Theme().Name(),
		ColorFormat: colorFormat,
		Checksum:    checksum,
		TokenCount:  resolved.Len(),
		Trigger:     opts.Trigger,
		Note:        opts.Note,
		CSS:         css,
	}
	if err := s.repo.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("creating snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "created theme snapshot",
		slog.String("theme_id", themeID),
		slog.String("snapshot_id", snapshot.ID.String()),
		slog.String("checksum", truncateChecksum(checksum)),
		slog.Int("tokens", snapshot.TokenCount),
		slog.String("trigger", string(snapshot.Trigger)))

	return snapshot, nil
}

// ListSnapshots returns the snapshots of a theme, newest first.
func (s *SnapshotService) ListSnapshots(ctx context.Context, themeID string, limit int) ([]models.SnapshotSummary, error) {
	if err := ValidateThemeID(themeID); err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListByTheme(ctx, themeID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	summaries := make([]models.SnapshotSummary, len(snapshots))
	for i, snapshot := range snapshots {
		summaries[i] = snapshot.Summary()
	}
	return summaries, nil
}

// GetSnapshot returns a snapshot by id.
func (s *SnapshotService) GetSnapshot(ctx context.Context, id string) (*models.ThemeSnapshot, error) {
	ulid, err := models.ParseULID(id)
	if err != nil {
		return nil, models.ErrValidation{Field: "id", Message: fmt.Sprintf("invalid snapshot id %q", id)}
	}
	snapshot, err := s.repo.GetByID(ctx, ulid)
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSnapshotNotFound, id)
	}
	return snapshot, nil
}

// GetLatestSnapshot returns the newest snapshot of a theme.
func (s *SnapshotService) GetLatestSnapshot(ctx context.Context, themeID string) (*models.ThemeSnapshot, error) {
	if err := ValidateThemeID(themeID); err != nil {
		return nil, err
	}
	snapshot, err := s.repo.GetLatest(ctx, themeID)
	if err != nil {
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: no snapshots of %s", models.ErrSnapshotNotFound, themeID)
	}
	return snapshot, nil
}

// DeleteSnapshot permanently deletes a snapshot.
func (s *SnapshotService) DeleteSnapshot(ctx context.Context, id string) error {
	ulid, err := models.ParseULID(id)
	if err != nil {
		return models.ErrValidation{Field: "id", Message: fmt.Sprintf("invalid snapshot id %q", id)}
	}
	if err := s.repo.Delete(ctx, ulid); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "deleted theme snapshot", slog.String("snapshot_id", id))
	return nil
}

// VerifySnapshot checks that a stored stylesheet still matches its checksum.
func (s *SnapshotService) VerifySnapshot(ctx context.Context, id string) error {
	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if got := Checksum(snapshot.CSS); got != snapshot.Checksum {
		return fmt.Errorf("snapshot %s checksum mismatch: stored %s, computed %s",
			id, truncateChecksum(snapshot.Checksum), truncateChecksum(got))
	}
	return nil
}

// PruneSnapshots deletes all but the newest keep snapshots of a theme. A
// keep of zero or less uses the configured retention.
func (s *SnapshotService) PruneSnapshots(ctx context.Context, themeID string, keep int) (int64, error) {
	if keep <= 0 {
		keep = s.cfg.Schedule.Retention
	}
	deleted, err := s.repo.Prune(ctx, themeID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots of %s: %w", themeID, err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "pruned theme snapshots",
			slog.String("theme_id", themeID),
			slog.Int64("deleted", deleted),
			slog.Int("kept", keep))
	}
	return deleted, nil
}

// CleanupOldSnapshots applies the configured retention to every theme with
// snapshots.
func (s *SnapshotService) CleanupOldSnapshots(ctx context.Context) (int64, error) {
	themeIDs, err := s.repo.ListThemeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing snapshot themes: %w", err)
	}

	var total int64
	for _, themeID := range themeIDs {
		deleted, err := s.PruneSnapshots(ctx, themeID, 0)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to prune snapshots",
				slog.String("theme_id", themeID),
				slog.String("error", err.Error()))
			continue
		}
		total += deleted
	}
	return total, nil
}

// Checksum returns the hex SHA-256 digest of a stylesheet.
func Checksum(css string) string {
	sum := sha256.Sum256([]byte(css))
	return hex.EncodeToString(sum[:])
}

func truncateChecksum(checksum string) string {
	const n = 12
	if len(checksum) <= n {
		return checksum
	}
	return checksum[:n]
}

// CreateScheduledSnapshot snapshots a theme for the cron schedule. An
// unchanged theme returns its latest snapshot.
func (s *SnapshotService) CreateScheduledSnapshot(ctx context.Context, themeID string) (*models.ThemeSnapshot, error) {
	return s.CreateSnapshot(ctx, themeID, SnapshotOptions{
		Trigger:       models.SnapshotTriggerScheduled,
		SkipUnchanged: true,
	})
}
