package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/database"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/observability"
	"github.com/jmylchreest/mcsstheme/internal/repository"
	"github.com/jmylchreest/mcsstheme/internal/scheduler"
	"github.com/jmylchreest/mcsstheme/internal/service"
)

var (
	snapshotJSON          bool
	snapshotColorFormat   string
	snapshotNote          string
	snapshotSkipUnchanged bool
	snapshotLimit         int
	snapshotKeep          int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage resolved theme snapshots",
	Long: `Snapshots store the fully resolved stylesheet of a theme in the database,
together with a SHA-256 checksum, so a known-good rendering can be served or
compared later.`,
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create [THEME]",
	Short: "Resolve a theme and store a snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotCreate,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list [THEME]",
	Short: "List snapshots of a theme, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotList,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the stylesheet stored in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotShow,
}

var snapshotVerifyCmd = &cobra.Command{
	Use:   "verify ID...",
	Short: "Check snapshot checksums",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSnapshotVerify,
}

var snapshotPruneCmd = &cobra.Command{
	Use:   "prune [THEME]",
	Short: "Delete all but the newest snapshots",
	Long:  `Delete all but the newest snapshots of a theme. Without a theme the configured retention is applied to every theme.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotPrune,
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSnapshotDelete,
}

var snapshotRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the snapshot schedule once",
	Long:  `Snapshot every scheduled theme and apply retention, as the scheduler does on each tick.`,
	Args:  cobra.NoArgs,
	RunE:  runSnapshotRun,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotShowCmd,
		snapshotVerifyCmd, snapshotPruneCmd, snapshotDeleteCmd, snapshotRunCmd)

	snapshotCreateCmd.Flags().StringVar(&snapshotColorFormat, "color-format", "", "how colors are written: preserve or hex")
	snapshotCreateCmd.Flags().StringVar(&snapshotNote, "note", "", "free-form note stored with the snapshot")
	snapshotCreateCmd.Flags().BoolVar(&snapshotSkipUnchanged, "skip-unchanged", false, "reuse the latest snapshot when the stylesheet is unchanged")
	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", 0, "maximum snapshots to list, 0 for all")
	snapshotPruneCmd.Flags().IntVar(&snapshotKeep, "keep", 0, "snapshots to keep, 0 for the configured retention")
	for _, c := range []*cobra.Command{snapshotCreateCmd, snapshotListCmd, snapshotShowCmd} {
		c.Flags().BoolVar(&snapshotJSON, "json", false, "output as JSON")
	}
}

// openSnapshotService opens the database and builds the snapshot service.
// The returned function closes the database.
func openSnapshotService(ctx context.Context) (*service.SnapshotService, *service.ThemeService, func(), error) {
	themeService, cfg, err := newThemeService()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := slog.Default()

	db, err := database.Open(ctx, cfg.Database, observability.WithComponent(logger, "database"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing database: %w", err)
	}

	svc := service.NewSnapshotService(repository.NewThemeSnapshotRepository(db.DB), themeService, cfg.Snapshot).
		WithLogger(observability.WithComponent(logger, "snapshots"))
	return svc, themeService, func() { _ = db.Close() }, nil
}

func themeArg(themes *service.ThemeService, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return themes.DefaultThemeID()
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	svc, themes, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	snapshot, err := svc.CreateSnapshot(cmd.Context(), themeArg(themes, args), service.SnapshotOptions{
		ColorFormat:   snapshotColorFormat,
		Trigger:       models.SnapshotTriggerManual,
		Note:          snapshotNote,
		SkipUnchanged: snapshotSkipUnchanged,
	})
	if err != nil {
		return err
	}

	if snapshotJSON {
		return writeJSON(cmd.OutOrStdout(), snapshot.Summary())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d tokens  %s  sha256:%s\n",
		snapshot.ID, snapshot.ThemeID, snapshot.TokenCount,
		humanize.IBytes(uint64(len(snapshot.CSS))), snapshot.Checksum)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	svc, themes, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	snapshots, err := svc.ListSnapshots(cmd.Context(), themeArg(themes, args), snapshotLimit)
	if err != nil {
		return err
	}
	if snapshotJSON {
		return writeJSON(cmd.OutOrStdout(), snapshots)
	}

	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []string{
			s.ID.String(),
			humanize.Time(s.CreatedAt),
			string(s.Trigger),
			s.ColorFormat,
			strconv.Itoa(s.TokenCount),
			s.Checksum[:12],
			s.Note,
		})
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "CREATED", "TRIGGER", "COLORS", "TOKENS", "CHECKSUM", "NOTE"}, rows)
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	svc, _, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	snapshot, err := svc.GetSnapshot(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if snapshotJSON {
		return writeJSON(cmd.OutOrStdout(), snapshot)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), snapshot.CSS)
	return err
}

func runSnapshotVerify(cmd *cobra.Command, args []string) error {
	svc, _, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	failed := 0
	for _, id := range args {
		if err := svc.VerifySnapshot(cmd.Context(), id); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok    %s\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed verification", failed, len(args))
	}
	return nil
}

func runSnapshotPrune(cmd *cobra.Command, args []string) error {
	svc, _, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	var deleted int64
	if len(args) == 0 {
		if snapshotKeep != 0 {
			return fmt.Errorf("--keep requires a theme")
		}
		deleted, err = svc.CleanupOldSnapshots(cmd.Context())
	} else {
		if err := service.ValidateThemeID(args[0]); err != nil {
			return err
		}
		deleted, err = svc.PruneSnapshots(cmd.Context(), args[0], snapshotKeep)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshots\n", deleted)
	return nil
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	svc, _, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	for _, id := range args {
		if err := svc.DeleteSnapshot(cmd.Context(), id); err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	}
	return nil
}

func runSnapshotRun(cmd *cobra.Command, args []string) error {
	svc, _, closeDB, err := openSnapshotService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s := scheduler.NewScheduler(svc, cfg.Snapshot.Schedule, cfg.SnapshotThemes()).
		WithLogger(observability.WithComponent(slog.Default(), "scheduler"))
	result, err := s.RunOnce(cmd.Context())
	if result != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result)
	}
	return err
}
