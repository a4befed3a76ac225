package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/database"
	"github.com/jmylchreest/mcsstheme/internal/observability"
)

var migrateJSON bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the snapshot database schema",
	Long: `Inspect and apply schema migrations of the snapshot database.
"serve" and the snapshot commands migrate automatically; these commands are
for inspecting a database or rolling back before a downgrade.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recently applied migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrateDown,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd, migrateUpCmd, migrateDownCmd)
	migrateStatusCmd.Flags().BoolVar(&migrateJSON, "json", false, "output as JSON")
}

// openDatabase connects to the configured database without migrating it.
func openDatabase() (*database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.New(cfg.Database, observability.WithComponent(slog.Default(), "database"))
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return db, nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	statuses, err := db.Migrations().Status(cmd.Context())
	if err != nil {
		return err
	}
	if migrateJSON {
		return writeJSON(cmd.OutOrStdout(), statuses)
	}

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		applied := "-"
		if s.AppliedAt != nil {
			applied = humanize.Time(*s.AppliedAt)
		}
		rows = append(rows, []string{s.Version, s.Description, formatYesNo(s.Applied), applied})
	}
	return writeTable(cmd.OutOrStdout(), []string{"VERSION", "DESCRIPTION", "APPLIED", "WHEN"}, rows)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator := db.Migrations()
	pending, err := migrator.Pending(cmd.Context())
	if err != nil {
		return err
	}
	if err := migrator.Up(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(pending))
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrations().Down(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "rolled back the latest migration")
	return nil
}
