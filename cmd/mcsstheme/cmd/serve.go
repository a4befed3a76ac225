package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/mcsstheme/internal/database"
	internalhttp "github.com/jmylchreest/mcsstheme/internal/http"
	"github.com/jmylchreest/mcsstheme/internal/http/handlers"
	"github.com/jmylchreest/mcsstheme/internal/observability"
	"github.com/jmylchreest/mcsstheme/internal/repository"
	"github.com/jmylchreest/mcsstheme/internal/scheduler"
	"github.com/jmylchreest/mcsstheme/internal/service"
	"github.com/jmylchreest/mcsstheme/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mcsstheme server",
	Long: `Start the mcsstheme HTTP server and API.

The server provides:
- REST API for listing, resolving, exporting and validating themes
- Theme stylesheets at /api/v1/themes/{id}.css
- Snapshot storage and an optional snapshot schedule
- Health check endpoints (/health, /livez, /readyz)
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database-driver", "sqlite", "Database driver (sqlite, postgres, mysql)")
	serveCmd.Flags().String("database", "mcsstheme.db", "Database DSN or sqlite file path")
	serveCmd.Flags().Bool("snapshot-schedule", false, "Enable scheduled theme snapshots")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.driver", serveCmd.Flags().Lookup("database-driver"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("snapshot.schedule.enabled", serveCmd.Flags().Lookup("snapshot-schedule"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, observability.WithComponent(logger, "database"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.LogStats()

	themeService := service.NewThemeService(cfg.Theme).
		WithLogger(observability.WithComponent(logger, "themes"))
	if err := themeService.EnsureThemesDirectory(); err != nil {
		logger.Warn("could not create themes directory",
			slog.String("path", themeService.ThemesDir()),
			slog.String("error", err.Error()))
	}

	snapshotService := service.NewSnapshotService(
		repository.NewThemeSnapshotRepository(db.DB),
		themeService,
		cfg.Snapshot,
	).WithLogger(observability.WithComponent(logger, "snapshots"))

	snapshotScheduler := scheduler.NewScheduler(snapshotService, cfg.Snapshot.Schedule, cfg.SnapshotThemes()).
		WithLogger(observability.WithComponent(logger, "scheduler"))
	if err := snapshotScheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting snapshot scheduler: %w", err)
	}
	defer snapshotScheduler.Stop()

	server := internalhttp.NewServer(cfg.Server, logger, internalhttp.Options{
		RequestLogging: cfg.Logging.RequestLogging,
		Version:        version.Version,
	})

	handlers.NewHealthHandler(version.Version).
		WithDB(db.DB).
		WithScheduler(snapshotScheduler).
		Register(server.API())

	themeHandler := handlers.NewThemeHandler(themeService)
	themeHandler.Register(server.API())
	themeHandler.RegisterChiRoutes(server.Router())

	snapshotHandler := handlers.NewSnapshotHandler(snapshotService).WithScheduler(snapshotScheduler)
	snapshotHandler.Register(server.API())
	snapshotHandler.RegisterChiRoutes(server.Router())

	handlers.NewConfigHandler(cfg).Register(server.API())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("starting mcsstheme server",
		slog.String("address", cfg.Server.Address()),
		slog.String("default_theme", cfg.Theme.Default),
		slog.Bool("snapshot_schedule", cfg.Snapshot.Schedule.Enabled),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
