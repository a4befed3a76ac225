// Package database provides database connection management for mcsstheme
// snapshot storage. It supports SQLite, PostgreSQL, and MySQL through GORM.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/database/migrations"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// sqlitePragmas are applied to every pooled SQLite connection via the DSN.
var sqlitePragmas = []string{
	"busy_timeout(30000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"temp_store(MEMORY)",
}

// DB wraps a GORM connection to the snapshot store.
type DB struct {
	*gorm.DB
	cfg    config.DatabaseConfig
	logger *slog.Logger
}

// New connects to the configured database without migrating it.
func New(cfg config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger := newGormLogger(cfg.LogLevel, log)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		// Snapshot writes are single inserts; multi-row changes use explicit transactions.
		SkipDefaultTransaction: true,
		// Statement preparation needs a free connection, which a transaction
		// on a single-connection SQLite pool holds.
		PrepareStmt: cfg.Driver != "sqlite",
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	gormLogger.SetSQLDB(sqlDB)

	maxOpen, maxIdle := poolSize(cfg)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Debug("database connected",
		slog.String("driver", cfg.Driver),
		slog.Int("max_open_conns", maxOpen),
		slog.Int("max_idle_conns", maxIdle),
	)

	return &DB{DB: gdb, cfg: cfg, logger: log}, nil
}

// Open connects to the database and applies all pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	db, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrations returns a migrator with every schema migration registered.
func (db *DB) Migrations() *migrations.Migrator {
	migrator := migrations.NewMigrator(db.DB, db.logger)
	migrator.RegisterAll(migrations.AllMigrations())
	return migrator
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.Migrations().Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// LogStats logs the connection pool statistics and, for SQLite, the
// effective journal mode.
func (db *DB) LogStats() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()

	attrs := []any{
		slog.String("driver", db.cfg.Driver),
		slog.Int("max_open_conns", stats.MaxOpenConnections),
		slog.Int("open_conns", stats.OpenConnections),
		slog.Int("idle", stats.Idle),
		slog.Int64("wait_count", stats.WaitCount),
	}
	if db.cfg.Driver == "sqlite" {
		var journalMode string
		if err := db.DB.Raw("PRAGMA journal_mode").Scan(&journalMode).Error; err == nil {
			attrs = append(attrs, slog.String("journal_mode", journalMode))
		}
	}
	db.logger.Info("database ready", attrs...)
}

// poolSize returns the connection limits for cfg. SQLite has a single
// writer, and each :memory: connection is a separate database, so those
// pools are capped.
func poolSize(cfg config.DatabaseConfig) (maxOpen, maxIdle int) {
	maxOpen, maxIdle = cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver != "sqlite" {
		return maxOpen, maxIdle
	}
	if isMemoryDSN(cfg.DSN) {
		return 1, 1
	}
	return min(maxOpen, 4), min(maxIdle, 2)
}

// isMemoryDSN reports whether a SQLite DSN refers to an in-memory database.
func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// sqliteDSN appends the connection pragmas to dsn.
func sqliteDSN(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg.DSN)), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
