package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/mcsstheme/internal/observability"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold defines when a query is considered slow.
const slowQueryThreshold = 500 * time.Millisecond

// maxSQLLogLength limits SQL string length in logs. Snapshot inserts carry
// whole stylesheets.
const maxSQLLogLength = 200

// gormLogLevel maps string log levels to GORM logger levels.
func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// slogGormLogger implements GORM's logger.Interface using slog.
type slogGormLogger struct {
	logger *slog.Logger
	level  logger.LogLevel

	sqlDB        *sql.DB // optional, for pool stats on lock contention
	statsMu      *sync.Mutex
	lastStatsLog *time.Time
}

// newGormLogger creates a GORM logger that uses slog.
func newGormLogger(level string, log *slog.Logger) *slogGormLogger {
	return &slogGormLogger{
		logger:       log,
		level:        gormLogLevel(level),
		statsMu:      &sync.Mutex{},
		lastStatsLog: &time.Time{},
	}
}

// SetSQLDB sets the sql.DB reference for stats logging on errors.
func (l *slogGormLogger) SetSQLDB(db *sql.DB) {
	l.sqlDB = db
}

func (l *slogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *slogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace logs a finished query. Errors log at error, slow queries at warn,
// and everything else at trace. The SQL string is only rendered when the
// record will be emitted.
func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	isError := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	isSlow := elapsed > slowQueryThreshold

	var level slog.Level
	switch {
	case isError && l.level >= logger.Error:
		level = slog.LevelError
	case isSlow && l.level >= logger.Warn:
		level = slog.LevelWarn
	case l.level >= logger.Info:
		level = observability.LevelTrace
	default:
		return
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	sqlStr, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", truncateSQL(sqlStr)),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	msg := "database query"
	switch level {
	case slog.LevelError:
		msg = "database error"
		attrs = append(attrs, slog.String("error_type", classifyError(err)), slog.String("error", err.Error()))
		if strings.Contains(err.Error(), "database is locked") {
			l.logStatsOnContention()
		}
	case slog.LevelWarn:
		msg = "slow query"
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

// classifyError buckets database errors for log filtering.
func classifyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"):
		return "SQLITE_BUSY"
	case errors.Is(err, context.Canceled):
		return "CONTEXT_CANCELED"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key"):
		return "CONSTRAINT"
	default:
		return "OTHER"
	}
}

// logStatsOnContention logs pool stats at most once per minute.
func (l *slogGormLogger) logStatsOnContention() {
	if l.sqlDB == nil {
		return
	}

	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	if time.Since(*l.lastStatsLog) < time.Minute {
		return
	}
	*l.lastStatsLog = time.Now()

	stats := l.sqlDB.Stats()
	l.logger.Warn("connection pool stats on lock contention",
		slog.Int("open_conns", stats.OpenConnections),
		slog.Int("in_use", stats.InUse),
		slog.Int64("wait_count", stats.WaitCount),
		slog.String("wait_duration", stats.WaitDuration.String()),
	)
}

// truncateSQL truncates a SQL string for logging.
func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLogLength {
		return sql
	}
	return sql[:maxSQLLogLength] + "... (truncated)"
}
