// Package scheduler runs cron-based theme snapshot jobs for mcsstheme.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/observability"
)

// SnapshotService creates and prunes theme snapshots.
type SnapshotService interface {
	CreateScheduledSnapshot(ctx context.Context, themeID string) (*models.ThemeSnapshot, error)
	CleanupOldSnapshots(ctx context.Context) (int64, error)
}

// NewParser returns the 6-field (with seconds) cron parser used for
// snapshot schedules.
func NewParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Scheduler snapshots themes on a cron schedule.
type Scheduler struct {
	mu sync.Mutex

	service  SnapshotService
	schedule config.SnapshotScheduleConfig
	themes   []string

	logger *slog.Logger
	parser cron.Parser

	cron    *cron.Cron
	entryID cron.EntryID
	cancel  context.CancelFunc
}

// NewScheduler creates a new snapshot scheduler for the given themes.
func NewScheduler(service SnapshotService, schedule config.SnapshotScheduleConfig, themes []string) *Scheduler {
	return &Scheduler{
		service:  service,
		schedule: schedule,
		themes:   themes,
		logger:   slog.Default(),
		parser:   NewParser(),
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Start registers the snapshot job and starts the cron runner. A disabled
// schedule is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}
	if !s.schedule.Enabled {
		s.logger.Info("snapshot schedule disabled")
		return nil
	}

	sched, err := s.parser.Parse(s.schedule.Cron)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.schedule.Cron, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLogger(cronLogger{logger: s.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})),
	)
	s.entryID = c.Schedule(sched, cron.FuncJob(func() {
		var err error
		done := observability.TimedOperationWithError(runCtx, s.logger, "scheduled_snapshot", &err)
		defer done()
		_, err = s.RunOnce(runCtx)
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel

	s.logger.Info("snapshot scheduler started",
		slog.String("cron", s.schedule.Cron),
		slog.Any("themes", s.themes),
		slog.Int("retention", s.schedule.Retention),
		slog.Time("next_run", sched.Next(time.Now())))

	return nil
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()

	s.logger.Info("snapshot scheduler stopped")
}

// NextRun returns the next scheduled run, or nil when the scheduler is not
// running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// RunOnce snapshots every configured theme and then applies the retention.
// A failing theme does not stop the others; cleanup failure does not fail
// the run.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	var (
		created []string
		errs    []error
	)
	for _, themeID := range s.themes {
		snapshot, err := s.service.CreateScheduledSnapshot(ctx, themeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot creation failed for %s: %w", themeID, err))
			continue
		}
		created = append(created, fmt.Sprintf("%s (%s)", themeID, snapshot.ID))
	}

	if len(created) == 0 && len(errs) > 0 {
		return "", errors.Join(errs...)
	}

	result := "created snapshots: " + strings.Join(created, ", ")

	deleted, err := s.service.CleanupOldSnapshots(ctx)
	if err != nil {
		s.logger.Warn("failed to clean up old snapshots", slog.Any("error", err))
	} else if deleted > 0 {
		result += fmt.Sprintf("; cleaned up %d old snapshots", deleted)
	}

	return result, errors.Join(errs...)
}

// ParseCron validates a cron expression and returns the next run time.
func (s *Scheduler) ParseCron(expr string) (time.Time, error) {
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(time.Now()), nil
}

// ValidateCron validates a cron expression.
func (s *Scheduler) ValidateCron(expr string) error {
	_, err := s.parser.Parse(expr)
	return err
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
