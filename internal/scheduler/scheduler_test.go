package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/models"
)

// mockSnapshotService implements SnapshotService for testing.
type mockSnapshotService struct {
	mu          sync.Mutex
	createErrs  map[string]error
	cleanup     int64
	cleanupErr  error
	created     []string
	cleanupRuns int
}

func (m *mockSnapshotService) CreateScheduledSnapshot(ctx context.Context, themeID string) (*models.ThemeSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErrs[themeID]; err != nil {
		return nil, err
	}
	m.created = append(m.created, themeID)
	snapshot := &models.ThemeSnapshot{ThemeID: themeID, Trigger: models.SnapshotTriggerScheduled}
	snapshot.ID = models.NewULID()
	return snapshot, nil
}

func (m *mockSnapshotService) CleanupOldSnapshots(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupRuns++
	return m.cleanup, m.cleanupErr
}

func (m *mockSnapshotService) createdThemes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

func enabledSchedule(expr string) config.SnapshotScheduleConfig {
	return config.SnapshotScheduleConfig{Enabled: true, Cron: expr, Retention: 5}
}

func TestScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("success_creates_snapshots_and_cleans_up", func(t *testing.T) {
		service := &mockSnapshotService{cleanup: 3}
		s := NewScheduler(service, enabledSchedule("@daily"), []string{"m-light-sepia", "ocean"})

		result, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"m-light-sepia", "ocean"}, service.createdThemes())
		assert.Equal(t, 1, service.cleanupRuns)
		assert.Contains(t, result, "created snapshots: m-light-sepia (")
		assert.Contains(t, result, "ocean (")
		assert.Contains(t, result, "cleaned up 3 old snapshots")
	})

	t.Run("success_no_cleanup_needed", func(t *testing.T) {
		service := &mockSnapshotService{}
		s := NewScheduler(service, enabledSchedule("@daily"), []string{"m-light-sepia"})

		result, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Contains(t, result, "created snapshots")
		assert.NotContains(t, result, "cleaned up")
	})

	t.Run("partial_failure_reports_error", func(t *testing.T) {
		service := &mockSnapshotService{createErrs: map[string]error{"ocean": errors.New("cyclic dependency")}}
		s := NewScheduler(service, enabledSchedule("@daily"), []string{"ocean", "m-light-sepia"})

		result, err := s.RunOnce(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "snapshot creation failed for ocean")
		assert.Contains(t, result, "m-light-sepia")
		assert.Equal(t, 1, service.cleanupRuns)
	})

	t.Run("all_failed_skips_cleanup", func(t *testing.T) {
		service := &mockSnapshotService{createErrs: map[string]error{"ocean": errors.New("theme not found")}}
		s := NewScheduler(service, enabledSchedule("@daily"), []string{"ocean"})

		_, err := s.RunOnce(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "theme not found")
		assert.Zero(t, service.cleanupRuns)
	})

	t.Run("cleanup_failure_does_not_fail_run", func(t *testing.T) {
		service := &mockSnapshotService{cleanupErr: errors.New("database is locked")}
		s := NewScheduler(service, enabledSchedule("@daily"), []string{"m-light-sepia"})

		result, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Contains(t, result, "created snapshots")
	})
}

func TestScheduler_StartDisabled(t *testing.T) {
	s := NewScheduler(&mockSnapshotService{}, config.SnapshotScheduleConfig{Cron: "0 0 3 * * *"}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Nil(t, s.NextRun())
	s.Stop()
}

func TestScheduler_StartInvalidCron(t *testing.T) {
	s := NewScheduler(&mockSnapshotService{}, enabledSchedule("not a cron"), []string{"m-light-sepia"})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(&mockSnapshotService{}, enabledSchedule("0 0 3 * * *"), []string{"m-light-sepia"})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	err := s.Start(context.Background())
	assert.Error(t, err)

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	service := &mockSnapshotService{}
	s := NewScheduler(service, enabledSchedule("* * * * * *"), []string{"m-light-sepia"})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return len(service.createdThemes()) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_ParseCron(t *testing.T) {
	s := NewScheduler(&mockSnapshotService{}, config.SnapshotScheduleConfig{}, nil)

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"six fields", "0 0 3 * * *", false},
		{"every thirty seconds", "*/30 * * * * *", false},
		{"descriptor", "@hourly", false},
		{"five fields", "0 3 * * *", true},
		{"garbage", "whenever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := s.ParseCron(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, s.ValidateCron(tt.expr))
				return
			}
			require.NoError(t, err)
			assert.True(t, next.After(time.Now()))
			assert.NoError(t, s.ValidateCron(tt.expr))
		})
	}
}
