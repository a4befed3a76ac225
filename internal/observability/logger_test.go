package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level, format string) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLoggerWithWriter(config.LoggingConfig{Level: level, Format: format}, &buf), &buf
}

func TestNewLoggerWithWriter_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		logger, buf := newTestLogger("info", "json")
		logger.Info("theme resolved", slog.String("theme_id", "m-light-sepia"), slog.Int("tokens", 58))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "theme resolved", entry["msg"])
		assert.Equal(t, "m-light-sepia", entry["theme_id"])
		assert.EqualValues(t, 58, entry["tokens"])
	})

	t.Run("text", func(t *testing.T) {
		logger, buf := newTestLogger("info", "text")
		logger.Info("theme resolved", slog.String("theme_id", "m-light-sepia"))
		assert.Contains(t, buf.String(), "theme_id=m-light-sepia")
	})

	t.Run("unknown format falls back to json", func(t *testing.T) {
		logger, buf := newTestLogger("info", "xml")
		logger.Info("hello")
		assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	})
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	tests := []struct {
		configLevel string
		logLevel    slog.Level
		want        bool
	}{
		{"trace", LevelTrace, true},
		{"debug", LevelTrace, false},
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelDebug, false},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelInfo, false},
		{"error", slog.LevelWarn, false},
		{"error", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.configLevel+"/"+tt.logLevel.String(), func(t *testing.T) {
			logger, buf := newTestLogger(tt.configLevel, "json")
			logger.Log(context.Background(), tt.logLevel, "probe")
			assert.Equal(t, tt.want, buf.Len() > 0)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "level %q", input)
	}
}

func TestTraceLevelDisplay(t *testing.T) {
	logger, buf := newTestLogger("trace", "json")
	logger.Log(context.Background(), LevelTrace, "token evaluated", slog.String("name", "colorBG-lighter"))

	assert.Contains(t, buf.String(), `"level":"TRACE"`)
	assert.NotContains(t, buf.String(), "DEBUG-4")
}

func TestNewLoggerWithWriter_SourceAndTimeFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		AddSource:  true,
		TimeFormat: time.DateOnly,
	}, &buf)
	logger.Info("configured")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["logpos"], "internal/observability/logger_test.go:")
	_, err := time.Parse(time.DateOnly, entry["time"].(string))
	assert.NoError(t, err)
}

func TestRelativeSource(t *testing.T) {
	assert.Equal(t, "internal/theme/resolve.go", relativeSource("/src/mcsstheme/internal/theme/resolve.go"))
	assert.Equal(t, "cmd/mcsstheme/main.go", relativeSource("/build/cmd/mcsstheme/main.go"))
	assert.Equal(t, "main.go", relativeSource("main.go"))
}

func TestSensitiveAttributeRedaction(t *testing.T) {
	keys := []string{"password", "Password", "secret", "token", "TOKEN", "apikey", "api_key", "credential"}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			logger, buf := newTestLogger("info", "json")
			logger.Info("connect", slog.String(key, "hunter2"))

			assert.NotContains(t, buf.String(), "hunter2")
			assert.Contains(t, buf.String(), redactedValue)
		})
	}

	t.Run("inside group", func(t *testing.T) {
		logger, buf := newTestLogger("info", "json")
		logger.Info("connect", slog.Group("database",
			slog.String("driver", "postgres"),
			slog.String("password", "hunter2"),
		))
		assert.Contains(t, buf.String(), "postgres")
		assert.NotContains(t, buf.String(), "hunter2")
	})
}

func TestTokenAttributesNotRedacted(t *testing.T) {
	logger, buf := newTestLogger("info", "json")
	logger.Info("token resolved",
		slog.String("name", "colorBG-lighter"),
		slog.String("token_name", "colorAccent1"),
		slog.String("value", "90%"),
	)

	assert.Contains(t, buf.String(), "colorBG-lighter")
	assert.Contains(t, buf.String(), "colorAccent1")
	assert.NotContains(t, buf.String(), redactedValue)
}

func TestTaggedStructRedaction(t *testing.T) {
	logger, buf := newTestLogger("info", "json")
	db := config.DatabaseConfig{Driver: "postgres", DSN: "postgres://admin:hunter2@db/mcsstheme"}
	logger.Info("database configured", slog.Any("database", db))

	assert.Contains(t, buf.String(), "postgres")
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"no params", "no params"},
		{"host=db password=x", "host=db password=x"},
		{"https://x/?token=abc&a=1", "https://x/?token=[REDACTED]&a=1"},
		{"mysql://db/themes?charset=utf8&password=pw", "mysql://db/themes?charset=utf8&password=[REDACTED]"},
		{"https://x/?API_KEY=k&secret=s", "https://x/?API_KEY=[REDACTED]&secret=[REDACTED]"},
		{"/api/v1/themes/m-light-sepia.css?v=2", "/api/v1/themes/m-light-sepia.css?v=2"},
		{"token=abc&group=header", "token=[REDACTED]&group=header"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactURL(tt.in), tt.in)
	}
}

func TestLoggerEnrichment(t *testing.T) {
	logger, buf := newTestLogger("info", "json")
	WithComponent(WithApp(logger, "mcsstheme", "1.0.0"), "scheduler").Info("started")

	out := buf.String()
	assert.Contains(t, out, `"app":"mcsstheme"`)
	assert.Contains(t, out, `"version":"1.0.0"`)
	assert.Contains(t, out, `"component":"scheduler"`)
}

func TestRequestIDContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))

	ctx := ContextWithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
}

func TestTimedOperationWithError(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		logger, buf := newTestLogger("info", "json")
		var err error
		done := TimedOperationWithError(context.Background(), logger, "scheduled_snapshot", &err)
		done()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "operation started")
		assert.Contains(t, lines[1], "operation completed")
		assert.Contains(t, lines[1], `"duration"`)
	})

	t.Run("failure set after start", func(t *testing.T) {
		logger, buf := newTestLogger("info", "json")
		var err error
		done := TimedOperationWithError(context.Background(), logger, "scheduled_snapshot", &err)
		err = errors.New("theme not found")
		done()

		assert.Contains(t, buf.String(), "operation failed")
		assert.Contains(t, buf.String(), "theme not found")
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})
}
