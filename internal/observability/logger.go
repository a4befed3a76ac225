// Package observability provides structured logging for mcsstheme.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/m-mizutani/masq"
)

// LevelTrace is more verbose than debug. Used for per-token resolution detail.
const LevelTrace = slog.Level(-8)

// redactedValue replaces sensitive attribute values.
const redactedValue = "[REDACTED]"

// sensitiveKeys are attribute keys whose values are always redacted.
// Matching is exact and case-insensitive, so "token_name" is not affected.
var sensitiveKeys = map[string]bool{
	"password":   true,
	"secret":     true,
	"token":      true,
	"apikey":     true,
	"api_key":    true,
	"credential": true,
}

// sensitiveParamPattern matches sensitive query parameters inside URLs and DSNs.
var sensitiveParamPattern = regexp.MustCompile(`(?i)((?:^|[?&])(?:password|secret|token|apikey|api_key|credential)=)[^&#\s"]*`)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"
)

// NewLoggerWithWriter creates a slog.Logger writing JSON or text to w at the
// configured level. Sensitive attributes are redacted.
func NewLoggerWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)

	// Struct fields tagged `masq:"secret"` are redacted wherever they are logged.
	redactStructs := masq.New(masq.WithTag("secret", masq.RedactString(func(string) string {
		return redactedValue
	})))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch {
			case len(groups) == 0 && a.Key == slog.TimeKey:
				// Customize time format if specified
				if cfg.TimeFormat != "" {
					if t, ok := a.Value.Any().(time.Time); ok {
						return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
					}
				}
				return a
			case len(groups) == 0 && a.Key == slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
				return a
			case len(groups) == 0 && a.Key == slog.SourceKey:
				if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String("logpos", fmt.Sprintf("%s:%d", relativeSource(src.File), src.Line))
				}
				return a
			}

			if sensitiveKeys[strings.ToLower(a.Key)] {
				return slog.String(a.Key, redactedValue)
			}
			if a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, RedactURL(a.Value.String()))
			}
			if a.Value.Kind() == slog.KindAny {
				return redactStructs(groups, a)
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		// Default to JSON if format is unknown
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// RedactURL replaces the values of sensitive query parameters in s.
func RedactURL(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return sensitiveParamPattern.ReplaceAllString(s, "${1}"+redactedValue)
}

// relativeSource trims a source path to its module-relative form.
func relativeSource(file string) string {
	for _, marker := range []string{"/internal/", "/cmd/"} {
		if idx := strings.Index(file, marker); idx >= 0 {
			return file[idx+1:]
		}
	}
	return file
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch level {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent adds a component name to the logger for identifying the source.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithApp adds the application name and version to the logger.
func WithApp(logger *slog.Logger, name, version string) *slog.Logger {
	return logger.With(slog.String("app", name), slog.String("version", version))
}

// RequestIDFromContext extracts a request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// SetDefault sets the provided logger as the default slog logger.
// This affects all code using slog.Info(), slog.Error(), etc. without a specific logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// TimedOperationWithError logs the start of an operation and returns a
// function that logs its completion or failure with the elapsed time. errPtr
// is read when the returned function runs.
//
// Usage:
//
//	var err error
//	done := observability.TimedOperationWithError(ctx, logger, "snapshot_theme", &err)
//	defer done()
//	err = doSomething()
//
//nolint:gocritic // errPtr must be a pointer to capture errors set after this call
func TimedOperationWithError(ctx context.Context, logger *slog.Logger, operation string, errPtr *error) func() {
	start := time.Now()
	logger.InfoContext(ctx, "operation started", slog.String("operation", operation))

	return func() {
		duration := time.Since(start)
		if errPtr != nil && *errPtr != nil {
			logger.ErrorContext(ctx, "operation failed",
				slog.String("operation", operation),
				slog.Duration("duration", duration),
				slog.String("error", (*errPtr).Error()),
			)
		} else {
			logger.InfoContext(ctx, "operation completed",
				slog.String("operation", operation),
				slog.Duration("duration", duration),
			)
		}
	}
}
