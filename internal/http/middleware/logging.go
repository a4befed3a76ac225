package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/mcsstheme/internal/observability"
)

// NewLoggingMiddleware creates a logging middleware with the given logger.
// When requestLogging is false only failed requests are logged.
func NewLoggingMiddleware(logger *slog.Logger, requestLogging bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if !requestLogging && status < http.StatusBadRequest {
				return
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("size", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", GetRequestID(r.Context())),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", observability.RedactURL(r.URL.RawQuery)))
			}
			// Conditional stylesheet fetches answered from the client cache.
			if status == http.StatusNotModified {
				attrs = append(attrs, slog.String("etag", r.Header.Get("If-None-Match")))
			}

			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}
