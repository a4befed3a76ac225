package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/http/handlers"
	"github.com/jmylchreest/mcsstheme/internal/version"
)

func newTestServer(t *testing.T, buf *bytes.Buffer) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, CORSOrigins: []string{"*"}}
	s := NewServer(cfg, logger, Options{RequestLogging: true, Version: "1.0.0"})
	handlers.NewHealthHandler("1.0.0").Register(s.API())
	return s
}

func TestServer_Routes(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, &buf)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, version.UserAgent(), rec.Header().Get("Server"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"path":"/livez"`)
}

func TestServer_OpenAPI(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, &buf)

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mcsstheme API")
	assert.Contains(t, rec.Body.String(), "getLivez")
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, &buf)
	assert.NoError(t, s.Shutdown(t.Context()))
}
