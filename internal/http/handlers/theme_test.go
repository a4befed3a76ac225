package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/http/handlers"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/service"
)

func newTestThemeService(t *testing.T) *service.ThemeService {
	t.Helper()
	return service.NewThemeService(config.ThemeConfig{
		Default:     "m-light-sepia",
		DataDir:     t.TempDir(),
		MaxFileSize: 100 * 1024,
		ColorFormat: "preserve",
	})
}

func writeTheme(t *testing.T, svc *service.ThemeService, name, content string) {
	t.Helper()
	require.NoError(t, svc.EnsureThemesDirectory())
	path := filepath.Join(svc.ThemesDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupThemeRouter(svc *service.ThemeService) *chi.Mux {
	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handler := handlers.NewThemeHandler(svc)
	handler.Register(api)
	handler.RegisterChiRoutes(router)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestThemeHandler_ListThemes(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/themes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ThemeListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "m-light-sepia", resp.Default)
	require.Len(t, resp.Themes, 1)
	assert.Equal(t, models.ThemeSourceBuiltin, resp.Themes[0].Source)
}

func TestThemeHandler_GetTheme(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info models.Theme
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "m-light-sepia", info.ID)
	assert.Equal(t, models.ThemeSourceBuiltin, info.Source)
	assert.NotEmpty(t, info.Swatches)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/themes/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThemeHandler_GetToken(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantValue  string
		wantRefs   []string
	}{
		{
			name:       "lighter lightness",
			path:       "/api/v1/themes/m-light-sepia/tokens/colorBG-l-lighter",
			wantStatus: http.StatusOK,
			wantValue:  "90%",
			wantRefs:   []string{"colorBG-l", "lighten-percent"},
		},
		{
			name:       "darker lightness",
			path:       "/api/v1/themes/m-light-sepia/tokens/colorBG-l-darker",
			wantStatus: http.StatusOK,
			wantValue:  "30%",
		},
		{
			name:       "first accent hue",
			path:       "/api/v1/themes/m-light-sepia/tokens/colorAccent1-h",
			wantStatus: http.StatusOK,
			wantValue:  "158",
		},
		{
			name:       "second accent hue",
			path:       "/api/v1/themes/m-light-sepia/tokens/colorAccent2-h",
			wantStatus: http.StatusOK,
			wantValue:  "278",
		},
		{
			name:       "hex color format",
			path:       "/api/v1/themes/m-light-sepia/tokens/background-color?color_format=hex",
			wantStatus: http.StatusOK,
			wantValue:  "#e4d2b4",
		},
		{
			name:       "undefined token",
			path:       "/api/v1/themes/m-light-sepia/tokens/no-such-token",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown theme",
			path:       "/api/v1/themes/missing/tokens/color",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid color format",
			path:       "/api/v1/themes/m-light-sepia/tokens/color?color_format=rgb",
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.path, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp handlers.TokenResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantValue, resp.Value)
			assert.True(t, resp.Derived)
			if tt.wantRefs != nil {
				assert.Equal(t, tt.wantRefs, resp.References)
			}
		})
	}
}

func TestThemeHandler_ListTokens(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	t.Run("all tokens", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia/tokens", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ResolvedTokensResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "m-light-sepia", resp.ThemeID)
		assert.Greater(t, len(resp.Tokens), 100)
		assert.Equal(t, "font", resp.Tokens[0].Name, "tokens are listed in declaration order")

		seen := make(map[string]bool, len(resp.Tokens))
		for _, e := range resp.Tokens {
			assert.False(t, seen[e.Name], "duplicate token %s", e.Name)
			seen[e.Name] = true
		}
		assert.True(t, seen["colorBG-h"])
	})

	t.Run("filtered by group", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia/tokens?group=base-colors", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ResolvedTokensResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.NotEmpty(t, resp.Tokens)
		for _, e := range resp.Tokens {
			assert.Equal(t, "base-colors", e.Group)
		}
	})
}

func TestThemeHandler_DanglingReference(t *testing.T) {
	svc := newTestThemeService(t)
	writeTheme(t, svc, "broken.css", ":root {\n  --a: var(--missing);\n  --b: 1px;\n}\n")
	writeTheme(t, svc, "loop.css", ":root {\n  --a: var(--b);\n  --b: var(--a);\n}\n")
	router := setupThemeRouter(svc)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"dangling reference resolves to 422", "/api/v1/themes/broken/tokens/a", http.StatusUnprocessableEntity},
		{"independent token still resolves", "/api/v1/themes/broken/tokens/b", http.StatusOK},
		{"cycle is 422", "/api/v1/themes/loop/tokens", http.StatusUnprocessableEntity},
		{"cycle order is 422", "/api/v1/themes/loop/order", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestThemeHandler_GetOrder(t *testing.T) {
	svc := newTestThemeService(t)
	writeTheme(t, svc, "chain.css", ":root {\n  --c: var(--b);\n  --b: var(--a);\n  --a: 1px;\n  --d: 2px;\n}\n")
	router := setupThemeRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/chain/order", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ThemeID string   `json:"theme_id"`
		Order   []string `json:"order"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"a", "b", "c", "d"}, resp.Order)
}

func TestThemeHandler_GetComponents(t *testing.T) {
	svc := newTestThemeService(t)
	writeTheme(t, svc, "tiny.css", ":root {\n  --color: #000;\n}\n")
	router := setupThemeRouter(svc)

	t.Run("full palette", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia/components", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Components []struct {
				Family string `json:"family"`
			} `json:"components"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Components, 7)
		assert.Equal(t, "default", resp.Components[0].Family)
		assert.Equal(t, "dim", resp.Components[6].Family)
	})

	t.Run("incomplete theme", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/tiny/components", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestThemeHandler_Export(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	tests := []struct {
		name        string
		query       string
		contentType string
		contains    string
	}{
		{"declared css", "", "text/css", "--colorBG-l-lighter: calc(var(--colorBG-l) + var(--lighten-percent));"},
		{"resolved css", "?resolved=true", "text/css", "--colorBG-l-lighter: 90%;"},
		{"resolved json", "?format=json&resolved=true", "application/json", `"value": "90%"`},
		{"yaml", "?format=yaml", "application/yaml", "colorBG-h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia/export"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), tt.contentType)
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "m-light-sepia.")
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestThemeHandler_Validate(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantOrder  []string
	}{
		{
			name:       "valid css",
			body:       `{"name":"probe","source":":root { --b: var(--a); --a: 1px; }"}`,
			wantStatus: http.StatusOK,
			wantOrder:  []string{"a", "b"},
		},
		{
			name:       "valid yaml",
			body:       `{"format":"yaml","source":"name: probe\ntokens:\n  sizes:\n    a: 2px\n"}`,
			wantStatus: http.StatusOK,
			wantOrder:  []string{"a"},
		},
		{
			name:       "cycle",
			body:       `{"source":":root { --a: var(--b); --b: var(--a); }"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed",
			body:       `{"source":":root { --a: calc(1px + ; }"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "empty source",
			body:       `{"source":""}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/themes/validate", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp handlers.ValidateResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.True(t, resp.Valid)
			assert.Equal(t, tt.wantOrder, resp.Order)
		})
	}
}

func TestThemeHandler_ServeCSS(t *testing.T) {
	router := setupThemeRouter(newTestThemeService(t))

	t.Run("declared stylesheet", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia.css", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
		assert.NotEmpty(t, rec.Header().Get("ETag"))
		assert.Contains(t, rec.Body.String(), "--colorBG-h: 38;")
	})

	t.Run("resolved stylesheet", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia.css?resolved=true", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "--colorAccent1-h: 158;")
	})

	t.Run("etag revalidation", func(t *testing.T) {
		first := doRequest(t, router, http.MethodGet, "/api/v1/themes/m-light-sepia.css", "")
		etag := first.Header().Get("ETag")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/themes/m-light-sepia.css", nil)
		req.Header.Set("If-None-Match", etag)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotModified, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("unknown theme", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/missing.css", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid theme id", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/themes/bad%20id.css", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
