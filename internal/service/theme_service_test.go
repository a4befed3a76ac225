package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

const customCSS = `/* Custom test theme */
:root {
  /* Colors */
  --base-l: 40%;
  --background-color: hsl(200, 50%, var(--base-l));
  --color: #000000;
}
`

const customYAML = `name: ocean
description: Ocean test theme
tokens:
  colors:
    base-l: 30%
    background-color: hsl(210, 60%, calc(var(--base-l) + 10%))
`

func testThemeConfig(t *testing.T) config.ThemeConfig {
	t.Helper()
	return config.ThemeConfig{
		Default:     "m-light-sepia",
		DataDir:     t.TempDir(),
		MaxFileSize: 100 * 1024,
		ColorFormat: "preserve",
	}
}

func setupThemeService(t *testing.T) *ThemeService {
	t.Helper()
	return NewThemeService(testThemeConfig(t))
}

func writeCustomTheme(t *testing.T, svc *ThemeService, name, content string) string {
	t.Helper()
	require.NoError(t, svc.EnsureThemesDirectory())
	path := filepath.Join(svc.cfg.ThemesDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestThemeService_ListThemes_BuiltinThemesReturned(t *testing.T) {
	svc := setupThemeService(t)

	resp, err := svc.ListThemes(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "m-light-sepia", resp.Default)

	require.Len(t, resp.Themes, 1)
	sepia := resp.Themes[0]
	assert.Equal(t, "m-light-sepia", sepia.ID)
	assert.Equal(t, "M Light Sepia", sepia.Name)
	assert.Equal(t, models.ThemeSourceBuiltin, sepia.Source)
	assert.Equal(t, "css", sepia.Format)
	assert.NotEmpty(t, sepia.Description)
	assert.Greater(t, sepia.TokenCount, 100)
	assert.Contains(t, sepia.Groups, "base-colors")
	require.NotEmpty(t, sepia.Swatches)
	assert.Equal(t, models.ThemeSwatch{Token: "background-color", Value: "hsl(38, 47%, 80%)"}, sepia.Swatches[0])
}

func TestThemeService_GetTheme(t *testing.T) {
	svc := setupThemeService(t)

	info, err := svc.GetTheme(context.Background(), "m-light-sepia")
	require.NoError(t, err)
	assert.Equal(t, "M Light Sepia", info.Name)
	assert.Greater(t, info.TokenCount, 100)

	_, err = svc.GetTheme(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrThemeNotFound)
}

func TestThemeService_GetThemeFile_BuiltinTheme(t *testing.T) {
	svc := setupThemeService(t)

	file, err := svc.GetThemeFile(context.Background(), "m-light-sepia")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeSourceBuiltin, file.Source)
	assert.Equal(t, "css", file.Format)
	assert.True(t, file.ModifiedAt.IsZero())
	assert.Contains(t, string(file.Content), ":root")
}

func TestThemeService_GetThemeFile_Errors(t *testing.T) {
	svc := setupThemeService(t)

	tests := []struct {
		name    string
		themeID string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "not found",
			themeID: "nonexistent-theme-xyz",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, models.ErrThemeNotFound)
			},
		},
		{
			name:    "path traversal",
			themeID: "../etc/passwd",
			check: func(t *testing.T, err error) {
				var verr models.ErrValidation
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "theme_id", verr.Field)
			},
		},
		{
			name:    "empty",
			themeID: "",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "invalid theme ID format")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetThemeFile(context.Background(), tt.themeID)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestThemeService_CustomThemeOverridesBuiltin(t *testing.T) {
	svc := setupThemeService(t)
	writeCustomTheme(t, svc, "m-light-sepia.css", customCSS)
	ctx := context.Background()

	file, err := svc.GetThemeFile(ctx, "m-light-sepia")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeSourceCustom, file.Source)
	assert.False(t, file.ModifiedAt.IsZero())

	resp, err := svc.ListThemes(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Themes, 1)
	assert.Equal(t, models.ThemeSourceCustom, resp.Themes[0].Source)
	assert.Equal(t, "M Light Sepia", resp.Themes[0].Name)
	assert.Equal(t, 3, resp.Themes[0].TokenCount)
}

func TestThemeService_ListThemes_IncludesCustomThemes(t *testing.T) {
	svc := setupThemeService(t)
	writeCustomTheme(t, svc, "my_custom-theme.css", customCSS)
	writeCustomTheme(t, svc, "ocean.yaml", customYAML)

	resp, err := svc.ListThemes(context.Background())
	require.NoError(t, err)

	byID := make(map[string]models.Theme)
	for _, th := range resp.Themes {
		byID[th.ID] = th
	}
	require.Contains(t, byID, "my_custom-theme")
	require.Contains(t, byID, "ocean")
	require.Contains(t, byID, "m-light-sepia")

	custom := byID["my_custom-theme"]
	assert.Equal(t, "My Custom Theme", custom.Name)
	assert.Equal(t, "Custom test theme", custom.Description)
	assert.Equal(t, models.ThemeSourceCustom, custom.Source)
	assert.Equal(t, []string{"colors"}, custom.Groups)
	assert.Contains(t, custom.Swatches, models.ThemeSwatch{Token: "background-color", Value: "hsl(200, 50%, 40%)"})

	ocean := byID["ocean"]
	assert.Equal(t, "yaml", ocean.Format)
	assert.Equal(t, "Ocean test theme", ocean.Description)
	assert.Contains(t, ocean.Swatches, models.ThemeSwatch{Token: "background-color", Value: "hsl(210, 60%, 40%)"})
}

func TestThemeService_UppercaseExtension(t *testing.T) {
	svc := setupThemeService(t)
	writeCustomTheme(t, svc, "Harbor.CSS", customCSS)
	writeCustomTheme(t, svc, "Dunes.YML", customYAML)
	ctx := context.Background()

	file, err := svc.GetThemeFile(ctx, "Harbor")
	require.NoError(t, err)
	assert.Equal(t, "css", file.Format)
	assert.Equal(t, models.ThemeSourceCustom, file.Source)

	t.Run("listed and loadable", func(t *testing.T) {
		resp, err := svc.ListThemes(ctx)
		require.NoError(t, err)

		var ids []string
		for _, th := range resp.Themes {
			ids = append(ids, th.ID)
		}
		assert.ElementsMatch(t, []string{"m-light-sepia", "Harbor", "Dunes"}, ids)

		got, err := svc.GetToken(ctx, "Dunes", "background-color", "")
		require.NoError(t, err)
		assert.Equal(t, "hsl(210, 60%, 40%)", got)
	})

	t.Run("id must match exactly", func(t *testing.T) {
		_, err := svc.GetThemeFile(ctx, "harbor")
		assert.ErrorIs(t, err, models.ErrThemeNotFound)
	})
}

func TestThemeService_ListThemes_SkipsInvalidCustomThemes(t *testing.T) {
	svc := setupThemeService(t)
	writeCustomTheme(t, svc, "broken.css", ":root { --a: calc(1px +; }")
	writeCustomTheme(t, svc, "cyclic.css", ":root { --a: var(--b); --b: var(--a); }")
	writeCustomTheme(t, svc, "bad name.css", customCSS)
	writeCustomTheme(t, svc, "notes.txt", "not a theme")
	writeCustomTheme(t, svc, "huge.css", ":root {\n"+strings.Repeat("  --pad: 1px;\n", 10000)+"}\n")

	resp, err := svc.ListThemes(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Themes, 1)
	assert.Equal(t, "m-light-sepia", resp.Themes[0].ID)
}

func TestThemeService_ListThemes_NoCustomThemesDirectory(t *testing.T) {
	svc := setupThemeService(t)

	_, err := os.Stat(svc.cfg.ThemesDir())
	require.True(t, os.IsNotExist(err))

	resp, err := svc.ListThemes(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.Themes, 1)
}

func TestThemeService_GetThemeFile_SizeLimit(t *testing.T) {
	cfg := testThemeConfig(t)
	cfg.MaxFileSize = 64
	svc := NewThemeService(cfg)
	writeCustomTheme(t, svc, "big.css", customCSS)

	_, err := svc.GetThemeFile(context.Background(), "big")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeding the 64 B limit")
}

func TestThemeService_Resolve(t *testing.T) {
	svc := setupThemeService(t)
	ctx := context.Background()

	tests := []struct {
		colorFormat string
		token       string
		expected    string
	}{
		{"", "colorBG", "hsl(38, 47%, 80%)"},
		{"preserve", "colorBG-l-lighter", "90%"},
		{"preserve", "colorBG-l-darker", "30%"},
		{"preserve", "colorAccent1-h", "158"},
		{"preserve", "colorAccent2-h", "278"},
		{"hex", "colorBG", "#e4d2b4"},
	}

	for _, tt := range tests {
		t.Run(tt.colorFormat+"/"+tt.token, func(t *testing.T) {
			resolved, err := svc.Resolve(ctx, "m-light-sepia", tt.colorFormat)
			require.NoError(t, err)
			got, err := resolved.Get(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestThemeService_Resolve_Cache(t *testing.T) {
	svc := setupThemeService(t)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "m-light-sepia", "")
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, "m-light-sepia", "preserve")
	require.NoError(t, err)
	assert.Same(t, first, second)

	hex, err := svc.Resolve(ctx, "m-light-sepia", "hex")
	require.NoError(t, err)
	assert.NotSame(t, first, hex)
}

func TestThemeService_Resolve_CacheInvalidatedOnChange(t *testing.T) {
	svc := setupThemeService(t)
	ctx := context.Background()
	path := writeCustomTheme(t, svc, "live.css", ":root { --a: 1px; }")

	resolved, err := svc.Resolve(ctx, "live", "")
	require.NoError(t, err)
	got, err := resolved.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1px", got)

	require.NoError(t, os.WriteFile(path, []byte(":root { --a: 2px; }"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	resolved, err = svc.Resolve(ctx, "live", "")
	require.NoError(t, err)
	got, err = resolved.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2px", got)
}

func TestThemeService_Resolve_Errors(t *testing.T) {
	svc := setupThemeService(t)
	ctx := context.Background()
	writeCustomTheme(t, svc, "cyclic.css", ":root { --a: var(--b); --b: var(--a); }")
	writeCustomTheme(t, svc, "dangling.css", ":root { --a: var(--missing); }")

	_, err := svc.Resolve(ctx, "cyclic", "")
	assert.ErrorIs(t, err, theme.ErrCyclicDependency)

	_, err = svc.Resolve(ctx, "dangling", "")
	assert.ErrorIs(t, err, theme.ErrUndefinedToken)

	_, err = svc.Resolve(ctx, "m-light-sepia", "cmyk")
	var verr models.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "color_format", verr.Field)
}

func TestThemeService_GetToken(t *testing.T) {
	svc := setupThemeService(t)
	ctx := context.Background()

	got, err := svc.GetToken(ctx, "m-light-sepia", "--colorAccent2-h", "")
	require.NoError(t, err)
	assert.Equal(t, "278", got)

	got, err = svc.GetToken(ctx, "m-light-sepia", "colorBG", "hex")
	require.NoError(t, err)
	assert.Equal(t, "#e4d2b4", got)

	_, err = svc.GetToken(ctx, "m-light-sepia", "no-such-token", "")
	assert.ErrorIs(t, err, theme.ErrUndefinedToken)
}

func TestThemeService_Order(t *testing.T) {
	svc := setupThemeService(t)
	writeCustomTheme(t, svc, "ordered.css", ":root { --c: var(--b); --b: var(--a); --a: 1px; --d: 2px; }")

	order, err := svc.Order(context.Background(), "ordered")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestThemeService_ValidateTheme(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		format  string
		src     string
		wantErr error
	}{
		{name: "valid css", format: "css", src: customCSS},
		{name: "valid yaml", format: "yaml", src: customYAML},
		{name: "malformed", format: "css", src: ":root { --a: calc(; }", wantErr: theme.ErrMalformedValue},
		{name: "cyclic", format: "css", src: ":root { --a: var(--a); }", wantErr: theme.ErrCyclicDependency},
		{name: "undefined", format: "css", src: ":root { --a: var(--b); }", wantErr: theme.ErrUndefinedToken},
		{name: "strict missing tokens", strict: true, format: "css", src: customCSS, wantErr: theme.ErrUndefinedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testThemeConfig(t)
			cfg.Strict = tt.strict
			svc := NewThemeService(cfg)

			th, err := svc.ValidateTheme("candidate", tt.format, []byte(tt.src))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, th.Len())
		})
	}
}

func TestThemeService_ValidateTheme_UnknownFormat(t *testing.T) {
	svc := setupThemeService(t)

	_, err := svc.ValidateTheme("candidate", "toml", []byte("a = 1"))
	var verr models.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "format", verr.Field)
}

func TestThemeService_Export(t *testing.T) {
	svc := setupThemeService(t)
	ctx := context.Background()

	var declared bytes.Buffer
	require.NoError(t, svc.Export(ctx, &declared, "m-light-sepia", theme.FormatCSS, false, ""))
	assert.Contains(t, declared.String(), "--colorBG-l-lighter: calc(var(--colorBG-l) + var(--lighten-percent));")

	var resolved bytes.Buffer
	require.NoError(t, svc.Export(ctx, &resolved, "m-light-sepia", theme.FormatCSS, true, "hex"))
	assert.Contains(t, resolved.String(), "--colorBG: #e4d2b4;")
	assert.Contains(t, resolved.String(), "(resolved)")

	var again bytes.Buffer
	require.NoError(t, svc.Export(ctx, &again, "m-light-sepia", theme.FormatCSS, true, "hex"))
	assert.Equal(t, resolved.String(), again.String())
}

func TestThemeService_FormatThemeName(t *testing.T) {
	svc := setupThemeService(t)

	tests := []struct {
		input    string
		expected string
	}{
		{"m-light-sepia", "M Light Sepia"},
		{"my_theme", "My Theme"},
		{"dark-mode_v2", "Dark Mode V2"},
		{"simple", "Simple"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.formatThemeName(tt.input))
		})
	}
}

func TestThemeService_EnsureThemesDirectory(t *testing.T) {
	svc := setupThemeService(t)

	require.NoError(t, svc.EnsureThemesDirectory())
	info, err := os.Stat(svc.cfg.ThemesDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	require.NoError(t, svc.EnsureThemesDirectory())
}

func TestThemeService_IsBuiltinTheme(t *testing.T) {
	svc := setupThemeService(t)

	assert.True(t, svc.IsBuiltinTheme("m-light-sepia"))
	assert.False(t, svc.IsBuiltinTheme("ocean"))
}

func TestThemeService_LoadFile(t *testing.T) {
	svc := setupThemeService(t)
	dir := t.TempDir()

	cssPath := filepath.Join(dir, "probe.css")
	require.NoError(t, os.WriteFile(cssPath, []byte(customCSS), 0o644))
	yamlPath := filepath.Join(dir, "ocean.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(customYAML), 0o644))
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("--a: 1px;"), 0o644))

	t.Run("css", func(t *testing.T) {
		th, err := svc.LoadFile(cssPath)
		require.NoError(t, err)
		assert.Equal(t, "probe", th.Name())

		resolved, err := svc.ResolveTheme(th, "")
		require.NoError(t, err)
		value, err := resolved.Get("background-color")
		require.NoError(t, err)
		assert.Equal(t, "hsl(200, 50%, 40%)", value)
	})

	t.Run("yaml", func(t *testing.T) {
		th, err := svc.LoadFile(yamlPath)
		require.NoError(t, err)

		resolved, err := svc.ResolveTheme(th, "preserve")
		require.NoError(t, err)
		value, err := resolved.Get("background-color")
		require.NoError(t, err)
		assert.Equal(t, "hsl(210, 60%, 40%)", value)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := svc.LoadFile(txtPath)
		var verr models.ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "path", verr.Field)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := svc.LoadFile(filepath.Join(dir, "missing.css"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad color format", func(t *testing.T) {
		th, err := svc.LoadFile(cssPath)
		require.NoError(t, err)
		_, err = svc.ResolveTheme(th, "rgb")
		var verr models.ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "color_format", verr.Field)
	})
}
