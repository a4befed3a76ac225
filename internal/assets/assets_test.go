package assets

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"m-light-sepia.css", "text/css; charset=utf-8"},
		{"theme.json", "application/json; charset=utf-8"},
		{"theme.yaml", "application/yaml; charset=utf-8"},
		{"theme.YML", "application/yaml; charset=utf-8"},
		{"unknown", "application/octet-stream"},
		{"file.zzzunknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetContentType(tt.path))
		})
	}
}

func TestListThemeFiles(t *testing.T) {
	files, err := ListThemeFiles()
	require.NoError(t, err)
	assert.Contains(t, files, "m-light-sepia.css")
}

func TestThemesJSON(t *testing.T) {
	themesFS, err := GetThemesFS()
	require.NoError(t, err)

	data, err := fs.ReadFile(themesFS, "themes.json")
	require.NoError(t, err)

	var doc struct {
		Themes []struct {
			ID string `json:"id"`
		} `json:"themes"`
		Default string `json:"default"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "m-light-sepia", doc.Default)

	for _, theme := range doc.Themes {
		_, err := fs.Stat(themesFS, theme.ID+".css")
		assert.NoError(t, err, "metadata for %s has no stylesheet", theme.ID)
	}
}
