// Package assets provides the theme presets embedded in the binary.
//
// Each preset is a stylesheet in themes/ declaring its tokens as custom
// properties on :root. themes/themes.json carries display metadata and the
// default preset id.
package assets

import (
	"embed"
	"io/fs"
	"mime"
	"path/filepath"
	"strings"
)

// ThemesFS embeds the builtin theme presets.
//
//go:embed themes/*.css themes/themes.json
var ThemesFS embed.FS

// GetThemesFS returns a sub-filesystem rooted at the themes directory.
func GetThemesFS() (fs.FS, error) {
	return fs.Sub(ThemesFS, "themes")
}

// ListThemeFiles returns the file names of all embedded presets.
func ListThemeFiles() ([]string, error) {
	var files []string

	err := fs.WalkDir(ThemesFS, "themes", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".css") {
			files = append(files, d.Name())
		}
		return nil
	})

	return files, err
}

// GetContentType returns the MIME type for a given file path based on extension.
func GetContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	switch strings.ToLower(ext) {
	case ".css":
		return "text/css; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".yaml", ".yml":
		return "application/yaml; charset=utf-8"
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
