package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jmylchreest/mcsstheme/internal/assets"
	"github.com/jmylchreest/mcsstheme/internal/config"
	"github.com/jmylchreest/mcsstheme/internal/expression"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

var (
	// themeIDPattern validates theme ids, which double as file names.
	themeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// themeExtensions lists the accepted custom theme file extensions, in
	// lookup order.
	themeExtensions = []string{".css", ".yaml", ".yml"}
)

// ThemeFile is the raw source of a theme.
type ThemeFile struct {
	ID         string
	Content    []byte
	Source     models.ThemeSource
	Format     string
	ModifiedAt time.Time
}

// resolvedEntry is a cached resolution, valid while the file is unchanged.
type resolvedEntry struct {
	modifiedAt time.Time
	resolved   *theme.Resolved
}

// ThemeService provides theme management functionality.
type ThemeService struct {
	cfg    config.ThemeConfig
	logger *slog.Logger

	// cache maps id + color format to *resolvedEntry.
	cache sync.Map
}

// NewThemeService creates a new theme service.
func NewThemeService(cfg config.ThemeConfig) *ThemeService {
	return &ThemeService{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the service.
func (s *ThemeService) WithLogger(logger *slog.Logger) *ThemeService {
	s.logger = logger
	return s
}

// DefaultThemeID returns the configured default theme id.
func (s *ThemeService) DefaultThemeID() string {
	return s.cfg.Default
}

// DefaultColorFormat returns the configured color format.
func (s *ThemeService) DefaultColorFormat() string {
	return s.cfg.ColorFormat
}

// ListThemes returns all available themes (built-in and custom). A custom
// theme with the id of a builtin one replaces it.
func (s *ThemeService) ListThemes(ctx context.Context) (*models.ThemeListResponse, error) {
	builtinThemes, err := s.loadBuiltinThemes(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load built-in themes", slog.String("error", err.Error()))
	}

	customThemes, err := s.loadCustomThemes(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load custom themes", slog.String("error", err.Error()))
	}

	overridden := make(map[string]bool, len(customThemes))
	for _, t := range customThemes {
		overridden[t.ID] = true
	}

	themes := make([]models.Theme, 0, len(builtinThemes)+len(customThemes))
	for _, t := range builtinThemes {
		if !overridden[t.ID] {
			themes = append(themes, t)
		}
	}
	themes = append(themes, customThemes...)

	return &models.ThemeListResponse{
		Themes:  themes,
		Default: s.cfg.Default,
	}, nil
}

// GetTheme returns the catalogue entry of a single theme.
func (s *ThemeService) GetTheme(ctx context.Context, themeID string) (*models.Theme, error) {
	file, err := s.GetThemeFile(ctx, themeID)
	if err != nil {
		return nil, err
	}
	return s.describe(file)
}

// GetThemeFile returns the source of a theme. Custom themes take precedence
// over built-in ones.
func (s *ThemeService) GetThemeFile(ctx context.Context, themeID string) (*ThemeFile, error) {
	if err := ValidateThemeID(themeID); err != nil {
		return nil, err
	}

	if path, format := s.customThemePath(themeID); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat theme %s: %w", themeID, err)
		}
		if info.Size() > s.cfg.MaxFileSize.Bytes() {
			return nil, models.ErrValidation{
				Field:   "theme",
				Message: fmt.Sprintf("%s is %s, exceeding the %s limit", filepath.Base(path), config.ByteSize(info.Size()), s.cfg.MaxFileSize),
			}
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading theme %s: %w", themeID, err)
		}
		s.logger.DebugContext(ctx, "loaded custom theme",
			slog.String("theme_id", themeID),
			slog.String("path", path))
		return &ThemeFile{
			ID:         themeID,
			Content:    content,
			Source:     models.ThemeSourceCustom,
			Format:     format,
			ModifiedAt: info.ModTime(),
		}, nil
	}

	themesFS, err := assets.GetThemesFS()
	if err != nil {
		return nil, fmt.Errorf("failed to access built-in themes: %w", err)
	}
	content, err := fs.ReadFile(themesFS, themeID+".css")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrThemeNotFound, themeID)
	}

	return &ThemeFile{
		ID:      themeID,
		Content: content,
		Source:  models.ThemeSourceBuiltin,
		Format:  "css",
	}, nil
}

// Load parses a theme by id.
func (s *ThemeService) Load(ctx context.Context, themeID string) (*theme.Theme, error) {
	file, err := s.GetThemeFile(ctx, themeID)
	if err != nil {
		return nil, err
	}
	return s.parseFile(file)
}

// LoadFile parses a theme file from an arbitrary path. The format follows
// the file extension and the configured size limit applies.
func (s *ThemeService) LoadFile(path string) (*theme.Theme, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !isThemeExtension(ext) {
		return nil, models.ErrValidation{Field: "path", Message: fmt.Sprintf("%s: theme files must end in .css, .yaml or .yml", path)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat theme file: %w", err)
	}
	if info.Size() > s.cfg.MaxFileSize.Bytes() {
		return nil, models.ErrValidation{
			Field:   "path",
			Message: fmt.Sprintf("%s is %s, exceeding the %s limit", filepath.Base(path), config.ByteSize(info.Size()), s.cfg.MaxFileSize),
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := parseSource(name, strings.TrimPrefix(ext, "."), content)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", name, err)
	}
	return t, nil
}

// ResolveTheme evaluates an already parsed theme. Results are not cached.
func (s *ThemeService) ResolveTheme(t *theme.Theme, colorFormat string) (*theme.Resolved, error) {
	format, err := s.colorFormat(colorFormat)
	if err != nil {
		return nil, err
	}
	return t.ResolveAll(theme.WithColorFormat(format))
}

// Resolve evaluates every token of a theme. Results are cached until the
// theme file changes. An empty colorFormat uses the configured one.
func (s *ThemeService) Resolve(ctx context.Context, themeID, colorFormat string) (*theme.Resolved, error) {
	format, err := s.colorFormat(colorFormat)
	if err != nil {
		return nil, err
	}

	file, err := s.GetThemeFile(ctx, themeID)
	if err != nil {
		return nil, err
	}

	key := themeID + "|" + string(format)
	if cached, ok := s.cache.Load(key); ok {
		entry := cached.(*resolvedEntry)
		if entry.modifiedAt.Equal(file.ModifiedAt) {
			return entry.resolved, nil
		}
	}

	t, err := s.parseFile(file)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resolved, err := t.ResolveAll(theme.WithColorFormat(format))
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "resolved theme",
		slog.String("theme_id", themeID),
		slog.String("color_format", string(format)),
		slog.Int("tokens", resolved.Len()),
		slog.Duration("duration", time.Since(start)))

	s.cache.Store(key, &resolvedEntry{modifiedAt: file.ModifiedAt, resolved: resolved})
	return resolved, nil
}

// GetToken returns the computed value of a single token.
func (s *ThemeService) GetToken(ctx context.Context, themeID, name, colorFormat string) (string, error) {
	format, err := s.colorFormat(colorFormat)
	if err != nil {
		return "", err
	}
	t, err := s.Load(ctx, themeID)
	if err != nil {
		return "", err
	}
	return t.Get(name, theme.WithColorFormat(format))
}

// Order returns the evaluation order of a theme.
func (s *ThemeService) Order(ctx context.Context, themeID string) ([]string, error) {
	t, err := s.Load(ctx, themeID)
	if err != nil {
		return nil, err
	}
	return t.EvaluationOrder()
}

// ValidateTheme parses and checks a theme source without storing it. In
// strict mode the theme must also declare every m.css token.
func (s *ThemeService) ValidateTheme(name, format string, src []byte) (*theme.Theme, error) {
	t, err := parseSource(name, format, src)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.Strict {
		if err := theme.CheckSchema(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Export writes a theme in the given format, resolved or as declared.
func (s *ThemeService) Export(ctx context.Context, w io.Writer, themeID string, format theme.ExportFormat, resolve bool, colorFormat string) error {
	if !resolve {
		t, err := s.Load(ctx, themeID)
		if err != nil {
			return err
		}
		return theme.Export(w, t, nil, format)
	}

	resolved, err := s.Resolve(ctx, themeID, colorFormat)
	if err != nil {
		return err
	}
	return theme.Export(w, resolved.Theme(), resolved, format)
}

// Swatches returns the preview colors of a resolved theme. Tokens the theme
// does not declare are skipped.
func Swatches(resolved *theme.Resolved) []models.ThemeSwatch {
	swatches := make([]models.ThemeSwatch, 0, len(models.SwatchTokens))
	for _, name := range models.SwatchTokens {
		value, err := resolved.Get(name)
		if err != nil {
			continue
		}
		swatches = append(swatches, models.ThemeSwatch{Token: name, Value: value})
	}
	return swatches
}

// ThemesDir returns the directory custom themes are loaded from.
func (s *ThemeService) ThemesDir() string {
	return s.cfg.ThemesDir()
}

// EnsureThemesDirectory creates the custom themes directory if it doesn't exist.
func (s *ThemeService) EnsureThemesDirectory() error {
	return os.MkdirAll(s.cfg.ThemesDir(), 0o755)
}

// IsBuiltinTheme returns true if the theme ID is a built-in theme.
func (s *ThemeService) IsBuiltinTheme(themeID string) bool {
	themesFS, err := assets.GetThemesFS()
	if err != nil {
		return false
	}

	_, err = fs.Stat(themesFS, themeID+".css")
	return err == nil
}

// ValidateThemeID rejects ids that are not plain file names.
func ValidateThemeID(themeID string) error {
	if !themeIDPattern.MatchString(themeID) {
		return models.ErrValidation{Field: "theme_id", Message: fmt.Sprintf("invalid theme ID format: %q", themeID)}
	}
	return nil
}

func (s *ThemeService) colorFormat(name string) (expression.ColorFormat, error) {
	if name == "" {
		name = s.cfg.ColorFormat
	}
	if name == "" {
		return expression.ColorPreserve, nil
	}
	format, ok := expression.ParseColorFormat(name)
	if !ok {
		return "", models.ErrValidation{Field: "color_format", Message: fmt.Sprintf("unknown color format %q: must be preserve or hex", name)}
	}
	return format, nil
}

func (s *ThemeService) parseFile(file *ThemeFile) (*theme.Theme, error) {
	t, err := parseSource(file.ID, file.Format, file.Content)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", file.ID, err)
	}
	return t, nil
}

func parseSource(name, format string, src []byte) (*theme.Theme, error) {
	switch strings.ToLower(format) {
	case "", "css":
		return theme.ParseCSS(name, src)
	case "yaml", "yml":
		return theme.ParseYAML(name, src)
	default:
		return nil, models.ErrValidation{Field: "format", Message: fmt.Sprintf("unknown theme format %q: must be css or yaml", format)}
	}
}

// loadBuiltinThemes loads themes from the embedded filesystem.
func (s *ThemeService) loadBuiltinThemes(ctx context.Context) ([]models.Theme, error) {
	themesFS, err := assets.GetThemesFS()
	if err != nil {
		return nil, fmt.Errorf("failed to access built-in themes: %w", err)
	}

	metadataMap := make(map[string]models.ThemeMetadata)
	if jsonData, err := fs.ReadFile(themesFS, "themes.json"); err == nil {
		var themesJSON models.ThemesJSON
		if err := json.Unmarshal(jsonData, &themesJSON); err != nil {
			s.logger.WarnContext(ctx, "invalid themes.json", slog.String("error", err.Error()))
		}
		for _, m := range themesJSON.Themes {
			metadataMap[m.ID] = m
		}
	}

	files, err := assets.ListThemeFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	themes := make([]models.Theme, 0, len(files))
	for _, name := range files {
		themeID := strings.TrimSuffix(name, ".css")
		content, err := fs.ReadFile(themesFS, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		info, err := s.describe(&ThemeFile{
			ID:      themeID,
			Content: content,
			Source:  models.ThemeSourceBuiltin,
			Format:  "css",
		})
		if err != nil {
			s.logger.WarnContext(ctx, "invalid built-in theme",
				slog.String("theme_id", themeID),
				slog.String("error", err.Error()))
			continue
		}
		if meta, ok := metadataMap[themeID]; ok {
			info.Name = meta.Name
			if meta.Description != "" {
				info.Description = meta.Description
			}
		}
		themes = append(themes, *info)
	}

	return themes, nil
}

// loadCustomThemes loads themes from the custom themes directory. Invalid
// files are logged and skipped.
func (s *ThemeService) loadCustomThemes(ctx context.Context) ([]models.Theme, error) {
	themesDir := s.cfg.ThemesDir()

	info, err := os.Stat(themesDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access themes directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("themes path is not a directory")
	}

	entries, err := os.ReadDir(themesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	seen := make(map[string]bool)
	themes := make([]models.Theme, 0)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !isThemeExtension(ext) {
			continue
		}

		themeID := strings.TrimSuffix(entry.Name(), ext)
		if err := ValidateThemeID(themeID); err != nil {
			s.logger.WarnContext(ctx, "skipping invalid theme filename",
				slog.String("filename", entry.Name()))
			continue
		}
		if seen[themeID] {
			continue
		}
		seen[themeID] = true

		file, err := s.GetThemeFile(ctx, themeID)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping theme file",
				slog.String("filename", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}

		t, err := s.describe(file)
		if err != nil {
			s.logger.WarnContext(ctx, "invalid theme file",
				slog.String("filename", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}
		themes = append(themes, *t)
	}

	return themes, nil
}

// describe parses and resolves a theme file into its catalogue entry.
func (s *ThemeService) describe(file *ThemeFile) (*models.Theme, error) {
	t, err := s.parseFile(file)
	if err != nil {
		return nil, err
	}
	if file.Source == models.ThemeSourceCustom && s.cfg.Strict {
		if err := theme.CheckSchema(t); err != nil {
			return nil, err
		}
	}

	info := &models.Theme{
		ID:          file.ID,
		Name:        s.formatThemeName(file.ID),
		Description: t.Description(),
		Source:      file.Source,
		Format:      file.Format,
		TokenCount:  t.Len(),
		Groups:      t.Groups(),
		ModifiedAt:  file.ModifiedAt,
	}

	format, err := s.colorFormat("")
	if err != nil {
		return nil, err
	}
	resolved, err := t.ResolveAll(theme.WithColorFormat(format))
	if err != nil {
		return nil, err
	}
	info.Swatches = Swatches(resolved)
	return info, nil
}

// customThemePath returns the path and format of a custom theme file, or an
// empty path if there is none. Extensions match case-insensitively, the same
// way loadCustomThemes lists them.
func (s *ThemeService) customThemePath(themeID string) (string, string) {
	entries, err := os.ReadDir(s.cfg.ThemesDir())
	if err != nil {
		return "", ""
	}

	byExt := make(map[string]string)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || strings.TrimSuffix(entry.Name(), ext) != themeID {
			continue
		}
		byExt[strings.ToLower(ext)] = entry.Name()
	}

	for _, ext := range themeExtensions {
		if name, ok := byExt[ext]; ok {
			return filepath.Join(s.cfg.ThemesDir(), name), strings.TrimPrefix(ext, ".")
		}
	}
	return "", ""
}

func isThemeExtension(ext string) bool {
	for _, e := range themeExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// formatThemeName converts a theme ID to a human-readable name.
func (s *ThemeService) formatThemeName(id string) string {
	name := strings.ReplaceAll(id, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return cases.Title(language.English).String(name)
}
