package models

import (
	"time"
)

// ThemeSource indicates where the theme comes from.
type ThemeSource string

const (
	// ThemeSourceBuiltin indicates a built-in theme embedded in the binary.
	ThemeSourceBuiltin ThemeSource = "builtin"
	// ThemeSourceCustom indicates a user-provided theme from $DATA/themes/.
	ThemeSourceCustom ThemeSource = "custom"
)

// ThemeSwatch is a resolved color token used for previews.
type ThemeSwatch struct {
	Token string `json:"token"`
	Value string `json:"value"`
}

// Theme describes a theme in the catalogue.
type Theme struct {
	// ID is the unique identifier (filename without extension).
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Description provides additional context about the theme.
	Description string `json:"description,omitempty"`

	// Source indicates whether this is a builtin or custom theme.
	Source ThemeSource `json:"source"`

	// Format is the file format the theme was declared in ("css" or "yaml").
	Format string `json:"format"`

	// TokenCount is the number of declared tokens.
	TokenCount int `json:"token_count"`

	// Groups lists the token groups in declaration order.
	Groups []string `json:"groups,omitempty"`

	// ModifiedAt is the file modification time (for custom themes and caching).
	ModifiedAt time.Time `json:"modified_at"`

	// Swatches holds resolved base colors for previews.
	Swatches []ThemeSwatch `json:"swatches,omitempty"`
}

// ThemeListResponse is the API response for listing themes.
type ThemeListResponse struct {
	Themes  []Theme `json:"themes"`
	Default string  `json:"default"`
}

// ThemeMetadata represents theme info from themes.json.
type ThemeMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ThemesJSON represents the structure of themes.json.
type ThemesJSON struct {
	Themes  []ThemeMetadata `json:"themes"`
	Default string          `json:"default"`
}

// SwatchTokens lists the tokens shown as theme preview swatches.
var SwatchTokens = []string{
	"background-color",
	"color",
	"link-color",
	"primary-color",
	"success-color",
	"warning-color",
	"danger-color",
	"info-color",
}
