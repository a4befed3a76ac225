package theme

import (
	"fmt"
	"strings"
)

// SchemaGroup lists the token names of one UI region.
type SchemaGroup struct {
	Name   string
	Tokens []string
}

// Component families, in the order the stylesheet declares them.
var Families = []string{"default", "primary", "success", "warning", "danger", "info", "dim"}

// componentSuffixes are the per-family token suffixes.
var componentSuffixes = []string{
	"color",
	"link-active-color",
	"filled-color",
	"filled-background-color",
	"filled-link-color",
	"filled-link-active-color",
}

var schema = []SchemaGroup{
	{Name: "text", Tokens: []string{
		"font", "code-font", "font-size", "code-font-size", "line-height",
		"paragraph-indent", "paragraph-align",
		"link-decoration", "link-decoration-nav", "link-decoration-heading",
		"nav-brand-case", "nav-menu-case", "nav-heading-case", "nav-categories-case",
		"landing-header-case", "heading-font-weight",
	}},
	{Name: "shapes", Tokens: []string{"border-radius"}},
	{Name: "base-colors", Tokens: []string{
		"colorBG-h", "colorBG-s", "colorBG-l",
		"lighten-percent", "darken-percent", "saturate-percent", "desaturate-percent",
		"triadic-offset-1", "triadic-offset-2",
	}},
	{Name: "basics", Tokens: []string{
		"background-color", "color", "line-color", "link-color", "link-active-color",
		"mark-color", "mark-background-color",
		"code-color", "code-inverted-color", "console-color", "console-inverted-color",
		"code-background-color", "code-note-background-color", "console-background-color",
		"button-background-color",
	}},
	{Name: "header", Tokens: []string{
		"header-border-width", "header-color", "header-breadcrumb-color",
		"header-background-color", "header-background-color-landing", "header-background-color-jumbo",
		"header-link-color", "header-link-active-color", "header-link-current-color",
		"header-link-active-background-color", "header-link-active-background-color-semi",
	}},
	{Name: "footer", Tokens: []string{
		"footer-font-size", "footer-color", "footer-background-color",
		"footer-link-color", "footer-link-active-color",
	}},
	{Name: "cover-image", Tokens: []string{"cover-image-background-color"}},
	{Name: "search", Tokens: []string{"search-overlay-color", "search-background-color"}},
	{Name: "article", Tokens: []string{
		"article-header-color", "article-heading-color", "article-heading-active-color",
	}},
	{Name: "navigation-panel", Tokens: []string{
		"navpanel-link-color", "navpanel-link-active-color", "navpanel-link-active-background-color",
	}},
	{Name: "plots", Tokens: []string{"plot-background-color", "plot-error-color"}},
	{Name: "colored-components", Tokens: componentTokenNames()},
}

func componentTokenNames() []string {
	names := make([]string, 0, len(Families)*len(componentSuffixes))
	for _, family := range Families {
		for _, suffix := range componentSuffixes {
			names = append(names, family+"-"+suffix)
		}
	}
	return names
}

// Schema returns the token names an m.css theme must declare, by region.
func Schema() []SchemaGroup {
	out := make([]SchemaGroup, len(schema))
	for i, g := range schema {
		out[i] = SchemaGroup{Name: g.Name, Tokens: append([]string(nil), g.Tokens...)}
	}
	return out
}

// SchemaError lists required tokens a theme does not declare.
type SchemaError struct {
	Missing []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %d required tokens missing: --%s",
		ErrUndefinedToken, len(e.Missing), strings.Join(e.Missing, ", --"))
}

// Unwrap returns ErrUndefinedToken.
func (e *SchemaError) Unwrap() error {
	return ErrUndefinedToken
}

// CheckSchema reports the schema tokens t does not declare.
func CheckSchema(t *Theme) error {
	var missing []string
	for _, g := range schema {
		for _, name := range g.Tokens {
			if !t.Has(name) {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
