package theme

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ExportFormat is an output format for themes.
type ExportFormat string

// Export formats.
const (
	FormatCSS  ExportFormat = "css"
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// ParseExportFormat parses an export format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSS, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q: must be css, json or yaml", s)
	}
}

// Document is the JSON representation of a theme.
type Document struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Resolved    bool    `json:"resolved"`
	Tokens      []Entry `json:"tokens"`
}

// NewDocument builds the JSON representation. When resolved is nil the
// declared values are used.
func NewDocument(t *Theme, resolved *Resolved) *Document {
	doc := &Document{
		Name:        t.Name(),
		Description: t.Description(),
		Resolved:    resolved != nil,
	}
	if resolved != nil {
		doc.Tokens = resolved.Entries()
		return doc
	}
	doc.Tokens = make([]Entry, 0, t.Len())
	for _, tok := range t.tokens {
		doc.Tokens = append(doc.Tokens, Entry{Name: tok.Name, Group: tok.Group, Raw: tok.Raw})
	}
	return doc
}

// Export writes a theme in the given format. When resolved is nil the
// declared values are written, otherwise the resolved ones.
func Export(w io.Writer, t *Theme, resolved *Resolved, format ExportFormat) error {
	switch format {
	case FormatCSS:
		return WriteCSS(w, exportHeader(t, resolved), exportDeclarations(t, resolved))
	case FormatYAML:
		return WriteYAML(w, t.Name(), t.Description(), exportDeclarations(t, resolved))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(NewDocument(t, resolved)); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func exportDeclarations(t *Theme, resolved *Resolved) []Declaration {
	if resolved == nil {
		return t.Declarations()
	}
	entries := resolved.Entries()
	decls := make([]Declaration, len(entries))
	for i, e := range entries {
		decls[i] = Declaration{Name: e.Name, Value: e.Value, Group: e.Group}
	}
	return decls
}

func exportHeader(t *Theme, resolved *Resolved) string {
	header := t.Name()
	if t.Description() != "" {
		header += ": " + t.Description()
	}
	if resolved != nil {
		header += " (resolved)"
	}
	return header
}
