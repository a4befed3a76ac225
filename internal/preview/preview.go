// Package preview renders resolved theme colors for terminals and checks
// foreground/background contrast.
package preview

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/jmylchreest/mcsstheme/internal/theme"
)

// WCAG 2 contrast thresholds for normal text.
const (
	ContrastAA  = 4.5
	ContrastAAA = 7.0
)

var (
	black = colorful.Color{R: 0, G: 0, B: 0}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

// Swatch is a resolved color token.
type Swatch struct {
	Token string
	Value string
	Color colorful.Color
	// Text is black or white, whichever reads better on Color.
	Text colorful.Color
}

// Hex returns the swatch color as #rrggbb.
func (s Swatch) Hex() string {
	return s.Color.Clamped().Hex()
}

// ContrastCheck is the contrast between a text token and a background token.
type ContrastCheck struct {
	Foreground string  `json:"foreground"`
	Background string  `json:"background"`
	Ratio      float64 `json:"ratio"`
	Grade      string  `json:"grade"`
}

// DefaultPairs are the text/background combinations m.css renders most.
var DefaultPairs = [][2]string{
	{"color", "background-color"},
	{"link-color", "background-color"},
	{"link-active-color", "background-color"},
	{"color", "code-background-color"},
	{"primary-filled-color", "primary-filled-background-color"},
	{"success-filled-color", "success-filled-background-color"},
	{"warning-filled-color", "warning-filled-background-color"},
	{"danger-filled-color", "danger-filled-background-color"},
	{"info-filled-color", "info-filled-background-color"},
}

// Swatches returns the listed tokens that resolved to colors. Missing tokens
// and non-color values are skipped.
func Swatches(r *theme.Resolved, tokens []string) []Swatch {
	out := make([]Swatch, 0, len(tokens))
	for _, name := range tokens {
		value, err := r.Get(name)
		if err != nil {
			continue
		}
		c, ok := ParseColor(value)
		if !ok {
			continue
		}
		out = append(out, Swatch{Token: theme.NormalizeName(name), Value: value, Color: c, Text: TextColor(c)})
	}
	return out
}

// ColorTokens returns the names of all tokens that resolved to colors, in
// evaluation order.
func ColorTokens(r *theme.Resolved) []string {
	var names []string
	for _, e := range r.Entries() {
		if _, ok := ParseColor(e.Value); ok {
			names = append(names, e.Name)
		}
	}
	return names
}

// ParseColor parses #rgb, #rrggbb, rgb() and hsl() values. Alpha channels
// are ignored.
func ParseColor(value string) (colorful.Color, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(v, "#") {
		return parseHex(v)
	}

	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return colorful.Color{}, false
	}
	fn := v[:open]
	args := strings.FieldsFunc(v[open+1:len(v)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(args) < 3 {
		return colorful.Color{}, false
	}

	switch fn {
	case "rgb", "rgba":
		var ch [3]float64
		for i := range ch {
			n, pct, ok := parseNumber(args[i])
			if !ok {
				return colorful.Color{}, false
			}
			if pct {
				ch[i] = n / 100
			} else {
				ch[i] = n / 255
			}
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}.Clamped(), true
	case "hsl", "hsla":
		h, _, ok1 := parseNumber(strings.TrimSuffix(args[0], "deg"))
		s, _, ok2 := parseNumber(args[1])
		l, _, ok3 := parseNumber(args[2])
		if !ok1 || !ok2 || !ok3 {
			return colorful.Color{}, false
		}
		h = math.Mod(math.Mod(h, 360)+360, 360)
		return colorful.Hsl(h, s/100, l/100).Clamped(), true
	default:
		return colorful.Color{}, false
	}
}

func parseHex(v string) (colorful.Color, bool) {
	switch len(v) {
	case 4, 5:
		// #rgb and #rgba expand each digit.
		v = "#" + strings.Repeat(v[1:2], 2) + strings.Repeat(v[2:3], 2) + strings.Repeat(v[3:4], 2)
	case 7:
	case 9:
		v = v[:7]
	default:
		return colorful.Color{}, false
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

func parseNumber(s string) (float64, bool, bool) {
	pct := strings.HasSuffix(s, "%")
	n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	return n, pct, err == nil
}

// Luminance returns the WCAG relative luminance of c.
func Luminance(c colorful.Color) float64 {
	r, g, b := c.Clamped().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Contrast returns the WCAG contrast ratio of two colors, from 1 to 21.
func Contrast(a, b colorful.Color) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// Grade names the WCAG level a contrast ratio meets.
func Grade(ratio float64) string {
	switch {
	case ratio >= ContrastAAA:
		return "AAA"
	case ratio >= ContrastAA:
		return "AA"
	case ratio >= 3:
		return "AA large"
	default:
		return "fail"
	}
}

// TextColor returns black or white, whichever contrasts more with bg.
func TextColor(bg colorful.Color) colorful.Color {
	if Contrast(bg, black) >= Contrast(bg, white) {
		return black
	}
	return white
}

// CheckContrast computes the contrast of each pair whose tokens both
// resolved to colors.
func CheckContrast(r *theme.Resolved, pairs [][2]string) []ContrastCheck {
	out := make([]ContrastCheck, 0, len(pairs))
	for _, p := range pairs {
		fg := Swatches(r, []string{p[0]})
		bg := Swatches(r, []string{p[1]})
		if len(fg) == 0 || len(bg) == 0 {
			continue
		}
		ratio := Contrast(fg[0].Color, bg[0].Color)
		out = append(out, ContrastCheck{
			Foreground: fg[0].Token,
			Background: bg[0].Token,
			Ratio:      math.Round(ratio*100) / 100,
			Grade:      Grade(ratio),
		})
	}
	return out
}

// Renderer writes swatches with lipgloss styles. Colors are only emitted
// when the writer is a color-capable terminal.
type Renderer struct {
	r     *lipgloss.Renderer
	out   io.Writer
	width int
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{r: lipgloss.NewRenderer(w), out: w, width: 8}
}

// Title writes a bold heading.
func (p *Renderer) Title(text string) error {
	_, err := fmt.Fprintln(p.out, p.r.NewStyle().Bold(true).Render(text))
	return err
}

// Swatches writes one line per swatch: a color block, the token and its value.
func (p *Renderer) Swatches(swatches []Swatch) error {
	nameWidth := 0
	for _, s := range swatches {
		nameWidth = max(nameWidth, len(s.Token))
	}
	name := p.r.NewStyle().Width(nameWidth + 2)
	muted := p.r.NewStyle().Faint(true)

	for _, s := range swatches {
		block := p.r.NewStyle().
			Background(lipgloss.Color(s.Hex())).
			Foreground(lipgloss.Color(s.Text.Hex())).
			Width(p.width).
			Align(lipgloss.Center).
			Render("Aa")
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			block, " ", name.Render(s.Token), s.Value, " ", muted.Render(s.Hex()))
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

// Contrast writes the contrast checks, highlighting failures.
func (p *Renderer) Contrast(checks []ContrastCheck) error {
	bad := p.r.NewStyle().Foreground(lipgloss.Color("#d9534f")).Bold(true)
	good := p.r.NewStyle().Foreground(lipgloss.Color("#3fb950"))

	for _, c := range checks {
		grade := good.Render(c.Grade)
		if c.Ratio < ContrastAA {
			grade = bad.Render(c.Grade)
		}
		if _, err := fmt.Fprintf(p.out, "%5.2f:1  %-8s  %s on %s\n", c.Ratio, grade, c.Foreground, c.Background); err != nil {
			return err
		}
	}
	return nil
}
