package theme

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ParseCSS reads custom property declarations from a stylesheet. Comments
// inside a rule start a new group; the first comment before any rule is
// taken as the theme description. Declarations that are not custom
// properties are ignored. Rules nested inside a rule, including at-rules
// such as @media, are rejected.
func ParseCSS(name string, src []byte) (*Theme, error) {
	s := &cssScanner{src: string(src), line: 1}

	var (
		decls       []Declaration
		description string
		group       string
		depth       int
	)

	for {
		s.skipSpace()
		if s.eof() {
			break
		}

		switch {
		case s.hasPrefix("/*"):
			text, err := s.comment()
			if err != nil {
				return nil, err
			}
			if depth == 0 {
				if description == "" && len(decls) == 0 {
					description = strings.Join(strings.Fields(text), " ")
				}
				continue
			}
			group = GroupSlug(text)

		case depth == 0:
			if _, err := s.until('{'); err != nil {
				return nil, err
			}
			s.pos++ // consume {
			depth++

		case s.peek() == '}':
			s.pos++
			depth--

		case s.opensBlock():
			return nil, &MalformedValueError{Err: fmt.Errorf("line %d: nested rule blocks are not supported", s.line)}

		default:
			line := s.line
			prop, err := s.until(':')
			if err != nil {
				return nil, err
			}
			s.pos++ // consume :

			value, err := s.value()
			if err != nil {
				return nil, err
			}

			prop = strings.TrimSpace(prop)
			if !strings.HasPrefix(prop, "--") {
				continue
			}
			if strings.TrimSpace(value) == "" {
				return nil, &MalformedValueError{Name: NormalizeName(prop), Err: fmt.Errorf("line %d: empty value", line)}
			}
			decls = append(decls, Declaration{Name: prop, Value: value, Group: group})
		}
	}

	if depth != 0 {
		return nil, &MalformedValueError{Err: fmt.Errorf("line %d: unterminated rule block", s.line)}
	}

	t, err := New(name, decls)
	if err != nil {
		return nil, err
	}
	t.description = description
	return t, nil
}

// GroupSlug turns a region comment such as "Navigation panel" into
// "navigation-panel".
func GroupSlug(text string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// cssScanner walks stylesheet text tracking the line number for errors.
type cssScanner struct {
	src  string
	pos  int
	line int
}

func (s *cssScanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *cssScanner) peek() byte {
	return s.src[s.pos]
}

func (s *cssScanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

func (s *cssScanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case '\n':
			s.line++
			fallthrough
		case ' ', '\t', '\r', '\f':
			s.pos++
		default:
			return
		}
	}
}

// opensBlock reports whether the text ahead reaches a '{' before the end of
// a declaration, i.e. it is the prelude of a nested rule.
func (s *cssScanner) opensBlock() bool {
	parens := 0
	for i := s.pos; i < len(s.src); i++ {
		switch ch := s.src[i]; {
		case ch == '"' || ch == '\'':
			end := strings.IndexByte(s.src[i+1:], ch)
			if end < 0 {
				return false
			}
			i += end + 1
		case strings.HasPrefix(s.src[i:], "/*"):
			end := strings.Index(s.src[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 3
		case ch == '(':
			parens++
		case ch == ')':
			parens--
		case ch == '{':
			return parens <= 0
		case ch == ';' || ch == '}':
			if parens <= 0 {
				return false
			}
		}
	}
	return false
}

// comment consumes a /* */ comment and returns its trimmed text.
func (s *cssScanner) comment() (string, error) {
	start := s.line
	end := strings.Index(s.src[s.pos+2:], "*/")
	if end < 0 {
		return "", &MalformedValueError{Err: fmt.Errorf("line %d: unterminated comment", start)}
	}
	text := s.src[s.pos+2 : s.pos+2+end]
	s.line += strings.Count(text, "\n")
	s.pos += end + 4
	return strings.TrimSpace(text), nil
}

// until returns the text up to, not including, delim.
func (s *cssScanner) until(delim byte) (string, error) {
	start := s.pos
	startLine := s.line
	for !s.eof() {
		ch := s.peek()
		switch {
		case ch == delim:
			return s.src[start:s.pos], nil
		case ch == ';' || ch == '{' || ch == '}':
			return "", &MalformedValueError{Err: fmt.Errorf("line %d: expected %q before %q", s.line, delim, ch)}
		case ch == '\n':
			s.line++
		}
		s.pos++
	}
	return "", &MalformedValueError{Err: fmt.Errorf("line %d: expected %q", startLine, delim)}
}

// value returns a declaration value, consuming the terminating ';'. A value
// may also end at the closing '}' of its rule. Parentheses, strings and
// comments are skipped over.
func (s *cssScanner) value() (string, error) {
	var sb strings.Builder
	parens := 0
	for !s.eof() {
		ch := s.peek()
		switch {
		case ch == '"' || ch == '\'':
			lit, err := s.quoted(ch)
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
			continue
		case s.hasPrefix("/*"):
			if _, err := s.comment(); err != nil {
				return "", err
			}
			sb.WriteByte(' ')
			continue
		case ch == '(':
			parens++
		case ch == ')':
			parens--
		case ch == ';' && parens <= 0:
			s.pos++
			return strings.TrimSpace(sb.String()), nil
		case ch == '}' && parens <= 0:
			return strings.TrimSpace(sb.String()), nil
		case ch == '\n':
			s.line++
		}
		sb.WriteByte(ch)
		s.pos++
	}
	return "", &MalformedValueError{Err: fmt.Errorf("line %d: unterminated declaration", s.line)}
}

// quoted consumes a quoted string including its quotes.
func (s *cssScanner) quoted(quote byte) (string, error) {
	start := s.pos
	s.pos++
	for !s.eof() {
		ch := s.peek()
		switch ch {
		case '\\':
			s.pos += 2
			continue
		case '\n':
			return "", &MalformedValueError{Err: fmt.Errorf("line %d: unterminated string", s.line)}
		case quote:
			s.pos++
			return s.src[start:s.pos], nil
		}
		s.pos++
	}
	return "", &MalformedValueError{Err: fmt.Errorf("line %d: unterminated string", s.line)}
}

// WriteCSS writes declarations as a :root rule with one comment per group.
func WriteCSS(w io.Writer, header string, decls []Declaration) error {
	var sb strings.Builder
	if header != "" {
		fmt.Fprintf(&sb, "/* %s */\n\n", header)
	}
	sb.WriteString(":root {\n")

	group := ""
	for i, decl := range decls {
		if decl.Group != group || i == 0 {
			if decl.Group != "" {
				if i > 0 {
					sb.WriteString("\n")
				}
				fmt.Fprintf(&sb, "  /* %s */\n", decl.Group)
			}
			group = decl.Group
		}
		fmt.Fprintf(&sb, "  --%s: %s;\n", NormalizeName(decl.Name), decl.Value)
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
