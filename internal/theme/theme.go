// Package theme holds a table of CSS design tokens (custom properties) and
// resolves derived tokens to literal values in dependency order.
package theme

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/mcsstheme/internal/expression"
)

// Declaration is a single token declaration as read from a theme file.
type Declaration struct {
	Name  string
	Value string
	Group string
}

// Token is a parsed, immutable token.
type Token struct {
	// Name is the custom property name without the "--" prefix.
	Name string
	// Group is the UI region the token belongs to.
	Group string
	// Raw is the declared value text, trimmed.
	Raw string
	// Index is the declaration position within the theme.
	Index int

	value *expression.ParsedValue
}

// Refs returns the names referenced through var(), in first-seen order.
func (t *Token) Refs() []string {
	return append([]string(nil), t.value.References...)
}

// Derived reports whether the token must be computed from other tokens.
func (t *Token) Derived() bool {
	return t.value.Derived
}

// Theme is a named, ordered table of tokens. A Theme is never modified after
// construction and is safe for concurrent use.
type Theme struct {
	name        string
	description string
	tokens      []*Token
	index       map[string]*Token
	groups      []string
}

// New builds a theme from declarations. Every value is parsed; a syntax error
// or a duplicate name fails with ErrMalformedValue.
func New(name string, decls []Declaration) (*Theme, error) {
	t := &Theme{
		name:   name,
		tokens: make([]*Token, 0, len(decls)),
		index:  make(map[string]*Token, len(decls)),
	}

	seenGroups := make(map[string]bool)
	for _, decl := range decls {
		tokenName := NormalizeName(decl.Name)
		raw := strings.TrimSpace(decl.Value)

		if tokenName == "" {
			return nil, &MalformedValueError{Name: decl.Name, Value: raw, Err: fmt.Errorf("empty token name")}
		}
		if _, exists := t.index[tokenName]; exists {
			return nil, &MalformedValueError{Name: tokenName, Value: raw, Err: fmt.Errorf("duplicate declaration")}
		}

		parsed, err := expression.Parse(raw)
		if err != nil {
			return nil, &MalformedValueError{Name: tokenName, Value: raw, Err: err}
		}

		tok := &Token{
			Name:  tokenName,
			Group: decl.Group,
			Raw:   raw,
			Index: len(t.tokens),
			value: parsed,
		}
		t.tokens = append(t.tokens, tok)
		t.index[tokenName] = tok

		if !seenGroups[decl.Group] {
			seenGroups[decl.Group] = true
			t.groups = append(t.groups, decl.Group)
		}
	}

	return t, nil
}

// NormalizeName strips surrounding whitespace and a leading "--".
func NormalizeName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "--")
}

// Name returns the theme name.
func (t *Theme) Name() string {
	return t.name
}

// Description returns the theme description, if the source had one.
func (t *Theme) Description() string {
	return t.description
}

// Len returns the number of tokens.
func (t *Theme) Len() int {
	return len(t.tokens)
}

// Names returns token names in declaration order.
func (t *Theme) Names() []string {
	names := make([]string, len(t.tokens))
	for i, tok := range t.tokens {
		names[i] = tok.Name
	}
	return names
}

// Tokens returns the tokens in declaration order.
func (t *Theme) Tokens() []*Token {
	return append([]*Token(nil), t.tokens...)
}

// Groups returns group names in first-declared order.
func (t *Theme) Groups() []string {
	return append([]string(nil), t.groups...)
}

// Token returns a token by name. Accepts names with or without "--".
func (t *Theme) Token(name string) (*Token, error) {
	key := NormalizeName(name)
	tok, ok := t.index[key]
	if !ok {
		return nil, &UndefinedTokenError{Name: key}
	}
	return tok, nil
}

// Has reports whether a token is declared.
func (t *Theme) Has(name string) bool {
	_, ok := t.index[NormalizeName(name)]
	return ok
}

// Raw returns the declared, unevaluated value of a token.
func (t *Theme) Raw(name string) (string, error) {
	tok, err := t.Token(name)
	if err != nil {
		return "", err
	}
	return tok.Raw, nil
}

// Declarations returns the theme as declarations, in declaration order.
func (t *Theme) Declarations() []Declaration {
	decls := make([]Declaration, len(t.tokens))
	for i, tok := range t.tokens {
		decls[i] = Declaration{Name: tok.Name, Value: tok.Raw, Group: tok.Group}
	}
	return decls
}

// Get returns the computed value of a token. Only the token's dependency
// closure is evaluated.
func (t *Theme) Get(name string, opts ...Option) (string, error) {
	tok, err := t.Token(name)
	if err != nil {
		return "", err
	}

	closure := t.closure(tok)
	order, err := t.order(closure)
	if err != nil {
		return "", err
	}

	values, err := t.evaluate(order, newResolveOptions(opts))
	if err != nil {
		return "", err
	}
	return expression.Format(values[tok.Name]), nil
}

// closure returns the set of declared tokens tok depends on, including tok.
func (t *Theme) closure(tok *Token) map[string]bool {
	seen := map[string]bool{tok.Name: true}
	stack := []*Token{tok}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ref := range cur.value.References {
			dep, ok := t.index[ref]
			if !ok || seen[ref] {
				continue
			}
			seen[ref] = true
			stack = append(stack, dep)
		}
	}
	return seen
}
