package expression

import (
	"fmt"
	"strings"
)

// Parser parses value tokens into an AST.
type Parser struct {
	input   string
	tokens  []Token
	pos     int
	current Token
}

// NewParser creates a new parser for the given tokens. input is the source
// text and is only used for error reporting.
func NewParser(input string, tokens []Token) *Parser {
	p := &Parser{
		input:  input,
		tokens: tokens,
		pos:    0,
	}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

// Parse parses a CSS property value.
func Parse(input string) (*ParsedValue, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(input, tokens).Parse()
}

// MustParse parses a value and panics on error. Intended for tests and
// package-level literals.
func MustParse(input string) *ParsedValue {
	parsed, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return parsed
}

// Parse parses the tokens into a ParsedValue.
func (p *Parser) Parse() (*ParsedValue, error) {
	p.skipWhitespace()
	if p.current.Type == TokenEOF {
		return nil, p.errorf("empty value")
	}

	root, err := p.parseCommaList()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if p.current.Type != TokenEOF {
		return nil, p.errorf("unexpected %s", describe(p.current))
	}

	parsed := &ParsedValue{
		Original: p.input,
		Root:     root,
	}
	extractMetadata(parsed)
	return parsed, nil
}

// parseCommaList parses comma separated space lists.
func (p *Parser) parseCommaList() (Node, error) {
	first, err := p.parseSpaceList()
	if err != nil {
		return nil, err
	}

	items := []Node{first}
	for {
		p.skipWhitespace()
		if p.current.Type != TokenComma {
			break
		}
		p.advance() // consume ,
		p.skipWhitespace()

		item, err := p.parseSpaceList()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if len(items) == 1 {
		return items[0], nil
	}
	return &List{Separator: SeparatorComma, Items: items}, nil
}

// parseSpaceList parses whitespace separated components.
func (p *Parser) parseSpaceList() (Node, error) {
	p.skipWhitespace()

	first, err := p.parseSlashList()
	if err != nil {
		return nil, err
	}

	items := []Node{first}
	for {
		if p.current.Type == TokenWhitespace {
			if p.endsList(p.peekNonWhitespace()) {
				break
			}
			p.skipWhitespace()
		}
		if p.endsList(p.current) {
			break
		}

		item, err := p.parseSlashList()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if len(items) == 1 {
		return items[0], nil
	}
	return &List{Separator: SeparatorSpace, Items: items}, nil
}

// parseSlashList parses components joined by '/', as in "12px/1.5" or the
// alpha of "hsl(38 47% 80% / 0.5)".
func (p *Parser) parseSlashList() (Node, error) {
	first, err := p.parseComponent()
	if err != nil {
		return nil, err
	}

	items := []Node{first}
	for p.peekNonWhitespace().Type == TokenSlash {
		p.skipWhitespace()
		p.advance() // consume /
		p.skipWhitespace()

		item, err := p.parseComponent()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if len(items) == 1 {
		return items[0], nil
	}
	return &List{Separator: SeparatorSlash, Items: items}, nil
}

// parseComponent parses a single component value.
func (p *Parser) parseComponent() (Node, error) {
	tok := p.current
	switch tok.Type {
	case TokenNumber, TokenDimension, TokenPercent:
		p.advance()
		return &Number{Value: tok.Number, Unit: tok.Unit}, nil
	case TokenIdent, TokenURL:
		p.advance()
		return &Keyword{Name: tok.Value}, nil
	case TokenHash:
		p.advance()
		return &Hash{Text: tok.Value}, nil
	case TokenString:
		p.advance()
		return &String{Value: tok.Value, Quote: tok.Quote}, nil
	case TokenFunction:
		return p.parseFunction()
	default:
		return nil, p.errorf("unexpected %s", describe(tok))
	}
}

// parseFunction parses a function call; the current token is the function name.
func (p *Parser) parseFunction() (Node, error) {
	name := p.current.Value
	p.advance() // consume name(

	switch {
	case name == FuncVar:
		return p.parseVar()
	case name == FuncCalc:
		p.skipWhitespace()
		expr, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose(name); err != nil {
			return nil, err
		}
		return &Calc{Expr: expr}, nil
	case IsMathFunction(name):
		return p.parseMathFunction(name)
	default:
		return p.parseGenericFunction(name)
	}
}

// parseVar parses the body of var(--name[, fallback]).
func (p *Parser) parseVar() (Node, error) {
	p.skipWhitespace()
	if p.current.Type != TokenIdent || !strings.HasPrefix(p.current.Value, "--") {
		return nil, p.errorf("var() expects a custom property name but got %s", describe(p.current))
	}
	ref := NewVarRef(strings.TrimPrefix(p.current.Value, "--"))
	if ref.Name == "" {
		return nil, p.errorf("var() expects a non-empty custom property name")
	}
	p.advance()
	p.skipWhitespace()

	if p.current.Type == TokenComma {
		p.advance() // consume ,
		p.skipWhitespace()
		if p.current.Type == TokenRParen {
			ref.Fallback = &Keyword{Name: ""}
		} else {
			fallback, err := p.parseCommaList()
			if err != nil {
				return nil, err
			}
			ref.Fallback = fallback
		}
	}

	if err := p.expectClose(FuncVar); err != nil {
		return nil, err
	}
	return ref, nil
}

// parseMathFunction parses mod(), rem(), min() and max().
func (p *Parser) parseMathFunction(name string) (Node, error) {
	var args []Node
	for {
		p.skipWhitespace()
		arg, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		p.skipWhitespace()
		if p.current.Type != TokenComma {
			break
		}
		p.advance() // consume ,
	}

	if err := p.expectClose(name); err != nil {
		return nil, err
	}

	if arity := mathFunctions[name]; arity > 0 && len(args) != arity {
		return nil, p.errorf("%s() expects %d arguments, got %d", name, arity, len(args))
	}
	return &Func{Name: name, Args: args}, nil
}

// parseGenericFunction parses color functions and unknown functions. Space and
// comma separated argument lists are both accepted and flattened.
func (p *Parser) parseGenericFunction(name string) (Node, error) {
	fn := &Func{Name: name}

	p.skipWhitespace()
	if p.current.Type != TokenRParen {
		body, err := p.parseCommaList()
		if err != nil {
			return nil, err
		}
		if list, ok := body.(*List); ok && list.Separator != SeparatorSlash {
			fn.Args = list.Items
		} else {
			fn.Args = []Node{body}
		}
		if IsColorFunction(name) {
			args, err := p.colorArgs(name, fn.Args)
			if err != nil {
				return nil, err
			}
			fn.Args = args
		}
	}

	if err := p.expectClose(name); err != nil {
		return nil, err
	}
	return fn, nil
}

// colorArgs flattens the "channels / alpha" form of a color function into a
// trailing alpha argument.
func (p *Parser) colorArgs(name string, args []Node) ([]Node, error) {
	out := make([]Node, 0, len(args)+1)
	for i, arg := range args {
		slash, ok := arg.(*List)
		if !ok || slash.Separator != SeparatorSlash {
			out = append(out, arg)
			continue
		}
		if i != len(args)-1 || len(slash.Items) != 2 {
			return nil, p.errorf("%s() accepts '/' only before the alpha value", name)
		}
		out = append(out, slash.Items...)
	}
	return out, nil
}

// parseSum parses additive calc() expressions.
func (p *Parser) parseSum() (Node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		var op ArithOperator
		switch p.current.Type {
		case TokenPlus:
			op = OpAdd
		case TokenMinus:
			op = OpSubtract
		default:
			return left, nil
		}
		p.advance() // consume operator
		p.skipWhitespace()

		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
}

// parseProduct parses multiplicative calc() expressions.
func (p *Parser) parseProduct() (Node, error) {
	left, err := p.parseMathPrimary()
	if err != nil {
		return nil, err
	}

	for {
		p.skipWhitespace()
		var op ArithOperator
		switch p.current.Type {
		case TokenStar:
			op = OpMultiply
		case TokenSlash:
			op = OpDivide
		default:
			return left, nil
		}
		p.advance() // consume operator
		p.skipWhitespace()

		right, err := p.parseMathPrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
}

// parseMathPrimary parses an operand inside calc().
func (p *Parser) parseMathPrimary() (Node, error) {
	tok := p.current
	switch tok.Type {
	case TokenNumber, TokenDimension, TokenPercent:
		p.advance()
		return &Number{Value: tok.Number, Unit: tok.Unit}, nil
	case TokenFunction:
		if tok.Value != FuncVar && tok.Value != FuncCalc && !IsMathFunction(tok.Value) {
			return nil, p.errorf("%s() is not allowed in a math expression", tok.Value)
		}
		return p.parseFunction()
	case TokenLParen:
		p.advance() // consume (
		p.skipWhitespace()
		expr, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose("group"); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.errorf("expected number, var() or '(' but got %s", describe(tok))
	}
}

// expectClose skips whitespace and consumes the closing parenthesis of a call.
func (p *Parser) expectClose(name string) error {
	p.skipWhitespace()
	if p.current.Type != TokenRParen {
		return p.errorf("expected ')' to close %s but got %s", name, describe(p.current))
	}
	p.advance()
	return nil
}

// endsList reports whether tok terminates a space list.
func (p *Parser) endsList(tok Token) bool {
	switch tok.Type {
	case TokenComma, TokenRParen, TokenEOF:
		return true
	default:
		return false
	}
}

// peekNonWhitespace returns the next token after any whitespace.
func (p *Parser) peekNonWhitespace() Token {
	for i := p.pos; i < len(p.tokens); i++ {
		if p.tokens[i].Type != TokenWhitespace {
			return p.tokens[i]
		}
	}
	return Token{Type: TokenEOF}
}

// skipWhitespace advances past whitespace tokens.
func (p *Parser) skipWhitespace() {
	for p.current.Type == TokenWhitespace {
		p.advance()
	}
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.pos++
	if p.pos < len(p.tokens) {
		p.current = p.tokens[p.pos]
	} else {
		p.current = Token{Type: TokenEOF, Pos: len(p.input)}
	}
}

// errorf creates a parse error at the current position.
func (p *Parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     p.current.Pos,
		Input:   p.input,
	}
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of value"
	case TokenFunction:
		return fmt.Sprintf("'%s('", tok.Value)
	default:
		return fmt.Sprintf("'%s'", tok.Value)
	}
}

// extractMetadata fills References and Derived on a parsed value.
func extractMetadata(parsed *ParsedValue) {
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *VarRef:
			parsed.Derived = true
			if !seen[v.Name] {
				seen[v.Name] = true
				parsed.References = append(parsed.References, v.Name)
			}
			if v.Fallback != nil {
				walk(v.Fallback)
			}
		case *Calc:
			parsed.Derived = true
			walk(v.Expr)
		case *BinaryOp:
			walk(v.Left)
			walk(v.Right)
		case *Func:
			if IsMathFunction(v.Name) {
				parsed.Derived = true
			}
			for _, arg := range v.Args {
				walk(arg)
			}
		case *List:
			for _, item := range v.Items {
				walk(item)
			}
		}
	}
	walk(parsed.Root)
}
