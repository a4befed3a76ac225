package expression

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes a CSS property value.
type Lexer struct {
	input  string
	pos    int // current position in input
	start  int // start position of current token
	width  int // width of last rune read
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize lexes the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok := l.nextToken()
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenError {
			return l.tokens, &ParseError{
				Message: tok.Value,
				Pos:     tok.Pos,
				Input:   l.input,
			}
		}
	}
	return l.tokens, nil
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() Token {
	l.start = l.pos
	if l.pos >= len(l.input) {
		return l.makeToken(TokenEOF, "")
	}

	if l.skipBlank() {
		return l.makeToken(TokenWhitespace, " ")
	}
	if l.pos >= len(l.input) {
		return l.makeToken(TokenEOF, "")
	}

	l.start = l.pos
	ch := l.next()

	switch {
	case ch == '(':
		return l.makeToken(TokenLParen, "(")
	case ch == ')':
		return l.makeToken(TokenRParen, ")")
	case ch == ',':
		return l.makeToken(TokenComma, ",")
	case ch == '*':
		return l.makeToken(TokenStar, "*")
	case ch == '/':
		return l.makeToken(TokenSlash, "/")
	case ch == '+':
		if startsNumber(l.peek(), l.peekAt(1)) {
			return l.scanNumber()
		}
		return l.makeToken(TokenPlus, "+")
	case ch == '-':
		next := l.peek()
		if startsNumber(next, l.peekAt(1)) {
			return l.scanNumber()
		}
		if next == '-' || isIdentStart(next) {
			l.backup()
			return l.scanIdent()
		}
		return l.makeToken(TokenMinus, "-")
	case ch == '#':
		return l.scanHash()
	case ch == '"' || ch == '\'':
		return l.scanString(ch)
	case isDigit(ch) || (ch == '.' && isDigit(l.peek())):
		l.backup()
		return l.scanNumber()
	case isIdentStart(ch):
		l.backup()
		return l.scanIdent()
	default:
		return l.makeErrorToken("unexpected character '" + string(ch) + "'")
	}
}

// skipBlank consumes whitespace and comments, reporting whether any were found.
func (l *Lexer) skipBlank() bool {
	skipped := false
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f':
			l.next()
			skipped = true
		case ch == '/' && l.peekAt(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(l.input)
			} else {
				l.pos += end + 4
			}
			skipped = true
		default:
			return skipped
		}
	}
	return skipped
}

// scanString scans a quoted string. The token value excludes the quotes.
func (l *Lexer) scanString(quote rune) Token {
	var sb strings.Builder

	for {
		ch := l.next()
		if ch == 0 || ch == '\n' {
			return l.makeErrorToken("unterminated string")
		}
		if ch == quote {
			break
		}
		if ch == '\\' {
			escaped := l.next()
			if escaped == 0 {
				return l.makeErrorToken("unterminated string")
			}
			sb.WriteRune(escaped)
			continue
		}
		sb.WriteRune(ch)
	}

	tok := l.makeToken(TokenString, sb.String())
	tok.Quote = quote
	return tok
}

// scanNumber scans a number, percentage or dimension. A leading sign, if any,
// has either been consumed already or is at the current position.
func (l *Lexer) scanNumber() Token {
	if p := l.peek(); p == '-' || p == '+' {
		l.next()
	}
	for isDigit(l.peek()) {
		l.next()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.next()
		for isDigit(l.peek()) {
			l.next()
		}
	}
	if e := l.peek(); e == 'e' || e == 'E' {
		sign := l.peekAt(1) == '+' || l.peekAt(1) == '-'
		if isDigit(l.peekAt(1)) || (sign && isDigit(l.peekAt(2))) {
			l.next()
			if sign {
				l.next()
			}
			for isDigit(l.peek()) {
				l.next()
			}
		}
	}

	numEnd := l.pos
	value, err := strconv.ParseFloat(l.input[l.start:numEnd], 64)
	if err != nil {
		return l.makeErrorToken("invalid number '" + l.input[l.start:numEnd] + "'")
	}

	switch {
	case l.peek() == '%':
		l.next()
		tok := l.makeToken(TokenPercent, l.input[l.start:l.pos])
		tok.Number = value
		tok.Unit = "%"
		return tok
	case isIdentStart(l.peek()):
		for isIdentPart(l.peek()) {
			l.next()
		}
		tok := l.makeToken(TokenDimension, l.input[l.start:l.pos])
		tok.Number = value
		tok.Unit = strings.ToLower(l.input[numEnd:l.pos])
		return tok
	default:
		tok := l.makeToken(TokenNumber, l.input[l.start:l.pos])
		tok.Number = value
		return tok
	}
}

// scanIdent scans an identifier, or a function name when followed by '('.
func (l *Lexer) scanIdent() Token {
	l.next()
	for isIdentPart(l.peek()) {
		l.next()
	}
	value := l.input[l.start:l.pos]
	if value == "-" {
		return l.makeToken(TokenMinus, "-")
	}

	if l.peek() == '(' {
		l.next()
		if strings.EqualFold(value, "url") {
			if tok, ok := l.scanURL(); ok {
				return tok
			}
		}
		return l.makeToken(TokenFunction, strings.ToLower(value))
	}
	return l.makeToken(TokenIdent, value)
}

// scanURL scans the body of an unquoted url() whose opening paren has been
// consumed. Quoted or nested arguments are left to the parser as a regular
// function call.
func (l *Lexer) scanURL() (Token, bool) {
	open := l.pos
	l.skipSpaces()
	bodyStart := l.pos
	for {
		switch ch := l.peek(); {
		case ch == ')':
			body := strings.TrimRight(l.input[bodyStart:l.pos], " \t\n\r\f")
			if body == "" {
				break
			}
			l.next()
			return l.makeToken(TokenURL, "url("+body+")"), true
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f':
			l.skipSpaces()
			if l.peek() == ')' {
				continue
			}
		case ch == 0 && l.pos >= len(l.input):
		case ch == '(' || ch == '"' || ch == '\'' || ch == '\\':
		default:
			l.next()
			continue
		}
		l.pos = open
		return Token{}, false
	}
}

// skipSpaces consumes whitespace only, leaving comments in place.
func (l *Lexer) skipSpaces() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r', '\f':
			l.next()
		default:
			return
		}
	}
}

// scanHash scans a #-prefixed token such as a hex color.
func (l *Lexer) scanHash() Token {
	if !isIdentPart(l.peek()) {
		return l.makeErrorToken("expected name after '#'")
	}
	for isIdentPart(l.peek()) {
		l.next()
	}
	return l.makeToken(TokenHash, l.input[l.start:l.pos])
}

// next returns the next rune and advances the position.
func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return 0
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// backup steps back one rune.
func (l *Lexer) backup() {
	l.pos -= l.width
}

// peek returns the next rune without advancing.
func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

// peekAt returns the rune n runes ahead without advancing.
func (l *Lexer) peekAt(n int) rune {
	pos := l.pos
	for i := 0; ; i++ {
		if pos >= len(l.input) {
			return 0
		}
		r, w := utf8.DecodeRuneInString(l.input[pos:])
		if i == n {
			return r
		}
		pos += w
	}
}

// makeToken creates a token with the current position info.
func (l *Lexer) makeToken(typ TokenType, value string) Token {
	return Token{
		Type:  typ,
		Value: value,
		Pos:   l.start,
	}
}

// makeErrorToken creates an error token.
func (l *Lexer) makeErrorToken(msg string) Token {
	return Token{
		Type:  TokenError,
		Value: msg,
		Pos:   l.start,
	}
}

// startsNumber reports whether the runes after a sign begin a number.
func startsNumber(first, second rune) bool {
	return isDigit(first) || (first == '.' && isDigit(second))
}

// isDigit returns true if the rune is a digit.
func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// isIdentStart returns true if the rune can start an identifier.
func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

// isIdentPart returns true if the rune can be part of an identifier.
func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-'
}
