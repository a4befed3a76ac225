package expression

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// Token types.
const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdent     // keywords, custom property names (--foo), function names
	TokenString    // "quoted string" or 'quoted string'
	TokenNumber    // 12, 0.5, -3
	TokenDimension // 16px, 0.9em
	TokenPercent   // 47%
	TokenHash      // #2f363f
	TokenURL       // url(img.png) - an unquoted url, kept verbatim

	// Arithmetic
	TokenPlus  // +
	TokenMinus // -
	TokenStar  // *
	TokenSlash // /

	// Grouping
	TokenFunction // name( - the function name plus its opening paren
	TokenLParen   // (
	TokenRParen   // )

	// Punctuation
	TokenComma      // ,
	TokenWhitespace // significant whitespace between components
)

// Token represents a lexical token.
type Token struct {
	Type   TokenType
	Value  string
	Number float64 // numeric value for Number, Dimension and Percent
	Unit   string  // unit for Dimension ("%" for Percent)
	Quote  rune    // quote character for String
	Pos    int     // byte offset in input
}

// String returns a string representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Value)
	default:
		if len(t.Value) > 20 {
			return fmt.Sprintf("%s(%.20s...)", t.Type, t.Value)
		}
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
}

// String returns the name of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "Error"
	case TokenIdent:
		return "Ident"
	case TokenString:
		return "String"
	case TokenNumber:
		return "Number"
	case TokenDimension:
		return "Dimension"
	case TokenPercent:
		return "Percent"
	case TokenHash:
		return "Hash"
	case TokenURL:
		return "URL"
	case TokenPlus:
		return "Plus"
	case TokenMinus:
		return "Minus"
	case TokenStar:
		return "Star"
	case TokenSlash:
		return "Slash"
	case TokenFunction:
		return "Function"
	case TokenLParen:
		return "LParen"
	case TokenRParen:
		return "RParen"
	case TokenComma:
		return "Comma"
	case TokenWhitespace:
		return "Whitespace"
	default:
		return fmt.Sprintf("Token(%d)", t)
	}
}
