package expression

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
}

// Number is a numeric literal with an optional unit ("%", "px", "rem", ...).
type Number struct {
	Value float64
	Unit  string
}

func (n *Number) node() {}

// Keyword is a bare identifier such as "justify", "sans-serif" or "none".
// Unquoted url() values are also kept as keywords, verbatim.
type Keyword struct {
	Name string
}

func (k *Keyword) node() {}

// Hash is a #-prefixed literal, normally a hex color. Text includes the '#'.
type Hash struct {
	Text string
}

func (h *Hash) node() {}

// String is a quoted string literal. Quote records the original delimiter
// so the value round-trips unchanged.
type String struct {
	Value string
	Quote rune
}

func (s *String) node() {}

// VarRef is a custom property reference: var(--name) or var(--name, fallback).
// Name is stored without the leading "--".
type VarRef struct {
	Name     string
	Fallback Node // may be nil
}

func (v *VarRef) node() {}

// BinaryOp is an arithmetic operation inside calc() or a math function.
type BinaryOp struct {
	Op    ArithOperator
	Left  Node
	Right Node
}

func (b *BinaryOp) node() {}

// Calc is a calc() wrapper. It evaluates to its inner expression.
type Calc struct {
	Expr Node
}

func (c *Calc) node() {}

// Func is any other function call: mod(), hsl(), hsla(), rgb(), rgba(),
// min(), max() or an unknown function that is passed through verbatim.
type Func struct {
	Name string
	Args []Node
}

func (f *Func) node() {}

// List is a sequence of values separated by spaces or commas.
type List struct {
	Separator ListSeparator
	Items     []Node
}

func (l *List) node() {}

// ListSeparator separates the items of a List.
type ListSeparator string

// List separators.
const (
	SeparatorSpace ListSeparator = " "
	SeparatorComma ListSeparator = ","
	SeparatorSlash ListSeparator = "/"
)

// ParsedValue wraps a parsed value with metadata.
type ParsedValue struct {
	// Original is the original value text.
	Original string

	// Root is the parsed AST.
	Root Node

	// References lists the custom property names referenced through var(),
	// in first-seen order, without duplicates and without the "--" prefix.
	References []string

	// Derived reports whether evaluating the value requires computation,
	// i.e. it contains a reference, calc() or a math function.
	Derived bool
}

// NewNumber creates a new numeric literal.
func NewNumber(value float64, unit string) *Number {
	return &Number{Value: value, Unit: unit}
}

// NewVarRef creates a new custom property reference.
func NewVarRef(name string) *VarRef {
	return &VarRef{Name: name}
}
