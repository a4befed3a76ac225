package expression

import (
	"math"
	"strings"
)

// Resolver provides the computed values of referenced custom properties.
type Resolver interface {
	// Lookup returns the computed value of a custom property by name
	// (without the "--" prefix). Returns false if the property is unknown.
	Lookup(name string) (Node, bool)
}

// MapResolver is a Resolver backed by a map of computed values.
type MapResolver map[string]Node

// Lookup implements Resolver.
func (m MapResolver) Lookup(name string) (Node, bool) {
	n, ok := m[name]
	return n, ok
}

// ColorFormat controls how color functions are emitted after evaluation.
type ColorFormat string

// Color formats.
const (
	// ColorPreserve keeps hsl()/rgb() notation with evaluated arguments.
	ColorPreserve ColorFormat = "preserve"
	// ColorHex converts fully numeric colors to #rrggbb, or rgba() when
	// the color is translucent.
	ColorHex ColorFormat = "hex"
)

// ParseColorFormat parses a color format name.
func ParseColorFormat(s string) (ColorFormat, bool) {
	switch ColorFormat(strings.ToLower(strings.TrimSpace(s))) {
	case ColorPreserve, "":
		return ColorPreserve, true
	case ColorHex:
		return ColorHex, true
	default:
		return "", false
	}
}

// Evaluator reduces parsed values to literal nodes.
type Evaluator struct {
	colorFormat ColorFormat
}

// NewEvaluator creates a new evaluator that preserves color notation.
func NewEvaluator() *Evaluator {
	return &Evaluator{colorFormat: ColorPreserve}
}

// SetColorFormat sets how colors are emitted.
func (e *Evaluator) SetColorFormat(format ColorFormat) {
	e.colorFormat = format
}

// ColorFormat returns the configured color format.
func (e *Evaluator) ColorFormat() ColorFormat {
	return e.colorFormat
}

// Evaluate substitutes references, reduces calc() and math functions and
// normalizes colors. The result contains no VarRef, Calc or BinaryOp nodes.
func (e *Evaluator) Evaluate(parsed *ParsedValue, resolver Resolver) (Node, error) {
	if parsed == nil || parsed.Root == nil {
		return nil, evalErrorf("empty value")
	}
	return e.eval(parsed.Root, resolver)
}

// eval evaluates a node in component context.
func (e *Evaluator) eval(n Node, r Resolver) (Node, error) {
	switch v := n.(type) {
	case *Number, *Keyword, *String:
		return v, nil
	case *Hash:
		return e.evalHash(v)
	case *VarRef:
		return e.lookup(v, r)
	case *Calc, *BinaryOp:
		return e.evalMath(v, r)
	case *Func:
		switch {
		case IsMathFunction(v.Name):
			return e.evalMath(v, r)
		case IsColorFunction(v.Name):
			return e.evalColor(v, r)
		default:
			args, err := e.evalArgs(v.Args, r)
			if err != nil {
				return nil, err
			}
			return &Func{Name: v.Name, Args: args}, nil
		}
	case *List:
		items := make([]Node, 0, len(v.Items))
		for _, item := range v.Items {
			out, err := e.eval(item, r)
			if err != nil {
				return nil, err
			}
			if nested, ok := out.(*List); ok && nested.Separator == v.Separator {
				items = append(items, nested.Items...)
				continue
			}
			items = append(items, out)
		}
		return &List{Separator: v.Separator, Items: items}, nil
	default:
		return nil, evalErrorf("unsupported node %T", n)
	}
}

// evalArgs evaluates function arguments, flattening lists produced by var()
// substitution.
func (e *Evaluator) evalArgs(args []Node, r Resolver) ([]Node, error) {
	out := make([]Node, 0, len(args))
	for _, arg := range args {
		val, err := e.eval(arg, r)
		if err != nil {
			return nil, err
		}
		if list, ok := val.(*List); ok {
			if _, isRef := arg.(*VarRef); isRef {
				out = append(out, list.Items...)
				continue
			}
		}
		out = append(out, val)
	}
	return out, nil
}

// lookup resolves a var() reference, falling back when the name is unknown.
func (e *Evaluator) lookup(ref *VarRef, r Resolver) (Node, error) {
	if r != nil {
		if val, ok := r.Lookup(ref.Name); ok {
			return val, nil
		}
	}
	if ref.Fallback != nil {
		return e.eval(ref.Fallback, r)
	}
	return nil, &ReferenceError{Name: ref.Name}
}

// evalMath evaluates a node in numeric context.
func (e *Evaluator) evalMath(n Node, r Resolver) (*Number, error) {
	switch v := n.(type) {
	case *Number:
		return v, nil
	case *VarRef:
		val, err := e.lookup(v, r)
		if err != nil {
			return nil, err
		}
		num, ok := val.(*Number)
		if !ok {
			return nil, evalErrorf("var(--%s) is %q, not a number", v.Name, Format(val))
		}
		return num, nil
	case *Calc:
		return e.evalMath(v.Expr, r)
	case *BinaryOp:
		left, err := e.evalMath(v.Left, r)
		if err != nil {
			return nil, err
		}
		right, err := e.evalMath(v.Right, r)
		if err != nil {
			return nil, err
		}
		return applyOperator(v.Op, left, right)
	case *Func:
		if !IsMathFunction(v.Name) {
			return nil, evalErrorf("%s() does not produce a number", v.Name)
		}
		args := make([]*Number, 0, len(v.Args))
		for _, arg := range v.Args {
			num, err := e.evalMath(arg, r)
			if err != nil {
				return nil, err
			}
			args = append(args, num)
		}
		return applyMathFunction(v.Name, args)
	default:
		return nil, evalErrorf("%q is not a number", Format(n))
	}
}

// applyOperator applies a calc() operator with CSS unit rules.
func applyOperator(op ArithOperator, left, right *Number) (*Number, error) {
	switch op {
	case OpAdd, OpSubtract:
		if left.Unit != right.Unit {
			return nil, evalErrorf("cannot %s %s and %s: incompatible units", opVerb(op), Format(left), Format(right))
		}
		if op == OpAdd {
			return NewNumber(left.Value+right.Value, left.Unit), nil
		}
		return NewNumber(left.Value-right.Value, left.Unit), nil
	case OpMultiply:
		if left.Unit != "" && right.Unit != "" {
			return nil, evalErrorf("cannot multiply %s by %s: at most one operand may have a unit", Format(left), Format(right))
		}
		unit := left.Unit
		if unit == "" {
			unit = right.Unit
		}
		return NewNumber(left.Value*right.Value, unit), nil
	case OpDivide:
		if right.Unit != "" {
			return nil, evalErrorf("cannot divide %s by %s: divisor must be unitless", Format(left), Format(right))
		}
		if right.Value == 0 {
			return nil, evalErrorf("division by zero in %s / %s", Format(left), Format(right))
		}
		return NewNumber(left.Value/right.Value, left.Unit), nil
	default:
		return nil, evalErrorf("unknown operator %q", op)
	}
}

func opVerb(op ArithOperator) string {
	if op == OpAdd {
		return "add"
	}
	return "subtract"
}

// applyMathFunction evaluates mod(), rem(), min() and max().
func applyMathFunction(name string, args []*Number) (*Number, error) {
	if len(args) == 0 {
		return nil, evalErrorf("%s() requires at least one argument", name)
	}
	unit := args[0].Unit
	for _, arg := range args[1:] {
		if arg.Unit != unit {
			return nil, evalErrorf("%s() arguments have incompatible units %q and %q", name, unit, arg.Unit)
		}
	}

	switch name {
	case FuncMod, FuncRem:
		a, b := args[0].Value, args[1].Value
		if b == 0 {
			return nil, evalErrorf("%s() by zero", name)
		}
		if name == FuncRem {
			// sign of the dividend
			return NewNumber(math.Mod(a, b), unit), nil
		}
		// sign of the divisor
		return NewNumber(a-b*math.Floor(a/b), unit), nil
	case FuncMin, FuncMax:
		best := args[0].Value
		for _, arg := range args[1:] {
			if name == FuncMin {
				best = math.Min(best, arg.Value)
			} else {
				best = math.Max(best, arg.Value)
			}
		}
		return NewNumber(best, unit), nil
	default:
		return nil, evalErrorf("unknown math function %s()", name)
	}
}
