package expression

import (
	"math"
	"strconv"
	"strings"
)

// numberPrecision is the number of decimal places kept when printing numbers.
const numberPrecision = 6

// Format renders a node as canonical CSS text.
func Format(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

// FormatNumber renders a number without trailing zeros.
func FormatNumber(v float64) string {
	v = roundTo(v, numberPrecision)
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeNode(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Number:
		sb.WriteString(FormatNumber(v.Value))
		sb.WriteString(v.Unit)
	case *Keyword:
		sb.WriteString(v.Name)
	case *Hash:
		sb.WriteString(v.Text)
	case *String:
		quote := v.Quote
		if quote == 0 {
			quote = '"'
		}
		sb.WriteRune(quote)
		for _, ch := range v.Value {
			if ch == quote || ch == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteRune(ch)
		}
		sb.WriteRune(quote)
	case *VarRef:
		sb.WriteString("var(--")
		sb.WriteString(v.Name)
		if v.Fallback != nil {
			sb.WriteString(",")
			if fallback := Format(v.Fallback); fallback != "" {
				sb.WriteString(" ")
				sb.WriteString(fallback)
			}
		}
		sb.WriteString(")")
	case *Calc:
		sb.WriteString("calc(")
		writeNode(sb, v.Expr)
		sb.WriteString(")")
	case *BinaryOp:
		writeOperand(sb, v.Left, v.Op, false)
		sb.WriteString(" ")
		sb.WriteString(string(v.Op))
		sb.WriteString(" ")
		writeOperand(sb, v.Right, v.Op, true)
	case *Func:
		sb.WriteString(v.Name)
		sb.WriteString("(")
		for i, arg := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeNode(sb, arg)
		}
		sb.WriteString(")")
	case *List:
		sep := " "
		switch v.Separator {
		case SeparatorComma:
			sep = ", "
		case SeparatorSlash:
			sep = " / "
		}
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(sep)
			}
			writeNode(sb, item)
		}
	}
}

// writeOperand writes a calc() operand, parenthesizing nested operations that
// bind looser than the parent.
func writeOperand(sb *strings.Builder, n Node, parent ArithOperator, right bool) {
	child, ok := n.(*BinaryOp)
	if !ok {
		writeNode(sb, n)
		return
	}
	needParens := child.Op.Precedence() < parent.Precedence() ||
		(right && child.Op.Precedence() == parent.Precedence() && (parent == OpSubtract || parent == OpDivide))
	if needParens {
		sb.WriteString("(")
	}
	writeNode(sb, n)
	if needParens {
		sb.WriteString(")")
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
