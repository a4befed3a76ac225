// Package expression parses and evaluates CSS custom property values:
// literals, var() references, calc() arithmetic, mod() and color functions.
package expression

// ArithOperator represents an arithmetic operator in calc().
type ArithOperator string

// Arithmetic operators.
const (
	OpAdd      ArithOperator = "+"
	OpSubtract ArithOperator = "-"
	OpMultiply ArithOperator = "*"
	OpDivide   ArithOperator = "/"
)

// IsAdditive returns true for operators that require matching units.
func (op ArithOperator) IsAdditive() bool {
	return op == OpAdd || op == OpSubtract
}

// Precedence returns the binding power of the operator.
func (op ArithOperator) Precedence() int {
	switch op {
	case OpMultiply, OpDivide:
		return 2
	default:
		return 1
	}
}

// Function names with special evaluation rules.
const (
	FuncVar  = "var"
	FuncCalc = "calc"
	FuncMod  = "mod"
	FuncRem  = "rem"
	FuncMin  = "min"
	FuncMax  = "max"
	FuncHSL  = "hsl"
	FuncHSLA = "hsla"
	FuncRGB  = "rgb"
	FuncRGBA = "rgba"
)

// mathFunctions take calc() sums as arguments and evaluate to a number.
var mathFunctions = map[string]int{
	FuncMod: 2,
	FuncRem: 2,
	FuncMin: -1,
	FuncMax: -1,
}

// colorFunctions hold color component arguments.
var colorFunctions = map[string]bool{
	FuncHSL:  true,
	FuncHSLA: true,
	FuncRGB:  true,
	FuncRGBA: true,
}

// IsMathFunction returns true if name is a math function evaluated by this package.
func IsMathFunction(name string) bool {
	_, ok := mathFunctions[name]
	return ok
}

// IsColorFunction returns true if name is a color function.
func IsColorFunction(name string) bool {
	return colorFunctions[name]
}
