package expression

import "fmt"

// ParseError is returned when a value cannot be tokenized or parsed.
type ParseError struct {
	Message string
	Pos     int
	Input   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Pos, e.Input, e.Message)
}

// EvalError is returned when a well-formed value cannot be evaluated, for
// example on a unit mismatch or a division by zero.
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string {
	return "evaluation error: " + e.Message
}

// ReferenceError is returned when var() names a property the resolver does
// not know and no fallback is given.
type ReferenceError struct {
	Name string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference to undefined custom property --%s", e.Name)
}

func evalErrorf(format string, args ...any) *EvalError {
	return &EvalError{Message: fmt.Sprintf(format, args...)}
}
