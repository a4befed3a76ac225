package theme

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below wrap these so callers can match with
// errors.Is and still extract details with errors.As.
var (
	// ErrUndefinedToken indicates a lookup or var() reference to a token
	// that is not declared.
	ErrUndefinedToken = errors.New("undefined token")

	// ErrCyclicDependency indicates derived tokens that reference each other
	// so that no evaluation order exists.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrMalformedValue indicates a value that cannot be parsed or evaluated.
	ErrMalformedValue = errors.New("malformed value")
)

// UndefinedTokenError reports an unknown token name.
type UndefinedTokenError struct {
	Name string
	// ReferencedBy is the token whose value references Name, empty for
	// direct lookups.
	ReferencedBy string
}

// Error implements the error interface.
func (e *UndefinedTokenError) Error() string {
	if e.ReferencedBy != "" {
		return fmt.Sprintf("%s: --%s (referenced by --%s)", ErrUndefinedToken, e.Name, e.ReferencedBy)
	}
	return fmt.Sprintf("%s: --%s", ErrUndefinedToken, e.Name)
}

// Unwrap returns ErrUndefinedToken.
func (e *UndefinedTokenError) Unwrap() error {
	return ErrUndefinedToken
}

// CyclicDependencyError reports a reference cycle. Cycle starts and ends
// with the same token, e.g. [a b a].
type CyclicDependencyError struct {
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, name := range e.Cycle {
		parts[i] = "--" + name
	}
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(parts, " -> "))
}

// Unwrap returns ErrCyclicDependency.
func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// MalformedValueError reports a token value that failed to parse or evaluate.
type MalformedValueError struct {
	Name  string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *MalformedValueError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", ErrMalformedValue, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: --%s: %q", ErrMalformedValue, e.Name, e.Value)
	}
	return fmt.Sprintf("%s: --%s: %v", ErrMalformedValue, e.Name, e.Err)
}

// Is reports whether target is ErrMalformedValue.
func (e *MalformedValueError) Is(target error) bool {
	return target == ErrMalformedValue
}

// Unwrap returns the underlying parse or evaluation error.
func (e *MalformedValueError) Unwrap() error {
	return e.Err
}
