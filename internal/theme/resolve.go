package theme

import (
	"container/heap"
	"errors"
	"slices"

	"github.com/jmylchreest/mcsstheme/internal/expression"
)

// Option configures resolution.
type Option func(*resolveOptions)

type resolveOptions struct {
	colorFormat expression.ColorFormat
}

func newResolveOptions(opts []Option) resolveOptions {
	o := resolveOptions{colorFormat: expression.ColorPreserve}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithColorFormat sets how resolved colors are written.
func WithColorFormat(format expression.ColorFormat) Option {
	return func(o *resolveOptions) {
		o.colorFormat = format
	}
}

// Resolved holds the literal value of every token of a theme.
type Resolved struct {
	theme  *Theme
	order  []string
	values map[string]expression.Node
}

// Entry is a single resolved token.
type Entry struct {
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group" yaml:"group"`
	Raw   string `json:"raw" yaml:"raw"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// ResolveAll evaluates every token in dependency order. The result holds
// each declared token exactly once.
func (t *Theme) ResolveAll(opts ...Option) (*Resolved, error) {
	order, err := t.order(nil)
	if err != nil {
		return nil, err
	}

	values, err := t.evaluate(order, newResolveOptions(opts))
	if err != nil {
		return nil, err
	}

	return &Resolved{theme: t, order: order, values: values}, nil
}

// EvaluationOrder returns token names in a valid evaluation order. Among
// tokens whose dependencies are satisfied, earlier declarations come first.
func (t *Theme) EvaluationOrder() ([]string, error) {
	return t.order(nil)
}

// Validate checks that every reference without a fallback names a declared
// token and that the reference graph is acyclic.
func (t *Theme) Validate() error {
	var errs []error
	for _, tok := range t.tokens {
		for _, name := range unguardedRefs(tok.value.Root) {
			if _, ok := t.index[name]; !ok {
				errs = append(errs, &UndefinedTokenError{Name: name, ReferencedBy: tok.Name})
			}
		}
	}
	if _, err := t.order(nil); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// order runs Kahn's algorithm over the tokens in subset, or over every token
// when subset is nil.
func (t *Theme) order(subset map[string]bool) ([]string, error) {
	included := func(name string) bool {
		return subset == nil || subset[name]
	}

	indegree := make(map[string]int)
	dependents := make(map[string][]*Token)
	ready := &indexHeap{}

	for _, tok := range t.tokens {
		if !included(tok.Name) {
			continue
		}
		for _, ref := range tok.value.References {
			if _, declared := t.index[ref]; !declared || !included(ref) {
				continue
			}
			indegree[tok.Name]++
			dependents[ref] = append(dependents[ref], tok)
		}
		if indegree[tok.Name] == 0 {
			heap.Push(ready, tok.Index)
		}
	}

	var order []string
	for ready.Len() > 0 {
		tok := t.tokens[heap.Pop(ready).(int)]
		order = append(order, tok.Name)
		for _, dep := range dependents[tok.Name] {
			indegree[dep.Name]--
			if indegree[dep.Name] == 0 {
				heap.Push(ready, dep.Index)
			}
		}
	}

	total := len(t.tokens)
	if subset != nil {
		total = len(subset)
	}
	if len(order) < total {
		return nil, &CyclicDependencyError{Cycle: t.findCycle(indegree)}
	}
	return order, nil
}

// findCycle returns one concrete cycle among tokens left with a positive
// in-degree after Kahn's algorithm. Every such token has at least one
// dependency that is also left, so following dependencies ends in a cycle.
func (t *Theme) findCycle(indegree map[string]int) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = visiting
		path = append(path, name)
		for _, ref := range t.index[name].value.References {
			if indegree[ref] == 0 {
				continue
			}
			switch state[ref] {
			case visiting:
				start := slices.Index(path, ref)
				cycle := append([]string(nil), path[start:]...)
				return append(cycle, ref)
			case unvisited:
				if cycle := visit(ref); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	for _, tok := range t.tokens {
		if indegree[tok.Name] > 0 && state[tok.Name] == unvisited {
			if cycle := visit(tok.Name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// evaluate computes token values following order.
func (t *Theme) evaluate(order []string, opts resolveOptions) (map[string]expression.Node, error) {
	values := make(map[string]expression.Node, len(order))
	evaluator := expression.NewEvaluator()
	evaluator.SetColorFormat(opts.colorFormat)

	for _, name := range order {
		tok := t.index[name]
		out, err := evaluator.Evaluate(tok.value, expression.MapResolver(values))
		if err != nil {
			var refErr *expression.ReferenceError
			if errors.As(err, &refErr) {
				return nil, &UndefinedTokenError{Name: refErr.Name, ReferencedBy: name}
			}
			return nil, &MalformedValueError{Name: name, Value: tok.Raw, Err: err}
		}
		values[name] = out
	}
	return values, nil
}

// unguardedRefs returns references that have no fallback.
func unguardedRefs(n expression.Node) []string {
	var refs []string
	var walk func(expression.Node)
	walk = func(n expression.Node) {
		switch v := n.(type) {
		case *expression.VarRef:
			if v.Fallback == nil {
				refs = append(refs, v.Name)
				return
			}
			walk(v.Fallback)
		case *expression.Calc:
			walk(v.Expr)
		case *expression.BinaryOp:
			walk(v.Left)
			walk(v.Right)
		case *expression.Func:
			for _, arg := range v.Args {
				walk(arg)
			}
		case *expression.List:
			for _, item := range v.Items {
				walk(item)
			}
		}
	}
	walk(n)
	return refs
}

// Theme returns the theme the values were resolved from.
func (r *Resolved) Theme() *Theme {
	return r.theme
}

// Order returns the evaluation order used.
func (r *Resolved) Order() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of resolved tokens.
func (r *Resolved) Len() int {
	return len(r.values)
}

// Get returns the resolved value of a token.
func (r *Resolved) Get(name string) (string, error) {
	node, ok := r.values[NormalizeName(name)]
	if !ok {
		return "", &UndefinedTokenError{Name: NormalizeName(name)}
	}
	return expression.Format(node), nil
}

// Value returns the resolved AST node of a token.
func (r *Resolved) Value(name string) (expression.Node, bool) {
	node, ok := r.values[NormalizeName(name)]
	return node, ok
}

// Map returns every token name mapped to its resolved value.
func (r *Resolved) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for name, node := range r.values {
		out[name] = expression.Format(node)
	}
	return out
}

// Entries returns resolved tokens in declaration order.
func (r *Resolved) Entries() []Entry {
	entries := make([]Entry, 0, len(r.theme.tokens))
	for _, tok := range r.theme.tokens {
		entries = append(entries, r.entry(tok))
	}
	return entries
}

// OrderedEntries returns resolved tokens in evaluation order, dependencies
// before the tokens that reference them.
func (r *Resolved) OrderedEntries() []Entry {
	entries := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.entry(r.theme.index[name]))
	}
	return entries
}

func (r *Resolved) entry(tok *Token) Entry {
	return Entry{
		Name:  tok.Name,
		Group: tok.Group,
		Raw:   tok.Raw,
		Value: expression.Format(r.values[tok.Name]),
	}
}

// indexHeap is a min-heap of declaration indexes.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
