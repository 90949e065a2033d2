// Package expr compiles JMESPath and Starlark expression sources against
// a Params binding ({input, output, map}) and yields typed domain values,
// following spec.md §4.1. JMESPath and Starlark themselves are treated as
// opaque expression languages (spec.md §1 Out of scope): their concrete
// syntax and evaluation semantics are delegated to real third-party
// libraries (github.com/jmespath/go-jmespath, go.starlark.net); this
// package owns only the binding construction, the value conversion layer
// between domain.Input/domain.TaskOutput and each library's native value
// representation, and the one-or-many yield semantics.
//
// Grounded on the teacher's nodes/conditional/expr package: the
// marker-interface/closed-dispatch style of Eval, and the falsy-value and
// regex-cache idioms reused where this package needs similar primitives.
package expr

import "github.com/objectiveai/engine/domain"

// Params is the binding record every compiled expression evaluates
// against. Each field is optional; a nil Output or Map means the
// expression is being compiled in a context where that binding does not
// apply (e.g. a task's `skip` expression only ever receives Input).
type Params struct {
	Input *domain.Input

	// Output binds a single task's own raw result under the `output` key
	// (a task's output expression). OutputMany binds the enclosing
	// function's gathered output_input — one already-evaluated Input per
	// task — under the same `output` key (a function's own output
	// expression); the two are mutually exclusive per call site.
	Output     *domain.TaskOutput
	OutputMany []domain.Input

	Map *domain.Input
}

// Dialect identifies which expression language compiled an expression.
type Dialect string

const (
	DialectJMESPath Dialect = "jmespath"
	DialectStarlark Dialect = "starlark"
)

// Compiled is a parsed, ready-to-evaluate expression.
type Compiled interface {
	Dialect() Dialect
	Source() string
	Eval(p Params) (Result, error)
}

// Result is the outcome of evaluating a Compiled expression: either a
// single value, or a "many" sequence produced by flattening nested
// arrays, per spec.md §4.1 "one-or-many yield semantics".
type Result struct {
	Many   bool
	Single domain.Input
	Values []domain.Input
}

// One wraps a single-valued Result.
func One(v domain.Input) Result { return Result{Single: v} }

// FlattenToMany flattens a (possibly nested) array Input into a single
// sequence, producing a many-valued Result. Non-array inputs become a
// one-element sequence.
func FlattenToMany(v domain.Input) Result {
	var out []domain.Input
	var walk func(domain.Input)
	walk = func(in domain.Input) {
		if in.Kind == domain.InputKindArray {
			for _, e := range in.Array {
				walk(e)
			}
			return
		}
		out = append(out, in)
	}
	walk(v)
	return Result{Many: true, Values: out}
}

// AsSingle returns r as a single value, taking the first element of a
// many-valued result (or Null if empty).
func (r Result) AsSingle() domain.Input {
	if !r.Many {
		return r.Single
	}
	if len(r.Values) == 0 {
		return domain.NewNull()
	}
	return r.Values[0]
}
