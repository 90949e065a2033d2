package expr

import (
	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
)

// Compile parses source in the given dialect into a ready-to-evaluate
// Compiled expression.
func Compile(dialect domain.ExpressionDialect, source string) (Compiled, error) {
	switch dialect {
	case domain.ExpressionDialectJMESPath:
		return CompileJMESPath(source)
	case domain.ExpressionDialectStarlark:
		return CompileStarlark(source)
	default:
		return nil, apperr.ExpressionParse(source, "unknown expression dialect", true)
	}
}

// EvalSpec evaluates an ExpressionSpec: literal specs return their value
// directly (no compilation), dynamic specs are compiled and evaluated
// against p.
func EvalSpec(spec domain.ExpressionSpec, p Params) (Result, error) {
	if spec.IsLiteral {
		return One(spec.Literal), nil
	}
	c, err := Compile(spec.Dialect, spec.Source)
	if err != nil {
		return Result{}, err
	}
	return c.Eval(p)
}

// EvalSpecSingle evaluates spec and collapses a many-valued result to its
// first element, for contexts that want exactly one value (e.g. `skip`,
// `input`).
func EvalSpecSingle(spec domain.ExpressionSpec, p Params) (domain.Input, error) {
	r, err := EvalSpec(spec, p)
	if err != nil {
		return domain.Input{}, err
	}
	return r.AsSingle(), nil
}
