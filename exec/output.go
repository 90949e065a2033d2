package exec

import (
	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/expr"
	"github.com/shopspring/decimal"
)

// evalTaskOutput compiles a task's own output expression against its raw
// result, per domain.Task.Output's doc comment: "compiled later, against
// the task's raw result, once that result exists".
func evalTaskOutput(spec domain.ExpressionSpec, raw domain.TaskOutput) (domain.Input, error) {
	result, err := expr.EvalSpecSingle(spec, expr.Params{Output: &raw})
	if err != nil {
		return domain.NewNull(), err
	}
	return result, nil
}

// evalFunctionOutput compiles the function's own output expression
// against the gathered output_input (each task's own evalTaskOutput
// result, in declaration order) and validates the result against the
// function's declared type, per spec.md §4.5 step 5.
func evalFunctionOutput(fn domain.FunctionDefinition, ftype domain.FunctionType, outputInput []domain.Input) (domain.FunctionOutput, error) {
	result, err := expr.EvalSpecSingle(fn.Output, expr.Params{OutputMany: outputInput})
	if err != nil {
		return domain.NewErrOutput(domain.NewString(err.Error())), err
	}

	switch ftype.Kind {
	case domain.FunctionTypeScalar:
		d, ok := inputToDecimal(result)
		if !ok || d.LessThan(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(1)) {
			f, _ := d.Float64()
			e := apperr.InvalidScalarOutput(f)
			return domain.NewErrOutput(domain.NewString(e.Error())), e
		}
		return domain.NewScalarOutput(d), nil

	case domain.FunctionTypeVector:
		if result.Kind != domain.InputKindArray {
			e := apperr.InvalidVectorOutput(0, "expected an array")
			return domain.NewErrOutput(domain.NewString(e.Error())), e
		}
		vec := make([]decimal.Decimal, len(result.Array))
		sum := decimal.Zero
		for i, v := range result.Array {
			d, ok := inputToDecimal(v)
			if !ok {
				e := apperr.InvalidVectorOutput(len(result.Array), "non-numeric element")
				return domain.NewErrOutput(domain.NewString(e.Error())), e
			}
			vec[i] = d
			sum = sum.Add(d)
		}
		if sum.LessThan(decimal.NewFromFloat(0.99)) || sum.GreaterThan(decimal.NewFromFloat(1.01)) {
			e := apperr.InvalidVectorOutput(len(vec), "sum out of [0.99, 1.01]")
			return domain.NewErrOutput(domain.NewString(e.Error())), e
		}
		if ftype.OutputLength != nil && len(vec) != *ftype.OutputLength {
			e := apperr.InvalidVectorOutput(len(vec), "length does not match output_length")
			return domain.NewErrOutput(domain.NewString(e.Error())), e
		}
		return domain.NewVectorOutput(vec), nil

	default:
		e := apperr.ExpressionEval("output", "unknown function type", true)
		return domain.NewErrOutput(domain.NewString(e.Error())), e
	}
}

func inputToDecimal(in domain.Input) (decimal.Decimal, bool) {
	switch in.Kind {
	case domain.InputKindInteger:
		return decimal.NewFromInt(in.Int), true
	case domain.InputKindNumber:
		return decimal.NewFromFloat(in.Num), true
	default:
		return decimal.Zero, false
	}
}
