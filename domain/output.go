package domain

import "github.com/shopspring/decimal"

// FunctionOutputKind tags a FunctionOutput variant.
type FunctionOutputKind string

const (
	FunctionOutputScalar FunctionOutputKind = "scalar"
	FunctionOutputVector FunctionOutputKind = "vector"
	FunctionOutputErr    FunctionOutputKind = "error"
)

// FunctionOutput is the result of a scalar or vector function: a single
// decimal in [0, 1], a decimal vector summing to ~1, or an error payload
// (the function's output expression failed, or its result violated the
// bounds/sum invariant).
type FunctionOutput struct {
	Kind   FunctionOutputKind
	Scalar decimal.Decimal
	Vector []decimal.Decimal
	Err    Input
}

func NewScalarOutput(v decimal.Decimal) FunctionOutput {
	return FunctionOutput{Kind: FunctionOutputScalar, Scalar: v}
}

func NewVectorOutput(v []decimal.Decimal) FunctionOutput {
	return FunctionOutput{Kind: FunctionOutputVector, Vector: v}
}

func NewErrOutput(err Input) FunctionOutput {
	return FunctionOutput{Kind: FunctionOutputErr, Err: err}
}

// VectorCompletionOutput is the aggregate result of a vector-completion
// leaf, attached to the OutputChunk that the streaming executor's
// vector-completion coroutine emits.
type VectorCompletionOutput struct {
	Votes   []Vote
	Scores  []decimal.Decimal
	Weights []decimal.Decimal
}

// TaskOutputKind tags the four raw-result shapes an output expression may
// receive, per spec.md §3 "Task (expression form)" / §4.1.
type TaskOutputKind string

const (
	TaskOutputFunction              TaskOutputKind = "function"
	TaskOutputMapFunction           TaskOutputKind = "map_function"
	TaskOutputVectorCompletion      TaskOutputKind = "vector_completion"
	TaskOutputMapVectorCompletion   TaskOutputKind = "map_vector_completion"
)

// TaskOutput is the raw pre-output-expression result threaded into a
// task's `output` expression as the `output` binding.
type TaskOutput struct {
	Kind               TaskOutputKind
	Function           FunctionOutput
	MapFunction        []FunctionOutput
	VectorCompletion   VectorCompletionOutput
	MapVectorCompletion []VectorCompletionOutput
}
