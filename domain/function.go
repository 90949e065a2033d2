package domain

// FunctionTypeKind distinguishes a Scalar function (single decimal
// output) from a Vector function (a decimal vector output).
type FunctionTypeKind string

const (
	FunctionTypeScalar FunctionTypeKind = "scalar"
	FunctionTypeVector FunctionTypeKind = "vector"
)

// FunctionType describes the shape of output a Function produces.
// OutputLength is known (Some(n)) for remote vector functions that
// declare an output_length expression; it is nil when the length is not
// statically determined (e.g. an inline vector function).
type FunctionType struct {
	Kind         FunctionTypeKind
	OutputLength *int
}

// FunctionLocation tags whether a Function definition is Remote
// (fetched by owner/repository/commit) or already resolved/inline.
type FunctionLocation string

const (
	FunctionLocationRemote FunctionLocation = "remote"
	FunctionLocationInline FunctionLocation = "inline"
)

// FunctionParam is the four-way dispatch the FTP resolver takes for a
// function/profile reference, recovered from
// original_source/objectiveai-api/src/functions/flat_task_profile.rs:
// FunctionParam/ProfileParam are each either Remote{owner,repository,commit}
// or FetchedOrInline{full_id,value}.
type FunctionParam struct {
	Location   FunctionLocation
	Owner      string
	Repository string
	Commit     string // optional; empty means "latest"
	FullID     string // set when Location == Inline and the value came from a fetch
	Value      *FunctionDefinition
}

// ProfileParam mirrors FunctionParam for profile references.
type ProfileParam struct {
	Location   FunctionLocation
	Owner      string
	Repository string
	Commit     string
	FullID     string
	Value      Profile
}

// FunctionDefinition is a function's definition prior to task
// compilation: either Remote (carries description/schema/input_maps/
// tasks plus, for vector functions, output_length/input_split/
// input_merge expressions) or Inline (omits schema/description).
type FunctionDefinition struct {
	Location     FunctionLocation
	Description  string
	Changelog    string
	InputSchema  *Input // JSON-schema-shaped Input; nil means unchecked
	InputMaps    []ExpressionSpec
	Tasks        []TaskExpression
	Type         FunctionTypeKind
	Output       ExpressionSpec // compiled against the gathered output_input (the `output` binding) once every task completes
	OutputLength ExpressionSpec // compiled against input when Type == Vector and Location == Remote
	InputSplit   ExpressionSpec
	InputMerge   ExpressionSpec
}

// ExpressionSpec is the `{value | expression}` wrapper from spec.md §3:
// either a literal Input value or a dynamic expression compiled later
// against a Params binding.
type ExpressionSpec struct {
	IsLiteral bool
	Literal   Input
	Dialect   ExpressionDialect
	Source    string
}

// ExpressionDialect selects which of the two expression languages a
// dynamic ExpressionSpec is written in.
type ExpressionDialect string

const (
	ExpressionDialectJMESPath ExpressionDialect = "jmespath"
	ExpressionDialectStarlark ExpressionDialect = "starlark"
)

// TaskKind tags a TaskExpression/Task variant.
type TaskKind string

const (
	TaskKindScalarFunction             TaskKind = "scalar.function"
	TaskKindVectorFunction             TaskKind = "vector.function"
	TaskKindVectorCompletion          TaskKind = "vector.completion"
	TaskKindPlaceholderScalarFunction TaskKind = "placeholder.scalar.function"
	TaskKindPlaceholderVectorFunction TaskKind = "placeholder.vector.function"
)

// TaskExpression is a task definition with dynamic expressions not yet
// compiled against input data.
type TaskExpression struct {
	Kind TaskKind

	// ScalarFunction / VectorFunction
	Function ProfiledFunctionRef

	// VectorCompletion
	VectorCompletion VectorCompletionTaskExpr

	Skip  *ExpressionSpec // receives: input
	Map   *int            // index into the enclosing function's input_maps
	Input ExpressionSpec  // receives: input, map (if mapped)
	Output ExpressionSpec // receives: output (TaskOutput variant, see domain.TaskOutput)
}

// ProfiledFunctionRef is a (function, profile) reference pair used by
// scalar/vector function tasks.
type ProfiledFunctionRef struct {
	Function FunctionParam
	Profile  ProfileParam
}

// VectorCompletionTaskExpr is a vector-completion task's pre-compilation
// form: messages/tools/responses expressions plus an ensemble/profile
// reference.
type VectorCompletionTaskExpr struct {
	Ensemble EnsembleParam
	Profile  ProfileParam
	Messages ExpressionSpec
	Tools    ExpressionSpec // optional
	Responses ExpressionSpec
}

// EnsembleParam mirrors FunctionParam/ProfileParam for ensemble
// references: either Remote (an ensemble fetched by ID) or inline
// (Value holds the EnsembleBase, validated during resolution).
type EnsembleParam struct {
	Location FunctionLocation
	ID       string
	FullID   string
	Value    *EnsembleBase
}
