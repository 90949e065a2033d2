// Package ftp resolves a Function/Profile reference pair plus an input
// value into a fully materialized task-profile tree (a "FTP" — Function
// Task Profile), recursively fetching remote functions/profiles/
// ensembles and compiling each task's skip/map/input expressions
// against the input, per spec.md §4.4.
//
// Grounded on original_source/objectiveai-api/src/functions/
// flat_task_profile.rs: the four-way FunctionParam/ProfileParam dispatch,
// the task-index-length arithmetic, and the try_join_all fail-fast
// concurrent resolution are carried from there; the manual Rust
// TaskFut/Poll state machine is replaced with golang.org/x/sync/errgroup.
package ftp

import "github.com/objectiveai/engine/domain"

// FunctionFTP is a fully-resolved function task-profile tree: the
// function definition, the profile it runs under, the input it was
// compiled against, and a recursively-resolved child per declared task
// slot in declaration order — the shape the streaming executor (§4.5)
// walks.
type FunctionFTP struct {
	Type     domain.FunctionType
	Function domain.FunctionDefinition
	Profile  domain.Profile
	Input    domain.Input
	Children []TaskFTP
}

// TaskFTP is one compiled task slot's resolved form. Exactly one of
// Function/MapFunction/VectorCompletion/MapVectorCompletion is populated,
// unless Skipped is true, in which case none are.
type TaskFTP struct {
	Skipped bool

	Function            *FunctionFTP
	MapFunction         *MapFunctionFTP
	VectorCompletion    *VectorCompletionFTP
	MapVectorCompletion *MapVectorCompletionFTP
}

// MapFunctionFTP is a mapped scalar/vector function task: one
// FunctionFTP per input_maps element the task was re-compiled against.
type MapFunctionFTP struct {
	Children []FunctionFTP
}

// VectorCompletionFTP is a resolved vector-completion leaf: a validated
// ensemble paired with its aligned profile and the compiled
// messages/tools/responses the vector completion engine (§4.3) needs.
type VectorCompletionFTP struct {
	Ensemble  domain.Ensemble
	Profile   domain.Profile
	Messages  domain.Messages
	Tools     []domain.ToolDefinition
	Responses []domain.Input
}

// MapVectorCompletionFTP is a mapped vector-completion task: one
// VectorCompletionFTP per input_maps element.
type MapVectorCompletionFTP struct {
	Children []VectorCompletionFTP
}

// TaskIndexLen returns how many flat leaf slots this TaskFTP contributes
// to the enclosing function's retry-token layout. Unlike
// domain.CompiledTaskSlot.TaskIndexLen, which counts any single task as
// 1, this recurses into resolved nested functions and sums their leaves.
func (t TaskFTP) TaskIndexLen() int {
	switch {
	case t.Skipped, t.VectorCompletion != nil:
		return 1
	case t.Function != nil:
		return t.Function.TaskIndexLen()
	case t.MapFunction != nil:
		if len(t.MapFunction.Children) == 0 {
			return 1
		}
		n := 0
		for _, c := range t.MapFunction.Children {
			n += c.TaskIndexLen()
		}
		if n == 0 {
			return 1
		}
		return n
	case t.MapVectorCompletion != nil:
		if len(t.MapVectorCompletion.Children) == 0 {
			return 1
		}
		return len(t.MapVectorCompletion.Children)
	default:
		return 1
	}
}

// TaskIndexLen returns the total number of flat leaf slots across f's
// children, in declaration order — the length a retry token for this
// function must have.
func (f FunctionFTP) TaskIndexLen() int {
	n := 0
	for _, c := range f.Children {
		n += c.TaskIndexLen()
	}
	return n
}

// TaskIndices returns, for each child in declaration order, the starting
// flat offset that child's slots occupy within f's retry-token layout.
func (f FunctionFTP) TaskIndices() []int {
	out := make([]int, len(f.Children))
	offset := 0
	for i, c := range f.Children {
		out[i] = offset
		offset += c.TaskIndexLen()
	}
	return out
}
