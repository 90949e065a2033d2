// Package chunk defines the three chunk kinds the streaming task
// executor (package exec, spec.md §4.5) yields, the push-merge
// aggregation spec.md §4.7 describes, and the response-id codec. Value-
// receiver `With*` builder methods follow the teacher's runtime/events.go
// Event idiom (copy-and-set, chainable).
package chunk

import (
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/llm"
	"github.com/objectiveai/engine/vector"
)

// VectorCompletionTaskChunk is a delta from a vector-completion leaf,
// propagated upward unchanged except for the TaskIndex annotation that
// places it within the enclosing function tree. ChoiceIndex is the
// stable, contiguous ordinal the enclosing mapped vector-completion
// task's ChoiceIndexer assigned to TaskIndex (0 for a lone leaf); ResponseID is this leaf's own generated id
// (stable across every chunk streamed from the same leaf invocation),
// the correlation key the reasoning pipeline groups by. Responses is the
// leaf's materialized response option list (constant across every chunk
// from the same leaf), carried so the reasoning pipeline can fingerprint
// each option without re-walking the resolved FTP tree.
type VectorCompletionTaskChunk struct {
	TaskIndex   int
	ChoiceIndex int
	ResponseID  string
	Responses   []domain.Input
	Chunk       vector.Chunk
	Error       error
}

// FunctionExecutionChunk is the terminal chunk of a (possibly nested)
// function subtree, carrying this function's identity, Output,
// TasksErrors and RetryToken. Child deltas are forwarded as they are,
// not re-wrapped in a FunctionExecutionChunk, and Usage is not filled
// in (it stays nil).
type FunctionExecutionChunk struct {
	ResponseID  string
	Function    domain.FunctionDefinition
	Profile     domain.Profile
	Object      domain.Input
	Output      *domain.FunctionOutput
	TasksErrors bool
	Error       error
	RetryToken  string
	Usage       *llm.Usage
	Done        bool
}

// WithIdentity sets the response_id/function/profile/object fields that
// identify the subtree a chunk comes from.
func (c FunctionExecutionChunk) WithIdentity(responseID string, function domain.FunctionDefinition, profile domain.Profile, object domain.Input) FunctionExecutionChunk {
	c.ResponseID = responseID
	c.Function = function
	c.Profile = profile
	c.Object = object
	return c
}

// WithTasksErrors sets the sticky tasks_errors flag.
func (c FunctionExecutionChunk) WithTasksErrors(v bool) FunctionExecutionChunk {
	c.TasksErrors = v
	return c
}

// WithTerminal attaches the terminal-only fields (spec.md §4.5 step 6).
func (c FunctionExecutionChunk) WithTerminal(output domain.FunctionOutput, errVal error, retryToken string, usage *llm.Usage) FunctionExecutionChunk {
	c.Output = &output
	c.Error = errVal
	c.RetryToken = retryToken
	c.Usage = usage
	c.Done = true
	return c
}

// ReasoningSummaryChunk is one increment of the reasoning-summary chat
// completion stream (spec.md §4.6 step 6), emitted between a function's
// last ordinary delta and its (buffered) terminal FunctionExecutionChunk.
type ReasoningSummaryChunk struct {
	Chunk llm.ChatCompletionChunk
	Error error
}

// OutputChunk is the terminal per-subtree artifact a child hands its
// parent: the task's output value at its local index, and the retry-
// token slice to splice into the parent's retry token at that position.
type OutputChunk struct {
	TaskIndex  int
	Output     domain.TaskOutput
	RetryToken domain.RetryToken
}
