package chunk

import "github.com/objectiveai/engine/llm"

// FunctionAggregator folds a stream of FunctionExecutionChunks into one
// running aggregate, per spec.md §4.7 `push`: identity/content fields
// from the latest chunk win, Usage sums across every pushed chunk, and
// TasksErrors is sticky once set. Used both to produce a unary response
// (collect every chunk, return the final aggregate) and to seed first-
// chunk semantics (push the first item, then keep chaining).
type FunctionAggregator struct {
	agg FunctionExecutionChunk
}

// NewFunctionAggregator starts an empty aggregator.
func NewFunctionAggregator() *FunctionAggregator {
	return &FunctionAggregator{}
}

// Push merges delta into the running aggregate and returns the updated
// aggregate value.
func (a *FunctionAggregator) Push(delta FunctionExecutionChunk) FunctionExecutionChunk {
	if delta.ResponseID != "" {
		a.agg.ResponseID = delta.ResponseID
	}
	a.agg.Function = delta.Function
	a.agg.Profile = delta.Profile
	a.agg.Object = delta.Object
	if delta.Output != nil {
		a.agg.Output = delta.Output
	}
	if delta.TasksErrors {
		a.agg.TasksErrors = true
	}
	if delta.Error != nil {
		a.agg.Error = delta.Error
	}
	if delta.RetryToken != "" {
		a.agg.RetryToken = delta.RetryToken
	}
	if delta.Usage != nil {
		a.agg.Usage = SumUsage(a.agg.Usage, delta.Usage)
	}
	a.agg.Done = delta.Done
	return a.agg
}

// Final returns the current aggregate value without pushing anything.
func (a *FunctionAggregator) Final() FunctionExecutionChunk {
	return a.agg
}

// SumUsage adds b into a, treating a nil a as a zero starting point.
func SumUsage(a, b *llm.Usage) *llm.Usage {
	if a == nil {
		u := *b
		return &u
	}
	return &llm.Usage{
		InputTokens:  a.InputTokens + b.InputTokens,
		OutputTokens: a.OutputTokens + b.OutputTokens,
		TotalTokens:  a.TotalTokens + b.TotalTokens,
	}
}
