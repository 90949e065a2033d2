package exec

import (
	"context"
	"sync"

	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/ftp"
)

// executeFunctionSubtree runs spec.md §4.5's "Function subtree" steps:
// it allocates a response_id, concurrently streams every child task
// slot, gathers each slot's task-level output expression result into
// output_input, compiles the function's own output expression against
// it, and emits the subtree's terminal FunctionExecutionChunk. It
// returns the resulting FunctionOutput and the assembled retry token so
// the caller (dispatchTask) can place them into the parent's own
// output_input/retry-token layout.
func executeFunctionSubtree(ctx context.Context, f *ftp.FunctionFTP, retry domain.RetryToken, req Request, client Client, fetchers Fetchers, out chan<- StreamItem) (domain.FunctionOutput, domain.RetryToken) {
	prefix := chunk.PrefixScalarFunction
	if f.Type.Kind == domain.FunctionTypeVector {
		prefix = chunk.PrefixVectorFunction
	}
	responseID := chunk.NewResponseID(prefix)

	indices := f.TaskIndices()
	n := len(f.Children)
	retryOut := make(domain.RetryToken, f.TaskIndexLen())
	copy(retryOut, retry)

	childResults := make([]chunk.OutputChunk, n)

	var wg sync.WaitGroup
	for i, child := range f.Children {
		start := indices[i]
		length := child.TaskIndexLen()
		var childRetry domain.RetryToken
		if start+length <= len(retry) {
			childRetry = retry[start : start+length]
		}

		wg.Add(1)
		go func(i int, child ftp.TaskFTP, childRetry domain.RetryToken, start, length int) {
			defer wg.Done()
			oc := dispatchTask(ctx, child, childRetry, i, req, client, fetchers, out)
			childResults[i] = oc
			if start+length <= len(retryOut) {
				copy(retryOut[start:start+length], oc.RetryToken)
			}
		}(i, child, childRetry, start, length)
	}
	wg.Wait()

	outputInput := make([]domain.Input, n)
	tasksErrors := false
	for i, oc := range childResults {
		v, err := evalTaskOutput(f.Function.Tasks[i].Output, oc.Output)
		if err != nil {
			tasksErrors = true
			v = domain.NewNull()
		}
		outputInput[i] = v
	}

	output, ferr := evalFunctionOutput(f.Function, f.Type, outputInput)
	if ferr != nil {
		tasksErrors = true
	}

	final := chunk.FunctionExecutionChunk{}.
		WithIdentity(responseID, f.Function, f.Profile, f.Input).
		WithTasksErrors(tasksErrors).
		WithTerminal(output, ferr, domain.EncodeRetryToken(retryOut), nil)
	out <- StreamItem{Function: &final}

	return output, retryOut
}

// executeMapFunctionSubtree runs spec.md §4.5's "MapFunction subtree":
// one nested executeFunctionSubtree per input_maps element, concurrently,
// merging their retry tokens at the corresponding offsets and returning a
// single OutputChunk carrying the []FunctionOutput list.
func executeMapFunctionSubtree(ctx context.Context, m *ftp.MapFunctionFTP, retry domain.RetryToken, localIndex int, req Request, client Client, fetchers Fetchers, out chan<- StreamItem) chunk.OutputChunk {
	n := len(m.Children)
	if n == 0 {
		return chunk.OutputChunk{
			TaskIndex:  localIndex,
			Output:     domain.TaskOutput{Kind: domain.TaskOutputMapFunction},
			RetryToken: retry,
		}
	}

	offsets := make([]int, n)
	lens := make([]int, n)
	offset := 0
	for i := range m.Children {
		offsets[i] = offset
		lens[i] = m.Children[i].TaskIndexLen()
		offset += lens[i]
	}
	retryOut := make(domain.RetryToken, offset)
	copy(retryOut, retry)

	outputs := make([]domain.FunctionOutput, n)
	var wg sync.WaitGroup
	for i := range m.Children {
		start, length := offsets[i], lens[i]
		var childRetry domain.RetryToken
		if start+length <= len(retry) {
			childRetry = retry[start : start+length]
		}
		wg.Add(1)
		go func(i, start, length int, childRetry domain.RetryToken) {
			defer wg.Done()
			fo, rt := executeFunctionSubtree(ctx, &m.Children[i], childRetry, req, client, fetchers, out)
			outputs[i] = fo
			if start+length <= len(retryOut) {
				copy(retryOut[start:start+length], rt)
			}
		}(i, start, length, childRetry)
	}
	wg.Wait()

	return chunk.OutputChunk{
		TaskIndex:  localIndex,
		Output:     domain.TaskOutput{Kind: domain.TaskOutputMapFunction, MapFunction: outputs},
		RetryToken: retryOut,
	}
}
