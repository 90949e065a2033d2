package exec

import (
	"context"

	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/ftp"
)

// dispatchTask runs one compiled task slot to completion, forwarding its
// live deltas onto out and returning its OutputChunk for the parent to
// splice into its own output_input/retry token. retry is the slice of
// the enclosing function's retry token that belongs to this slot;
// localIndex is this slot's position among its siblings.
func dispatchTask(ctx context.Context, t ftp.TaskFTP, retry domain.RetryToken, localIndex int, req Request, client Client, fetchers Fetchers, out chan<- StreamItem) chunk.OutputChunk {
	switch {
	case t.Skipped:
		return chunk.OutputChunk{TaskIndex: localIndex, RetryToken: retry}
	case t.Function != nil:
		fo, rt := executeFunctionSubtree(ctx, t.Function, retry, req, client, fetchers, out)
		return chunk.OutputChunk{
			TaskIndex:  localIndex,
			Output:     domain.TaskOutput{Kind: domain.TaskOutputFunction, Function: fo},
			RetryToken: rt,
		}
	case t.MapFunction != nil:
		return executeMapFunctionSubtree(ctx, t.MapFunction, retry, localIndex, req, client, fetchers, out)
	case t.VectorCompletion != nil:
		// A lone (unmapped) leaf is its own trivial one-choice subtree.
		return executeVectorLeaf(ctx, t.VectorCompletion, retry, localIndex, req, client, fetchers, out, 0)
	case t.MapVectorCompletion != nil:
		return executeMapVectorLeaf(ctx, t.MapVectorCompletion, retry, localIndex, req, client, fetchers, out)
	default:
		return chunk.OutputChunk{TaskIndex: localIndex, RetryToken: retry}
	}
}
