// Package reasoning implements the reasoning summary pipeline (spec.md
// §4.6): while a function executes, it accumulates per-response
// confidence and reasoning text from every vector-completion leaf's
// votes, groups identical responses across leaves by content
// fingerprint, and — once the function's own terminal chunk is ready —
// streams a synthesis chat completion over the highest-confidence
// assertions before finally releasing that buffered terminal chunk.
//
// Grounded on original_source/objectiveai-api/src/functions/executions/
// client.rs's confidence accumulation pass (the reasoning_data
// tuple threaded alongside the ordinary chunk stream) and the teacher's
// llmprovider/adapter.go toRequest message-assembly idiom, adapted for
// building the single synthesis chat request instead of a per-node LLM
// call.
package reasoning

import (
	"github.com/objectiveai/engine/chunk"
)

// StreamItem is one increment of a reasoning-aware function execution:
// exactly one of the two chunk kinds the underlying executor emits, or
// the reasoning-summary chunk this package interleaves before the
// buffered terminal FunctionExecutionChunk.
type StreamItem struct {
	Vector    *chunk.VectorCompletionTaskChunk
	Function  *chunk.FunctionExecutionChunk
	Reasoning *chunk.ReasoningSummaryChunk
}
