// Package exec implements the streaming task executor (spec.md §4.5): it
// walks a resolved ftp.FunctionFTP tree, running each task slot
// concurrently, threading a retry token through the tree, and emitting a
// flattened stream of chunk.VectorCompletionTaskChunk and
// chunk.FunctionExecutionChunk values.
//
// Grounded on the teacher's runtime.go executeGraphParallel (worker
// goroutines racing to completion, writing into a shared result channel,
// a WaitGroup-style completion barrier per node's dependents) and
// runtime/events.go's Event broadcast idiom, generalized from a DAG of
// named nodes to the FTP tree's task-slot structure.
package exec

import (
	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/llm"
	"github.com/objectiveai/engine/vector"
)

// Request bundles the per-call vote-sourcing knobs that apply uniformly
// to every vector-completion leaf reachable from the executed tree.
type Request struct {
	FromCache bool
	FromRNG   bool
	RNGSeed   uint64
}

// StreamItem is one item of the externally visible execution stream:
// either a live delta from a vector-completion leaf, or a function
// subtree's own terminal aggregate. Exactly one field is set.
type StreamItem struct {
	Vector   *chunk.VectorCompletionTaskChunk
	Function *chunk.FunctionExecutionChunk
}

// Fetchers bundles the vote-sourcing fetchers the vector completion
// engine needs at every leaf.
type Fetchers = vector.Fetchers

// Client is the upstream chat-completion client used at every leaf.
type Client = llm.Client
