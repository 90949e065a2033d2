// Package vector implements the vector completion engine: ensemble vote
// sourcing (retry/cache/RNG/live), weighted aggregation, and score
// normalization, per spec.md §4.3.
//
// Grounded on original_source/objectiveai-api/src/vector/completions/client.rs
// for the setup/vote-sourcing/aggregation algorithm, and the teacher's
// runtime.go executeGraphParallel (worker-goroutine + result-channel
// fan-in, cancellation-aware select loop) for the concurrent streaming
// idiom — "select_all" concurrent-merge semantics are implemented the same
// way runtime.go fans multiple node-execution goroutines into one
// resultCh, generalized from per-node results to per-LLM completion
// chunks.
package vector

import (
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/llm"
	"github.com/shopspring/decimal"
)

// Request is a vector-completion request, per spec.md §4.3 "Input".
type Request struct {
	Messages  domain.Messages
	Tools     []domain.ToolDefinition
	Responses []domain.Input // length >= 2

	EnsembleID    string // set when resolving by id
	InlineBase    *domain.EnsembleBase
	Profile       domain.Profile

	FromCache bool
	FromRNG   bool
	Retry     *string // prior vector-completion id, when retrying
}

// FlatLLM is one flattened ensemble slot: a single LLM instance (after
// replicating by count), paired with its merged profile weight/invert and
// its position in the flat layout.
type FlatLLM struct {
	FlatEnsembleIndex int
	EnsembleIndex     int
	LLM               domain.EnsembleLLM
	Weight            decimal.Decimal
	Invert            bool

	// Sourced is not set by the vote-sourcing passes, which track
	// satisfied slots by dropping them from the remaining slice instead.
	Sourced *domain.Vote
}

// ChatCompletionChunk wraps one per-LLM streaming chunk with the flat
// index it was assigned, per spec.md §4.3 "Live streaming".
type ChatCompletionChunk struct {
	Index int
	Inner llm.ChatCompletionChunk
	Error error
}

// Chunk is one increment of the vector-completion response stream.
type Chunk struct {
	Completions []ChatCompletionChunk
	Votes       []domain.Vote
	Weights     []decimal.Decimal
	Scores      []decimal.Decimal
	Usage       *llm.Usage // attached to the last chunk only
	Done        bool
}

// Setup is the fully-resolved, ready-to-source state produced by Prepare,
// per spec.md §4.3 "Setup".
type Setup struct {
	Messages      domain.Messages
	Tools         []domain.ToolDefinition
	PromptID      string
	ToolsID       string
	ResponsesIDs  []string
	FlatLLMs      []FlatLLM
	RetryVotes    []domain.Vote
}
