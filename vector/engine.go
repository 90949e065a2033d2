package vector

import (
	"context"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/llm"
)

// Run executes a full vector-completion request: setup, vote sourcing
// (retry → cache → RNG → live), and weighted aggregation, returning a
// stream of Chunks.
//
// Per spec.md §4.3 "First-chunk semantics", Run blocks until the first
// downstream item is available (or the live pass is skipped entirely by
// the streaming-only short-circuit); if that first item is itself an
// error, Run returns the error directly instead of a channel.
func Run(ctx context.Context, req Request, fetchers Fetchers, client llm.Client, rngSeed uint64) (<-chan Chunk, error) {
	setup, err := Prepare(ctx, req, fetchers)
	if err != nil {
		return nil, err
	}

	agg := NewAggregator(len(req.Responses))
	var votes []domain.Vote
	votes = append(votes, setup.RetryVotes...)
	for _, v := range votes {
		agg.Attach(v)
	}

	remaining := setup.FlatLLMs
	if req.FromCache {
		var cacheVotes []domain.Vote
		remaining, cacheVotes, err = SourceCache(ctx, setup, remaining, fetchers)
		if err != nil {
			return nil, err
		}
		for _, v := range cacheVotes {
			agg.Attach(v)
		}
		votes = append(votes, cacheVotes...)
	}
	if req.FromRNG {
		rngVotes := SourceRNG(setup, remaining, rngSeed)
		for _, v := range rngVotes {
			agg.Attach(v)
		}
		votes = append(votes, rngVotes...)
		remaining = nil
	}

	if len(remaining) == 0 {
		// Streaming-only short-circuit (spec.md §4.3): every LLM was
		// satisfied without a live stream — emit one synthetic final chunk.
		out := make(chan Chunk, 1)
		out <- Chunk{Votes: votes, Weights: agg.Weights(), Scores: agg.Scores(), Done: true}
		close(out)
		return out, nil
	}

	mergedCh := RunLive(ctx, client, setup, remaining, req.Responses, rngSeed)

	first, ok := <-mergedCh
	if !ok {
		out := make(chan Chunk, 1)
		out <- Chunk{Votes: votes, Weights: agg.Weights(), Scores: agg.Scores(), Done: true}
		close(out)
		return out, nil
	}
	if first.err != nil && first.done && first.vote == nil {
		return nil, first.err
	}

	out := make(chan Chunk)
	go driveLive(agg, votes, mergedCh, first, out)
	return out, nil
}

// driveLive consumes the merged per-LLM liveUpdate stream (starting with
// the already-read first item), folding each newly extracted vote into
// agg and emitting a Chunk per update. Per-LLM usage is summed and
// attached only to the final Chunk (spec.md §4.3 "Usage").
func driveLive(agg *Aggregator, votes []domain.Vote, mergedCh <-chan liveUpdate, first liveUpdate, out chan<- Chunk) {
	defer close(out)

	var usage llm.Usage
	haveUsage := false

	emit := func(u liveUpdate, done bool) {
		if u.vote != nil {
			agg.Attach(*u.vote)
			votes = append(votes, *u.vote)
		}
		if u.chunk.Usage != nil {
			haveUsage = true
			usage.InputTokens += u.chunk.Usage.InputTokens
			usage.OutputTokens += u.chunk.Usage.OutputTokens
			usage.TotalTokens += u.chunk.Usage.TotalTokens
		}
		completion := ChatCompletionChunk{Index: u.flatIndex, Inner: u.chunk, Error: u.err}
		c := Chunk{
			Completions: []ChatCompletionChunk{completion},
			Votes:       append([]domain.Vote(nil), votes...),
			Weights:     agg.Weights(),
			Scores:      agg.Scores(),
			Done:        done,
		}
		if done && haveUsage {
			u := usage
			c.Usage = &u
		}
		out <- c
	}

	emit(first, false)

	for u := range mergedCh {
		emit(u, false)
	}

	// Final chunk: aggregate state is unchanged from the last emitted
	// update, but Done + accumulated Usage must be attached once more so
	// a pure listener-of-Done-chunks sees the terminal state.
	final := Chunk{
		Votes:   append([]domain.Vote(nil), votes...),
		Weights: agg.Weights(),
		Scores:  agg.Scores(),
		Done:    true,
	}
	if haveUsage {
		u := usage
		final.Usage = &u
	}
	out <- final
}
