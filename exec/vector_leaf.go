package exec

import (
	"context"
	"sync"

	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/vector"
	"github.com/shopspring/decimal"
)

// executeVectorLeaf runs spec.md §4.5's "Vector completion leaf": invokes
// the vector completion engine with this slot's retry value, streams
// every vector.Chunk upward as a VectorCompletionTaskChunk, and on
// completion emits the OutputChunk carrying the aggregated
// VectorCompletionOutput and the rotated (or unchanged) retry value.
func executeVectorLeaf(ctx context.Context, vc *ftp.VectorCompletionFTP, retry domain.RetryToken, localIndex int, req Request, client Client, fetchers Fetchers, out chan<- StreamItem, choiceIndex int) chunk.OutputChunk {
	var retrySlot *string
	if len(retry) > 0 {
		retrySlot = retry[0]
	}

	base := domain.EnsembleBase{LLMs: vc.Ensemble.LLMs}
	vreq := vector.Request{
		Messages:   vc.Messages,
		Tools:      vc.Tools,
		Responses:  vc.Responses,
		InlineBase: &base,
		Profile:    vc.Profile,
		FromCache:  req.FromCache,
		FromRNG:    req.FromRNG,
		Retry:      retrySlot,
	}

	ch, err := vector.Run(ctx, vreq, fetchers, client, req.RNGSeed)
	if err != nil {
		item := chunk.VectorCompletionTaskChunk{TaskIndex: localIndex, ChoiceIndex: choiceIndex, Responses: vc.Responses, Error: err}
		out <- StreamItem{Vector: &item}

		n := len(vc.Responses)
		weights := make([]decimal.Decimal, n)
		empty := domain.VectorCompletionOutput{Scores: domain.UniformScores(n), Weights: weights}
		return chunk.OutputChunk{
			TaskIndex:  localIndex,
			Output:     domain.TaskOutput{Kind: domain.TaskOutputVectorCompletion, VectorCompletion: empty},
			RetryToken: retry,
		}
	}

	responseID := chunk.NewResponseID(chunk.PrefixVectorCompletion)
	anySucceeded := false
	var final vector.Chunk
	for c := range ch {
		final = c
		for _, v := range c.Votes {
			if !v.Retry && !v.FromCache && !v.FromRNG {
				anySucceeded = true
				break
			}
		}
		item := chunk.VectorCompletionTaskChunk{
			TaskIndex:   localIndex,
			ChoiceIndex: choiceIndex,
			ResponseID:  responseID,
			Responses:   vc.Responses,
			Chunk:       c,
		}
		out <- StreamItem{Vector: &item}
	}

	newRetry := retry
	if anySucceeded {
		id := responseID
		newRetry = domain.RetryToken{&id}
	}

	return chunk.OutputChunk{
		TaskIndex: localIndex,
		Output: domain.TaskOutput{
			Kind: domain.TaskOutputVectorCompletion,
			VectorCompletion: domain.VectorCompletionOutput{
				Votes:   final.Votes,
				Scores:  final.Scores,
				Weights: final.Weights,
			},
		},
		RetryToken: newRetry,
	}
}

// executeMapVectorLeaf runs spec.md §4.5's "MapVectorCompletion" variant:
// one executeVectorLeaf per input_maps element, concurrently, each
// contributing exactly one retry-token slot.
func executeMapVectorLeaf(ctx context.Context, m *ftp.MapVectorCompletionFTP, retry domain.RetryToken, localIndex int, req Request, client Client, fetchers Fetchers, out chan<- StreamItem) chunk.OutputChunk {
	n := len(m.Children)
	if n == 0 {
		return chunk.OutputChunk{
			TaskIndex:  localIndex,
			Output:     domain.TaskOutput{Kind: domain.TaskOutputMapVectorCompletion},
			RetryToken: retry,
		}
	}

	retryOut := make(domain.RetryToken, n)
	copy(retryOut, retry)
	outputs := make([]domain.VectorCompletionOutput, n)
	indexer := NewChoiceIndexer()

	var wg sync.WaitGroup
	for i := range m.Children {
		var childRetry domain.RetryToken
		if i < len(retry) {
			childRetry = retry[i : i+1]
		}
		wg.Add(1)
		go func(i int, childRetry domain.RetryToken) {
			defer wg.Done()
			oc := executeVectorLeaf(ctx, &m.Children[i], childRetry, i, req, client, fetchers, out, indexer.Index(i))
			outputs[i] = oc.Output.VectorCompletion
			if len(oc.RetryToken) > 0 {
				retryOut[i] = oc.RetryToken[0]
			}
		}(i, childRetry)
	}
	wg.Wait()

	return chunk.OutputChunk{
		TaskIndex:  localIndex,
		Output:     domain.TaskOutput{Kind: domain.TaskOutputMapVectorCompletion, MapVectorCompletion: outputs},
		RetryToken: retryOut,
	}
}
