package exec

import (
	"context"
	"testing"

	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/fetch"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/vector"
	"github.com/shopspring/decimal"
)

func literal(v domain.Input) domain.ExpressionSpec {
	return domain.ExpressionSpec{IsLiteral: true, Literal: v}
}

func noopEnsembleFetcher() vector.EnsembleFetcher {
	return fetch.FetcherFunc[string, domain.Ensemble](func(ctx context.Context, key string) (domain.Ensemble, error) {
		return domain.Ensemble{}, nil
	})
}

func noopRetryFetcher() vector.RetryFetcher {
	return fetch.FetcherFunc[string, []domain.Vote](func(ctx context.Context, key string) ([]domain.Vote, error) {
		return nil, nil
	})
}

func missingCacheFetcher() vector.CacheVoteFetcher {
	return fetch.FetcherFunc[vector.CacheVoteKey, vector.CacheVote](func(ctx context.Context, key vector.CacheVoteKey) (vector.CacheVote, error) {
		return vector.CacheVote{}, errTestNotFound
	})
}

type testNotFoundErr struct{}

func (testNotFoundErr) Error() string { return "not found" }

var errTestNotFound = testNotFoundErr{}

// oneLeafScalarFunction builds a resolved FunctionFTP for a scalar
// function with a single vector-completion task; both the task's output
// expression (null) and the function's own `output` expression (0.5) are
// literals, so the function output does not depend on the leaf's scores.
func oneLeafScalarFunction(t *testing.T) *ftp.FunctionFTP {
	t.Helper()

	base := domain.EnsembleBase{LLMs: []domain.EnsembleLLMCount{
		{LLM: domain.EnsembleLLM{Model: "model-a"}, Count: 1},
		{LLM: domain.EnsembleLLM{Model: "model-b"}, Count: 1},
	}}
	vcProfile := domain.Profile{{Weight: decimal.NewFromInt(1)}, {Weight: decimal.NewFromInt(1)}}

	function := domain.FunctionDefinition{
		Location: domain.FunctionLocationInline,
		Type:     domain.FunctionTypeScalar,
		Output:   literal(domain.NewNumber(0.5)),
		Tasks: []domain.TaskExpression{
			{
				Kind: domain.TaskKindVectorCompletion,
				VectorCompletion: domain.VectorCompletionTaskExpr{
					Ensemble: domain.EnsembleParam{Location: domain.FunctionLocationInline, Value: &base},
					Profile:  domain.ProfileParam{Location: domain.FunctionLocationInline, Value: vcProfile},
					Messages: literal(domain.NewArray(
						domain.NewObject([]string{"role", "content"}, map[string]domain.Input{
							"role":    domain.NewString("user"),
							"content": domain.NewString("hi"),
						}),
					)),
					Responses: literal(domain.NewArray(domain.NewString("a"), domain.NewString("b"))),
				},
				Input:  literal(domain.NewNull()),
				Output: literal(domain.NewNull()),
			},
		},
	}
	profile := domain.Profile{{Weight: decimal.NewFromInt(1)}}

	result, err := ftp.Resolve(
		context.Background(),
		domain.FunctionParam{Location: domain.FunctionLocationInline, Value: &function},
		domain.ProfileParam{Location: domain.FunctionLocationInline, Value: profile},
		domain.NewNull(),
		ftp.Fetchers{},
	)
	if err != nil {
		t.Fatalf("ftp.Resolve: %v", err)
	}
	return result
}

func TestRunEmitsTerminalFunctionExecutionChunk(t *testing.T) {
	root := oneLeafScalarFunction(t)
	retry := make(domain.RetryToken, root.TaskIndexLen())

	fetchers := vector.Fetchers{
		Ensemble:  noopEnsembleFetcher(),
		Retry:     noopRetryFetcher(),
		CacheVote: missingCacheFetcher(),
	}

	ch := Run(context.Background(), root, retry, Request{FromRNG: true, RNGSeed: 7}, nil, fetchers)

	var terminal *domain.FunctionOutput
	sawVote := false
	for item := range ch {
		if item.Vector != nil {
			sawVote = true
		}
		if item.Function != nil && item.Function.Done {
			terminal = item.Function.Output
		}
	}
	if !sawVote {
		t.Fatalf("expected at least one vector-completion delta")
	}
	if terminal == nil {
		t.Fatalf("expected a terminal FunctionExecutionChunk")
	}
	if terminal.Kind != domain.FunctionOutputScalar {
		t.Fatalf("got output kind %v, want Scalar", terminal.Kind)
	}
	if !terminal.Scalar.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("got scalar %v, want 0.5", terminal.Scalar)
	}
}

func TestRunRejectsOutOfRangeScalarOutput(t *testing.T) {
	root := oneLeafScalarFunction(t)
	root.Function.Output = literal(domain.NewNumber(2))
	retry := make(domain.RetryToken, root.TaskIndexLen())
	fetchers := vector.Fetchers{
		Ensemble:  noopEnsembleFetcher(),
		Retry:     noopRetryFetcher(),
		CacheVote: missingCacheFetcher(),
	}

	ch := Run(context.Background(), root, retry, Request{FromRNG: true, RNGSeed: 7}, nil, fetchers)

	var terminal *chunk.FunctionExecutionChunk
	for item := range ch {
		if item.Function != nil && item.Function.Done {
			terminal = item.Function
		}
	}
	if terminal == nil {
		t.Fatalf("expected a terminal FunctionExecutionChunk")
	}
	if terminal.Output.Kind != domain.FunctionOutputErr {
		t.Fatalf("got output kind %v, want Err", terminal.Output.Kind)
	}
	if !terminal.TasksErrors {
		t.Fatalf("expected TasksErrors to be set")
	}
}

func TestChoiceIndexerAssignsContiguousIndices(t *testing.T) {
	idx := NewChoiceIndexer()
	if got := idx.Index(5); got != 0 {
		t.Fatalf("first Index() = %d, want 0", got)
	}
	if got := idx.Index(2); got != 1 {
		t.Fatalf("second Index() = %d, want 1", got)
	}
	if got := idx.Index(5); got != 0 {
		t.Fatalf("repeat Index(5) = %d, want 0", got)
	}
}
