package reasoning

import (
	"context"
	"testing"

	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/exec"
	"github.com/objectiveai/engine/fetch"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/llm"
	"github.com/objectiveai/engine/vector"
	"github.com/shopspring/decimal"
)

func literal(v domain.Input) domain.ExpressionSpec {
	return domain.ExpressionSpec{IsLiteral: true, Literal: v}
}

type fakeSummaryClient struct{}

func (fakeSummaryClient) StreamChat(ctx context.Context, req llm.ChatRequest) (<-chan llm.ChatCompletionChunk, error) {
	ch := make(chan llm.ChatCompletionChunk, 2)
	go func() {
		defer close(ch)
		ch <- llm.ChatCompletionChunk{Delta: "Summary: "}
		ch <- llm.ChatCompletionChunk{Delta: "confident.", Done: true, Usage: &llm.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	}()
	return ch, nil
}

func oneLeafScalarFunction(t *testing.T) *ftp.FunctionFTP {
	t.Helper()

	base := domain.EnsembleBase{LLMs: []domain.EnsembleLLMCount{
		{LLM: domain.EnsembleLLM{Model: "model-a"}, Count: 1},
		{LLM: domain.EnsembleLLM{Model: "model-b"}, Count: 1},
	}}
	vcProfile := domain.Profile{{Weight: decimal.NewFromInt(1)}, {Weight: decimal.NewFromInt(1)}}

	function := domain.FunctionDefinition{
		Location:    domain.FunctionLocationInline,
		Description: "scores how confident the input is true",
		Type:        domain.FunctionTypeScalar,
		Output:      literal(domain.NewNumber(0.5)),
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

func TestRunStreamsSummaryThenBufferedTerminal(t *testing.T) {
	root := oneLeafScalarFunction(t)
	retry := make(domain.RetryToken, root.TaskIndexLen())

	fetchers := vector.Fetchers{
		Ensemble: fetch.FetcherFunc[string, domain.Ensemble](func(ctx context.Context, key string) (domain.Ensemble, error) {
			return domain.Ensemble{}, nil
		}),
		Retry: fetch.FetcherFunc[string, []domain.Vote](func(ctx context.Context, key string) ([]domain.Vote, error) {
			return nil, nil
		}),
		CacheVote: fetch.FetcherFunc[vector.CacheVoteKey, vector.CacheVote](func(ctx context.Context, key vector.CacheVoteKey) (vector.CacheVote, error) {
			return vector.CacheVote{}, errNotFound
		}),
	}

	reasoningReq := &domain.ReasoningRequest{Model: "summarizer"}
	ch := Run(context.Background(), root, retry, reasoningReq, exec.Request{FromRNG: true, RNGSeed: 11}, fakeSummaryClient{}, fetchers)

	var sawReasoning bool
	var terminal *domain.FunctionOutput
	var sawFunctionBeforeSummary bool
	summarySeen := false
	for item := range ch {
		if item.Reasoning != nil {
			sawReasoning = true
			summarySeen = true
		}
		if item.Function != nil {
			if !summarySeen {
				sawFunctionBeforeSummary = true
			}
			terminal = item.Function.Output
		}
	}
	if !sawReasoning {
		t.Fatalf("expected at least one reasoning summary chunk")
	}
	if sawFunctionBeforeSummary {
		t.Fatalf("terminal FunctionExecutionChunk must not be emitted before the reasoning summary")
	}
	if terminal == nil || terminal.Kind != domain.FunctionOutputScalar {
		t.Fatalf("expected a buffered scalar terminal chunk, got %+v", terminal)
	}
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var errNotFound = notFoundErr{}

func TestConfidenceTrackerOneGroupPerDistinctResponse(t *testing.T) {
	tr := newConfidenceTracker()
	responses := []domain.Input{domain.NewString("a"), domain.NewString("b")}

	item := &chunk.VectorCompletionTaskChunk{
		ResponseID: "vctcpl-1",
		Responses:  responses,
		Chunk: vector.Chunk{
			Scores: []decimal.Decimal{decimal.NewFromFloat(0.6), decimal.NewFromFloat(0.4)},
			Votes: []domain.Vote{
				{Vote: []decimal.Decimal{decimal.NewFromInt(1), decimal.Zero}, CompletionIndex: intPtr(0)},
			},
		},
	}
	tr.observe(item)
	groups := tr.finalize()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if !groups[0].Confidence.Equal(decimal.NewFromFloat(0.6)) {
		t.Fatalf("got confidence %v, want 0.6", groups[0].Confidence)
	}
}

func intPtr(i int) *int { return &i }
