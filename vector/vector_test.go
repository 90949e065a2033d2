package vector

import (
	"context"
	"testing"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/fetch"
	"github.com/objectiveai/engine/llm"
	"github.com/shopspring/decimal"
)

func testEnsembleBase() domain.EnsembleBase {
	return domain.EnsembleBase{LLMs: []domain.EnsembleLLMCount{
		{LLM: domain.EnsembleLLM{Model: "model-a"}, Count: 1},
		{LLM: domain.EnsembleLLM{Model: "model-b"}, Count: 1},
	}}
}

func noopEnsembleFetcher() EnsembleFetcher {
	return fetch.FetcherFunc[string, domain.Ensemble](func(ctx context.Context, key string) (domain.Ensemble, error) {
		return domain.Ensemble{}, nil
	})
}

func noopRetryFetcher() RetryFetcher {
	return fetch.FetcherFunc[string, []domain.Vote](func(ctx context.Context, key string) ([]domain.Vote, error) {
		return nil, nil
	})
}

func missingCacheFetcher() CacheVoteFetcher {
	return fetch.FetcherFunc[CacheVoteKey, CacheVote](func(ctx context.Context, key CacheVoteKey) (CacheVote, error) {
		return CacheVote{}, errNotFound
	})
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var errNotFound = notFoundErr{}

func TestPrepareRejectsFewerThanTwoResponses(t *testing.T) {
	base := testEnsembleBase()
	req := Request{
		Messages:  domain.Messages{{Role: "user"}},
		Responses: []domain.Input{domain.NewString("a")},
		InlineBase: &base,
		Profile:   domain.Profile{{Weight: decimal.NewFromInt(1)}, {Weight: decimal.NewFromInt(1)}},
	}
	_, err := Prepare(context.Background(), req, Fetchers{
		Ensemble: noopEnsembleFetcher(), Retry: noopRetryFetcher(), CacheVote: missingCacheFetcher(),
	})
	if err == nil {
		t.Fatalf("expected error for fewer than two responses")
	}
}

func TestPrepareFlattensEnsemble(t *testing.T) {
	base := testEnsembleBase()
	req := Request{
		Messages:  domain.Messages{{Role: "user"}},
		Responses: []domain.Input{domain.NewString("a"), domain.NewString("b")},
		InlineBase: &base,
		Profile: domain.Profile{
			{Weight: decimal.NewFromInt(1)},
			{Weight: decimal.NewFromInt(1)},
		},
	}
	setup, err := Prepare(context.Background(), req, Fetchers{
		Ensemble: noopEnsembleFetcher(), Retry: noopRetryFetcher(), CacheVote: missingCacheFetcher(),
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(setup.FlatLLMs) != 2 {
		t.Fatalf("got %d flat LLMs, want 2", len(setup.FlatLLMs))
	}
	if len(setup.ResponsesIDs) != 2 {
		t.Fatalf("got %d response ids, want 2", len(setup.ResponsesIDs))
	}
}

func TestRunRNGShortCircuit(t *testing.T) {
	base := testEnsembleBase()
	req := Request{
		Messages:   domain.Messages{{Role: "user"}},
		Responses:  []domain.Input{domain.NewString("a"), domain.NewString("b")},
		InlineBase: &base,
		Profile: domain.Profile{
			{Weight: decimal.NewFromInt(1)},
			{Weight: decimal.NewFromInt(1)},
		},
		FromRNG: true,
	}
	fetchers := Fetchers{Ensemble: noopEnsembleFetcher(), Retry: noopRetryFetcher(), CacheVote: missingCacheFetcher()}

	ch, err := Run(context.Background(), req, fetchers, nil, 1234)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var last Chunk
	count := 0
	for c := range ch {
		last = c
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one synthetic chunk, got %d", count)
	}
	if !last.Done {
		t.Fatalf("expected Done chunk")
	}
	if len(last.Votes) != 2 {
		t.Fatalf("got %d votes, want 2", len(last.Votes))
	}
	sum := decimal.Zero
	for _, s := range last.Scores {
		sum = sum.Add(s)
	}
	if !sum.Round(6).Equal(decimal.NewFromInt(1)) {
		t.Fatalf("scores do not sum to 1: %v", last.Scores)
	}
}

func TestAggregatorUniformBeforeVotes(t *testing.T) {
	agg := NewAggregator(4)
	scores := agg.Scores()
	want := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(4), 18)
	for _, s := range scores {
		if !s.Equal(want) {
			t.Fatalf("got %v, want %v", s, want)
		}
	}
}

var _ llm.Client = nil
