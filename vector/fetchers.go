package vector

import (
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/fetch"
	"github.com/shopspring/decimal"
)

// EnsembleFetcher resolves an ensemble by its content-addressed id.
type EnsembleFetcher = fetch.Fetcher[string, domain.Ensemble]

// RetryFetcher resolves the prior votes attached to a vector-completion id
// (spec.md §4.3 "Setup" step 3).
type RetryFetcher = fetch.Fetcher[string, []domain.Vote]

// CacheVoteKey identifies a cached vote: the LLM's model+fallbacks plus the
// content-addressed prompt/tools/responses it was computed against.
type CacheVoteKey struct {
	Model        string
	Fallbacks    string // joined, for map-key comparability
	PromptID     string
	ToolsID      string
	ResponsesIDs string // joined, order-sensitive
}

// CacheVote is a cached vote: the vote vector plus the exact ordered
// response ids it was computed against, so the caller can rearrange it to
// match the current request's responses_ids order.
type CacheVote struct {
	Vote        []decimal.Decimal
	ResponsesIDs []string
}

// CacheVoteFetcher resolves a cached vote by CacheVoteKey.
type CacheVoteFetcher = fetch.Fetcher[CacheVoteKey, CacheVote]

// Fetchers bundles the capability fetches the vector completion engine
// needs, per spec.md §6 "Fetcher capabilities".
type Fetchers struct {
	Ensemble   EnsembleFetcher
	Retry      RetryFetcher
	CacheVote  CacheVoteFetcher
}
